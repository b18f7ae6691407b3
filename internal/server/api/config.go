package api

import "net/http"

// ConfigHandler reports the configuration the pipeline is running with.
type ConfigHandler struct {
	snapshot func() any
}

// NewConfigHandler creates a ConfigHandler. snapshot is called on every
// request so the response follows runtime changes.
func NewConfigHandler(snapshot func() any) *ConfigHandler {
	return &ConfigHandler{snapshot: snapshot}
}

// ServeHTTP handles GET /api/config.
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot())
}
