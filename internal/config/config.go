// Package config loads the JSON configuration of the steering pipeline.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ayusman/conesteer/internal/capture"
	"github.com/ayusman/conesteer/internal/steering"
	"github.com/ayusman/conesteer/internal/telemetry"
	"github.com/ayusman/conesteer/internal/vision"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// CameraConfig selects the frame source.
type CameraConfig struct {
	// Source is a device index or anything VideoCapture opens.
	Source string  `json:"source"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
	// FrameIntervalMS paces the loop; 0 processes frames as fast as they arrive.
	FrameIntervalMS int `json:"frame_interval_ms"`
	// FreezeThreshold is the percentage of changed pixels below which a
	// frame counts as unchanged. 0 disables freeze detection.
	FreezeThreshold float64 `json:"freeze_threshold"`
	FreezeFrames    int     `json:"freeze_frames"`
}

// FrameInterval returns the pacing interval.
func (c CameraConfig) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

// OutputConfig controls where result lines go.
type OutputConfig struct {
	Group   string `json:"group"`
	CSVPath string `json:"csv_path"`
	// Echo copies every result line to stdout.
	Echo       bool                  `json:"echo"`
	UDPAddr    string                `json:"udp_addr"`
	SerialPort string                `json:"serial_port"`
	Serial     telemetry.PortOptions `json:"serial"`
}

// StoreConfig controls the run database.
type StoreConfig struct {
	Enabled   bool   `json:"enabled"`
	Path      string `json:"path"`
	BatchSize int    `json:"batch_size"`
}

// ServerConfig controls the HTTP server. An empty Addr disables it.
type ServerConfig struct {
	Addr      string `json:"addr"`
	StaticDir string `json:"static_dir"`
}

// DisplayConfig controls local display.
type DisplayConfig struct {
	Window bool `json:"window"`
	// Label is printed in the bottom-left overlay line.
	Label string `json:"label"`
	Tray  bool   `json:"tray"`
}

// AppConfig aggregates all configuration sections.
type AppConfig struct {
	SessionID int             `json:"session_id"`
	Camera    CameraConfig    `json:"camera"`
	Vision    vision.Config   `json:"vision"`
	Steering  steering.Config `json:"steering"`
	Output    OutputConfig    `json:"output"`
	Store     StoreConfig     `json:"store"`
	Server    ServerConfig    `json:"server"`
	Display   DisplayConfig   `json:"display"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() AppConfig {
	return AppConfig{
		Camera: CameraConfig{
			Width:        capture.DefaultWidth,
			Height:       capture.DefaultHeight,
			FPS:          capture.DefaultFPS,
			FreezeFrames: capture.DefaultFreezeFrames,
		},
		Vision:   vision.DefaultConfig(),
		Steering: steering.DefaultConfig(),
		Output: OutputConfig{
			Group:   telemetry.DefaultGroup,
			CSVPath: telemetry.DefaultCSVPath,
			Echo:    true,
		},
		Store: StoreConfig{
			Enabled:   true,
			BatchSize: telemetry.DefaultBatchSize,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Display: DisplayConfig{
			Label: "Group 6",
		},
	}
}

// LoadConfig reads the JSON config from disk on top of the defaults and
// validates the result.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every problem in the configuration at once.
func (c AppConfig) Validate() error {
	var errs []error

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera: frame size %dx%d must be positive", c.Camera.Width, c.Camera.Height))
	}
	if c.Camera.FPS < 0 {
		errs = append(errs, fmt.Errorf("camera.fps: %g is negative", c.Camera.FPS))
	}
	if c.Camera.FrameIntervalMS < 0 {
		errs = append(errs, fmt.Errorf("camera.frame_interval_ms: %d is negative", c.Camera.FrameIntervalMS))
	}
	if c.Camera.FreezeThreshold < 0 || c.Camera.FreezeThreshold > 100 {
		errs = append(errs, fmt.Errorf("camera.freeze_threshold: %g outside 0..100", c.Camera.FreezeThreshold))
	}

	if err := c.Vision.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Steering.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Output.SerialPort != "" {
		if _, err := c.Output.Serial.Normalize(); err != nil {
			errs = append(errs, fmt.Errorf("output.serial: %w", err))
		}
	}
	if c.Store.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("store.batch_size: %d is negative", c.Store.BatchSize))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Save writes the configuration as indented JSON.
func (c AppConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
