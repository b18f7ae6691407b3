package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/conesteer/internal/app"
	"github.com/ayusman/conesteer/internal/capture"
	"github.com/ayusman/conesteer/internal/hub"
	"github.com/ayusman/conesteer/internal/server"
	"github.com/ayusman/conesteer/internal/server/api"
	"github.com/ayusman/conesteer/internal/steering"
	"github.com/ayusman/conesteer/internal/store"
	"github.com/ayusman/conesteer/internal/telemetry"
	"github.com/ayusman/conesteer/internal/testutil"
	"github.com/ayusman/conesteer/internal/vision"
)

var start = time.Date(2024, 5, 17, 14, 30, 0, 0, time.UTC)

// stepClock advances one frame period on every call.
func stepClock() func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(33 * time.Millisecond)
		return now
	}
}

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestE2E_SteeringRunWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	csvPath := filepath.Join(tmpDir, "output.txt")
	csv, err := telemetry.NewCSVSink(csvPath, "group_06", nil)
	if err != nil {
		t.Fatalf("NewCSVSink() error = %v", err)
	}

	h := hub.New()
	srv := server.New(server.Config{Store: s, Hub: h})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	defer h.Close()

	client := ts.Client()

	// Blue on the left and yellow on the right, then yellow is lost, then
	// both are lost.
	frames := append(
		testutil.Sequence(2, testutil.BlueCone(100), testutil.YellowCone(540)),
		testutil.Sequence(2, testutil.BlueCone(40))...,
	)
	frames = append(frames, testutil.Sequence(1)...)
	defer testutil.CloseAll(frames)

	application := app.New(app.Config{
		Source:    "track.mp4",
		Width:     testutil.Width,
		Height:    testutil.Height,
		SessionID: 253,
		Vision:    vision.DefaultConfig(),
		Steering:  steering.DefaultConfig(),
		Store:     s,
		BatchSize: 2,
		Sinks:     []telemetry.Sink{csv},
		Hub:       h,
		Clock:     stepClock(),
	})
	application.SetCamera(capture.NewMockCamera(frames, false))

	samples, cancel := h.Subscribe(16)
	defer cancel()

	ctx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := application.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := application.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if len(samples) != 5 {
		t.Fatalf("hub delivered %d samples, want 5", len(samples))
	}
	var last telemetry.Sample
	for len(samples) > 0 {
		last = <-samples
	}
	if last.Case != steering.NeitherPresent || last.Angle != -0.1 {
		t.Errorf("last sample = %+v, want neither holding -0.1", last)
	}

	var runID string
	t.Run("ListRuns", func(t *testing.T) {
		var body struct {
			Runs []store.Run `json:"runs"`
		}
		getJSON(t, client, ts.URL+"/api/runs", &body)
		if len(body.Runs) != 1 {
			t.Fatalf("got %d runs, want 1", len(body.Runs))
		}
		run := body.Runs[0]
		if run.Frames != 5 || run.SessionID != 253 || run.Source != "track.mp4" || run.EndedAt == nil {
			t.Errorf("unexpected run %+v", run)
		}
		runID = run.ID
	})
	if runID == "" {
		t.FailNow()
	}

	t.Run("RunSummary", func(t *testing.T) {
		var body struct {
			Run     store.Run   `json:"run"`
			Summary api.Summary `json:"summary"`
		}
		getJSON(t, client, ts.URL+"/api/runs/"+runID, &body)

		sum := body.Summary
		if sum.Frames != 5 || sum.Min != -0.1 || sum.Held != 1 {
			t.Errorf("summary = %+v", sum)
		}
		want := map[string]int{"both": 2, "blue_only": 2, "neither": 1, "yellow_only": 0}
		for c, n := range want {
			if sum.Cases[c] != n {
				t.Errorf("cases[%s] = %d, want %d", c, sum.Cases[c], n)
			}
		}
	})

	t.Run("SamplesPage", func(t *testing.T) {
		var body struct {
			Samples []store.Sample `json:"samples"`
			Total   int            `json:"total"`
		}
		getJSON(t, client, ts.URL+"/api/runs/"+runID+"/samples?limit=2&offset=2", &body)
		if body.Total != 5 || len(body.Samples) != 2 {
			t.Fatalf("page = %d samples of %d", len(body.Samples), body.Total)
		}
		third := body.Samples[0]
		if third.Frame != 3 || third.Case != "blue_only" || third.Angle != -0.1 || third.Dropout != 1 {
			t.Errorf("third sample = %+v", third)
		}
	})

	t.Run("Chart", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/runs/" + runID + "/chart")
		if err != nil {
			t.Fatalf("chart error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("chart status = %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("ResultLog", func(t *testing.T) {
		data, err := os.ReadFile(csvPath)
		if err != nil {
			t.Fatalf("read result log: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 6 {
			t.Fatalf("result log has %d lines, want 6:\n%s", len(lines), data)
		}
		if lines[0] != "group_06;sampleTimeStamp;steeringWheelAngle" {
			t.Errorf("header = %q", lines[0])
		}
		// The clock is read once when the run starts, then once per frame.
		for i, line := range lines[1:] {
			ts := start.Add(time.Duration(i+2) * 33 * time.Millisecond).UnixMicro()
			if !strings.HasPrefix(line, fmt.Sprintf("group_06;%d;", ts)) {
				t.Errorf("line %d = %q, want timestamp %d", i+1, line, ts)
			}
		}
		if want := telemetry.Line("group_06", start.Add(6*33*time.Millisecond).UnixMicro(), -0.1); lines[5] != want {
			t.Errorf("last line = %q, want %q", lines[5], want)
		}
	})

	t.Run("DeleteRun", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/runs/"+runID, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("delete error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("delete status = %d, want %d", resp.StatusCode, http.StatusNoContent)
		}

		resp, err = client.Get(ts.URL + "/api/runs/" + runID)
		if err != nil {
			t.Fatalf("get error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status after delete = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})
}
