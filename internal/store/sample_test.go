package store

import (
	"testing"
)

func createRun(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.Runs().Create(&Run{ID: id, Source: "0", Width: 640, Height: 480}); err != nil {
		t.Fatalf("Create(%s) error = %v", id, err)
	}
}

func TestSampleRepository_AppendAndList(t *testing.T) {
	s := newTestStore(t)
	createRun(t, s, "run-1")

	samples := []*Sample{
		{RunID: "run-1", Frame: 1, TimestampUS: 1000, Angle: 0, Case: "both", Branch: "both_ccw", Direction: "ccw",
			BluePresent: true, BlueX: 540, YellowPresent: true, YellowX: 100},
		{RunID: "run-1", Frame: 2, TimestampUS: 2000, Angle: 0.1, Case: "blue_only", Branch: "single", Direction: "ccw",
			Dropout: 1, BluePresent: true, BlueX: 530},
		{RunID: "run-1", Frame: 3, TimestampUS: 3000, Angle: 0.1, Case: "neither", Branch: "hold", Held: true, Direction: "ccw",
			Dropout: 1},
	}
	if err := s.Samples().Append(samples...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	for i, smp := range samples {
		if smp.ID == 0 {
			t.Errorf("samples[%d].ID not assigned", i)
		}
	}

	got, err := s.Samples().ListByRun("run-1", 0, 0)
	if err != nil {
		t.Fatalf("ListByRun() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(ListByRun()) = %d, want 3", len(got))
	}
	for i, want := range samples {
		g := got[i]
		if g.Frame != want.Frame || g.TimestampUS != want.TimestampUS || g.Angle != want.Angle ||
			g.Case != want.Case || g.Branch != want.Branch || g.Held != want.Held || g.Direction != want.Direction ||
			g.Dropout != want.Dropout || g.BluePresent != want.BluePresent || g.BlueX != want.BlueX ||
			g.YellowPresent != want.YellowPresent || g.YellowX != want.YellowX {
			t.Errorf("sample %d = %+v, want %+v", i, g, *want)
		}
	}

	run, err := s.Runs().GetByID("run-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if run.Frames != 3 {
		t.Errorf("run.Frames = %d, want 3", run.Frames)
	}
}

func TestSampleRepository_ListPaging(t *testing.T) {
	s := newTestStore(t)
	createRun(t, s, "run-1")

	var batch []*Sample
	for i := int64(1); i <= 10; i++ {
		batch = append(batch, &Sample{RunID: "run-1", Frame: i, Case: "neither", Branch: "hold", Direction: "cw"})
	}
	if err := s.Samples().Append(batch...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	page, err := s.Samples().ListByRun("run-1", 3, 4)
	if err != nil {
		t.Fatalf("ListByRun() error = %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("len(page) = %d, want 3", len(page))
	}
	if page[0].Frame != 5 || page[2].Frame != 7 {
		t.Errorf("page frames = %d..%d, want 5..7", page[0].Frame, page[2].Frame)
	}

	tail, err := s.Samples().ListByRun("run-1", 0, 8)
	if err != nil {
		t.Fatalf("ListByRun() error = %v", err)
	}
	if len(tail) != 2 {
		t.Errorf("len(tail) = %d, want 2", len(tail))
	}
}

func TestSampleRepository_CountByRun(t *testing.T) {
	s := newTestStore(t)
	createRun(t, s, "run-1")
	createRun(t, s, "run-2")

	err := s.Samples().Append(
		&Sample{RunID: "run-1", Frame: 1, Case: "neither", Branch: "hold", Direction: "ccw"},
		&Sample{RunID: "run-2", Frame: 1, Case: "neither", Branch: "hold", Direction: "ccw"},
		&Sample{RunID: "run-2", Frame: 2, Case: "neither", Branch: "hold", Direction: "ccw"},
	)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	for id, want := range map[string]int{"run-1": 1, "run-2": 2, "run-3": 0} {
		n, err := s.Samples().CountByRun(id)
		if err != nil {
			t.Fatalf("CountByRun(%s) error = %v", id, err)
		}
		if n != want {
			t.Errorf("CountByRun(%s) = %d, want %d", id, n, want)
		}
	}
}

func TestSampleRepository_AppendRejectsUnknownRun(t *testing.T) {
	s := newTestStore(t)

	err := s.Samples().Append(&Sample{RunID: "missing", Frame: 1, Case: "neither", Branch: "hold", Direction: "ccw"})
	if err == nil {
		t.Error("expected foreign key violation for unknown run")
	}
}

func TestSampleRepository_AppendRejectsUnknownCase(t *testing.T) {
	s := newTestStore(t)
	createRun(t, s, "run-1")

	err := s.Samples().Append(&Sample{RunID: "run-1", Frame: 1, Case: "sideways", Branch: "hold", Direction: "ccw"})
	if err == nil {
		t.Error("expected check constraint violation for unknown case")
	}

	n, _ := s.Samples().CountByRun("run-1")
	if n != 0 {
		t.Errorf("failed batch left %d samples behind", n)
	}
}

func TestSampleRepository_AppendEmpty(t *testing.T) {
	s := newTestStore(t)

	if err := s.Samples().Append(); err != nil {
		t.Errorf("Append() with no samples error = %v", err)
	}
}
