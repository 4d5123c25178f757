package main

import (
	"math"
	"testing"
)

// encodeEntityFrame collects an entity's dirty fields into a wire frame
func encodeEntityFrame(t *testing.T, e *Entity, serverTime float64) []byte {
	t.Helper()
	frame, err := EncodeBatch(FieldBatch{Time: serverTime, Updates: e.repl.Collect(nil)})
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	return frame
}

func TestClientWorldNeverTracksOwnEntity(t *testing.T) {
	w := NewClientWorld("me")
	if w.Track("me") != nil {
		t.Error("the owned entity must not get a remote view")
	}
	if w.Track("other") == nil {
		t.Error("expected a remote view for another entity")
	}
	if w.Track("other") != w.Remotes["other"] {
		t.Error("tracking twice must return the same view")
	}
}

func TestApplyFrameFeedsRemoteSamples(t *testing.T) {
	w := NewClientWorld("me")
	r := w.Track("e1")

	e := NewEntity("e1", "e1", TeamB, Vec3{}, 0)
	e.Pos.Set(Vec3{X: 1})
	e.Vel.Set(Vec3{X: 10})
	if err := w.ApplyFrame(encodeEntityFrame(t, e, 5.0)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	e.Pos.Set(Vec3{X: 2})
	if err := w.ApplyFrame(encodeEntityFrame(t, e, 5.1)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if r.Samples.Len() < 2 {
		t.Fatalf("expected at least 2 samples, got %d", r.Samples.Len())
	}
	last := r.Samples.At(r.Samples.Len() - 1)
	if last.Time != 5.1 || last.Pos.X != 2 {
		t.Errorf("expected last sample (t=5.1, x=2), got (t=%v, x=%v)", last.Time, last.Pos.X)
	}

	r.Render(5.05)
	if math.Abs(r.Pos.X-1.5) > 1e-9 {
		t.Errorf("expected interpolated x=1.5, got %v", r.Pos.X)
	}
}

func TestApplyFrameUpdatesStatusFields(t *testing.T) {
	w := NewClientWorld("me")
	r := w.Track("e1")

	e := NewEntity("e1", "e1", TeamB, Vec3{}, 0)
	e.AdjustHealth(-40)
	e.SetFrozen(true)
	if err := w.ApplyFrame(encodeEntityFrame(t, e, 1.0)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if r.Health.Get() != 60 {
		t.Errorf("expected replicated health 60, got %d", r.Health.Get())
	}
	if !r.Frozen.Get() {
		t.Error("expected replicated frozen flag")
	}
}

func TestServerClockAdvancesBetweenFrames(t *testing.T) {
	w := NewClientWorld("me")
	if w.ServerNow() != 0 {
		t.Error("clock estimate is zero before any frame")
	}

	e := NewEntity("e1", "e1", TeamB, Vec3{}, 0)
	e.Pos.Set(Vec3{X: 1})
	w.Track("e1")
	if err := w.ApplyFrame(encodeEntityFrame(t, e, 20.0)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := w.ServerNow(); got < 20.0 {
		t.Errorf("expected clock estimate >= 20, got %v", got)
	}
}

func TestDropStopsUpdates(t *testing.T) {
	w := NewClientWorld("me")
	r := w.Track("e1")
	w.Drop("e1")

	e := NewEntity("e1", "e1", TeamB, Vec3{}, 0)
	e.Pos.Set(Vec3{X: 9})
	if err := w.ApplyFrame(encodeEntityFrame(t, e, 1.0)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if r.Samples.Len() != 0 {
		t.Error("a dropped view must not receive samples")
	}
	if _, ok := w.Remotes["e1"]; ok {
		t.Error("dropped view should leave the remote set")
	}
}

func TestBadFrameIsAnError(t *testing.T) {
	w := NewClientWorld("me")
	if err := w.ApplyFrame([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Error("expected a decode error for garbage bytes")
	}
}
