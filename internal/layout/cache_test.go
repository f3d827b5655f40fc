package layout

import (
	"testing"

	"tilewm/internal/platform"
)

func TestTargetFrameCache_SuppressesBelowDeadZone(t *testing.T) {
	c := NewTargetFrameCache()

	first := platform.Rect{X: 100, Y: 100, Width: 400, Height: 400}
	if !c.ShouldDispatch(1, first) {
		t.Fatal("first dispatch for a window should always proceed")
	}

	// 0.3pt / 0.7pt / 0.1pt / 0.2pt drift, all below the 1pt dead zone.
	nearlyIdentical := platform.Rect{X: 100.3, Y: 100.7, Width: 400.1, Height: 400.2}
	if c.ShouldDispatch(1, nearlyIdentical) {
		t.Error("dispatch below the 1pt dead zone on all components should be suppressed")
	}

	moved := platform.Rect{X: 102, Y: 100, Width: 400, Height: 400}
	if !c.ShouldDispatch(1, moved) {
		t.Error("dispatch with >=1pt drift on one component should proceed")
	}
}

func TestTargetFrameCache_Reset(t *testing.T) {
	c := NewTargetFrameCache()
	r := platform.Rect{X: 0, Y: 0, Width: 100, Height: 100}
	c.ShouldDispatch(1, r)

	if c.ShouldDispatch(1, r) {
		t.Fatal("repeat of the same rect should be suppressed before reset")
	}

	c.Reset()
	if !c.ShouldDispatch(1, r) {
		t.Error("after Reset, an unchanged rect should dispatch again")
	}
}

func TestTargetFrameCache_Idempotence(t *testing.T) {
	c := NewTargetFrameCache()
	targets := map[platform.WindowID]platform.Rect{
		1: {X: 0, Y: 0, Width: 500, Height: 500},
		2: {X: 500, Y: 0, Width: 500, Height: 500},
	}

	dispatched := 0
	for id, r := range targets {
		if c.ShouldDispatch(id, r) {
			dispatched++
		}
	}
	if dispatched != 2 {
		t.Fatalf("first pass dispatched = %d, want 2", dispatched)
	}

	dispatched = 0
	for id, r := range targets {
		if c.ShouldDispatch(id, r) {
			dispatched++
		}
	}
	if dispatched != 0 {
		t.Errorf("second pass with no state change dispatched = %d, want 0", dispatched)
	}
}
