package layout

import (
	"testing"

	"tilewm/internal/platform"
)

func TestComputeMasterStack_TwoWindows(t *testing.T) {
	// Screen 1440x900 at (0,0), inset by Gap=12 on each side gives bounds
	// (12,12,1416,876). masterWidth = max(708, 400) = 708, clamped by
	// 1416-400-12=1004, stays 708. Stack: x=12+708+12=732, width=1416-708-12=696.
	bounds := insetBy(platform.Rect{X: 0, Y: 0, Width: 1440, Height: 900}, Gap)
	records := []Record{{WindowID: 1, AppName: "A"}, {WindowID: 2, AppName: "B"}}

	rects := ComputeMasterStack(bounds, records)
	if len(rects) != 2 {
		t.Fatalf("expected 2 rects, got %d", len(rects))
	}

	master := rects[0]
	if master.X != 12 || master.Y != 12 || master.Width != 708 || master.Height != 876 {
		t.Errorf("master rect = %+v, want {12 12 708 876}", master)
	}
	stack := rects[1]
	if stack.X != 732 || stack.Y != 12 || stack.Width != 696 || stack.Height != 876 {
		t.Errorf("stack rect = %+v, want {732 12 696 876}", stack)
	}
}

func TestComputeMasterStack_XcodeMinimum(t *testing.T) {
	// bounds width 1440, desiredMin(Xcode)=950; masterWidth=max(720,950)=950;
	// clamp by 1440-400-12=1028; stays 950. Stack width = 1440-950-12=478.
	bounds := platform.Rect{X: 0, Y: 0, Width: 1440, Height: 900}
	records := []Record{{WindowID: 1, AppName: "Xcode"}, {WindowID: 2, AppName: "Safari"}}

	rects := ComputeMasterStack(bounds, records)
	if rects[0].Width != 950 {
		t.Errorf("master width = %v, want 950", rects[0].Width)
	}
	if rects[1].Width != 478 {
		t.Errorf("stack width = %v, want 478", rects[1].Width)
	}
}

func TestComputeMasterStack_ZeroAndOne(t *testing.T) {
	bounds := platform.Rect{X: 0, Y: 0, Width: 1000, Height: 800}

	if rects := ComputeMasterStack(bounds, nil); rects != nil {
		t.Errorf("zero windows: expected nil, got %v", rects)
	}

	one := []Record{{WindowID: 1, AppName: "A"}}
	rects := ComputeMasterStack(bounds, one)
	if len(rects) != 1 || rects[0] != bounds {
		t.Errorf("one window: expected %+v, got %+v", bounds, rects)
	}
}

func TestComputeMasterStack_StackCellSum(t *testing.T) {
	bounds := platform.Rect{X: 0, Y: 0, Width: 1200, Height: 900}
	records := []Record{
		{WindowID: 1, AppName: "A"},
		{WindowID: 2, AppName: "B"},
		{WindowID: 3, AppName: "C"},
		{WindowID: 4, AppName: "D"},
	}

	rects := ComputeMasterStack(bounds, records)

	sum := rects[0].Width + Gap + rects[1].Width
	if diff := sum - bounds.Width; diff > 0.001 || diff < -0.001 {
		t.Errorf("master+gap+stack width = %v, want %v", sum, bounds.Width)
	}

	var heightSum float64
	for i := 1; i < len(rects); i++ {
		heightSum += rects[i].Height
	}
	heightSum += Gap * float64(len(rects)-2)
	if diff := heightSum - bounds.Height; diff > 0.001 || diff < -0.001 {
		t.Errorf("stack heights + gaps = %v, want %v", heightSum, bounds.Height)
	}
}
