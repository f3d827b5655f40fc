package layout

import (
	"testing"
	"time"

	"tilewm/internal/platform"
)

func TestList_Update_UniqueIDsAndOrderPreserved(t *testing.T) {
	l := New()
	now := time.Now()

	initial := []Record{{WindowID: 1}, {WindowID: 2}, {WindowID: 3}}
	l.Update(initial, now)

	snapshot := []Record{{WindowID: 3}, {WindowID: 1}, {WindowID: 4}}
	l.Update(snapshot, now)

	records := l.Records()
	seen := make(map[platform.WindowID]bool)
	for _, r := range records {
		if seen[r.WindowID] {
			t.Fatalf("duplicate window id %d in list %+v", r.WindowID, records)
		}
		seen[r.WindowID] = true
	}

	// window 2 became a zombie and stays at its original index; new window
	// 4 is appended.
	want := []platform.WindowID{1, 2, 3, 4}
	if len(records) != len(want) {
		t.Fatalf("records = %+v, want ids %v", records, want)
	}
	for i, id := range want {
		if records[i].WindowID != id {
			t.Errorf("index %d = %d, want %d", i, records[i].WindowID, id)
		}
	}
}

func TestList_Update_ZombiePreservationAndTTL(t *testing.T) {
	l := New()
	t0 := time.Now()

	l.Update([]Record{{WindowID: 1}, {WindowID: 2}, {WindowID: 3}}, t0)

	// B (window 2) missing from this snapshot.
	l.Update([]Record{{WindowID: 1}, {WindowID: 3}}, t0.Add(100*time.Millisecond))
	if !l.IsZombie(2) {
		t.Fatal("window 2 should be a zombie after first missed scan")
	}
	if l.Len() != 3 {
		t.Fatalf("list len = %d, want 3 (zombie retained)", l.Len())
	}

	// Still missing, but before TTL elapses.
	l.Update([]Record{{WindowID: 1}, {WindowID: 3}}, t0.Add(1500*time.Millisecond))
	if l.Len() != 3 {
		t.Fatalf("list len = %d, want 3 (within TTL)", l.Len())
	}

	// TTL elapsed (2.0s since first miss at t0+100ms).
	result := l.Update([]Record{{WindowID: 1}, {WindowID: 3}}, t0.Add(2200*time.Millisecond))
	if l.Len() != 2 {
		t.Fatalf("list len = %d, want 2 (zombie purged)", l.Len())
	}
	if len(result.Purged) != 1 || result.Purged[0] != 2 {
		t.Errorf("purged = %v, want [2]", result.Purged)
	}
}

func TestList_Update_ReportsNewWindow(t *testing.T) {
	l := New()
	now := time.Now()

	result := l.Update([]Record{{WindowID: 1}}, now)
	if !result.IntroducedNewWindow {
		t.Error("first update should report a new window")
	}

	result = l.Update([]Record{{WindowID: 1}}, now)
	if result.IntroducedNewWindow {
		t.Error("unchanged snapshot should not report a new window")
	}

	result = l.Update([]Record{{WindowID: 1}, {WindowID: 2}}, now)
	if !result.IntroducedNewWindow {
		t.Error("appending window 2 should report a new window")
	}
}

func TestList_MoveFocused(t *testing.T) {
	tests := []struct {
		name string
		ids  []platform.WindowID
		dir  Direction
		want []platform.WindowID
	}{
		{"left promotes to master", []platform.WindowID{1, 2, 3}, DirLeft, []platform.WindowID{2, 1, 3}},
		{"right demotes to top of stack", []platform.WindowID{1, 2, 3}, DirRight, []platform.WindowID{1, 2, 3}},
		{"up swaps with previous, clamped at 0", []platform.WindowID{1, 2, 3}, DirUp, nil},
		{"down swaps with next", []platform.WindowID{1, 2, 3}, DirDown, []platform.WindowID{1, 3, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			records := make([]Record, len(tt.ids))
			for i, id := range tt.ids {
				records[i] = Record{WindowID: id}
			}
			l.Update(records, time.Now())

			// Move the second element (index 1, id 2) in each case.
			l.MoveFocused(2, tt.dir)

			got := l.Records()
			gotIDs := make([]platform.WindowID, len(got))
			for i, r := range got {
				gotIDs[i] = r.WindowID
			}

			if tt.want == nil {
				// "up" on index 1 swaps with index 0: [2,1,3].
				want := []platform.WindowID{2, 1, 3}
				if !idsEqual(gotIDs, want) {
					t.Errorf("got %v, want %v", gotIDs, want)
				}
				return
			}
			if !idsEqual(gotIDs, tt.want) {
				t.Errorf("got %v, want %v", gotIDs, tt.want)
			}
		})
	}
}

func TestList_PromoteToMaster_RoundTripsWithMoveRight(t *testing.T) {
	l := New()
	l.Update([]Record{{WindowID: 1}, {WindowID: 2}, {WindowID: 3}}, time.Now())

	if !l.PromoteToMaster(3) {
		t.Fatal("expected promotion to change order")
	}
	if l.Records()[0].WindowID != 3 {
		t.Fatalf("index 0 = %d, want 3", l.Records()[0].WindowID)
	}

	l.MoveFocused(3, DirRight)
	if l.Records()[1].WindowID != 3 {
		t.Fatalf("index 1 = %d, want 3 (round trip law)", l.Records()[1].WindowID)
	}
}

func idsEqual(a, b []platform.WindowID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
