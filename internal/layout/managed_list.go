package layout

import (
	"time"

	"tilewm/internal/platform"
)

// ZombieTable maps a window id to the instant it was first missing from a
// discovery snapshot. The map itself is unordered; together with List's
// ordered records it forms an insertion-ordered set with per-entry
// tombstone timestamps (spec section 9, design notes).
type ZombieTable map[platform.WindowID]time.Time

// List is the Layout Engine's durable ordered sequence of records. Index 0
// is the master slot; indices >= 1 are the stack in top-to-bottom order.
// Access is single-threaded by design (spec section 5): only the main
// goroutine that owns the Engine mutates it.
type List struct {
	records []Record
	zombies ZombieTable
}

// New returns an empty managed list.
func New() *List {
	return &List{zombies: make(ZombieTable)}
}

// Records returns a defensive copy of the current order.
func (l *List) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records currently tracked, including zombies.
func (l *List) Len() int {
	return len(l.records)
}

// IsZombie reports whether id is currently a zombie.
func (l *List) IsZombie(id platform.WindowID) bool {
	_, ok := l.zombies[id]
	return ok
}

// ZombieCount returns the number of records currently tombstoned in the
// zombie table.
func (l *List) ZombieCount() int {
	return len(l.zombies)
}

// UpdateResult reports facts about a reconciliation pass needed by the
// engine's scheduling policy (spec section 4.2.5).
type UpdateResult struct {
	// IntroducedNewWindow is true iff the snapshot contained at least one
	// window id not already present in the list before this update.
	IntroducedNewWindow bool
	// Purged lists window ids permanently dropped this pass (zombie TTL
	// elapsed).
	Purged []platform.WindowID
}

// Update reconciles the list against a fresh discovery snapshot (spec
// section 4.2.1). Index stability is preserved for windows that survive;
// newly seen windows are appended in snapshot order.
func (l *List) Update(snapshot []Record, now time.Time) UpdateResult {
	bySnapshotID := make(map[platform.WindowID]Record, len(snapshot))
	for _, r := range snapshot {
		bySnapshotID[r.WindowID] = r
	}

	existing := make(map[platform.WindowID]struct{}, len(l.records))
	for _, r := range l.records {
		existing[r.WindowID] = struct{}{}
	}

	newZombies := make(ZombieTable, len(l.zombies))
	newRecords := make([]Record, 0, len(l.records)+len(snapshot))
	var purged []platform.WindowID

	for _, current := range l.records {
		incoming, present := bySnapshotID[current.WindowID]
		if present {
			newRecords = append(newRecords, incoming)
			continue
		}

		firstMissedAt, wasZombie := l.zombies[current.WindowID]
		if !wasZombie {
			newZombies[current.WindowID] = now
			newRecords = append(newRecords, current)
			continue
		}
		if now.Sub(firstMissedAt) < ZombieTTL {
			newZombies[current.WindowID] = firstMissedAt
			newRecords = append(newRecords, current)
			continue
		}
		purged = append(purged, current.WindowID)
	}

	var introducedNew bool
	for _, r := range snapshot {
		if _, already := existing[r.WindowID]; already {
			continue
		}
		newRecords = append(newRecords, r)
		introducedNew = true
	}

	l.records = newRecords
	l.zombies = newZombies

	return UpdateResult{IntroducedNewWindow: introducedNew, Purged: purged}
}

// MoveFocused implements the manual reordering directions in spec section
// 4.2.2. It returns whether the list order actually changed.
func (l *List) MoveFocused(id platform.WindowID, dir Direction) bool {
	idx := l.indexOf(id)
	if idx < 0 {
		return false
	}

	switch dir {
	case DirLeft:
		return l.moveTo(idx, 0)
	case DirRight:
		return l.moveTo(idx, 1)
	case DirUp:
		target := idx - 1
		if target < 0 {
			target = 0
		}
		return l.swap(idx, target)
	case DirDown:
		target := idx + 1
		if target > len(l.records)-1 {
			target = len(l.records) - 1
		}
		return l.swap(idx, target)
	default:
		return false
	}
}

// PromoteToMaster moves id to index 0. No-op if already master or absent.
func (l *List) PromoteToMaster(id platform.WindowID) bool {
	idx := l.indexOf(id)
	if idx <= 0 {
		return false
	}
	return l.moveTo(idx, 0)
}

// Direction is an arrow-key direction for manual reordering.
type Direction int

const (
	DirLeft Direction = iota
	DirRight
	DirUp
	DirDown
)

func (l *List) indexOf(id platform.WindowID) int {
	for i, r := range l.records {
		if r.WindowID == id {
			return i
		}
	}
	return -1
}

func (l *List) moveTo(from, to int) bool {
	if to >= len(l.records) {
		to = len(l.records) - 1
	}
	if to < 0 {
		to = 0
	}
	if from == to {
		return false
	}
	r := l.records[from]
	l.records = append(l.records[:from], l.records[from+1:]...)
	l.records = append(l.records[:to], append([]Record{r}, l.records[to:]...)...)
	return true
}

func (l *List) swap(a, b int) bool {
	if a == b {
		return false
	}
	l.records[a], l.records[b] = l.records[b], l.records[a]
	return true
}
