// Package rack models the warehouse storage slots an order moves through.
// An entry lives at (corridor, rack). Collection by staff clears the corridor
// marker; pick-up (or stale removal) clears the rack marker. The two markers
// are independent phases of completion.
package rack

import (
	"errors"
	"fmt"
	"time"
)

// Removed marks a cleared corridor or rack coordinate.
const Removed = -1

// CorridorCapacity is the fixed number of rack slots per corridor.
const CorridorCapacity = 20

// ErrFull is returned when every slot of every known corridor is occupied.
var ErrFull = errors.New("rack: no free slot")

// ErrNotFound is returned when an order id is not on any rack.
var ErrNotFound = errors.New("rack: order not found")

// Entry records which order occupies a numbered rack in a numbered corridor.
type Entry struct {
	OrderID  int       `json:"order_id"`
	Rack     int       `json:"rack"`     // Removed once picked up / taken off the rack
	Corridor int       `json:"corridor"` // Removed once staff collected it out of the corridor queue
	PickBy   time.Time `json:"pick_by"`
}

// Collected reports whether staff already took the entry out of the corridor queue.
func (e Entry) Collected() bool { return e.Corridor == Removed }

// Picked reports whether the entry was taken off its rack.
func (e Entry) Picked() bool { return e.Rack == Removed }

// Store is the persistence the rack logic needs. Implemented by
// internal/store for SQLite and Redis.
type Store interface {
	// Corridor returns corridor n's entries in slot order.
	Corridor(n int) ([]Entry, error)
	// PutCorridor replaces corridor n's entries.
	PutCorridor(n int, entries []Entry) error
}

// Board is the rack logic over a Store. Corridors are numbered 1..corridors.
type Board struct {
	store     Store
	corridors int
}

func NewBoard(store Store, corridors int) *Board {
	if corridors < 1 {
		corridors = 1
	}
	return &Board{store: store, corridors: corridors}
}

// Place stores an order in the first corridor with a free slot and returns
// the entry written. The rack number is the 1-based slot position.
func (b *Board) Place(orderID int, pickBy time.Time) (Entry, error) {
	for n := 1; n <= b.corridors; n++ {
		entries, err := b.store.Corridor(n)
		if err != nil {
			return Entry{}, fmt.Errorf("rack: corridor %d: %w", n, err)
		}
		if len(entries) >= CorridorCapacity {
			continue
		}
		e := Entry{
			OrderID:  orderID,
			Rack:     len(entries) + 1,
			Corridor: n,
			PickBy:   pickBy,
		}
		entries = append(entries, e)
		if err := b.store.PutCorridor(n, entries); err != nil {
			return Entry{}, fmt.Errorf("rack: corridor %d: %w", n, err)
		}
		return e, nil
	}
	return Entry{}, ErrFull
}

// Put writes e into its corridor at slot e.Rack (1-based), growing the
// corridor with empty slots as needed. Empty slots have a zero OrderID and
// are skipped by every query.
func (b *Board) Put(e Entry) error {
	if e.Corridor < 1 || e.Corridor > b.corridors {
		return fmt.Errorf("rack: corridor %d out of range", e.Corridor)
	}
	if e.Rack < 1 || e.Rack > CorridorCapacity {
		return fmt.Errorf("rack: slot %d out of range", e.Rack)
	}
	entries, err := b.store.Corridor(e.Corridor)
	if err != nil {
		return fmt.Errorf("rack: corridor %d: %w", e.Corridor, err)
	}
	for len(entries) < e.Rack {
		entries = append(entries, Entry{})
	}
	entries[e.Rack-1] = e
	return b.store.PutCorridor(e.Corridor, entries)
}

// Find returns the entry for orderID, searching all corridors.
func (b *Board) Find(orderID int) (Entry, error) {
	if orderID == 0 {
		return Entry{}, ErrNotFound
	}
	for n := 1; n <= b.corridors; n++ {
		entries, err := b.store.Corridor(n)
		if err != nil {
			return Entry{}, fmt.Errorf("rack: corridor %d: %w", n, err)
		}
		for _, e := range entries {
			if e.OrderID == orderID {
				return e, nil
			}
		}
	}
	return Entry{}, ErrNotFound
}

// NextToCollect returns the first entry still waiting in a corridor queue,
// or ErrNotFound when nothing is left to collect.
func (b *Board) NextToCollect() (Entry, error) {
	return b.first(func(e Entry) bool {
		return e.OrderID != 0 && !e.Collected() && !e.Picked()
	})
}

// NextToPick returns the first collected entry whose pick-by time has passed
// and that is still on its rack, or ErrNotFound.
func (b *Board) NextToPick(now time.Time) (Entry, error) {
	return b.first(func(e Entry) bool {
		return e.OrderID != 0 && e.Collected() && !e.Picked() && e.PickBy.Before(now)
	})
}

// Overdue counts entries past their pick-by time that are still racked.
func (b *Board) Overdue(now time.Time) (int, error) {
	count := 0
	for n := 1; n <= b.corridors; n++ {
		entries, err := b.store.Corridor(n)
		if err != nil {
			return 0, fmt.Errorf("rack: corridor %d: %w", n, err)
		}
		for _, e := range entries {
			if e.OrderID != 0 && !e.Picked() && !e.PickBy.IsZero() && e.PickBy.Before(now) {
				count++
			}
		}
	}
	return count, nil
}

// MarkCollected clears the corridor marker for orderID.
func (b *Board) MarkCollected(orderID int) error {
	return b.update(orderID, func(e *Entry) { e.Corridor = Removed })
}

// MarkPicked clears the rack marker for orderID.
func (b *Board) MarkPicked(orderID int) error {
	return b.update(orderID, func(e *Entry) { e.Rack = Removed })
}

func (b *Board) first(match func(Entry) bool) (Entry, error) {
	for n := 1; n <= b.corridors; n++ {
		entries, err := b.store.Corridor(n)
		if err != nil {
			return Entry{}, fmt.Errorf("rack: corridor %d: %w", n, err)
		}
		for _, e := range entries {
			if match(e) {
				return e, nil
			}
		}
	}
	return Entry{}, ErrNotFound
}

func (b *Board) update(orderID int, apply func(*Entry)) error {
	if orderID == 0 {
		return ErrNotFound
	}
	for n := 1; n <= b.corridors; n++ {
		entries, err := b.store.Corridor(n)
		if err != nil {
			return fmt.Errorf("rack: corridor %d: %w", n, err)
		}
		for i := range entries {
			if orderID != 0 && entries[i].OrderID == orderID {
				apply(&entries[i])
				return b.store.PutCorridor(n, entries)
			}
		}
	}
	return ErrNotFound
}
