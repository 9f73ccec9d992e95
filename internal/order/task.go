package order

import (
	"errors"
	"time"
)

// ErrMalformedTask marks a persisted task record the workflow cannot trust:
// an out-of-range phase or a missing expected field. The current order is
// aborted and cleared, same as a spoken "stop".
var ErrMalformedTask = errors.New("order: malformed task record")

// Task is the single order currently moving through the warehouse workflow.
// At most one exists at a time; the record store enforces that.
type Task struct {
	Client   string    `json:"client"`
	Object   string    `json:"object"`
	Amount   string    `json:"amount"`
	OrderID  int       `json:"order_id"`
	PickBy   time.Time `json:"pick_by"`
	Corridor int       `json:"corridor"`
	Rack     int       `json:"rack"`
	Phase    Phase     `json:"phase"`
}

// TaskStore persists the current task. Implemented by internal/store for
// SQLite and Redis. Current returns ok=false, not an error, when no task
// exists.
type TaskStore interface {
	Current() (Task, bool, error)
	Put(Task) error
	Clear() error
}

// The intake fields in the order the speaker is asked for them.
const (
	fieldClient = iota
	fieldObject
	fieldAmount
	fieldDone
)

func (t *Task) nextOpenField() int {
	switch {
	case t.Client == "":
		return fieldClient
	case t.Object == "":
		return fieldObject
	case t.Amount == "":
		return fieldAmount
	default:
		return fieldDone
	}
}

// fillNext writes value into the first still-open intake field and reports
// which field comes next (fieldDone once everything is filled).
func (t *Task) fillNext(value string) int {
	switch t.nextOpenField() {
	case fieldClient:
		t.Client = value
	case fieldObject:
		t.Object = value
	case fieldAmount:
		t.Amount = value
	}
	return t.nextOpenField()
}

func fieldPrompt(field int) string {
	switch field {
	case fieldObject:
		return "What is the order for?"
	case fieldAmount:
		return "How many?"
	default:
		return "All fields noted. Say yes to store the order."
	}
}
