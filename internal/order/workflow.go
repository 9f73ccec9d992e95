// Package order implements the voice-driven warehouse workflow: a state
// machine whose position is the phase stored in the single persisted task
// record, stepped by four cooperating skills that share it.
package order

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/murmurhq/murmur/internal/rack"
)

const stopWord = "stop"

// defaultPickWindow is how long a stored order may wait before the pick
// sweep considers it stale.
const defaultPickWindow = 48 * time.Hour

// Workflow owns the task record and the rack board and applies every phase
// transition. The four order skills are thin wrappers over its step methods,
// so all coupling through the shared record lives in one place.
type Workflow struct {
	tasks TaskStore
	board *rack.Board

	now        func() time.Time
	nextID     func() int
	pickWindow time.Duration
}

func NewWorkflow(tasks TaskStore, board *rack.Board) *Workflow {
	return &Workflow{
		tasks:      tasks,
		board:      board,
		now:        time.Now,
		nextID:     func() int { return 100 + rand.Intn(900) },
		pickWindow: defaultPickWindow,
	}
}

// Phase returns the current phase, PhaseIdle when no task exists.
func (w *Workflow) Phase() (Phase, error) {
	t, ok, err := w.tasks.Current()
	if err != nil {
		return PhaseIdle, err
	}
	if !ok {
		return PhaseIdle, nil
	}
	if !t.Phase.Valid() {
		return PhaseIdle, ErrMalformedTask
	}
	return t.Phase, nil
}

// Engage is the trigger's collaborator hook: it reports whether the workflow
// is mid-conversation so the wake word can stay engaged. On an empty store it
// seeds a fresh idle record. While intake is running it also banks the
// utterance into the first open field, so a wake-word turn mid-intake is not
// lost.
func (w *Workflow) Engage(utterance string) (bool, error) {
	t, ok, err := w.tasks.Current()
	if err != nil {
		return false, err
	}
	if !ok {
		if err := w.tasks.Put(Task{Phase: PhaseIdle}); err != nil {
			return false, err
		}
		return false, nil
	}
	if !t.Phase.Valid() {
		_ = w.tasks.Clear()
		return false, ErrMalformedTask
	}
	if t.Phase == PhaseNewOrderFields {
		t.fillNext(strings.TrimSpace(utterance))
		if err := w.tasks.Put(t); err != nil {
			return false, err
		}
		return true, nil
	}
	return t.Phase != PhaseIdle, nil
}

// Abort clears the current task, returning the machine to idle. It is the
// "stop" path and the recovery for malformed records and unparsable numbers.
func (w *Workflow) Abort() error {
	return w.tasks.Clear()
}

// current loads the task, treating a missing record as a fresh idle one and
// clearing malformed ones.
func (w *Workflow) current() (Task, error) {
	t, ok, err := w.tasks.Current()
	if err != nil {
		return Task{}, err
	}
	if !ok {
		return Task{Phase: PhaseIdle}, nil
	}
	if !t.Phase.Valid() {
		_ = w.tasks.Clear()
		return Task{}, ErrMalformedTask
	}
	return t, nil
}

func (w *Workflow) save(t Task) error { return w.tasks.Put(t) }

func isStop(utterance string) bool {
	return strings.TrimSpace(strings.ToLower(utterance)) == stopWord
}

// StepAddOrder advances the new-order intake conversation by one utterance.
func (w *Workflow) StepAddOrder(utterance string) (string, error) {
	if isStop(utterance) {
		return w.stopReply()
	}
	t, err := w.current()
	if err != nil {
		return "", err
	}
	switch t.Phase {
	case PhaseIdle:
		t = Task{Phase: PhaseNewOrderFields}
		if err := w.save(t); err != nil {
			return "", err
		}
		return "Starting a new order. Who is the client?", nil

	case PhaseNewOrderFields:
		next := t.fillNext(strings.TrimSpace(utterance))
		if next == fieldDone {
			t.Phase = PhaseNewOrderConfirm
		}
		if err := w.save(t); err != nil {
			return "", err
		}
		return fieldPrompt(next), nil

	case PhaseNewOrderConfirm:
		answer := strings.TrimSpace(strings.ToLower(utterance))
		if answer != "yes" {
			if err := w.Abort(); err != nil {
				return "", err
			}
			return "Order abandoned.", nil
		}
		t.OrderID = w.nextID()
		t.PickBy = w.now().Add(w.pickWindow)
		entry, err := w.board.Place(t.OrderID, t.PickBy)
		if err != nil {
			return "", fmt.Errorf("storing order %d: %w", t.OrderID, err)
		}
		t.Corridor = entry.Corridor
		t.Rack = entry.Rack
		t.Phase = PhaseNewOrderStored
		if err := w.save(t); err != nil {
			return "", err
		}
		return fmt.Sprintf("Order %d for %s stored in corridor %d, rack %d. Say anything to finish.",
			t.OrderID, t.Client, t.Corridor, t.Rack), nil

	case PhaseNewOrderStored:
		reply := fmt.Sprintf("Order %d is waiting in corridor %d, rack %d. Goodbye.",
			t.OrderID, t.Corridor, t.Rack)
		if err := w.Abort(); err != nil {
			return "", err
		}
		return reply, nil
	}
	return "", fmt.Errorf("%w: phase %d in add-order step", ErrMalformedTask, t.Phase)
}

// StepCollect advances the staff collect conversation by one utterance.
func (w *Workflow) StepCollect(utterance string) (string, error) {
	if isStop(utterance) {
		return w.stopReply()
	}
	t, err := w.current()
	if err != nil {
		return "", err
	}
	switch t.Phase {
	case PhaseIdle, PhaseCollectCleared:
		entry, err := w.board.NextToCollect()
		if errors.Is(err, rack.ErrNotFound) {
			if aerr := w.Abort(); aerr != nil {
				return "", aerr
			}
			return "Nothing left to collect.", nil
		}
		if err != nil {
			return "", err
		}
		t = Task{
			OrderID:  entry.OrderID,
			Corridor: entry.Corridor,
			Rack:     entry.Rack,
			PickBy:   entry.PickBy,
			Phase:    PhaseCollectAnnounced,
		}
		if err := w.save(t); err != nil {
			return "", err
		}
		return fmt.Sprintf("Collect order %d from corridor %d, rack %d. Say done when you have it.",
			t.OrderID, t.Corridor, t.Rack), nil

	case PhaseCollectAnnounced:
		t.Phase = PhaseCollectConfirmed
		if err := w.save(t); err != nil {
			return "", err
		}
		return fmt.Sprintf("Marking corridor %d cleared for order %d. Say next.", t.Corridor, t.OrderID), nil

	case PhaseCollectConfirmed:
		if err := w.board.MarkCollected(t.OrderID); err != nil {
			return "", err
		}
		t.Phase = PhaseCollectCleared
		if err := w.save(t); err != nil {
			return "", err
		}
		return "Corridor cleared. Say next for another order, or stop.", nil
	}
	return "", fmt.Errorf("%w: phase %d in collect step", ErrMalformedTask, t.Phase)
}

// StepPick advances the stale-order removal conversation by one utterance.
func (w *Workflow) StepPick(utterance string) (string, error) {
	if isStop(utterance) {
		return w.stopReply()
	}
	t, err := w.current()
	if err != nil {
		return "", err
	}
	switch t.Phase {
	case PhaseIdle, PhasePickCleared:
		entry, err := w.board.NextToPick(w.now())
		if errors.Is(err, rack.ErrNotFound) {
			if aerr := w.Abort(); aerr != nil {
				return "", aerr
			}
			return "No stale orders to pick.", nil
		}
		if err != nil {
			return "", err
		}
		t = Task{
			OrderID:  entry.OrderID,
			Corridor: entry.Corridor,
			Rack:     entry.Rack,
			PickBy:   entry.PickBy,
			Phase:    PhasePickAnnounced,
		}
		if err := w.save(t); err != nil {
			return "", err
		}
		return fmt.Sprintf("Pick order %d off rack %d in corridor %d. Say done when removed.",
			t.OrderID, t.Rack, t.Corridor), nil

	case PhasePickAnnounced:
		t.Phase = PhasePickConfirmed
		if err := w.save(t); err != nil {
			return "", err
		}
		return fmt.Sprintf("Marking rack %d empty for order %d. Say next.", t.Rack, t.OrderID), nil

	case PhasePickConfirmed:
		if err := w.board.MarkPicked(t.OrderID); err != nil {
			return "", err
		}
		t.Phase = PhasePickCleared
		if err := w.save(t); err != nil {
			return "", err
		}
		return "Rack cleared. Say next for another stale order, or stop.", nil
	}
	return "", fmt.Errorf("%w: phase %d in pick step", ErrMalformedTask, t.Phase)
}

// StepMeetClient advances the client pick-up conversation by one utterance.
func (w *Workflow) StepMeetClient(utterance string) (string, error) {
	if isStop(utterance) {
		return w.stopReply()
	}
	t, err := w.current()
	if err != nil {
		return "", err
	}
	switch t.Phase {
	case PhaseIdle:
		t = Task{Phase: PhaseClientID}
		if err := w.save(t); err != nil {
			return "", err
		}
		return "Welcome. Please say your order number, digit by digit.", nil

	case PhaseClientID:
		id, err := ParseSpokenNumber(utterance)
		if err != nil {
			if aerr := w.Abort(); aerr != nil {
				return "", aerr
			}
			return "I could not understand that order number. Starting over.", nil
		}
		entry, err := w.board.Find(id)
		if errors.Is(err, rack.ErrNotFound) {
			if aerr := w.Abort(); aerr != nil {
				return "", aerr
			}
			return fmt.Sprintf("I have no order %d. Please check the number.", id), nil
		}
		if err != nil {
			return "", err
		}
		t.OrderID = entry.OrderID
		t.Corridor = entry.Corridor
		t.Rack = entry.Rack
		if entry.Picked() {
			if aerr := w.Abort(); aerr != nil {
				return "", aerr
			}
			return fmt.Sprintf("Order %d was already handed out.", id), nil
		}
		if entry.Collected() {
			t.Phase = PhaseHandoverGreet
			if err := w.save(t); err != nil {
				return "", err
			}
			return fmt.Sprintf("Order %d is ready. Say ready when you are.", id), nil
		}
		t.Phase = PhaseWaitGreet
		if err := w.save(t); err != nil {
			return "", err
		}
		return fmt.Sprintf("Order %d has not been collected from the corridor yet.", id), nil

	case PhaseHandoverGreet:
		t.Phase = PhaseHandoverConfirm
		if err := w.save(t); err != nil {
			return "", err
		}
		return fmt.Sprintf("Handing over order %d from corridor %d, rack %d.", t.OrderID, t.Corridor, t.Rack), nil

	case PhaseHandoverConfirm:
		if err := w.board.MarkPicked(t.OrderID); err != nil {
			return "", err
		}
		t.Phase = PhaseHandoverDone
		if err := w.save(t); err != nil {
			return "", err
		}
		return "Order handed over. Anything else?", nil

	case PhaseHandoverDone:
		if err := w.Abort(); err != nil {
			return "", err
		}
		return "Thank you, goodbye.", nil

	case PhaseWaitGreet:
		t.Phase = PhaseWaitConfirm
		if err := w.save(t); err != nil {
			return "", err
		}
		return "Staff still needs to collect it. Please wait nearby.", nil

	case PhaseWaitConfirm:
		t.Phase = PhaseWaitDone
		if err := w.save(t); err != nil {
			return "", err
		}
		return "Sorry for the wait. It will not be long.", nil

	case PhaseWaitDone:
		if err := w.Abort(); err != nil {
			return "", err
		}
		return "Come back in a little while. Goodbye.", nil
	}
	return "", fmt.Errorf("%w: phase %d in meet-client step", ErrMalformedTask, t.Phase)
}

func (w *Workflow) stopReply() (string, error) {
	if err := w.Abort(); err != nil {
		return "", err
	}
	return "Stopping. The current order task was cleared.", nil
}
