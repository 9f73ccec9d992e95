package order

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/murmurhq/murmur/internal/rack"
)

type memTasks struct {
	task Task
	ok   bool
}

func (m *memTasks) Current() (Task, bool, error) { return m.task, m.ok, nil }
func (m *memTasks) Put(t Task) error             { m.task, m.ok = t, true; return nil }
func (m *memTasks) Clear() error                 { m.task, m.ok = Task{}, false; return nil }

type memRacks struct {
	corridors map[int][]rack.Entry
}

func newMemRacks() *memRacks { return &memRacks{corridors: make(map[int][]rack.Entry)} }

func (m *memRacks) Corridor(n int) ([]rack.Entry, error) {
	out := make([]rack.Entry, len(m.corridors[n]))
	copy(out, m.corridors[n])
	return out, nil
}

func (m *memRacks) PutCorridor(n int, entries []rack.Entry) error {
	cp := make([]rack.Entry, len(entries))
	copy(cp, entries)
	m.corridors[n] = cp
	return nil
}

func newTestWorkflow() (*Workflow, *memTasks, *rack.Board) {
	tasks := &memTasks{}
	board := rack.NewBoard(newMemRacks(), 4)
	wf := NewWorkflow(tasks, board)
	wf.nextID = func() int { return 512 }
	wf.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return wf, tasks, board
}

func TestStopClearsTaskFromEveryPhase(t *testing.T) {
	for ph := PhaseNewOrderFields; ph <= PhaseWaitDone; ph++ {
		wf, tasks, _ := newTestWorkflow()
		tasks.Put(Task{OrderID: 1, Phase: ph})

		step := wf.StepMeetClient
		switch {
		case ph.InAddOrder():
			step = wf.StepAddOrder
		case ph.InCollect():
			step = wf.StepCollect
		case ph.InPick():
			step = wf.StepPick
		}
		reply, err := step("stop")
		if err != nil {
			t.Fatalf("phase %d: %v", ph, err)
		}
		if !strings.Contains(reply, "Stopping") {
			t.Errorf("phase %d: reply = %q", ph, reply)
		}
		if _, ok, _ := tasks.Current(); ok {
			t.Errorf("phase %d: task still present after stop", ph)
		}
	}
}

func TestEngageSeedsIdleRecordOnEmptyStore(t *testing.T) {
	wf, tasks, _ := newTestWorkflow()
	engaged, err := wf.Engage("0")
	if err != nil {
		t.Fatal(err)
	}
	if engaged {
		t.Error("Engage on empty store reported engaged")
	}
	task, ok, _ := tasks.Current()
	if !ok || task.Phase != PhaseIdle {
		t.Errorf("seeded task = %+v, ok=%v, want fresh idle record", task, ok)
	}
}

func TestEngageFillsOpenFieldDuringIntake(t *testing.T) {
	wf, tasks, _ := newTestWorkflow()
	tasks.Put(Task{Phase: PhaseNewOrderFields})

	engaged, err := wf.Engage("screws")
	if err != nil {
		t.Fatal(err)
	}
	if !engaged {
		t.Error("Engage during intake reported not engaged")
	}
	task, _, _ := tasks.Current()
	if task.Client != "screws" {
		t.Errorf("first open field = %q, want %q", task.Client, "screws")
	}
}

func TestEngageClearsMalformedRecord(t *testing.T) {
	wf, tasks, _ := newTestWorkflow()
	tasks.Put(Task{Phase: Phase(42)})

	if _, err := wf.Engage("hello"); !errors.Is(err, ErrMalformedTask) {
		t.Errorf("err = %v, want ErrMalformedTask", err)
	}
	if _, ok, _ := tasks.Current(); ok {
		t.Error("malformed record not cleared")
	}
}

func TestAddOrderWalkthrough(t *testing.T) {
	wf, tasks, board := newTestWorkflow()

	turns := []struct {
		say  string
		want string
	}{
		{"add a new order", "Who is the client"},
		{"acme hardware", "What is the order for"},
		{"screws", "How many"},
		{"two hundred", "Say yes to store"},
		{"yes", "Order 512 for acme hardware stored in corridor 1, rack 1"},
		{"okay", "Goodbye"},
	}
	for _, turn := range turns {
		reply, err := wf.StepAddOrder(turn.say)
		if err != nil {
			t.Fatalf("say %q: %v", turn.say, err)
		}
		if !strings.Contains(reply, turn.want) {
			t.Fatalf("say %q: reply = %q, want substring %q", turn.say, reply, turn.want)
		}
	}
	if _, ok, _ := tasks.Current(); ok {
		t.Error("task not cleared after completed intake")
	}
	entry, err := board.Find(512)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Corridor != 1 || entry.Rack != 1 {
		t.Errorf("stored entry = %+v", entry)
	}
}

func TestAddOrderDeclinedConfirmationAborts(t *testing.T) {
	wf, tasks, _ := newTestWorkflow()
	tasks.Put(Task{Client: "acme", Object: "screws", Amount: "10", Phase: PhaseNewOrderConfirm})

	reply, err := wf.StepAddOrder("no")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply, "abandoned") {
		t.Errorf("reply = %q", reply)
	}
	if _, ok, _ := tasks.Current(); ok {
		t.Error("task not cleared after declined confirmation")
	}
}

func TestCollectLifecycle(t *testing.T) {
	wf, tasks, board := newTestWorkflow()
	if _, err := board.Place(512, time.Time{}); err != nil {
		t.Fatal(err)
	}

	reply, err := wf.StepCollect("collect the next order")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply, "Collect order 512") {
		t.Fatalf("announce reply = %q", reply)
	}
	if _, err := wf.StepCollect("done"); err != nil {
		t.Fatal(err)
	}
	if _, err := wf.StepCollect("next"); err != nil {
		t.Fatal(err)
	}
	entry, _ := board.Find(512)
	if !entry.Collected() {
		t.Error("corridor marker not cleared after collect")
	}

	// Queue drained: the next round reports nothing left and goes idle.
	reply, err = wf.StepCollect("next")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply, "Nothing left") {
		t.Errorf("drained reply = %q", reply)
	}
	if _, ok, _ := tasks.Current(); ok {
		t.Error("task not cleared after drained collect queue")
	}
}

func TestPickLifecycle(t *testing.T) {
	wf, _, board := newTestWorkflow()
	past := wf.now().Add(-time.Hour)
	if _, err := board.Place(640, past); err != nil {
		t.Fatal(err)
	}
	if err := board.MarkCollected(640); err != nil {
		t.Fatal(err)
	}

	reply, err := wf.StepPick("pick stale orders")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply, "Pick order 640") {
		t.Fatalf("announce reply = %q", reply)
	}
	if _, err := wf.StepPick("done"); err != nil {
		t.Fatal(err)
	}
	if _, err := wf.StepPick("next"); err != nil {
		t.Fatal(err)
	}
	entry, _ := board.Find(640)
	if !entry.Picked() {
		t.Error("rack marker not cleared after pick")
	}
}

func TestMeetClientHandover(t *testing.T) {
	wf, tasks, board := newTestWorkflow()
	if _, err := board.Place(512, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if err := board.MarkCollected(512); err != nil {
		t.Fatal(err)
	}

	if _, err := wf.StepMeetClient("i am here for my order"); err != nil {
		t.Fatal(err)
	}
	reply, err := wf.StepMeetClient("five one two")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply, "Order 512 is ready") {
		t.Fatalf("id reply = %q", reply)
	}
	for _, say := range []string{"ready", "thanks", "no"} {
		if _, err := wf.StepMeetClient(say); err != nil {
			t.Fatal(err)
		}
	}
	entry, _ := board.Find(512)
	if !entry.Picked() {
		t.Error("order not marked picked after handover")
	}
	if _, ok, _ := tasks.Current(); ok {
		t.Error("task not cleared after handover conversation")
	}
}

func TestMeetClientUncollectedOrderWaits(t *testing.T) {
	wf, _, board := newTestWorkflow()
	if _, err := board.Place(512, time.Time{}); err != nil {
		t.Fatal(err)
	}

	if _, err := wf.StepMeetClient("pick up my order"); err != nil {
		t.Fatal(err)
	}
	reply, err := wf.StepMeetClient("five one two")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply, "not been collected") {
		t.Errorf("reply = %q", reply)
	}
}

func TestMeetClientUnparsableNumberAborts(t *testing.T) {
	wf, tasks, _ := newTestWorkflow()
	tasks.Put(Task{Phase: PhaseClientID})

	reply, err := wf.StepMeetClient("five banana two")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply, "could not understand") {
		t.Errorf("reply = %q", reply)
	}
	if _, ok, _ := tasks.Current(); ok {
		t.Error("task not cleared after unparsable number")
	}
}

func TestParseSpokenNumber(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"five one two", 512, false},
		{"FIVE one TWO", 512, false},
		{"5 one 2", 512, false},
		{"512", 512, false},
		{"zero seven", 7, false},
		{"five banana two", 0, true},
		{"", 0, true},
	}
	for _, c := range cases {
		got, err := ParseSpokenNumber(c.in)
		if c.wantErr {
			if !errors.Is(err, ErrUnparsableNumber) {
				t.Errorf("ParseSpokenNumber(%q): err = %v, want ErrUnparsableNumber", c.in, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("ParseSpokenNumber(%q) = %d, %v, want %d", c.in, got, err, c.want)
		}
	}
}
