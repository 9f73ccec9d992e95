package order

import (
	"context"
	"errors"
	"testing"

	"github.com/murmurhq/murmur/internal/rack"
	"github.com/murmurhq/murmur/internal/similarity"
	"github.com/murmurhq/murmur/internal/skill"
)

// brokenTasks fails every read and write, tracking clears so tests can
// assert the record was not destroyed on the way out.
type brokenTasks struct {
	err    error
	clears int
}

func (b *brokenTasks) Current() (Task, bool, error) { return Task{}, false, b.err }
func (b *brokenTasks) Put(Task) error               { return b.err }
func (b *brokenTasks) Clear() error                 { b.clears++; return nil }

func TestOrderSkillActivationGating(t *testing.T) {
	wf, tasks, _ := newTestWorkflow()
	o := similarity.NewBag()

	add := NewAddOrder(wf)
	collect := NewCollect(wf)
	for i, s := range []skill.Skill{add, collect} {
		s.Bind(o)
		s.Assign([]string{"sk_add", "sk_collect"}[i])
	}

	// Idle: only phrase similarity activates.
	u := o.Convert("add a new order")
	if !add.Activated(u) {
		t.Error("AddOrder not activated by its own phrase while idle")
	}
	if collect.Activated(u) {
		t.Error("Collect activated by AddOrder's phrase while idle")
	}

	// Mid-intake: phase range activates AddOrder regardless of phrase,
	// and keeps Collect out even if its phrase is spoken.
	tasks.Put(Task{Phase: PhaseNewOrderFields})
	anything := o.Convert("acme hardware")
	if !add.Activated(anything) {
		t.Error("AddOrder not activated by phase gating mid-intake")
	}
	if collect.Activated(o.Convert("collect the next order")) {
		t.Error("Collect activated by phrase while another conversation owns the task")
	}
}

func TestOrderSkillStepEmitsTextWhenActivated(t *testing.T) {
	wf, _, _ := newTestWorkflow()
	o := similarity.NewBag()

	add := NewAddOrder(wf)
	add.Bind(o)
	add.Assign("sk_add")

	sink := skill.NewSink(nil)
	u := skill.Utterance{Raw: "add a new order", Form: o.Convert("add a new order")}
	if err := add.Step(context.Background(), u, sink); err != nil {
		t.Fatal(err)
	}
	out := sink.Drain()
	if len(out) != 1 {
		t.Fatalf("got %d results", len(out))
	}
	if out[0].Kind != skill.KindText || out[0].Category != skill.CategorySystem || out[0].UID != "sk_add" {
		t.Errorf("result = %+v", out[0])
	}
}

func TestOrderSkillDeclinesQuietly(t *testing.T) {
	wf, _, _ := newTestWorkflow()
	o := similarity.NewBag()

	pick := NewPick(wf)
	pick.Bind(o)
	pick.Assign("sk_pick")

	sink := skill.NewSink(nil)
	u := skill.Utterance{Raw: "what is the date", Form: o.Convert("what is the date")}
	if err := pick.Step(context.Background(), u, sink); err != nil {
		t.Fatal(err)
	}
	out := sink.Drain()
	if len(out) != 1 || out[0].Kind != skill.KindError {
		t.Fatalf("decline results = %+v", out)
	}
}

func TestOrderSkillStepPropagatesStoreFailure(t *testing.T) {
	tasks := &brokenTasks{err: errors.New("record store unavailable")}
	wf := NewWorkflow(tasks, rack.NewBoard(newMemRacks(), 4))
	o := similarity.NewBag()

	collect := NewCollect(wf)
	collect.Bind(o)
	collect.Assign("sk_collect")

	sink := skill.NewSink(nil)
	u := skill.Utterance{Raw: "collect the next order", Form: o.Convert("collect the next order")}
	err := collect.Step(context.Background(), u, sink)
	if !errors.Is(err, tasks.err) {
		t.Fatalf("Step = %v, want the store error back", err)
	}
	if sink.Len() != 0 {
		t.Errorf("store failure produced %d results, want none", sink.Len())
	}
	if tasks.clears != 0 {
		t.Error("store failure cleared the in-progress task record")
	}
}

func TestOrderSkillStepAbortsOnlyMalformedRecord(t *testing.T) {
	wf, tasks, _ := newTestWorkflow()
	tasks.Put(Task{OrderID: 7, Phase: Phase(99)})
	o := similarity.NewBag()

	add := NewAddOrder(wf)
	add.Bind(o)
	add.Assign("sk_add")

	sink := skill.NewSink(nil)
	u := skill.Utterance{Raw: "add a new order", Form: o.Convert("add a new order")}
	if err := add.Step(context.Background(), u, sink); err != nil {
		t.Fatalf("malformed record should resolve to a spoken error, got %v", err)
	}
	out := sink.Drain()
	if len(out) != 1 || out[0].Kind != skill.KindError || out[0].Suggestion == "" {
		t.Fatalf("results = %+v", out)
	}
	if _, ok, _ := tasks.Current(); ok {
		t.Error("malformed task record not cleared")
	}
}

func TestOrderSkillsShareOneBoard(t *testing.T) {
	wf, _, board := newTestWorkflow()
	o := similarity.NewBag()

	meet := NewMeetClient(wf)
	meet.Bind(o)
	meet.Assign("sk_meet")

	if _, err := board.Place(512, wf.now()); err != nil {
		t.Fatal(err)
	}
	if err := board.MarkCollected(512); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	sink := skill.NewSink(nil)
	step := func(raw string) skill.Result {
		t.Helper()
		if err := meet.Step(ctx, skill.Utterance{Raw: raw, Form: o.Convert(raw)}, sink); err != nil {
			t.Fatal(err)
		}
		out := sink.Drain()
		if len(out) != 1 {
			t.Fatalf("got %d results for %q", len(out), raw)
		}
		return out[0]
	}

	step("i am here for my order")
	res := step("five one two")
	if res.Kind != skill.KindText {
		t.Fatalf("id turn result = %+v", res)
	}
	step("ready")
	step("thanks")
	step("bye")

	entry, err := board.Find(512)
	if err != nil {
		t.Fatal(err)
	}
	if !entry.Picked() {
		t.Error("handover through the skill did not mark the rack entry picked")
	}
}
