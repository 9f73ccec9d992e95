package order

import (
	"context"
	"errors"

	"github.com/murmurhq/murmur/internal/similarity"
	"github.com/murmurhq/murmur/internal/skill"
)

// The four order skills share one activation rule: phrase similarity while
// the workflow is idle, or phase range while their conversation is running.
// That state gating is the deliberate deviation from the plain contract.

const orderThreshold = 0.7

type orderSkill struct {
	skill.Core
	wf      *Workflow
	inPhase func(Phase) bool
	step    func(string) (string, error)
}

func (s *orderSkill) Activated(u similarity.Form) bool {
	ph, err := s.wf.Phase()
	if err != nil {
		return false
	}
	return s.active(ph, u)
}

func (s *orderSkill) active(ph Phase, u similarity.Form) bool {
	if s.inPhase(ph) {
		return true
	}
	return ph == PhaseIdle && s.Core.Activated(u)
}

// Step reads the phase itself rather than going through Activated, so a
// store failure surfaces to the dispatcher instead of looking like a
// declined utterance. Only a malformed record aborts the order; the speaker
// then hears a clean restart rather than silence.
func (s *orderSkill) Step(ctx context.Context, u skill.Utterance, sink *skill.Sink) error {
	uid, err := s.UID()
	if err != nil {
		return err
	}
	ph, err := s.wf.Phase()
	if err != nil {
		if !errors.Is(err, ErrMalformedTask) {
			return err
		}
		return s.abortSpoken(uid, sink, err)
	}
	if !s.active(ph, u.Form) {
		sink.Emit(skill.NotActivated(uid, skill.CategorySystem))
		return nil
	}
	reply, err := s.step(u.Raw)
	if err != nil {
		if !errors.Is(err, ErrMalformedTask) {
			return err
		}
		return s.abortSpoken(uid, sink, err)
	}
	sink.Emit(skill.Result{
		UID:      uid,
		Kind:     skill.KindText,
		Category: skill.CategorySystem,
		Payload:  reply,
	})
	return nil
}

func (s *orderSkill) abortSpoken(uid string, sink *skill.Sink, cause error) error {
	if err := s.wf.Abort(); err != nil {
		return err
	}
	sink.Emit(skill.Result{
		UID:        uid,
		Kind:       skill.KindError,
		Category:   skill.CategorySystem,
		Err:        cause.Error(),
		Suggestion: "the order task was cleared, start again",
	})
	return nil
}

// Reset is a no-op: the conversation position lives in the persisted task
// record, not in the skill.
func (s *orderSkill) Reset() {}

// AddOrder runs the new-order intake conversation.
type AddOrder struct{ orderSkill }

func NewAddOrder(wf *Workflow) *AddOrder {
	s := &AddOrder{orderSkill{
		Core:    skill.NewCore(orderThreshold),
		wf:      wf,
		inPhase: Phase.InAddOrder,
		step:    wf.StepAddOrder,
	}}
	s.Register("add a new order")
	s.Register("create an order")
	return s
}

// Collect tells staff which stored order to retrieve from the corridor queue.
type Collect struct{ orderSkill }

func NewCollect(wf *Workflow) *Collect {
	s := &Collect{orderSkill{
		Core:    skill.NewCore(orderThreshold),
		wf:      wf,
		inPhase: Phase.InCollect,
		step:    wf.StepCollect,
	}}
	s.Register("collect the next order")
	s.Register("start collecting orders")
	return s
}

// Pick walks staff through removing stale orders off the racks.
type Pick struct{ orderSkill }

func NewPick(wf *Workflow) *Pick {
	s := &Pick{orderSkill{
		Core:    skill.NewCore(orderThreshold),
		wf:      wf,
		inPhase: Phase.InPick,
		step:    wf.StepPick,
	}}
	s.Register("pick stale orders")
	s.Register("remove old orders")
	return s
}

// MeetClient handles a client arriving to pick up an order.
type MeetClient struct{ orderSkill }

func NewMeetClient(wf *Workflow) *MeetClient {
	s := &MeetClient{orderSkill{
		Core:    skill.NewCore(orderThreshold),
		wf:      wf,
		inPhase: Phase.InMeetClient,
		step:    wf.StepMeetClient,
	}}
	s.Register("i am here for my order")
	s.Register("pick up my order")
	return s
}

var (
	_ skill.Skill = (*AddOrder)(nil)
	_ skill.Skill = (*Collect)(nil)
	_ skill.Skill = (*Pick)(nil)
	_ skill.Skill = (*MeetClient)(nil)
)
