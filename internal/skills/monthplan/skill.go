// Package monthplan keeps a spoken monthly plan: an insertion-ordered list
// of dates, each mapping time ranges to activities. It is the second
// multi-turn conversation in the assistant and exercises the keep-alive
// route plus the pin-to-exact threshold pattern.
package monthplan

import (
	"context"
	"strings"

	"github.com/murmurhq/murmur/internal/similarity"
	"github.com/murmurhq/murmur/internal/skill"
)

type op int

const (
	opNone op = iota
	opAddDate
	opDeleteDate
	opAddActivity
)

type stage int

const (
	stageIdle stage = iota
	stageAwaitDate
	stageAwaitRange
	stageAwaitName
)

type Skill struct {
	skill.Core
	// stopGate holds the abort word at threshold 1, so mid-dialogue "stop"
	// is recognized by exact match only and never by loose similarity.
	stopGate skill.Core
	plan     *Plan

	op    op
	stage stage
	date  string
	start int
	end   int
}

func New() *Skill {
	s := &Skill{Core: skill.NewCore(0.7), stopGate: skill.NewCore(1), plan: NewPlan()}
	s.Register("add a date to my plan")
	s.Register("delete a date from my plan")
	s.Register("add an activity to my plan")
	s.stopGate.Register("stop")
	return s
}

// Bind also binds the stop gate to the shared oracle.
func (s *Skill) Bind(o similarity.Oracle) {
	s.Core.Bind(o)
	s.stopGate.Bind(o)
}

// Plan exposes the underlying plan data (kept across Reset).
func (s *Skill) Plan() *Plan { return s.plan }

// Reset abandons any sub-dialogue in progress. The plan itself survives:
// only conversation state is dropped.
func (s *Skill) Reset() {
	if s.stage != stageIdle {
		s.RestoreThreshold()
	}
	s.op = opNone
	s.stage = stageIdle
	s.date = ""
	s.start, s.end = 0, 0
}

func (s *Skill) Step(ctx context.Context, u skill.Utterance, sink *skill.Sink) error {
	uid, err := s.UID()
	if err != nil {
		return err
	}

	if s.stage == stageIdle {
		if !s.Activated(u.Form) {
			sink.Emit(skill.NotActivated(uid, skill.CategorySystem))
			return nil
		}
		s.begin(u)
		sink.Emit(s.keepAlive(uid, s.prompt()))
		return nil
	}

	if _, ok := s.stopGate.Exact(u.Form); ok {
		s.Reset()
		sink.Emit(s.text(uid, "Plan unchanged."))
		return nil
	}
	s.continueDialogue(uid, u, sink)
	return nil
}

// begin starts the sub-dialogue the matched phrase asks for and pins the
// threshold so nothing else claims the conversation by loose similarity.
func (s *Skill) begin(u skill.Utterance) {
	norm := u.Form.Normalized()
	switch {
	case strings.Contains(norm, "delete"):
		s.op = opDeleteDate
	case strings.Contains(norm, "activity"):
		s.op = opAddActivity
	default:
		s.op = opAddDate
	}
	s.stage = stageAwaitDate
	s.PinExact()
}

func (s *Skill) prompt() string {
	switch s.op {
	case opDeleteDate:
		return "Which date should I remove from the plan?"
	case opAddActivity:
		return "Which date is the activity on?"
	default:
		return "Which date should I add to the plan?"
	}
}

func (s *Skill) continueDialogue(uid string, u skill.Utterance, sink *skill.Sink) {
	say := strings.TrimSpace(u.Raw)
	switch s.stage {
	case stageAwaitDate:
		switch s.op {
		case opAddDate:
			err := s.plan.AddDate(say)
			s.finish(uid, sink, "Added "+say+" to the plan.", err)
		case opDeleteDate:
			err := s.plan.DeleteDate(say)
			s.finish(uid, sink, "Removed "+say+" from the plan.", err)
		case opAddActivity:
			if s.plan.find(say) == nil {
				s.finish(uid, sink, "", ErrDateUnknown)
				return
			}
			s.date = say
			s.stage = stageAwaitRange
			sink.Emit(s.keepAlive(uid, "From when to when? Say four numbers: start hour, start minute, end hour, end minute."))
		}

	case stageAwaitRange:
		start, end, err := parseRange(say)
		if err != nil {
			s.finish(uid, sink, "", err)
			return
		}
		s.start, s.end = start, end
		s.stage = stageAwaitName
		sink.Emit(s.keepAlive(uid, "What is the activity called?"))

	case stageAwaitName:
		err := s.plan.AddActivity(s.date, s.start, s.end, say)
		s.finish(uid, sink, "Booked "+say+" on "+s.date+".", err)
	}
}

// finish ends the sub-dialogue: threshold restored, final text or spoken
// error emitted. The conversation is always left in a well-defined state.
func (s *Skill) finish(uid string, sink *skill.Sink, okReply string, err error) {
	s.Reset()
	if err != nil {
		sink.Emit(skill.Result{
			UID:        uid,
			Kind:       skill.KindError,
			Category:   skill.CategorySystem,
			Err:        err.Error(),
			Suggestion: "the plan was not changed, start again",
		})
		return
	}
	sink.Emit(s.text(uid, okReply))
}

func (s *Skill) keepAlive(uid, prompt string) skill.Result {
	return skill.Result{
		UID:      uid,
		Kind:     skill.KindKeepAlive,
		Category: skill.CategorySystem,
		Payload:  prompt,
	}
}

func (s *Skill) text(uid, payload string) skill.Result {
	return skill.Result{
		UID:      uid,
		Kind:     skill.KindText,
		Category: skill.CategorySystem,
		Payload:  payload,
	}
}

var _ skill.Skill = (*Skill)(nil)
