// Package datetime answers date and time questions. The simplest possible
// skill: single turn, no held state.
package datetime

import (
	"context"
	"strings"
	"time"

	"github.com/murmurhq/murmur/internal/skill"
)

type Skill struct {
	skill.Core
	now func() time.Time
}

func New() *Skill {
	s := &Skill{Core: skill.NewCore(0.7), now: time.Now}
	s.Register("what is the date")
	s.Register("what day is it")
	s.Register("what time is it")
	return s
}

func (s *Skill) Step(ctx context.Context, u skill.Utterance, sink *skill.Sink) error {
	uid, err := s.UID()
	if err != nil {
		return err
	}
	if !s.Activated(u.Form) {
		sink.Emit(skill.NotActivated(uid, skill.CategorySystem))
		return nil
	}
	now := s.now()
	payload := now.Format("It is Monday, January 2, 2006.")
	if strings.Contains(u.Form.Normalized(), "time") {
		payload = now.Format("It is 15:04.")
	}
	sink.Emit(skill.Result{
		UID:      uid,
		Kind:     skill.KindText,
		Category: skill.CategorySystem,
		Payload:  payload,
	})
	return nil
}

func (s *Skill) Reset() {}

var _ skill.Skill = (*Skill)(nil)
