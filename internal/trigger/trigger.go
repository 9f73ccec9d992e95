// Package trigger implements the wake-word skill that gates the ordinary
// skills.
package trigger

import (
	"context"

	"github.com/murmurhq/murmur/internal/skill"
)

// Engagement lets an external workflow keep the trigger engaged across a
// multi-step conversation even when the wake phrase does not match. The
// order workflow satisfies it.
type Engagement interface {
	Engage(utterance string) (bool, error)
}

// Trigger activates on a near-exact wake-phrase match, or whenever the
// engagement collaborator says a workflow is mid-conversation.
type Trigger struct {
	skill.Core
	greeting   string
	engagement Engagement
}

// New builds the wake-word skill. threshold should sit close to 1 so casual
// speech does not wake the assistant. engagement may be nil.
func New(wakePhrase, greeting string, threshold float64, engagement Engagement) *Trigger {
	t := &Trigger{
		Core:       skill.NewCore(threshold),
		greeting:   greeting,
		engagement: engagement,
	}
	t.Register(wakePhrase)
	return t
}

func (t *Trigger) Step(ctx context.Context, u skill.Utterance, sink *skill.Sink) error {
	uid, err := t.UID()
	if err != nil {
		return err
	}

	activated := t.Activated(u.Form)
	if !activated && t.engagement != nil {
		engaged, err := t.engagement.Engage(u.Raw)
		if err != nil {
			return err
		}
		activated = engaged
	}

	if !activated {
		sink.Emit(skill.Result{
			UID:        uid,
			Kind:       skill.KindError,
			Category:   skill.CategoryTrigger,
			Err:        "wake word not heard",
			Suggestion: "say the wake phrase to start",
		})
		return nil
	}
	sink.Emit(skill.Result{
		UID:      uid,
		Kind:     skill.KindText,
		Category: skill.CategoryTrigger,
		Payload:  t.greeting,
	})
	return nil
}

// Reset is a no-op: the trigger holds no conversation state of its own.
func (t *Trigger) Reset() {}

var _ skill.Skill = (*Trigger)(nil)
