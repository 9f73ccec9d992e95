// Package skill defines the capability contract every conversational skill
// implements and the shared activation machinery behind it.
package skill

import (
	"context"
	"errors"

	"github.com/murmurhq/murmur/internal/similarity"
)

// ErrUIDNotAssigned is returned when a skill's identity is read before the
// dispatcher assigned one at registration. Seeing it means broken wiring.
var ErrUIDNotAssigned = errors.New("skill: uid not assigned")

// Utterance is one recognized user utterance, converted once per turn so no
// skill reconverts it.
type Utterance struct {
	Raw  string
	Form similarity.Form
}

// Skill is one unit of conversational capability. Implementations embed Core
// for the identity/phrase/threshold half and provide Step and Reset.
type Skill interface {
	// UID returns the identity assigned at registration, or ErrUIDNotAssigned.
	UID() (string, error)
	// Assign sets the identity. The dispatcher calls it exactly once.
	Assign(uid string)
	// Bind gives the skill the shared similarity oracle. Must happen before
	// any activation check.
	Bind(o similarity.Oracle)
	// Register appends a reference phrase. No de-duplication, no bound.
	Register(phrase string)
	// Activated reports whether any reference phrase beats the threshold.
	Activated(u similarity.Form) bool
	// Exact returns the phrase whose similarity equals the threshold exactly.
	Exact(u similarity.Form) (string, bool)
	// Step runs one conversational turn, pushing results into sink. A skill
	// that declines the utterance emits a KindError result or nothing.
	Step(ctx context.Context, u Utterance, sink *Sink) error
	// Reset drops all per-conversation state, as if freshly constructed.
	Reset()
}

// Core implements the identity, reference-phrase and threshold behavior of
// the Skill contract. Zero value is not usable; construct with NewCore.
type Core struct {
	uid       string
	assigned  bool
	oracle    similarity.Oracle
	phrases   []string
	forms     []similarity.Form
	threshold float64
	saved     float64
}

// NewCore returns a Core with the given activation threshold in (0,1].
func NewCore(threshold float64) Core {
	return Core{threshold: threshold, saved: threshold}
}

func (c *Core) UID() (string, error) {
	if !c.assigned {
		return "", ErrUIDNotAssigned
	}
	return c.uid, nil
}

// MustUID returns the identity or panics. For use after registration, where
// an unassigned uid is a wiring bug.
func (c *Core) MustUID() string {
	uid, err := c.UID()
	if err != nil {
		panic(err)
	}
	return uid
}

func (c *Core) Assign(uid string) {
	if c.assigned {
		panic("skill: uid assigned twice")
	}
	c.uid = uid
	c.assigned = true
}

func (c *Core) Bind(o similarity.Oracle) {
	c.oracle = o
	// Reconvert phrases registered before the oracle arrived.
	c.forms = c.forms[:0]
	for _, p := range c.phrases {
		c.forms = append(c.forms, o.Convert(p))
	}
}

func (c *Core) Register(phrase string) {
	c.phrases = append(c.phrases, phrase)
	if c.oracle != nil {
		c.forms = append(c.forms, c.oracle.Convert(phrase))
	}
}

// Threshold returns the current activation threshold.
func (c *Core) Threshold() float64 { return c.threshold }

// PinExact raises the threshold to 1 so only Exact matches gate the skill
// while a guided sub-dialogue is in progress. RestoreThreshold undoes it.
func (c *Core) PinExact() {
	c.saved = c.threshold
	c.threshold = 1
}

func (c *Core) RestoreThreshold() { c.threshold = c.saved }

// Activated reports whether any registered phrase's similarity to u strictly
// exceeds the threshold. With no phrases registered it is always false.
func (c *Core) Activated(u similarity.Form) bool {
	c.mustOracle()
	for _, f := range c.forms {
		if c.oracle.Score(u, f) > c.threshold {
			return true
		}
	}
	return false
}

// Exact returns the first registered phrase whose similarity to u equals the
// threshold exactly. Used with PinExact for deterministic keyword gating.
func (c *Core) Exact(u similarity.Form) (string, bool) {
	c.mustOracle()
	for i, f := range c.forms {
		if c.oracle.Score(u, f) == c.threshold {
			return c.phrases[i], true
		}
	}
	return "", false
}

func (c *Core) mustOracle() {
	if c.oracle == nil {
		panic("skill: similarity oracle not bound")
	}
}
