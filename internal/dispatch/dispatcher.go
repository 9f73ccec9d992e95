// Package dispatch routes each recognized utterance to the wake-word trigger
// or the ordinary skills. Routing is a small explicit state machine keyed off
// the previous turn's recorded outcome, which keeps it deterministic and
// testable; no free-text understanding happens here.
package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/murmurhq/murmur/internal/metrics"
	"github.com/murmurhq/murmur/internal/similarity"
	"github.com/murmurhq/murmur/internal/skill"
)

// route labels for the dispatch decision metric.
const (
	routeTriggerFirst       = "trigger_first"
	routeTriggerRetry       = "trigger_retry"
	routeBroadcastRetry     = "broadcast_retry"
	routeBroadcast          = "broadcast"
	routeKeepAliveContinue  = "keepalive_continue"
	routeKeepAliveConcluded = "keepalive_concluded"
	routeFallbackTrigger    = "fallback_trigger"
)

// Dispatcher owns the skill set, the trigger, the shared similarity oracle
// and the flow record. Run is not safe for concurrent use: exactly one
// utterance is processed end to end at a time.
type Dispatcher struct {
	oracle  similarity.Oracle
	speaker skill.Speaker
	log     *zap.Logger
	metrics *metrics.Set

	skills     []skill.Skill
	trigger    skill.Skill
	wakePhrase string
	flow       *FlowRecord
}

func New(oracle similarity.Oracle, speaker skill.Speaker, log *zap.Logger, m *metrics.Set) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		oracle:  oracle,
		speaker: speaker,
		log:     log,
		metrics: m,
		flow:    NewFlowRecord(),
	}
}

// Register adds an ordinary skill: assigns its identity, binds the shared
// oracle and appends it to the broadcast order.
func (d *Dispatcher) Register(s skill.Skill) string {
	uid := "sk_" + uuid.New().String()
	s.Assign(uid)
	s.Bind(d.oracle)
	d.skills = append(d.skills, s)
	return uid
}

// SetTrigger installs the wake-word skill. wakePhrase feeds the fallback
// route, normalized through the oracle so it compares against utterance
// forms.
func (d *Dispatcher) SetTrigger(s skill.Skill, wakePhrase string) string {
	uid := "trg_" + uuid.New().String()
	s.Assign(uid)
	s.Bind(d.oracle)
	d.trigger = s
	d.wakePhrase = d.oracle.Convert(wakePhrase).Normalized()
	return uid
}

// Flow exposes the flow record (for observability and tests).
func (d *Dispatcher) Flow() *FlowRecord { return d.flow }

// Record is the caller's feedback channel: after speaking a turn's winning
// result it appends that result so the next utterance is interpreted in
// context.
func (d *Dispatcher) Record(r skill.Result) {
	d.flow.Append(r)
	if d.metrics != nil && r.Kind != skill.KindError {
		d.metrics.Activations.WithLabelValues(r.UID).Inc()
	}
}

// Reset clears the flow record and every ordinary skill's conversation state.
func (d *Dispatcher) Reset() {
	d.flow.Reset()
	d.resetSkills()
}

// Run processes one utterance and returns every result pushed this turn, in
// push order. The caller speaks the winner and feeds it back via Record.
func (d *Dispatcher) Run(ctx context.Context, raw string) ([]skill.Result, error) {
	if d.trigger == nil {
		return nil, fmt.Errorf("dispatch: no trigger installed")
	}
	if d.metrics != nil {
		d.metrics.Turns.Inc()
	}

	// Converted once; every skill reuses the same form.
	u := skill.Utterance{Raw: raw, Form: d.oracle.Convert(raw)}

	if d.flow.Empty() {
		return d.runOne(ctx, d.trigger, u, routeTriggerFirst)
	}

	last, _ := d.flow.Last()
	switch {
	case last.Kind == skill.KindError && last.Category == skill.CategoryTrigger:
		// Wake word missed last turn: give the same trigger another try.
		return d.runByUID(ctx, last.UID, u, routeTriggerRetry)

	case last.Kind == skill.KindError:
		// A skill declined; any skill may claim the rephrased utterance.
		return d.runBroadcast(ctx, u, routeBroadcastRetry)

	case last.Category == skill.CategoryTrigger:
		// Wake word heard: the trigger hands off to the skills.
		return d.runBroadcast(ctx, u, routeBroadcast)

	case last.Kind == skill.KindKeepAlive:
		return d.runKeepAlive(ctx, last, u)

	default:
		if u.Form.Normalized() == d.wakePhrase {
			return d.runOne(ctx, d.trigger, u, routeFallbackTrigger)
		}
		return d.runBroadcast(ctx, u, routeBroadcast)
	}
}

// runKeepAlive resolves the contest between an engaged skill and the trigger.
// The trigger is re-probed speculatively: a non-error probe means the user
// moved on, so the held conversation is concluded and every ordinary skill is
// reset; an error probe continues the engaged skill's dialogue.
func (d *Dispatcher) runKeepAlive(ctx context.Context, last skill.Result, u skill.Utterance) ([]skill.Result, error) {
	probe, err := d.stepInto(ctx, d.trigger, u)
	if err != nil {
		return nil, err
	}
	if !containsError(probe) {
		d.count(routeKeepAliveConcluded)
		d.log.Debug("keep-alive conversation concluded", zap.String("uid", last.UID))
		d.resetSkills()
		return probe, nil
	}
	return d.runByUID(ctx, last.UID, u, routeKeepAliveContinue)
}

func (d *Dispatcher) runOne(ctx context.Context, s skill.Skill, u skill.Utterance, route string) ([]skill.Result, error) {
	d.count(route)
	d.log.Debug("dispatch", zap.String("route", route), zap.String("utterance", u.Raw))
	return d.stepInto(ctx, s, u)
}

func (d *Dispatcher) runByUID(ctx context.Context, uid string, u skill.Utterance, route string) ([]skill.Result, error) {
	s, err := d.byUID(uid)
	if err != nil {
		return nil, err
	}
	return d.runOne(ctx, s, u, route)
}

// runBroadcast invokes every ordinary skill sequentially in registration
// order. Sequential on purpose: skills mutate the shared persisted task
// record, and parallel invocation would race.
func (d *Dispatcher) runBroadcast(ctx context.Context, u skill.Utterance, route string) ([]skill.Result, error) {
	d.count(route)
	d.log.Debug("dispatch", zap.String("route", route), zap.String("utterance", u.Raw))
	sink := skill.NewSink(d.speaker)
	for _, s := range d.skills {
		if err := s.Step(ctx, u, sink); err != nil {
			return nil, fmt.Errorf("dispatch: skill step: %w", err)
		}
	}
	return sink.Drain(), nil
}

func (d *Dispatcher) stepInto(ctx context.Context, s skill.Skill, u skill.Utterance) ([]skill.Result, error) {
	sink := skill.NewSink(d.speaker)
	if err := s.Step(ctx, u, sink); err != nil {
		return nil, fmt.Errorf("dispatch: skill step: %w", err)
	}
	return sink.Drain(), nil
}

func (d *Dispatcher) byUID(uid string) (skill.Skill, error) {
	for _, s := range append([]skill.Skill{d.trigger}, d.skills...) {
		id, err := s.UID()
		if err != nil {
			return nil, err
		}
		if id == uid {
			return s, nil
		}
	}
	return nil, fmt.Errorf("dispatch: no skill with uid %s", uid)
}

func (d *Dispatcher) resetSkills() {
	for _, s := range d.skills {
		s.Reset()
	}
}

func (d *Dispatcher) count(route string) {
	if d.metrics != nil {
		d.metrics.Routes.WithLabelValues(route).Inc()
	}
}

func containsError(results []skill.Result) bool {
	for _, r := range results {
		if r.Kind == skill.KindError {
			return true
		}
	}
	return false
}

// Winner picks the result the caller should speak and record: the first
// non-error result in push order, falling back to the first result.
func Winner(results []skill.Result) (skill.Result, bool) {
	if len(results) == 0 {
		return skill.Result{}, false
	}
	for _, r := range results {
		if r.Kind != skill.KindError {
			return r, true
		}
	}
	return results[0], true
}
