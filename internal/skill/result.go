package skill

// Kind classifies what a skill produced this turn.
type Kind int

const (
	KindUndefined Kind = iota
	KindText
	KindHRef
	KindHTML
	KindError
	// KindKeepAlive asks the dispatcher to route the next utterance straight
	// back to the emitting skill, bypassing the wake word. Only skills that
	// hold multi-turn state may emit it.
	KindKeepAlive
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindHRef:
		return "href"
	case KindHTML:
		return "html"
	case KindError:
		return "error"
	case KindKeepAlive:
		return "keep_alive"
	default:
		return "undefined"
	}
}

// Category identifies which class of skill emitted a result.
type Category int

const (
	CategorySystem Category = iota
	CategoryOnline
	CategoryTrigger
)

func (c Category) String() string {
	switch c {
	case CategoryOnline:
		return "online"
	case CategoryTrigger:
		return "trigger"
	default:
		return "system"
	}
}

// Result is the output of one skill activation in one turn.
type Result struct {
	UID        string
	Kind       Kind
	Category   Category
	Payload    string
	Err        string
	Suggestion string

	// Speak plays the spoken rendition of the result. Deferred so the caller
	// decides which of the turn's results is actually voiced.
	Speak func() error
}

// NotActivated is the decline result a skill emits when an utterance is not
// for it. It is ordinary data, not a failure; the dispatcher keys the next
// turn's routing off it.
func NotActivated(uid string, cat Category) Result {
	return Result{
		UID:        uid,
		Kind:       KindError,
		Category:   cat,
		Err:        "not activated",
		Suggestion: "try rephrasing, or say the wake word first",
	}
}

// Speaker voices text. Implemented by internal/speech.
type Speaker interface {
	Say(text string) error
}

// Sink collects the results a turn produces, in emission order.
type Sink struct {
	speaker Speaker
	results []Result
}

// NewSink returns a sink whose results speak through sp. sp may be nil, in
// which case Speak callbacks are no-ops.
func NewSink(sp Speaker) *Sink {
	return &Sink{speaker: sp}
}

// Emit appends r, attaching a Speak callback for the payload (or the error
// message when the payload is empty) unless the result already carries one.
func (s *Sink) Emit(r Result) {
	if r.Speak == nil {
		text := r.Payload
		if text == "" {
			text = r.Err
		}
		sp := s.speaker
		r.Speak = func() error {
			if sp == nil || text == "" {
				return nil
			}
			return sp.Say(text)
		}
	}
	s.results = append(s.results, r)
}

// Drain returns everything emitted so far and empties the sink.
func (s *Sink) Drain() []Result {
	out := s.results
	s.results = nil
	return out
}

// Len reports how many results are pending in the sink.
func (s *Sink) Len() int { return len(s.results) }
