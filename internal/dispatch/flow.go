package dispatch

import "github.com/murmurhq/murmur/internal/skill"

// FlowRecord is the append-only history of turn outcomes. Routing only ever
// consults the last entry, but the full history is kept for observability.
type FlowRecord struct {
	entries []skill.Result
}

func NewFlowRecord() *FlowRecord {
	return &FlowRecord{}
}

func (f *FlowRecord) Append(r skill.Result) {
	f.entries = append(f.entries, r)
}

func (f *FlowRecord) Empty() bool { return len(f.entries) == 0 }

// Last returns the most recent entry. ok is false on an empty record.
func (f *FlowRecord) Last() (skill.Result, bool) {
	if len(f.entries) == 0 {
		return skill.Result{}, false
	}
	return f.entries[len(f.entries)-1], true
}

// Len reports how many outcomes were recorded since the last reset.
func (f *FlowRecord) Len() int { return len(f.entries) }

// Reset drops the history, returning routing to the first-turn state.
func (f *FlowRecord) Reset() { f.entries = nil }
