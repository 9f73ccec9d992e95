package order

// Phase is the explicit state variable of the warehouse workflow. It lives in
// the persisted task record, not in any skill, so all four order skills see
// the same conversation position.
type Phase int

const (
	PhaseIdle Phase = iota

	// New-order intake.
	PhaseNewOrderFields  // collecting fields from the speaker
	PhaseNewOrderConfirm // fully specified, confirming storage into a rack
	PhaseNewOrderStored  // stored, closing the conversation

	// Staff collecting freshly stored orders out of the corridor queue.
	PhaseCollectAnnounced // staff told which order to retrieve
	PhaseCollectConfirmed // retrieval acknowledged, about to mark corridor cleared
	PhaseCollectCleared   // corridor marker cleared, ready for the next one

	// Staff picking stale orders off the racks. Mirrors the collect phases.
	PhasePickAnnounced
	PhasePickConfirmed
	PhasePickCleared

	// Client pick-up.
	PhaseClientID // client reciting the order id digit by digit

	PhaseHandoverGreet   // order ready, greeting the client
	PhaseHandoverConfirm // handing the order over
	PhaseHandoverDone    // closing

	PhaseWaitGreet   // order not collected yet, telling the client to wait
	PhaseWaitConfirm
	PhaseWaitDone
)

func (p Phase) Valid() bool { return p >= PhaseIdle && p <= PhaseWaitDone }

// InAddOrder reports whether p belongs to the new-order intake conversation.
func (p Phase) InAddOrder() bool { return p >= PhaseNewOrderFields && p <= PhaseNewOrderStored }

// InCollect reports whether p belongs to the staff collect conversation.
func (p Phase) InCollect() bool { return p >= PhaseCollectAnnounced && p <= PhaseCollectCleared }

// InPick reports whether p belongs to the stale-order pick conversation.
func (p Phase) InPick() bool { return p >= PhasePickAnnounced && p <= PhasePickCleared }

// InMeetClient reports whether p belongs to the client pick-up conversation.
func (p Phase) InMeetClient() bool { return p >= PhaseClientID && p <= PhaseWaitDone }

func (p Phase) String() string {
	switch {
	case p == PhaseIdle:
		return "idle"
	case p.InAddOrder():
		return "add_order"
	case p.InCollect():
		return "collect"
	case p.InPick():
		return "pick"
	case p == PhaseClientID:
		return "client_id"
	case p.InMeetClient():
		return "meet_client"
	default:
		return "invalid"
	}
}
