package approval

// Event is the envelope published for every approval lifecycle transition.
type Event struct {
	Topic   string            // see topic constants below
	Data    interface{}       // *model.Draft | *model.Decision
	Headers map[string]string `json:"headers,omitempty"` // optional – reviewer session, correlation id etc.
}

// Standard event topics.
const (
	TopicRequestCreated  = "request.created"  // draft submitted for review
	TopicDecisionCreated = "decision.created" // terminal decision recorded
	TopicRequestExpired  = "request.expired"  // review window elapsed or draft purged
)
