package realtime

import (
	"encoding/json"
	"fmt"
)

// Kind names an event on the realtime channel.
type Kind string

const (
	KindCreateTask     Kind = "createTask"
	KindUpdateTask     Kind = "updateTask"
	KindOpenTask       Kind = "openTask"
	KindCloseTask      Kind = "closeTask"
	KindDisqualifyTeam Kind = "disqualifyTeam"
)

// Audience is a class of event recipients.
type Audience string

const (
	AudienceSupervisors Audience = "supervisors"
	AudienceTeams       Audience = "teams"
	AudienceGuests      Audience = "guests"
)

// Audiences lists every audience in delivery order.
var Audiences = []Audience{AudienceSupervisors, AudienceTeams, AudienceGuests}

// ParseAudience validates a wire audience name.
func ParseAudience(raw string) (Audience, error) {
	switch a := Audience(raw); a {
	case AudienceSupervisors, AudienceTeams, AudienceGuests:
		return a, nil
	}
	return "", fmt.Errorf("unknown audience %q", raw)
}

// Event is a tagged value: a kind plus the payload each audience may see.
// Audiences missing from Data never receive the event.
type Event struct {
	Type Kind                     `json:"type"`
	Data map[Audience]interface{} `json:"data"`
}

// NewEvent builds an event delivering the same payload to the given audiences.
func NewEvent(kind Kind, payload interface{}, audiences ...Audience) Event {
	data := make(map[Audience]interface{}, len(audiences))
	for _, a := range audiences {
		data[a] = payload
	}
	return Event{Type: kind, Data: data}
}

// For reports whether audience is a recipient of the event.
func (e Event) For(audience Audience) bool {
	_, ok := e.Data[audience]
	return ok
}

// Envelope is the decoded form of an Event read back from a channel.
type Envelope struct {
	Type Kind                         `json:"type"`
	Data map[Audience]json.RawMessage `json:"data"`
}

// Message is what a single client receives: the kind and its audience payload.
type Message struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode serializes the event in its wire form.
func Encode(e Event) ([]byte, error) {
	if e.Type == "" {
		return nil, fmt.Errorf("event type is empty")
	}
	if e.Data == nil {
		e.Data = map[Audience]interface{}{}
	}
	return json.Marshal(e)
}

// Decode parses a wire event.
func Decode(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode event failed: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("event type is empty")
	}
	return env, nil
}

// MessageFor extracts the per-audience message, false when the audience is
// not a recipient.
func (env Envelope) MessageFor(audience Audience) (Message, bool) {
	payload, ok := env.Data[audience]
	if !ok {
		return Message{}, false
	}
	return Message{Type: env.Type, Data: payload}, true
}
