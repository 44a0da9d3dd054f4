package engine

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates Event records on the wire ("type" field).
type Kind string

const (
	KindBoundaryBounce Kind = "boundary_bounce"
	KindCollision      Kind = "collision"
)

// Side names the arena wall a body bounced off. Top is y = 0.
type Side string

const (
	SideLeft   Side = "left"
	SideRight  Side = "right"
	SideTop    Side = "top"
	SideBottom Side = "bottom"
)

// Event is one physical occurrence during a step. Side is set for boundary
// bounces; I and J (I < J) for collisions.
type Event struct {
	Kind Kind
	Side Side
	I, J int
}

func Bounce(side Side) Event   { return Event{Kind: KindBoundaryBounce, Side: side} }
func Collision(i, j int) Event { return Event{Kind: KindCollision, I: i, J: j} }

func (e Event) String() string {
	if e.Kind == KindCollision {
		return fmt.Sprintf("collision(%d,%d)", e.I, e.J)
	}
	return fmt.Sprintf("%s(%s)", e.Kind, e.Side)
}

type bounceRecord struct {
	Type Kind `json:"type"`
	Side Side `json:"side"`
}

type collisionRecord struct {
	Type Kind `json:"type"`
	I    int  `json:"i"`
	J    int  `json:"j"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindBoundaryBounce:
		return json.Marshal(bounceRecord{Type: e.Kind, Side: e.Side})
	case KindCollision:
		return json.Marshal(collisionRecord{Type: e.Kind, I: e.I, J: e.J})
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type Kind `json:"type"`
		Side Side `json:"side"`
		I    int  `json:"i"`
		J    int  `json:"j"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case KindBoundaryBounce:
		switch raw.Side {
		case SideLeft, SideRight, SideTop, SideBottom:
		default:
			return fmt.Errorf("unknown bounce side %q", raw.Side)
		}
		*e = Bounce(raw.Side)
	case KindCollision:
		*e = Collision(raw.I, raw.J)
	default:
		return fmt.Errorf("unknown event type %q", raw.Type)
	}
	return nil
}

// Count tallies events by kind.
func Count(events []Event) (bounces, collisions int) {
	for _, e := range events {
		switch e.Kind {
		case KindBoundaryBounce:
			bounces++
		case KindCollision:
			collisions++
		}
	}
	return bounces, collisions
}
