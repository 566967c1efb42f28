package event

import (
	"time"

	"github.com/google/uuid"
)

// Reserved property keys promoted out of the caller's bag into dedicated
// wire fields.
const (
	KeyDistinctID = "distinct_id"
	KeyTime       = "time"
	KeyIP         = "ip"
	KeyInsertID   = "$insert_id"
)

// Input is a raw event as supplied by the caller: a name plus a loosely
// typed property bag.
type Input struct {
	Name       string
	Properties map[string]any
}

// Event is the canonical, immutable form of one analytics fact. Construct
// it with New; the zero value is not usable.
type Event struct {
	name       string
	distinctID string
	time       int64
	ip         string
	insertID   string
	extra      map[string]any
}

// Payload is the wire shape both the /track and /import endpoints accept.
type Payload struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

// New validates the raw input and builds an Event. The distinct_id, time
// and ip keys are promoted out of the bag; a $insert_id is generated when
// the caller did not supply one. Absent time defaults to now.
func New(name string, props map[string]any) (*Event, error) {
	if err := Validate(name, props); err != nil {
		return nil, err
	}

	ev := &Event{
		name:  name,
		time:  time.Now().Unix(),
		extra: make(map[string]any, len(props)),
	}
	for k, v := range props {
		switch k {
		case KeyDistinctID:
			ev.distinctID = v.(string) // Validate guarantees a non-empty string
		case KeyTime:
			ts, err := toUnix(v)
			if err != nil {
				return nil, err
			}
			ev.time = ts
		case KeyIP:
			if ip, ok := v.(string); ok {
				ev.ip = ip
			}
		case KeyInsertID:
			if id, ok := v.(string); ok && id != "" {
				ev.insertID = id
			}
		default:
			ev.extra[k] = v
		}
	}
	if ev.insertID == "" {
		ev.insertID = uuid.NewString()
	}
	return ev, nil
}

// Name returns the event name.
func (e *Event) Name() string { return e.name }

// DistinctID returns the identity the event is attributed to.
func (e *Event) DistinctID() string { return e.distinctID }

// Time returns the event time in unix seconds.
func (e *Event) Time() int64 { return e.time }

// Live produces the payload used for near-real-time tracking. The token
// field is left unset; credential injection happens in the auth package
// immediately before transport.
func (e *Event) Live() Payload {
	return e.payload()
}

// Historical produces the payload used for bulk import. The shape is the
// same as Live, but import permits arbitrary past timestamps and the auth
// step additionally attaches the account-scoping project_id.
func (e *Event) Historical() Payload {
	return e.payload()
}

func (e *Event) payload() Payload {
	props := make(map[string]any, len(e.extra)+4)
	for k, v := range e.extra {
		props[k] = v
	}
	props[KeyDistinctID] = e.distinctID
	props[KeyTime] = e.time
	props[KeyInsertID] = e.insertID
	if e.ip != "" {
		props[KeyIP] = e.ip
	}
	return Payload{Event: e.name, Properties: props}
}

func toUnix(v any) (int64, error) {
	switch t := v.(type) {
	case time.Time:
		return t.Unix(), nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		return int64(t), nil
	default:
		return 0, ErrInvalidTimestamp
	}
}
