package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Validation limits enforced before anything reaches the wire.
const (
	MaxEventBytes   = 1 << 20 // serialized event, 1 MiB
	MaxProperties   = 255
	MaxNestingDepth = 3 // the properties map itself counts as depth 1
	MaxBatchEvents  = 2000
)

// Validation errors. All are matchable with errors.Is.
var (
	ErrEmptyEventName    = errors.New("event name must not be empty")
	ErrMissingDistinctID = errors.New("properties must contain a non-empty distinct_id")
	ErrEventTooLarge     = errors.New("serialized event exceeds 1 MiB")
	ErrTooManyProperties = errors.New("event exceeds 255 properties")
	ErrNestingTooDeep    = errors.New("properties nested deeper than 3 levels")
	ErrInvalidTimestamp  = errors.New("time property is not a unix timestamp or time.Time")
	ErrEmptyBatch        = errors.New("batch must contain at least one event")
	ErrBatchTooLarge     = errors.New("batch exceeds 2000 events")
)

// Validate checks a raw event candidate against the wire limits. Checks run
// in a fixed order and stop at the first failure.
func Validate(name string, props map[string]any) error {
	if name == "" {
		return ErrEmptyEventName
	}
	id, ok := props[KeyDistinctID].(string)
	if !ok || id == "" {
		return ErrMissingDistinctID
	}

	raw, err := json.Marshal(Payload{Event: name, Properties: props})
	if err != nil {
		return fmt.Errorf("properties are not JSON-representable: %w", err)
	}
	if len(raw) > MaxEventBytes {
		return ErrEventTooLarge
	}
	if len(props) > MaxProperties {
		return ErrTooManyProperties
	}
	if depthOf(props, 0) > MaxNestingDepth {
		return ErrNestingTooDeep
	}
	return nil
}

// ValidateBatch checks batch-level bounds, then every member event.
func ValidateBatch(events []Input) error {
	if len(events) == 0 {
		return ErrEmptyBatch
	}
	if len(events) > MaxBatchEvents {
		return ErrBatchTooLarge
	}
	for i, ev := range events {
		if err := Validate(ev.Name, ev.Properties); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

// depthOf reports the containment depth of v. Maps and slices each add a
// level; scalars add none. []byte marshals as a string and is not a level.
func depthOf(v any, depth int) int {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		depth++
		max := depth
		for it := rv.MapRange(); it.Next(); {
			if d := depthOf(it.Value().Interface(), depth); d > max {
				max = d
			}
		}
		return max
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return depth
		}
		depth++
		max := depth
		for i := 0; i < rv.Len(); i++ {
			if d := depthOf(rv.Index(i).Interface(), depth); d > max {
				max = d
			}
		}
		return max
	default:
		return depth
	}
}
