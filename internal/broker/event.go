package broker

// Event is what a handler receives from Fire.
type Event struct {
	Topic  Topic
	Source any
	Args   []any
}

// Data returns the first argument, or nil.
func (e Event) Data() any {
	if len(e.Args) == 0 {
		return nil
	}
	return e.Args[0]
}

// Caller returns the value that fired the event.
func (e Event) Caller() any {
	return e.Source
}

// Int64 returns the first argument as an int64 when it holds any integer type.
func (e Event) Int64() (int64, bool) {
	switch v := e.Data().(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true
	default:
		return 0, false
	}
}

type Handler func(Event)
