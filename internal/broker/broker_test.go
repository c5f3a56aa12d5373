package broker

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type owner struct{ name string }

func TestBroker_Fire(t *testing.T) {
	t.Run("invokes handlers in registration order", func(t *testing.T) {
		b := New()
		a, c := &owner{"a"}, &owner{"c"}
		var calls []string

		b.Listen(TopicBlockSelected, a, func(Event) { calls = append(calls, "a1") })
		b.Listen(TopicBlockSelected, c, func(Event) { calls = append(calls, "c1") })
		b.Listen(TopicBlockSelected, a, func(Event) { calls = append(calls, "a2") })

		b.Fire(TopicBlockSelected, nil, int64(7))

		assert.Equal(t, []string{"a1", "c1", "a2"}, calls)
	})

	t.Run("passes source and args", func(t *testing.T) {
		b := New()
		o := &owner{}
		var got Event

		b.Listen(TopicBlockLengthChanging, o, func(e Event) { got = e })
		b.Fire(TopicBlockLengthChanging, "blockLengthMinutes", 45)

		assert.Equal(t, TopicBlockLengthChanging, got.Topic)
		assert.Equal(t, "blockLengthMinutes", got.Caller())
		assert.Equal(t, 45, got.Data())
	})

	t.Run("no subscribers is a no-op", func(t *testing.T) {
		b := New()
		assert.NotPanics(t, func() { b.Fire(TopicTimelineDeleted, nil, int64(1)) })
		assert.Equal(t, uint64(1), b.Stats().Fired)
		assert.Equal(t, uint64(0), b.Stats().Delivered)
	})

	t.Run("only matching topic is delivered", func(t *testing.T) {
		b := New()
		o := &owner{}
		count := 0
		b.Listen(TopicBlockSelected, o, func(Event) { count++ })

		b.Fire(TopicTimelineSelected, nil, int64(1))

		assert.Zero(t, count)
	})

	t.Run("duplicate registration by one owner runs both", func(t *testing.T) {
		b := New()
		o := &owner{}
		count := 0
		h := func(Event) { count++ }
		b.Listen(TopicBlockSelected, o, h)
		b.Listen(TopicBlockSelected, o, h)

		b.Fire(TopicBlockSelected, nil)

		assert.Equal(t, 2, count)
	})
}

func TestBroker_StopListening(t *testing.T) {
	b := New()
	o := &owner{}
	selected, changing := 0, 0
	b.Listen(TopicBlockSelected, o, func(Event) { selected++ })
	b.Listen(TopicBlockLengthChanging, o, func(Event) { changing++ })

	b.StopListening(TopicBlockSelected, o)
	b.Fire(TopicBlockSelected, nil)
	b.Fire(TopicBlockLengthChanging, nil)

	assert.Zero(t, selected)
	assert.Equal(t, 1, changing)
	assert.True(t, b.Owns(o))
	assert.Equal(t, 0, b.Listeners(TopicBlockSelected))
}

func TestBroker_StopListeningAll(t *testing.T) {
	t.Run("removes every topic of the owner", func(t *testing.T) {
		b := New()
		gone, stays := &owner{"gone"}, &owner{"stays"}
		goneCalls, stayCalls := 0, 0

		for _, topic := range []Topic{TopicBlockSelected, TopicBlockLengthChanging, TopicTimelineDeleted} {
			b.Listen(topic, gone, func(Event) { goneCalls++ })
			b.Listen(topic, stays, func(Event) { stayCalls++ })
		}

		b.StopListeningAll(gone)
		for _, topic := range []Topic{TopicBlockSelected, TopicBlockLengthChanging, TopicTimelineDeleted} {
			b.Fire(topic, nil)
		}

		assert.Zero(t, goneCalls)
		assert.Equal(t, 3, stayCalls)
		assert.False(t, b.Owns(gone))
		assert.Equal(t, 1, b.Stats().Owners)
	})

	t.Run("is idempotent", func(t *testing.T) {
		b := New()
		o := &owner{}
		b.Listen(TopicBlockSelected, o, func(Event) {})

		b.StopListeningAll(o)
		assert.NotPanics(t, func() { b.StopListeningAll(o) })
		assert.NotPanics(t, func() { b.StopListeningAll(nil) })
		assert.Equal(t, 0, b.Stats().Subscriptions)
	})

	t.Run("skips owner handlers later in the same fire", func(t *testing.T) {
		b := New()
		killer, victim := &owner{"killer"}, &owner{"victim"}
		victimCalls := 0

		b.Listen(TopicBlockSelected, killer, func(Event) { b.StopListeningAll(victim) })
		b.Listen(TopicBlockSelected, victim, func(Event) { victimCalls++ })

		b.Fire(TopicBlockSelected, nil)

		assert.Zero(t, victimCalls)
	})

	t.Run("handler may tear down its own owner", func(t *testing.T) {
		b := New()
		o := &owner{}
		first, second := 0, 0
		b.Listen(TopicBlockSelected, o, func(Event) {
			first++
			b.StopListeningAll(o)
		})
		b.Listen(TopicBlockSelected, o, func(Event) { second++ })

		b.Fire(TopicBlockSelected, nil)
		b.Fire(TopicBlockSelected, nil)

		assert.Equal(t, 1, first)
		assert.Zero(t, second)
	})
}

// After StopListeningAll(owner) no handler of that owner runs again, for any
// interleaving of listen/fire/stop calls.
func TestBroker_StopListeningAllRandomSequences(t *testing.T) {
	topics := []Topic{TopicBlockSelected, TopicBlockLengthChanging, TopicTimelineSelected, TopicTimelineDeleted}

	for seed := int64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		b := New()
		owners := []*owner{{"0"}, {"1"}, {"2"}, {"3"}}
		stopped := map[*owner]bool{}
		violations := 0

		for step := 0; step < 200; step++ {
			o := owners[rng.Intn(len(owners))]
			topic := topics[rng.Intn(len(topics))]

			switch rng.Intn(4) {
			case 0:
				if stopped[o] {
					continue
				}
				b.Listen(topic, o, func(Event) {
					if stopped[o] {
						violations++
					}
				})
			case 1:
				b.StopListeningAll(o)
				stopped[o] = true
			default:
				b.Fire(topic, nil, step)
			}
		}

		require.Zero(t, violations, "seed %d", seed)
	}
}

func TestBroker_HandlerPanicDoesNotStopDelivery(t *testing.T) {
	b := New()
	o := &owner{}
	after := 0
	b.Listen(TopicBlockSelected, o, func(Event) { panic("boom") })
	b.Listen(TopicBlockSelected, o, func(Event) { after++ })

	assert.NotPanics(t, func() { b.Fire(TopicBlockSelected, nil) })
	assert.Equal(t, 1, after)
	assert.Equal(t, uint64(1), b.Stats().Panics)
}

func TestBroker_NestedFireIsBounded(t *testing.T) {
	b := New(WithMaxDepth(3))
	o := &owner{}
	calls := 0
	b.Listen(TopicBlockSelected, o, func(Event) {
		calls++
		b.Fire(TopicBlockSelected, nil)
	})

	b.Fire(TopicBlockSelected, nil)

	assert.Equal(t, 3, calls)
	assert.Equal(t, uint64(1), b.Stats().DroppedNested)
}

func TestBroker_ListenDuringFireTakesEffectNextFire(t *testing.T) {
	b := New()
	o := &owner{}
	late := 0
	b.Listen(TopicBlockSelected, o, func(Event) {
		b.Listen(TopicBlockSelected, &owner{}, func(Event) { late++ })
	})

	b.Fire(TopicBlockSelected, nil)
	assert.Zero(t, late)

	b.Fire(TopicBlockSelected, nil)
	assert.Equal(t, 1, late)
}

func TestBroker_Services(t *testing.T) {
	b := New()
	assert.Nil(t, b.Service(ServicePropertiesView))

	svc := &owner{"panel"}
	b.SetService(ServicePropertiesView, svc)

	assert.Same(t, svc, b.Service(ServicePropertiesView))
}

func TestBroker_ListenRejectsNilOwner(t *testing.T) {
	b := New()
	b.Listen(TopicBlockSelected, nil, func(Event) {})
	b.Listen(TopicBlockSelected, &owner{}, nil)

	assert.Equal(t, 0, b.Listeners(TopicBlockSelected))
}

func TestEvent_Int64(t *testing.T) {
	id, ok := Event{Args: []any{int64(9)}}.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)

	id, ok = Event{Args: []any{3}}.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)

	_, ok = Event{Args: []any{"x"}}.Int64()
	assert.False(t, ok)

	_, ok = Event{}.Int64()
	assert.False(t, ok)
}
