package broker

import "log/slog"

const defaultMaxDepth = 16

type Option func(*Broker)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.log = logger
		}
	}
}

// WithMaxDepth bounds nested Fire calls made from inside handlers.
func WithMaxDepth(depth int) Option {
	return func(b *Broker) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

// WithLoopAffinity makes the broker warn when it is used from a goroutine other
// than the one that fired first.
func WithLoopAffinity() Option {
	return func(b *Broker) {
		b.affinity = true
	}
}
