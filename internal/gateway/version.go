package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// HeaderWriteVersion carries a write's version stamp over HTTP.
const HeaderWriteVersion = "X-Write-Version"

type versionKey struct{}

// WithVersion attaches a write version to ctx.
func WithVersion(ctx context.Context, version uint64) context.Context {
	return context.WithValue(ctx, versionKey{}, version)
}

// VersionFrom returns the write version carried by ctx, or 0.
func VersionFrom(ctx context.Context) uint64 {
	v, _ := ctx.Value(versionKey{}).(uint64)
	return v
}

func LengthKey(blockID int64) string {
	return fmt.Sprintf("block:%d:length", blockID)
}

func BlockKey(blockID int64) string {
	return fmt.Sprintf("block:%d", blockID)
}

func SequenceKey(timelineID int64) string {
	return fmt.Sprintf("timeline:%d:sequence", timelineID)
}

// Stamper hands out version stamps that are strictly increasing per key. Stamps
// are wall-clock nanoseconds, bumped when the clock has not moved on.
type Stamper struct {
	mu   sync.Mutex
	last map[string]uint64
	now  func() time.Time
}

func NewStamper() *Stamper {
	return &Stamper{
		last: make(map[string]uint64),
		now:  time.Now,
	}
}

func (s *Stamper) Next(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := uint64(s.now().UnixNano())
	if prev := s.last[key]; v <= prev {
		v = prev + 1
	}
	s.last[key] = v
	return v
}
