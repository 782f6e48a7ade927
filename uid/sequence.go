package uid

import (
	"context"
	"strconv"
	"sync"
)

// Option configures a Sequence.
type Option func(*sequenceOptions)

type sequenceOptions struct {
	start int64
}

// WithStart sets the first value handed out. Default: 1.
func WithStart(start int64) Option {
	return func(o *sequenceOptions) {
		o.start = start
	}
}

// Sequence hands out decimal strings that are strictly increasing as
// integers. It is safe for concurrent use.
type Sequence struct {
	mu   sync.Mutex
	next int64
}

func NewSequence(opts ...Option) *Sequence {
	o := sequenceOptions{start: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return &Sequence{next: o.start}
}

func (s *Sequence) New(context.Context) (string, error) {
	return strconv.FormatInt(s.Next(), 10), nil
}

// Next returns the next value as an integer.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next
	s.next++
	return n
}
