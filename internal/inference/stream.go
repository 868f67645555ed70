package inference

import (
	"context"
	"fmt"
	"io"
	"sync"

	"llamachat/pkg/types"
)

// Producer generates fragments in order by calling emit. It must return once
// ctx is done; emit returns ErrCancelled in that case. The returned usage is
// reported by Stream.Usage.
type Producer func(ctx context.Context, emit func(string) error) (types.Usage, error)

// Stream is a lazily produced, finite sequence of text fragments. It has a
// single consumer and cannot be restarted.
type Stream struct {
	ch     chan string
	done   chan struct{}
	cancel context.CancelFunc

	mu    sync.Mutex
	err   error
	usage types.Usage
}

// NewStream starts produce in its own goroutine. Fragments are handed over
// unbuffered, so production never runs ahead of the consumer.
func NewStream(parent context.Context, produce Producer) *Stream {
	ctx, cancel := context.WithCancel(parent)
	s := &Stream{
		ch:     make(chan string),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go s.run(ctx, produce)
	return s
}

func (s *Stream) run(ctx context.Context, produce Producer) {
	defer close(s.done)
	defer close(s.ch)
	emit := func(frag string) error {
		select {
		case s.ch <- frag:
			return nil
		case <-ctx.Done():
			return ErrCancelled
		}
	}
	usage, err := safeProduce(ctx, produce, emit)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = usage
	switch {
	case ctx.Err() != nil:
		s.err = ErrCancelled
	case err != nil:
		s.err = &GenerationError{Err: err}
	}
}

func safeProduce(ctx context.Context, produce Producer, emit func(string) error) (u types.Usage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panic: %v", r)
		}
	}()
	return produce(ctx, emit)
}

// Next blocks until the next fragment is available. At the end of the
// stream it returns io.EOF, or the terminal error: *GenerationError when the
// engine failed, ErrCancelled when the stream or ctx was cancelled.
func (s *Stream) Next(ctx context.Context) (string, error) {
	select {
	case frag, ok := <-s.ch:
		if ok {
			return frag, nil
		}
		if err := s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	case <-ctx.Done():
		s.Cancel()
		return "", ErrCancelled
	}
}

// Cancel stops production. It is safe to call more than once and after the
// stream has ended.
func (s *Stream) Cancel() { s.cancel() }

// Close cancels the stream and waits for the producer to release the engine.
func (s *Stream) Close() error {
	s.cancel()
	<-s.done
	return nil
}

// Done is closed once the producer has returned.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Err returns the terminal error, nil while running or after a clean end.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Usage returns token accounting once the stream has ended.
func (s *Stream) Usage() types.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}
