package service

import (
	"context"
	"sync"
	"time"
)

// Pacer keeps at least delay between the end of one model call and the start
// of the next, so call start times are never closer than delay either.
type Pacer struct {
	delay time.Duration

	mu       sync.Mutex
	lastDone time.Time
}

// NewPacer creates a pacer. A zero delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay}
}

// Wait blocks until the next call may start
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	last := p.lastDone
	p.mu.Unlock()

	if p.delay <= 0 || last.IsZero() {
		return nil
	}

	wait := time.Until(last.Add(p.delay))
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done records that a call has finished
func (p *Pacer) Done() {
	p.mu.Lock()
	p.lastDone = time.Now()
	p.mu.Unlock()
}

// pacedCompleter runs every completion through a pacer
type pacedCompleter struct {
	llm   Completer
	pacer *Pacer
}

func (c *pacedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return "", err
	}
	defer c.pacer.Done()

	return c.llm.Complete(ctx, prompt)
}
