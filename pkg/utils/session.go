package utils

import (
	"context"
	"time"
)

// Session is a cancellable unit of work, such as one sensor connection or one
// run of the server.
type Session struct {
	context   context.Context
	cancel    context.CancelFunc
	name      string
	startTime time.Time
}

func NewSession(ctx context.Context, name string) Session {
	ctx, cancel := context.WithCancel(ctx)
	return Session{
		context:   ctx,
		cancel:    cancel,
		name:      name,
		startTime: time.Now(),
	}
}

func (s *Session) Name() string {
	return s.name
}

func (s *Session) Started() time.Time {
	return s.startTime
}

// Age is how long the session has existed.
func (s *Session) Age() time.Duration {
	return time.Since(s.startTime)
}

func (s *Session) Ctx() context.Context {
	return s.context
}

func (s *Session) IsDone() bool {
	return s.context.Err() != nil
}

func (s *Session) Cancel() {
	s.cancel()
}
