package service

import (
	"context"
	"sync"

	"github.com/staffdesk/staffdesk/pkg/logger"
)

// Observer is a delivery sink for notifications
type Observer interface {
	Name() string
	Notify(ctx context.Context, recipient, message string) error
}

// Notifier is what the other services depend on to reach users
type Notifier interface {
	Notify(ctx context.Context, recipient, message string)
}

// Subject fans a notification out to every attached observer
type Subject struct {
	mu        sync.RWMutex
	observers []Observer
	logger    *logger.Logger
}

// NewSubject creates a subject with the given observers attached
func NewSubject(log *logger.Logger, observers ...Observer) *Subject {
	return &Subject{
		observers: observers,
		logger:    log.WithComponent("notifications"),
	}
}

// Attach adds an observer
func (s *Subject) Attach(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Detach removes every observer with the given name
func (s *Subject) Detach(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.observers[:0]
	for _, o := range s.observers {
		if o.Name() != name {
			kept = append(kept, o)
		}
	}
	s.observers = kept
}

// Observers returns the names of the attached observers in order
func (s *Subject) Observers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.observers))
	for _, o := range s.observers {
		names = append(names, o.Name())
	}
	return names
}

// Notify delivers message to recipient through every observer. A failing
// observer is logged and the remaining ones still run.
func (s *Subject) Notify(ctx context.Context, recipient, message string) {
	s.mu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.mu.RUnlock()

	for _, o := range observers {
		if err := o.Notify(ctx, recipient, message); err != nil {
			s.logger.Error().Err(err).
				Str("observer", o.Name()).
				Str("recipient", recipient).
				Msg("notification delivery failed")
		}
	}
}
