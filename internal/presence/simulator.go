package presence

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"callmonitor_sdk/internal/callmonitor/domain"
)

// Simulator is an in-process presence feed for local development and demos.
// It is always ready and every mutation swaps the call slice, so downstream
// identity gates observe each change.
type Simulator struct {
	mu        sync.Mutex
	calls     []domain.CallRecord
	listeners []func()
}

func NewSimulator() *Simulator {
	return &Simulator{}
}

func (s *Simulator) Calls() []domain.CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Simulator) Ready() bool { return true }

func (s *Simulator) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// PlaceInbound adds a ringing inbound call and returns its session id.
func (s *Simulator) PlaceInbound(from, to string) string {
	id := uuid.NewString()
	s.mutate(func(calls []domain.CallRecord) ([]domain.CallRecord, bool) {
		return append(calls, domain.CallRecord{
			SessionID:       id,
			Direction:       domain.DirectionInbound,
			From:            domain.Endpoint{PhoneNumber: from},
			To:              domain.Endpoint{PhoneNumber: to},
			StartTime:       time.Now().UnixMilli(),
			TelephonyStatus: domain.StatusRinging,
		}), true
	})
	return id
}

// SetStatus moves a call to the given telephony status.
func (s *Simulator) SetStatus(sessionID string, status domain.TelephonyStatus) {
	s.mutate(func(calls []domain.CallRecord) ([]domain.CallRecord, bool) {
		changed := false
		for i := range calls {
			if calls[i].SessionID == sessionID && calls[i].TelephonyStatus != status {
				calls[i].TelephonyStatus = status
				changed = true
			}
		}
		return calls, changed
	})
}

// End removes a call from the feed.
func (s *Simulator) End(sessionID string) {
	s.mutate(func(calls []domain.CallRecord) ([]domain.CallRecord, bool) {
		out := calls[:0]
		for _, c := range calls {
			if c.SessionID != sessionID {
				out = append(out, c)
			}
		}
		return out, len(out) != len(calls)
	})
}

// Run drives a small random call lifecycle until the context is cancelled:
// place a call, connect it a tick later, drop it a few ticks after that.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		s.mu.Lock()
		current := append([]domain.CallRecord(nil), s.calls...)
		s.mu.Unlock()

		switch {
		case len(current) == 0 || (len(current) < 3 && rand.Intn(3) == 0):
			s.PlaceInbound(randomNumber(), "+15550100000")
		default:
			c := current[rand.Intn(len(current))]
			if c.TelephonyStatus == domain.StatusRinging {
				s.SetStatus(c.SessionID, domain.StatusCallConnected)
			} else {
				s.End(c.SessionID)
			}
		}
	}
}

// mutate applies fn to a fresh copy of the call list. The handle only swaps,
// and listeners only fire, when fn reports an actual change; a no-op keeps
// the previous slice so downstream identity gates see nothing.
func (s *Simulator) mutate(fn func([]domain.CallRecord) ([]domain.CallRecord, bool)) {
	s.mu.Lock()
	next, changed := fn(append([]domain.CallRecord(nil), s.calls...))
	if !changed {
		s.mu.Unlock()
		return
	}
	s.calls = next
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func randomNumber() string {
	digits := make([]byte, 7)
	for i := range digits {
		digits[i] = byte('0' + rand.Intn(10))
	}
	return "+1555" + string(digits)
}
