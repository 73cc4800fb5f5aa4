// Package monitorhttp is the optional HTTP observer surface: a JSON snapshot
// of the reconciled call views plus a Server-Sent Events stream of call
// lifecycle notifications. It observes the monitor; it never mutates it.
package monitorhttp

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"callmonitor_sdk/internal/events"
	"callmonitor_sdk/platform/logger"
)

// streamEvent is the SSE payload: the bus event name plus its body.
type streamEvent struct {
	Type string
	Data any
}

type streamClient struct {
	id     uuid.UUID
	events chan streamEvent
}

// Stream fans bus events out to connected SSE clients. A slow client drops
// events rather than blocking the bus.
type Stream struct {
	log *logger.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]*streamClient
}

func NewStream(log *logger.Logger) *Stream {
	return &Stream{
		log:     log,
		clients: make(map[uuid.UUID]*streamClient),
	}
}

// RegisterHandlers subscribes the stream to the monitor's lifecycle events.
func (s *Stream) RegisterHandlers(bus events.Bus) {
	forward := func(name string, extract func(events.Event) any) {
		bus.Subscribe(name, events.HandlerFunc(func(_ context.Context, e events.Event) error {
			s.broadcast(streamEvent{Type: name, Data: extract(e)})
			return nil
		}))
	}

	forward(events.MonitorReady{}.EventName(), func(events.Event) any { return nil })
	forward(events.MonitorReset{}.EventName(), func(events.Event) any { return nil })
	forward(events.CallStarted{}.EventName(), func(e events.Event) any {
		return e.(events.CallStarted).Call
	})
	forward(events.CallRinging{}.EventName(), func(e events.Event) any {
		return e.(events.CallRinging).Call
	})
	forward(events.CallUpdated{}.EventName(), func(e events.Event) any {
		return e.(events.CallUpdated).Call
	})
	forward(events.CallEnded{}.EventName(), func(e events.Event) any {
		return e.(events.CallEnded).Call
	})
}

func (s *Stream) broadcast(event streamEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full, dropping event",
				"client", c.id.String(), "event", event.Type)
		}
	}
}

func (s *Stream) addClient() *streamClient {
	c := &streamClient{
		id:     uuid.New(),
		events: make(chan streamEvent, 32),
	}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	return c
}

func (s *Stream) removeClient(c *streamClient) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	close(c.events)
}

// Handler returns the gin handler serving the SSE connection.
func (s *Stream) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := s.addClient()
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"clientId": cl.id.String()})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				c.SSEvent(event.Type, event.Data)
				c.Writer.Flush()
			}
		}
	}
}

// ClientCount reports the number of connected SSE clients.
func (s *Stream) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
