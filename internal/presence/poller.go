// Package presence supplies the monitor's presence feed. The Poller adapter
// fetches the account's detailed presence over HTTP on a fixed cadence; the
// Simulator generates a scripted feed for local development.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"callmonitor_sdk/internal/callmonitor/domain"
	"callmonitor_sdk/platform/apperr"
	"callmonitor_sdk/platform/config"
	"callmonitor_sdk/platform/logger"
)

// feedPayload is the wire shape of the detailed presence endpoint.
type feedPayload struct {
	ActiveCalls []domain.CallRecord `json:"activeCalls"`
}

// Poller polls a presence endpoint and exposes the active-call list with a
// stable handle: a poll whose payload is structurally unchanged keeps the
// previous slice, so downstream change gates see no difference.
type Poller struct {
	url       string
	threshold int
	client    *http.Client
	limiter   *rate.Limiter
	log       *logger.Logger

	mu        sync.Mutex
	calls     []domain.CallRecord
	ready     bool
	failures  int
	listeners []func()
}

// NewPoller builds a poller from config. It does not start polling; call Run.
func NewPoller(cfg config.PresenceConfig, log *logger.Logger) (*Poller, error) {
	if cfg.GetPresenceURL() == "" {
		return nil, apperr.Validation("presence url not configured").WithOp("presence.NewPoller")
	}
	interval := cfg.GetPresencePollInterval()
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{
		url:       cfg.GetPresenceURL(),
		threshold: cfg.GetPresenceFailureThreshold(),
		client:    &http.Client{Timeout: interval},
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		log:       log,
	}, nil
}

// Calls returns the current active-call list. The slice handle only changes
// when the feed content changes.
func (p *Poller) Calls() []domain.CallRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Ready reports whether the feed is trustworthy: at least one successful
// poll, and fewer consecutive failures than the configured threshold.
func (p *Poller) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// OnChange registers a listener invoked after every observable feed change,
// including readiness flips.
func (p *Poller) OnChange(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Run polls until the context is cancelled. The limiter paces the loop at
// the configured interval with a first poll allowed immediately.
func (p *Poller) Run(ctx context.Context) error {
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		p.poll(ctx)
	}
}

// poll performs one fetch-decode-compare cycle.
func (p *Poller) poll(ctx context.Context) {
	payload, err := p.fetch(ctx)
	if err != nil {
		p.log.PresencePoll(0, err)
		p.recordFailure()
		return
	}
	p.log.PresencePoll(len(payload.ActiveCalls), nil)
	p.recordSuccess(payload.ActiveCalls)
}

func (p *Poller) fetch(ctx context.Context) (*feedPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build presence request", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "presence endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, apperr.Unavailable(fmt.Sprintf("presence endpoint returned %d", resp.StatusCode))
	}

	var payload feedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "decode presence payload", err)
	}
	return &payload, nil
}

func (p *Poller) recordSuccess(calls []domain.CallRecord) {
	p.mu.Lock()
	p.failures = 0
	wasReady := p.ready
	p.ready = true

	changed := !wasReady
	if !reflect.DeepEqual(calls, p.calls) {
		p.calls = calls
		changed = true
	}
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn()
		}
	}
}

func (p *Poller) recordFailure() {
	p.mu.Lock()
	p.failures++
	lost := p.ready && p.failures >= p.threshold
	if lost {
		p.ready = false
	}
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	if lost {
		for _, fn := range listeners {
			fn()
		}
	}
}

// snapshotListeners must be called with mu held.
func (p *Poller) snapshotListeners() []func() {
	out := make([]func(), len(p.listeners))
	copy(out, p.listeners)
	return out
}
