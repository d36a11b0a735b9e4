package fs22

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	logx "fs22bot/pkg/logx"
)

var ErrUnexpectedStatus = errors.New("fs22: unexpected http status")

const (
	DefaultPollTimeout = 2 * time.Second

	breakerTrips   = 5
	breakerTimeout = 30 * time.Second
	maxFeedBytes   = 1 << 20
)

// HTTPProvider polls the feed over HTTP. Each server gets its own circuit
// breaker so a dead host is probed at most once per breaker timeout.
type HTTPProvider struct {
	client  *http.Client
	timeout time.Duration
	log     logx.Logger

	mu       sync.Mutex
	breakers map[int]*gobreaker.CircuitBreaker
}

var _ Provider = (*HTTPProvider)(nil)

func NewHTTPProvider(timeout time.Duration, log logx.Logger) *HTTPProvider {
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	return &HTTPProvider{
		client:   &http.Client{},
		timeout:  timeout,
		log:      log.With(logx.String("comp", "fs22.provider")),
		breakers: make(map[int]*gobreaker.CircuitBreaker),
	}
}

func (p *HTTPProvider) Poll(ctx context.Context, cfg ServerConfig) Snapshot {
	res, err := p.breaker(cfg.ID).Execute(func() (interface{}, error) {
		return p.fetch(ctx, cfg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.log.Debug("poll skipped, breaker open", logx.Int("server", cfg.ID))
		} else {
			p.log.Info("server unreachable", logx.Int("server", cfg.ID), logx.Err(err))
		}
		return UnknownSnapshot()
	}
	return res.(Snapshot)
}

// Forget drops the breaker of a removed server.
func (p *HTTPProvider) Forget(serverID int) {
	p.mu.Lock()
	delete(p.breakers, serverID)
	p.mu.Unlock()
}

func (p *HTTPProvider) breaker(id int) *gobreaker.CircuitBreaker {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cb, ok := p.breakers[id]; ok {
		return cb
	}
	log := p.log
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "fs22-server-" + strconv.Itoa(id),
		Timeout: breakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerTrips
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker state changed", logx.String("breaker", name),
				logx.String("from", from.String()), logx.String("to", to.String()))
		},
	})
	p.breakers[id] = cb
	return cb
}

func (p *HTTPProvider) fetch(ctx context.Context, cfg ServerConfig) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.StatusURL(), nil)
	if err != nil {
		return Snapshot{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	snap, err := ParseFeed(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		p.log.Warn("could not parse feed", logx.Int("server", cfg.ID), logx.Err(err))
		return Snapshot{}, err
	}
	return snap, nil
}
