package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tturner/radiobench/internal/logging"
	"github.com/tturner/radiobench/internal/metrics"
)

// DefaultChannel is the pub/sub channel results are published on.
const DefaultChannel = "radiobench:results"

// historyLength bounds the per-radio report list.
const historyLength = 200

// Event is one message on the results channel.
type Event struct {
	Kind   string      `json:"kind"` // "result", "error" or "report"
	Radio  RadioInfo   `json:"radio"`
	Result *TestResult `json:"result,omitempty"`
	Error  *TestError  `json:"error,omitempty"`
	Report *Document   `json:"report,omitempty"`
}

// redisClient is the subset of *redis.Client the publisher uses.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	Close() error
}

// Publisher pushes report events to Redis pub/sub and keeps finished
// reports in a per-serial list.
type Publisher struct {
	client  redisClient
	channel string
	radio   RadioInfo
	log     logging.Sink
	timeout time.Duration
}

// NewPublisher connects to the Redis server at addr.
func NewPublisher(ctx context.Context, addr, password, channel string, db int, log logging.Sink) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return newPublisher(client, channel, log), nil
}

func newPublisher(client redisClient, channel string, log logging.Sink) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel, log: logging.OrNop(log), timeout: 2 * time.Second}
}

// SetRadio labels subsequent events.
func (p *Publisher) SetRadio(r RadioInfo) { p.radio = r }

func (p *Publisher) publish(ctx context.Context, ev Event) error {
	ev.Radio = p.radio
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}

// ResultAdded publishes a result. Failures are logged, not returned, so a
// broken broker never stops a run.
func (p *Publisher) ResultAdded(r TestResult) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.publish(ctx, Event{Kind: "result", Result: &r}); err != nil {
		p.log.Error("report publish: %v", err)
	}
}

// ErrorAdded publishes a test error.
func (p *Publisher) ErrorAdded(e TestError) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.publish(ctx, Event{Kind: "error", Error: &e}); err != nil {
		p.log.Error("report publish: %v", err)
	}
}

// PublishReport announces a finished report and stores it in the radio's
// history list.
func (p *Publisher) PublishReport(ctx context.Context, d Document) error {
	p.radio = d.Radio
	if err := p.publish(ctx, Event{Kind: "report", Report: &d}); err != nil {
		return err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	key := HistoryKey(d.Radio.Serial)
	if err := p.client.LPush(ctx, key, data).Err(); err != nil {
		p.log.Error("report history %s: %v", key, err)
		return nil
	}
	if err := p.client.LTrim(ctx, key, 0, historyLength-1).Err(); err != nil {
		p.log.Error("report history trim %s: %v", key, err)
	}
	return nil
}

// HistoryKey is the list holding past reports of a radio.
func HistoryKey(serial string) string {
	return fmt.Sprintf("radiobench:%s:reports", serial)
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

// MetricsListener counts results by type and verdict.
type MetricsListener struct {
	Collectors *metrics.Collectors
}

func (m MetricsListener) ResultAdded(r TestResult) {
	m.Collectors.ObserveResult(r.Type.String(), r.Passed())
}

func (m MetricsListener) ErrorAdded(e TestError) {
	m.Collectors.ObserveResult(e.Type.String(), false)
}
