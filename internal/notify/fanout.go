package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts push sends by outcome.
type Metrics struct {
	sends  *prometheus.CounterVec
	pruned prometheus.Counter
}

// NewMetrics registers the push counters on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "push_sends_total",
				Help: "Push messages sent per device token, by outcome.",
			},
			[]string{"outcome"},
		),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_tokens_pruned_total",
			Help: "Device tokens deleted after the push service reported them unregistered.",
		}),
	}
	if err := reg.Register(m.sends); err != nil {
		return nil, err
	}
	if err := reg.Register(m.pruned); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(outcome string) {
	if m != nil {
		m.sends.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observePruned(n int64) {
	if m != nil && n > 0 {
		m.pruned.Add(float64(n))
	}
}

// Fanout sends a notification to every registered device, one gateway call per token.
type Fanout struct {
	tokens  TokenStore
	gateway Gateway
	metrics *Metrics
}

// NewFanout creates a fan-out. metrics may be nil.
func NewFanout(tokens TokenStore, gateway Gateway, metrics *Metrics) *Fanout {
	return &Fanout{tokens: tokens, gateway: gateway, metrics: metrics}
}

// Run delivers n and prunes tokens the gateway reports as unregistered.
func (f *Fanout) Run(ctx context.Context, n Notification) (Result, error) {
	devices, err := f.tokens.All(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load device tokens: %w", err)
	}
	if len(devices) == 0 {
		log.Println("No device tokens found.")
		return Result{}, nil
	}

	var (
		res  Result
		dead []string
	)
	for _, d := range devices {
		err := f.gateway.Send(ctx, d.Token, n)
		switch {
		case err == nil:
			res.SuccessCount++
			f.metrics.observe("success")
		case errors.Is(err, ErrUnregistered):
			res.FailureCount++
			dead = append(dead, d.Token)
			f.metrics.observe("unregistered")
		default:
			res.FailureCount++
			f.metrics.observe("failure")
			log.Printf("push to %s failed: %v", shorten(d.Token), err)
		}
	}
	log.Printf("Sent to %d devices; %d succeeded, %d failed.", len(devices), res.SuccessCount, res.FailureCount)

	if len(dead) > 0 {
		pruned, err := f.tokens.Prune(ctx, dead)
		if err != nil {
			log.Printf("prune unregistered tokens failed: %v", err)
		} else {
			f.metrics.observePruned(pruned)
			log.Printf("pruned %d unregistered device tokens", pruned)
		}
	}
	return res, nil
}
