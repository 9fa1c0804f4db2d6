package llm

import (
	"context"
	"time"

	"github.com/lomoval/calendar-helper/internal/metrics"
)

type instrumentedClient struct {
	next    Client
	program string
	metrics *metrics.Metrics
}

// Instrument records the latency and status of every call made through next under program.
func Instrument(next Client, program string, m *metrics.Metrics) Client {
	if m == nil {
		return next
	}
	return &instrumentedClient{next: next, program: program, metrics: m}
}

func (c *instrumentedClient) Complete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	started := time.Now()
	resp, err := c.next.Complete(ctx, req)
	c.metrics.ObserveLLM(c.program, started, err)
	return resp, err
}
