package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	ResultsStreamName  = "RACE_RESULTS"
	ResultsSubjectBase = "race.results"

	// ConnectTimeout bounds connecting and stream setup.
	ConnectTimeout = 5 * time.Second
)

type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewProducer connects once. A result publisher must never hold up a run, so
// there is no connect retry and no reconnect loop.
func NewProducer(natsURL string) (*Producer, error) {
	nc, err := nats.Connect(natsURL,
		nats.Timeout(ConnectTimeout),
		nats.NoReconnect(),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Producer{nc: nc, js: js}, nil
}

// EnsureStream creates the results stream if it doesn't exist. It makes a
// single attempt bounded by ConnectTimeout.
func (p *Producer) EnsureStream(ctx context.Context) error {
	cfg := jetstream.StreamConfig{
		Name:        ResultsStreamName,
		Subjects:    []string{ResultsSubjectBase + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		MaxMsgs:     100000,
		Storage:     jetstream.FileStorage,
		Duplicates:  time.Minute,
		Description: "Race winner decisions",
	}

	opCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	if _, err := p.js.CreateOrUpdateStream(opCtx, cfg); err != nil {
		return fmt.Errorf("create stream %s: %w", cfg.Name, err)
	}
	slog.Info("ensured NATS stream", "name", cfg.Name)
	return nil
}

// ResultSubject returns the subject a run's result is published on.
func ResultSubject(runID string) string {
	return fmt.Sprintf("%s.%s", ResultsSubjectBase, runID)
}

// PublishResult publishes a race result. The run id doubles as the message id,
// so a retried publish is deduplicated by the stream.
func (p *Producer) PublishResult(ctx context.Context, runID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = p.js.Publish(ctx, ResultSubject(runID), payload, jetstream.WithMsgID(runID))
	if err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
