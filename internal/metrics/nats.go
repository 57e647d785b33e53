package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Publisher is the subset of *nats.Conn the sink uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes records as protojson-encoded structs on the base subject
// and on a per-agent routing key.
type NATSSink struct {
	conn    *nats.Conn
	pub     Publisher
	subject string
	logger  zerolog.Logger
}

// NewNATSSink connects to natsURL.
func NewNATSSink(natsURL, subject string, logger zerolog.Logger) (*NATSSink, error) {
	conn, err := nats.Connect(natsURL, nats.Name("fighter-metrics"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", natsURL, err)
	}
	s := NewNATSSinkWithPublisher(conn, subject, logger)
	s.conn = conn
	return s, nil
}

// NewNATSSinkWithPublisher publishes through an existing connection.
func NewNATSSinkWithPublisher(pub Publisher, subject string, logger zerolog.Logger) *NATSSink {
	return &NATSSink{
		pub:     pub,
		subject: subject,
		logger:  logger.With().Str("component", "metrics_nats").Logger(),
	}
}

// Close drains the connection when the sink owns it.
func (n *NATSSink) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

// Publish implements Sink
func (n *NATSSink) Publish(_ context.Context, r Record) error {
	data, err := EncodeRecord(r)
	if err != nil {
		return err
	}

	if err := n.pub.Publish(n.subject, data); err != nil {
		n.logger.Error().Err(err).Str("subject", n.subject).Msg("Failed to publish metrics")
		return err
	}

	if r.AgentID != "" {
		routingKey := n.subject + "." + r.AgentID
		if err := n.pub.Publish(routingKey, data); err != nil {
			n.logger.Error().Err(err).Str("routing_key", routingKey).Msg("Failed to publish to routing key")
			return err
		}
	}

	n.logger.Debug().
		Str("agent_id", r.AgentID).
		Uint64("tick", r.Tick).
		Str("subject", n.subject).
		Msg("Published metrics record")
	return nil
}

// EncodeRecord renders r as a protojson Struct.
func EncodeRecord(r Record) ([]byte, error) {
	values := make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	s, err := structpb.NewStruct(map[string]any{
		"agent_id":  r.AgentID,
		"tick":      float64(r.Tick),
		"timestamp": r.Timestamp.Format(time.RFC3339Nano),
		"values":    values,
	})
	if err != nil {
		return nil, fmt.Errorf("build metrics struct: %w", err)
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode metrics struct: %w", err)
	}
	return data, nil
}
