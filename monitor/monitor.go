// Package monitor publishes the outcome of every transfer to the monitoring layer.
package monitor

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/openr66/r66/encoding/r66/localpacket"
)

// Event reports one finished or failed transfer.
type Event struct {
	SpecialID int64
	Host      string
	Rule      string
	Mode      localpacket.TransferMode
	Filename  string
	Code      localpacket.ErrorCode
	Bytes     int64
	Start     time.Time
	Duration  time.Duration
	Err       string
}

type wireEvent struct {
	SpecialID  int64     `json:"special_id"`
	Host       string    `json:"host"`
	Rule       string    `json:"rule"`
	Mode       string    `json:"mode"`
	Filename   string    `json:"filename"`
	Code       string    `json:"code"`
	CodeName   string    `json:"code_name"`
	Bytes      int64     `json:"bytes"`
	Start      time.Time `json:"start"`
	DurationMS int64     `json:"duration_ms"`
	Err        string    `json:"error,omitempty"`
}

// MarshalJSON encodes the event with its code as the one-letter wire form.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		SpecialID:  e.SpecialID,
		Host:       e.Host,
		Rule:       e.Rule,
		Mode:       e.Mode.String(),
		Filename:   e.Filename,
		Code:       e.Code.Letter(),
		CodeName:   e.Code.String(),
		Bytes:      e.Bytes,
		Start:      e.Start,
		DurationMS: e.Duration.Milliseconds(),
		Err:        e.Err,
	})
}

// Publisher defines the behavior of a monitoring sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi publishes to every publisher in turn, returning the first error.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, ev Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LogPublisher writes events to a logger.
type LogPublisher struct {
	log logrus.FieldLogger
}

// NewLogPublisher returns a LogPublisher writing to log.
func NewLogPublisher(log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{
		log: log,
	}
}

// Publish implements Publisher. Failed transfers are logged as warnings.
func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	entry := p.log.WithFields(logrus.Fields{
		"special_id": ev.SpecialID,
		"host":       ev.Host,
		"rule":       ev.Rule,
		"mode":       ev.Mode.String(),
		"filename":   ev.Filename,
		"code":       ev.Code.String(),
		"bytes":      ev.Bytes,
		"duration":   ev.Duration,
	})

	if ev.Code.IsError() {
		entry.WithField("error", ev.Err).Warn("transfer failed")
		return nil
	}

	entry.Info("transfer done")
	return nil
}

// Conn is the part of a NATS connection the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "r66.transfers"

// NATSPublisher sends events as JSON messages on a NATS subject.
type NATSPublisher struct {
	conn    Conn
	subject string
	closer  func() error
}

// NewNATSPublisher returns a NATSPublisher on an existing connection.
func NewNATSPublisher(conn Conn, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}

	return &NATSPublisher{
		conn:    conn,
		subject: subject,
	}
}

// DialNATS connects to the NATS server at url and returns a publisher owning the connection.
func DialNATS(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("r66"))
	if err != nil {
		return nil, errors.Wrapf(err, "connect to nats %s", url)
	}

	p := NewNATSPublisher(nc, subject)
	p.closer = nc.Drain

	return p, nil
}

// Publish implements Publisher.
// Events go to "<subject>.ok" or "<subject>.error", so consumers can subscribe to failures only.
func (p *NATSPublisher) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	subject := p.subject + ".ok"
	if ev.Code.IsError() {
		subject = p.subject + ".error"
	}

	return errors.Wrap(p.conn.Publish(subject, data), "publish event")
}

// Close releases the connection opened by DialNATS.
func (p *NATSPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return errors.Wrap(p.closer(), "drain nats")
}
