// Package consumer streams presence status changes from Kafka into the event log.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"presence-ledger/internal/eventing"
	"presence-ledger/internal/observability/metrics"
	presence "presence-ledger/internal/presence/domain"
)

const (
	// EnvelopeStatusChanged marks a status transition record.
	EnvelopeStatusChanged = "status_changed"
	// EnvelopeActivity marks a subject activity record without a transition.
	EnvelopeActivity = "activity"
)

var errEmptyEnvelope = errors.New("consumer: envelope missing scope or subject")

// Reader describes the kafka.Reader functions the processor interacts with.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Envelope is the wire format carried on the status topic.
type Envelope struct {
	Type        string    `json:"type"`
	ScopeID     string    `json:"scope_id"`
	SubjectID   string    `json:"subject_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Status      string    `json:"status,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher fans processed records out to in-process subscribers.
type Publisher interface {
	Publish(ctx context.Context, logged eventing.PresenceLogged) error
}

// Option configures processor behaviour.
type Option func(*Processor)

// WithLogger sets a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithNow overrides the clock used for activity classification.
func WithNow(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// Processor coordinates the consumer loop: fetch, decode, append, commit.
type Processor struct {
	reader  Reader
	sink    presence.EventSink
	tracker *ActivityTracker
	bus     Publisher
	logger  *log.Logger
	now     func() time.Time
}

// NewProcessor constructs a processor. The tracker and bus are optional.
func NewProcessor(reader Reader, sink presence.EventSink, tracker *ActivityTracker, bus Publisher, opts ...Option) (*Processor, error) {
	if reader == nil {
		return nil, errors.New("consumer: reader is required")
	}
	if sink == nil {
		return nil, errors.New("consumer: sink is required")
	}
	p := &Processor{
		reader:  reader,
		sink:    sink,
		tracker: tracker,
		bus:     bus,
		logger:  log.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run consumes messages until ctx cancellation. Malformed messages are
// committed so the group is never wedged on a poison record.
func (p *Processor) Run(ctx context.Context) error {
	defer p.reader.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Printf("fetch error: %v", err)
			continue
		}

		if err := p.handle(ctx, msg); err != nil {
			p.logger.Printf("handle error (topic=%s offset=%d): %v", msg.Topic, msg.Offset, err)
		}

		if err := p.reader.CommitMessages(ctx, msg); err != nil {
			p.logger.Printf("commit error: %v", err)
		}
	}
}

func (p *Processor) handle(ctx context.Context, msg kafka.Message) error {
	var envelope Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		metrics.IncDecodeError(msg.Topic)
		return fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.ScopeID == "" || envelope.SubjectID == "" {
		metrics.IncDecodeError(msg.Topic)
		return errEmptyEnvelope
	}
	if envelope.At.IsZero() {
		envelope.At = msg.Time
	}

	switch envelope.Type {
	case EnvelopeActivity:
		if p.tracker != nil {
			p.tracker.Touch(envelope.ScopeID, envelope.SubjectID, envelope.At)
		}
		return nil
	case EnvelopeStatusChanged, "":
	default:
		return fmt.Errorf("consumer: unknown envelope type %q", envelope.Type)
	}

	status, err := presence.ParseStatus(envelope.Status)
	if err != nil {
		metrics.IncDecodeError(msg.Topic)
		return fmt.Errorf("envelope status: %w", err)
	}

	manual := false
	if status == presence.StatusIdle && p.tracker != nil {
		manual = p.tracker.ActiveWithin(envelope.ScopeID, envelope.SubjectID, envelope.At)
	}

	event := presence.StatusEvent{
		ScopeID:     envelope.ScopeID,
		SubjectID:   envelope.SubjectID,
		DisplayName: envelope.DisplayName,
		Status:      status,
		Manual:      manual,
		At:          envelope.At,
	}

	started := p.now()
	if err := p.sink.Append(ctx, event); err != nil {
		metrics.ObserveIngest(eventing.SourceConnector, metrics.IngestResultError, p.now().Sub(started))
		return fmt.Errorf("append event: %w", err)
	}
	metrics.ObserveIngest(eventing.SourceConnector, metrics.IngestResultSuccess, p.now().Sub(started))

	if p.bus != nil {
		logged := eventing.PresenceLogged{
			ScopeID:   event.ScopeID,
			SubjectID: event.SubjectID,
			Status:    string(event.Status),
			Manual:    event.Manual,
			At:        event.At,
			Source:    eventing.SourceConnector,
		}
		if err := p.bus.Publish(ctx, logged); err != nil {
			p.logger.Printf("publish error: %v", err)
		}
	}
	return nil
}
