package eventpublisher

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
)

// ErrQueueFull is returned when an event cannot be buffered.
var ErrQueueFull = errors.New("event queue is full")

// Sink delivers events to an external system.
type Sink interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}

// Config for Dispatcher.
type Config struct {
	Sink           Sink
	Logger         zerolog.Logger
	Buffer         int           // Number of events held while the sink is busy
	PublishTimeout time.Duration // Upper bound for a single delivery
	OnDrop         func()        // Called for every event rejected by a full queue
}

// Dispatcher implements usecase.EventPublisher. Publish only enqueues, so a
// slow or unavailable sink never delays a ledger operation.
type Dispatcher struct {
	sink    Sink
	logger  zerolog.Logger
	queue   chan domain.LedgerEvent
	timeout time.Duration
	onDrop  func()
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if cfg.Sink == nil {
		cfg.Sink = NewLogPublisher(cfg.Logger)
	}

	return &Dispatcher{
		sink:    cfg.Sink,
		logger:  cfg.Logger,
		queue:   make(chan domain.LedgerEvent, cfg.Buffer),
		timeout: cfg.PublishTimeout,
		onDrop:  cfg.OnDrop,
	}
}

// Publish enqueues event for delivery.
func (d *Dispatcher) Publish(_ context.Context, event domain.LedgerEvent) error {
	select {
	case d.queue <- event:
		return nil
	default:
		if d.onDrop != nil {
			d.onDrop()
		}
		return ErrQueueFull
	}
}

// Start begins the delivery worker.
// It runs until the context is cancelled and then flushes buffered events.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info().Int("buffer", cap(d.queue)).Msg("event dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.flush()
			d.logger.Info().Msg("event dispatcher shutting down")
			return ctx.Err()
		case event := <-d.queue:
			d.deliver(ctx, event)
		}
	}
}

func (d *Dispatcher) flush() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(context.Background(), event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event domain.LedgerEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.sink.Publish(ctx, event); err != nil {
		d.logger.Error().Err(err).
			Str("event_type", event.Type).
			Str("account_id", event.AccountID).
			Msg("failed to publish event")
		return
	}

	d.logger.Debug().
		Str("event_type", event.Type).
		Str("account_id", event.AccountID).
		Msg("event published")
}

// LogPublisher is a sink that logs events.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event domain.LedgerEvent) error {
	p.logger.Info().
		Str("event_type", event.Type).
		Str("account_id", event.AccountID).
		Str("movement_id", event.MovementID).
		Str("kind", event.Kind).
		Str("amount", event.Amount).
		Str("balance", event.Balance).
		Str("error", event.Error).
		Time("occurred_at", event.OccurredAt).
		Msg("ledger event")
	return nil
}
