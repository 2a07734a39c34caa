package amqp

import (
	"context"
	"errors"

	"expensetracker/internal/collection"
	"expensetracker/internal/log"
)

const defaultQueueSize = 256

// ErrQueueFull is reported to the observer when an event is dropped.
var ErrQueueFull = errors.New("activity queue full")

// Sender is the publishing side of Client.
type Sender interface {
	Publish(ctx context.Context, body []byte) error
}

// Publisher forwards collection events to the broker from a background
// goroutine. Record never blocks; events are dropped when the queue is full.
type Publisher struct {
	sender  Sender
	logger  *log.Logger
	observe func(eventType string, err error)
	queue   chan collection.Event
}

var _ collection.EventSink = (*Publisher)(nil)

// NewPublisher creates a publisher. observe may be nil.
func NewPublisher(sender Sender, logger *log.Logger, observe func(eventType string, err error)) *Publisher {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Publisher{
		sender:  sender,
		logger:  logger.WithComponent(log.ComponentAMQP),
		observe: observe,
		queue:   make(chan collection.Event, defaultQueueSize),
	}
}

// Record queues ev for publishing.
func (p *Publisher) Record(ctx context.Context, ev collection.Event) {
	select {
	case p.queue <- ev:
	default:
		p.logger.WarnContext(ctx, "Dropped activity event",
			log.FieldOperation, log.OpPublish,
			log.FieldExpenseID, ev.Expense.ID,
			"type", string(ev.Kind))
		p.report(string(ev.Kind), ErrQueueFull)
	}
}

// Run publishes queued events until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			p.publish(ctx, ev)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev collection.Event) {
	msg := NewActivityMessage(ev)
	body, err := msg.ToJSON()
	if err == nil {
		err = p.sender.Publish(ctx, body)
	}
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to publish activity event",
			log.FieldError, err.Error(),
			log.FieldOperation, log.OpPublish,
			log.FieldExpenseID, msg.ID,
			"type", msg.Type)
	} else {
		p.logger.DebugContext(ctx, "Published activity event",
			log.FieldExpenseID, msg.ID,
			"type", msg.Type)
	}
	p.report(msg.Type, err)
}

func (p *Publisher) report(eventType string, err error) {
	if p.observe != nil {
		p.observe(eventType, err)
	}
}
