// Package service holds the adapters between the booking engine and the
// outside world: the RabbitMQ publisher for booking events and the
// background scheduler that settles elapsed bookings.
package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/booking"
	"github.com/iliyamo/event-ticketing/internal/clock"
	"github.com/iliyamo/event-ticketing/internal/logger"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
)

const (
	publishTimeout = 5 * time.Second
	// maxInFlight caps queued background publishes; beyond it events are
	// dropped with a warning.
	maxInFlight = 64
)

// QueuePublisher implements booking.Notifier by publishing each committed
// change to a RabbitMQ topic exchange. Publishing happens in the background
// so a slow or absent broker never delays a booking; failures are logged.
type QueuePublisher struct {
	url      string
	exchange string
	clock    clock.Clock
	// timeout bounds one publish, dial and handshake included.
	timeout time.Duration
	slots   chan struct{}

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel

	wg sync.WaitGroup
}

var _ booking.Notifier = (*QueuePublisher)(nil)

func NewQueuePublisher(url, exchange string, c clock.Clock) *QueuePublisher {
	if exchange == "" {
		exchange = queue.DefaultExchange
	}
	return &QueuePublisher{
		url:      url,
		exchange: exchange,
		clock:    c,
		timeout:  publishTimeout,
		slots:    make(chan struct{}, maxInFlight),
	}
}

// BookingChanged publishes change asynchronously.
func (p *QueuePublisher) BookingChanged(ctx context.Context, change booking.Change, b model.Booking) {
	msg, ev, err := p.message(change, b)
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id":  b.ID,
		"routing_key": ev.RoutingKey(),
	})
	if err != nil {
		log.WithError(err).Error("rabbitmq: marshal event failed")
		return
	}
	select {
	case p.slots <- struct{}{}:
	default:
		log.Warn("rabbitmq: too many pending publishes, event dropped")
		return
	}
	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.slots
			p.wg.Done()
		}()
		pctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.publish(pctx, ev.RoutingKey(), msg); err != nil {
			log.WithError(err).Warn("rabbitmq: publish failed")
		}
	}()
}

func (p *QueuePublisher) message(change booking.Change, b model.Booking) (amqp.Publishing, queue.BookingEvent, error) {
	ev := queue.NewBookingEvent(string(change), b, clock.Timestamp(p.clock))
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, ev, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    p.clock.Now().UTC(),
		MessageId:    b.ID + ":" + string(change),
		Body:         body,
	}, ev, nil
}

func (p *QueuePublisher) publish(ctx context.Context, key string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	// the wait for the mutex may have used up the budget
	if err := ctx.Err(); err != nil {
		return err
	}

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
		p.reset()
		return err
	}
	return nil
}

// channel returns the cached channel, dialing when there is none or the
// previous connection died. The dial and handshake end by ctx's deadline.
// Callers hold p.mu.
func (p *QueuePublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	wait := p.timeout
	if dl, ok := ctx.Deadline(); ok {
		wait = time.Until(dl)
	}
	if wait <= 0 {
		// a zero dial timeout means none at all
		return nil, context.DeadlineExceeded
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(wait)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := queue.DeclareExchange(ch, p.exchange); err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *QueuePublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close waits for in-flight publishes and closes the connection.
func (p *QueuePublisher) Close() error {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
