package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// DefaultExchange is the fanout exchange linkfolio instances share.
const DefaultExchange = "linkfolio.events"

// AMQPBus publishes events to a RabbitMQ fanout exchange and relays events published by other
// instances into a LocalBus. Subscribers therefore see events from every instance exactly once:
// local ones directly, remote ones through the relay.
type AMQPBus struct {
	*LocalBus

	conn     *amqp.Connection
	pubCh    *amqp.Channel
	pubMu    sync.Mutex
	exchange string
	origin   string
	logger   zerolog.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

var _ Bus = (*AMQPBus)(nil)

// DialAMQP connects to the broker at url, declares the exchange and starts relaying.
func DialAMQP(url, exchange string, logger zerolog.Logger) (*AMQPBus, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	bus, err := newAMQPBus(conn, exchange, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return bus, nil
}

func newAMQPBus(conn *amqp.Connection, exchange string, logger zerolog.Logger) (*AMQPBus, error) {
	pubCh, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}
	if err := pubCh.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // args
	); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	subCh, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open consume channel: %w", err)
	}
	q, err := subCh.QueueDeclare(
		"",    // name, server generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := subCh.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}
	deliveries, err := subCh.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume queue: %w", err)
	}

	bus := &AMQPBus{
		LocalBus: NewLocalBus(logger),
		conn:     conn,
		pubCh:    pubCh,
		exchange: exchange,
		origin:   uuid.NewString(),
		logger:   logger,
		done:     make(chan struct{}),
	}
	bus.wg.Add(1)
	go bus.relay(deliveries)
	return bus, nil
}

// Publish delivers ev locally and to the exchange.
func (b *AMQPBus) Publish(ctx context.Context, ev Event) error {
	ev.Origin = b.origin
	if err := b.LocalBus.Publish(ctx, ev); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	return b.pubCh.PublishWithContext(ctx,
		b.exchange, // exchange
		"",         // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Type:        ev.Type,
			AppId:       b.origin,
			Body:        body,
		})
}

// relay forwards remote events into the local bus until the delivery channel closes.
func (b *AMQPBus) relay(deliveries <-chan amqp.Delivery) {
	defer b.wg.Done()

	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				b.logger.Debug().Msg("amqp delivery channel closed")
				return
			}
			if d.AppId == b.origin {
				continue
			}
			var ev Event
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				b.logger.Warn().Err(err).Msg("discarding malformed event")
				continue
			}
			if err := b.LocalBus.Publish(context.Background(), ev); err != nil {
				b.logger.Warn().Err(err).Str("type", ev.Type).Msg("relaying event")
			}
		case <-b.done:
			return
		}
	}
}

// Close stops the relay, closes the connection and the local subscribers.
func (b *AMQPBus) Close() error {
	select {
	case <-b.done:
		return nil
	default:
	}
	close(b.done)

	err := b.conn.Close()
	b.wg.Wait()
	if lerr := b.LocalBus.Close(); err == nil {
		err = lerr
	}
	return err
}
