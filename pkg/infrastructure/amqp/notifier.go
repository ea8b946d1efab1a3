package amqp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

const (
	orderExchange           = "order_exchange"
	statusChangedRoutingKey = "order.status"

	connectAttempts = 5
	publishTimeout  = 5 * time.Second
)

type statusChangedMessage struct {
	OrderID    string `json:"orderId"`
	UserID     string `json:"userId"`
	OldStatus  string `json:"oldStatus"`
	NewStatus  string `json:"newStatus"`
	OccurredAt string `json:"occurredAt"`
}

// NewNotifier connects to RabbitMQ (retrying with backoff), declares the
// order topic exchange and returns a service.Notifier publishing to it.
func NewNotifier(url string) (*Notifier, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < connectAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		retryIn := time.Duration(i*i)*time.Second + time.Second
		log.WithError(err).Warnf("failed to connect to RabbitMQ, retrying in %v", retryIn)
		time.Sleep(retryIn)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to open channel")
	}
	if err := channel.ExchangeDeclare(orderExchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to declare exchange")
	}

	return &Notifier{conn: conn, channel: channel}, nil
}

var _ service.Notifier = &Notifier{}

type Notifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func (n *Notifier) Notify(event model.OrderStatusChanged) error {
	body, err := json.Marshal(statusChangedMessage{
		OrderID:    event.OrderID.String(),
		UserID:     event.UserID.String(),
		OldStatus:  string(event.OldStatus),
		NewStatus:  string(event.NewStatus),
		OccurredAt: event.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal status change")
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = n.channel.PublishWithContext(ctx, orderExchange, statusChangedRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	return errors.Wrap(err, "failed to publish status change")
}

func (n *Notifier) Close() error {
	if err := n.channel.Close(); err != nil {
		return errors.Wrap(err, "failed to close channel")
	}
	return errors.Wrap(n.conn.Close(), "failed to close connection")
}
