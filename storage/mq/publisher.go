package mq

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"FluentPro/pkg/logger"
)

var (
	publisherCh *amqp.Channel
	pubMutex    sync.RWMutex

	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewMessageID 生成按时间有序的消息 ID
func NewMessageID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func getPublisherChannel() (*amqp.Channel, error) {
	pubMutex.RLock()
	if publisherCh != nil && !publisherCh.IsClosed() {
		ch := publisherCh
		pubMutex.RUnlock()
		return ch, nil
	}
	pubMutex.RUnlock()

	pubMutex.Lock()
	defer pubMutex.Unlock()

	if publisherCh != nil && !publisherCh.IsClosed() {
		return publisherCh, nil
	}

	c := Connection()
	if c == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := c.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}
	publisherCh = ch

	closeChan := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		<-closeChan

		pubMutex.Lock()
		if publisherCh == ch {
			publisherCh = nil
		}
		pubMutex.Unlock()

		logger.Logger.Warn("Publisher channel closed, will recreate on next publish",
			zap.String("component", "rabbitmq"),
		)
	}()

	logger.Logger.Info("Publisher channel created",
		zap.String("component", "rabbitmq"),
	)

	return publisherCh, nil
}

func resetPublisherChannel() {
	pubMutex.Lock()
	defer pubMutex.Unlock()
	if publisherCh != nil && !publisherCh.IsClosed() {
		_ = publisherCh.Close()
	}
	publisherCh = nil
}

// PublishMessage 发送普通消息，返回消息 ID
func PublishMessage(ctx context.Context, exchange, routingKey string, body interface{}) (string, error) {
	return publish(ctx, exchange, routingKey, 0, body)
}

// PublishDelayedMessage 发送延迟消息，exchange 需为 x-delayed-message 类型
func PublishDelayedMessage(ctx context.Context, exchange, routingKey string, delay time.Duration, body interface{}) (string, error) {
	return publish(ctx, exchange, routingKey, delay, body)
}

func publish(ctx context.Context, exchange, routingKey string, delay time.Duration, body interface{}) (string, error) {
	ch, err := getPublisherChannel()
	if err != nil {
		return "", err
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         bodyBytes,
		MessageId:    NewMessageID(),
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      amqp.Table{},
	}
	if delay > 0 {
		msg.Headers["x-delay"] = delay.Milliseconds()
	}

	send := func(ctx context.Context) error {
		return ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
	}
	if tracer != nil {
		err = tracer.Publish(ctx, exchange, routingKey, &msg, send)
	} else {
		err = send(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("failed to publish message to %s/%s: %w", exchange, routingKey, err)
	}

	return msg.MessageId, nil
}
