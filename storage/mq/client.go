package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"FluentPro/config"
	"FluentPro/pkg/logger"
	mqotel "FluentPro/pkg/mq"
)

var (
	conn   *amqp.Connection
	connMu sync.RWMutex
	tracer *mqotel.Tracer
)

// Exchange 交换机声明
type Exchange struct {
	Name string
	// Kind 为 x-delayed-message 时需要 rabbitmq_delayed_message_exchange 插件
	Kind string
	Args amqp.Table
}

// Binding 队列及其绑定
type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
}

// Topology 服务用到的交换机和队列
type Topology struct {
	Exchanges []Exchange
	Bindings  []Binding
}

func Init() error {
	c, err := amqp.Dial(config.Cfg.GetRabbitMQURL())
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	connMu.Lock()
	conn = c
	connMu.Unlock()

	if config.Cfg.OTelEnabled {
		tracer = mqotel.NewTracer(config.Cfg.ServiceName)
	}

	logger.Logger.Info("RabbitMQ connected", zap.String("component", "rabbitmq"))
	return nil
}

// Connection 返回当前连接，未初始化时为 nil
func Connection() *amqp.Connection {
	connMu.RLock()
	defer connMu.RUnlock()
	return conn
}

// Declare 声明交换机、队列和绑定，可重复调用
func Declare(t Topology) error {
	c := Connection()
	if c == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := c.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	for _, ex := range t.Exchanges {
		if err := ch.ExchangeDeclare(ex.Name, ex.Kind, true, false, false, false, ex.Args); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.Name, err)
		}
	}

	for _, b := range t.Bindings {
		if _, err := ch.QueueDeclare(b.Queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.Queue, err)
		}
		if err := ch.QueueBind(b.Queue, b.RoutingKey, b.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", b.Queue, err)
		}
	}

	return nil
}

func Close(ctx context.Context) error {
	resetPublisherChannel()

	connMu.Lock()
	c := conn
	conn = nil
	connMu.Unlock()

	if c == nil || c.IsClosed() {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
