package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"FluentPro/storage/mq"
)

// 交换机、队列和路由键
const (
	ExchangeEvents  = "onboarding.events"
	ExchangeDelayed = "onboarding.delayed"

	RoutingOnboardingCompleted = "onboarding.completed"
	RoutingRecommendationPoll  = "onboarding.recommendation.poll"

	QueueOnboardingCompleted = "onboarding.completed"
	QueueRecommendationPoll  = "onboarding.recommendation.poll"
)

// Topology server 和 worker 启动时都会声明一次
func Topology() mq.Topology {
	return mq.Topology{
		Exchanges: []mq.Exchange{
			{Name: ExchangeEvents, Kind: amqp.ExchangeTopic},
			{
				Name: ExchangeDelayed,
				Kind: "x-delayed-message",
				Args: amqp.Table{"x-delayed-type": amqp.ExchangeDirect},
			},
		},
		Bindings: []mq.Binding{
			{Queue: QueueOnboardingCompleted, Exchange: ExchangeEvents, RoutingKey: RoutingOnboardingCompleted},
			{Queue: QueueRecommendationPoll, Exchange: ExchangeDelayed, RoutingKey: RoutingRecommendationPoll},
		},
	}
}
