package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// SubscriberConstructor builds the subscriber for one event handler.
type SubscriberConstructor func(handlerName string) (message.Subscriber, error)

// Transport bundles the publisher and subscriber side of one broker.
type Transport struct {
	Publisher     message.Publisher
	NewSubscriber SubscriberConstructor
	close         func() error
}

func (t Transport) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}

// NewRedisTransport carries events over Redis streams; every handler gets its
// own consumer group so each notifier sees every event once.
func NewRedisTransport(rdb redis.UniversalClient, logger watermill.LoggerAdapter) (Transport, error) {
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, logger)
	if err != nil {
		return Transport{}, fmt.Errorf("could not create redis publisher: %w", err)
	}
	return Transport{
		Publisher: pub,
		NewSubscriber: func(handlerName string) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        rdb,
				ConsumerGroup: "svc-bustravel." + handlerName,
			}, logger)
		},
		close: pub.Close,
	}, nil
}

// NewInMemoryTransport is used when no Redis is configured and in tests.
// Delivery is lost on restart.
func NewInMemoryTransport(logger watermill.LoggerAdapter) Transport {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	return Transport{
		Publisher: pubSub,
		NewSubscriber: func(string) (message.Subscriber, error) {
			return pubSub, nil
		},
		close: pubSub.Close,
	}
}

func (t Transport) processorConfig(logger watermill.LoggerAdapter) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return t.NewSubscriber(params.HandlerName)
		},
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return topicFor(params.EventName), nil
		},
		Marshaler: marshaler(),
		Logger:    logger,
	}
}
