package messaging

import (
	"context"
	"fmt"
)

// Publisher 消息生产者，由 mq.KafkaProducer 实现
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// KafkaDispatcher 按事件类型路由到 Kafka topic
type KafkaDispatcher struct {
	publisher Publisher
	topics    map[string]string
}

// NewKafkaDispatcher topics 为事件类型到 topic 的映射
func NewKafkaDispatcher(publisher Publisher, topics map[string]string) *KafkaDispatcher {
	return &KafkaDispatcher{publisher: publisher, topics: topics}
}

// Dispatch 发送消息
func (d *KafkaDispatcher) Dispatch(ctx context.Context, msg *OutboxMessage) error {
	topic, ok := d.topics[msg.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, msg.EventType)
	}
	return d.publisher.Publish(ctx, topic, msg.Key, []byte(msg.Payload))
}

// EventHandler 进程内事件处理函数
type EventHandler func(ctx context.Context, payload []byte) error

// LocalDispatcher 未启用 Kafka 时在进程内直接调用处理器
type LocalDispatcher struct {
	handlers map[string]EventHandler
}

// NewLocalDispatcher 创建进程内投递器
func NewLocalDispatcher() *LocalDispatcher {
	return &LocalDispatcher{handlers: map[string]EventHandler{}}
}

// Handle 注册事件处理器
func (d *LocalDispatcher) Handle(eventType string, h EventHandler) {
	d.handlers[eventType] = h
}

// Dispatch 调用对应处理器
func (d *LocalDispatcher) Dispatch(ctx context.Context, msg *OutboxMessage) error {
	h, ok := d.handlers[msg.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, msg.EventType)
	}
	return h(ctx, []byte(msg.Payload))
}
