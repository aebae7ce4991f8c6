package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// NopPublisher 丢弃所有事件
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(ctx context.Context, event *Event) error { return nil }

// Handler 事件处理函数
type Handler func(ctx context.Context, event *Event) error

// Bus 进程内事件总线（对外导出）
// 基于watermill gochannel，非持久化；处理器需在Run之前注册
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger *zap.Logger
}

// NewBus 创建事件总线
func NewBus(logger *zap.Logger) (*Bus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	wmLogger := watermill.NewStdLogger(false, false)

	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		wmLogger,
	)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("创建消息路由器失败: %w", err)
	}

	return &Bus{
		pubsub: pubsub,
		router: router,
		logger: logger.Named("events"),
	}, nil
}

// Publish 发布事件
func (b *Bus) Publish(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event = withID(event)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("workflow_id", event.WorkflowID)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339Nano))

	if err := b.pubsub.Publish(string(event.Type), msg); err != nil {
		return fmt.Errorf("发布事件失败: %w", err)
	}
	return nil
}

// Subscribe 注册事件处理器
// 处理器返回的错误只记录日志，消息始终确认，避免gochannel无限重投
func (b *Bus) Subscribe(name string, eventType EventType, handler Handler) {
	b.router.AddNoPublisherHandler(
		name,
		string(eventType),
		b.pubsub,
		func(msg *message.Message) error {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Warn("事件反序列化失败，已丢弃",
					zap.String("handler", name),
					zap.String("message_id", msg.UUID),
					zap.Error(err))
				return nil
			}
			if err := handler(msg.Context(), &event); err != nil {
				b.logger.Warn("事件处理失败",
					zap.String("handler", name),
					zap.String("event_type", string(event.Type)),
					zap.String("workflow_id", event.WorkflowID),
					zap.Error(err))
			}
			return nil
		},
	)
}

// Run 启动路由器，阻塞直到ctx取消或Close
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running 路由器启动完成后关闭的channel
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

// Close 关闭路由器与Pub/Sub
func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		b.logger.Warn("关闭路由器失败", zap.Error(err))
	}
	if err := b.pubsub.Close(); err != nil {
		return fmt.Errorf("关闭 Pub/Sub 失败: %w", err)
	}
	return nil
}

func withID(e *Event) *Event {
	cp := *e
	cp.ID = watermill.NewUUID()
	return &cp
}
