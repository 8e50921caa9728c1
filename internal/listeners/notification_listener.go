package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"asset-transfer-system/internal/events"
	"asset-transfer-system/pkg/eventbus"
)

// NotificationSink — порт доставки уведомлений. Конкретный канал
// (websocket, telegram, почта) — внешний контур.
type NotificationSink interface {
	Send(ctx context.Context, payload events.NotificationPayload) error
}

// LogSink пишет уведомления в журнал. Используется как реализация
// по умолчанию и в тестах.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, payload events.NotificationPayload) error {
	s.logger.Info("уведомление",
		zap.String("type", payload.Type),
		zap.String("title", payload.Title),
		zap.String("message", payload.Message),
		zap.Any("branch_id", payload.BranchID),
		zap.Any("user_id", payload.UserID),
	)
	return nil
}

// NotificationListener переводит доменные события в уведомления адресатам.
type NotificationListener struct {
	sink   NotificationSink
	logger *zap.Logger
}

func NewNotificationListener(sink NotificationSink, logger *zap.Logger) *NotificationListener {
	return &NotificationListener{sink: sink, logger: logger}
}

// Register подписывает слушателя на события ядра.
func (l *NotificationListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.TransferCreatedEvent{}.Name(), l.handleTransferCreated)
	bus.Subscribe(events.TransferReceivedEvent{}.Name(), l.handleTransferReceived)
	bus.Subscribe(events.TransferCancelledEvent{}.Name(), l.handleTransferCancelled)
	bus.Subscribe(events.LifecycleTransitionEvent{}.Name(), l.handleLifecycleTransition)
}

// Входящая переброска адресуется филиалу назначения.
func (l *NotificationListener) handleTransferCreated(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.TransferCreatedEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события: %T", event)
	}

	branchID := e.ToBranchID
	return l.sink.Send(ctx, events.NotificationPayload{
		BranchID: &branchID,
		Type:     "TRANSFER_INCOMING",
		Title:    "Входящая переброска",
		Message:  fmt.Sprintf("Ордер %s: %d позиций в пути", e.OrderNo, len(e.Serials)),
		Data: map[string]interface{}{
			"order_id":       e.OrderID,
			"order_no":       e.OrderNo,
			"type":           e.Type,
			"from_branch_id": e.FromBranchID,
		},
		Link: fmt.Sprintf("/receive-orders?orderId=%d", e.OrderID),
	})
}

// Подтверждение приёма адресуется филиалу-отправителю.
func (l *NotificationListener) handleTransferReceived(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.TransferReceivedEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события: %T", event)
	}

	branchID := e.FromBranchID
	return l.sink.Send(ctx, events.NotificationPayload{
		BranchID: &branchID,
		Type:     "TRANSFER_RECEIVED",
		Title:    "Переброска принята",
		Message:  fmt.Sprintf("Ордер %s: принято %d позиций, статус %s", e.OrderNo, len(e.Serials), e.Status),
		Data: map[string]interface{}{
			"order_id":     e.OrderID,
			"order_no":     e.OrderNo,
			"status":       e.Status,
			"to_branch_id": e.ToBranchID,
		},
		Link: fmt.Sprintf("/transfer-orders/%d", e.OrderID),
	})
}

func (l *NotificationListener) handleTransferCancelled(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.TransferCancelledEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события: %T", event)
	}

	branchID := e.ToBranchID
	return l.sink.Send(ctx, events.NotificationPayload{
		BranchID: &branchID,
		Type:     "TRANSFER_CANCELLED",
		Title:    "Переброска отменена",
		Message:  fmt.Sprintf("Ордер %s отменён отправителем", e.OrderNo),
		Data: map[string]interface{}{
			"order_id": e.OrderID,
			"order_no": e.OrderNo,
		},
		Link: fmt.Sprintf("/transfer-orders/%d", e.OrderID),
	})
}

func (l *NotificationListener) handleLifecycleTransition(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.LifecycleTransitionEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события: %T", event)
	}

	message := fmt.Sprintf("Актив %s: %s -> %s", e.Serial, e.FromStatus, e.ToStatus)
	if e.Resolution != "" {
		message += ", исход " + e.Resolution
	}

	branchID := e.BranchID
	return l.sink.Send(ctx, events.NotificationPayload{
		BranchID: &branchID,
		Type:     "LIFECYCLE_TRANSITION",
		Title:    "Перемещение по ремонтному циклу",
		Message:  message,
		Data: map[string]interface{}{
			"serial":     e.Serial,
			"asset_type": e.AssetType,
			"to_status":  e.ToStatus,
		},
		Link: fmt.Sprintf("/kanban?serial=%s", e.Serial),
	})
}
