package events

// NotificationPayload — унифицированное тело уведомления.
// BranchID или UserID задают адресата: филиал целиком либо конкретный пользователь.
type NotificationPayload struct {
	BranchID *uint64                `json:"branchId,omitempty"`
	UserID   *uint64                `json:"userId,omitempty"`
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Message  string                 `json:"message"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Link     string                 `json:"link,omitempty"`
}

// TransferCreatedEvent публикуется после фиксации транзакции создания ордера.
type TransferCreatedEvent struct {
	OrderID      uint64
	OrderNo      string
	Type         string
	FromBranchID uint64
	ToBranchID   uint64
	Serials      []string
	CreatedBy    uint64
}

func (e TransferCreatedEvent) Name() string { return "transfer.created" }

// TransferReceivedEvent — принята часть или весь ордер на стороне назначения.
type TransferReceivedEvent struct {
	OrderID      uint64
	OrderNo      string
	Status       string
	FromBranchID uint64
	ToBranchID   uint64
	Serials      []string
	ReceivedBy   uint64
}

func (e TransferReceivedEvent) Name() string { return "transfer.received" }

// TransferCancelledEvent — ордер отменён до полного приёма.
type TransferCancelledEvent struct {
	OrderID      uint64
	OrderNo      string
	FromBranchID uint64
	ToBranchID   uint64
	Serials      []string
	CancelledBy  uint64
}

func (e TransferCancelledEvent) Name() string { return "transfer.cancelled" }

// LifecycleTransitionEvent — актив переведён в новый статус ремонтного цикла.
type LifecycleTransitionEvent struct {
	Serial      string
	AssetType   string
	BranchID    uint64
	FromStatus  string
	ToStatus    string
	Resolution  string
	PerformedBy uint64
}

func (e LifecycleTransitionEvent) Name() string { return "asset.lifecycle.transition" }
