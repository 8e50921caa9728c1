package entities

import (
	"time"

	"github.com/aarondl/null/v8"

	"asset-transfer-system/pkg/constants"
)

// TransferOrder — единица межфилиальной переброски активов.
// Статус — чистая функция от флагов received его позиций:
// все получены -> RECEIVED, часть -> PARTIAL, отмена — только явная.
type TransferOrder struct {
	ID           uint64      `json:"id"`
	OrderNo      string      `json:"order_no"`
	FromBranchID uint64      `json:"from_branch_id"`
	ToBranchID   uint64      `json:"to_branch_id"`
	Type         string      `json:"type"`
	Status       string      `json:"status"`
	CreatedBy    uint64      `json:"created_by"`
	Waybill      null.String `json:"waybill,omitempty"`
	Notes        null.String `json:"notes,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`

	Items      []TransferOrderItem `json:"items,omitempty"`
	FromBranch *Branch             `json:"from_branch,omitempty"`
	ToBranch   *Branch             `json:"to_branch,omitempty"`
}

type TransferOrderItem struct {
	ID         uint64    `json:"id"`
	OrderID    uint64    `json:"order_id"`
	Serial     string    `json:"serial"`
	ItemType   string    `json:"item_type"`
	Received   bool      `json:"received"`
	ReceivedAt null.Time `json:"received_at,omitempty"`
}

// ComputeStatus выводит статус ордера из позиций. CANCELLED сюда не входит:
// отмена — явное действие, не функция позиций.
func (o *TransferOrder) ComputeStatus() string {
	if len(o.Items) == 0 {
		return constants.TransferStatusPending
	}
	received := 0
	for _, it := range o.Items {
		if it.Received {
			received++
		}
	}
	switch received {
	case 0:
		return constants.TransferStatusPending
	case len(o.Items):
		return constants.TransferStatusReceived
	default:
		return constants.TransferStatusPartial
	}
}
