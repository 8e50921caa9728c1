package dto

import "time"

// CreateTransferOrderDTO — заявка на переброску с поштучным вводом серийников.
type CreateTransferOrderDTO struct {
	FromBranchID uint64   `json:"from_branch_id" validate:"required"`
	ToBranchID   uint64   `json:"to_branch_id" validate:"required"`
	Type         string   `json:"type" validate:"required,oneof=MACHINE SIM MAINTENANCE SEND_TO_CENTER"`
	Serials      []string `json:"serials" validate:"required,min=1,dive,required"`
	Notes        string   `json:"notes"`
}

// CreateBulkTransferDTO — сервисный вариант: вместо поштучного ввода — накладная.
type CreateBulkTransferDTO struct {
	FromBranchID uint64   `json:"from_branch_id" validate:"required"`
	ToBranchID   uint64   `json:"to_branch_id" validate:"required"`
	Type         string   `json:"type" validate:"required,oneof=MAINTENANCE SEND_TO_CENTER"`
	Serials      []string `json:"serials" validate:"required,min=1,dive,required"`
	Waybill      string   `json:"waybill" validate:"required"`
	Notes        string   `json:"notes"`
}

// ReceiveTransferOrderDTO — серийники, фактически принятые на стороне назначения.
type ReceiveTransferOrderDTO struct {
	Serials []string `json:"serials" validate:"required,min=1,dive,required"`
}

type TransferOrderItemDTO struct {
	Serial     string     `json:"serial"`
	ItemType   string     `json:"item_type"`
	Received   bool       `json:"received"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
}

type TransferOrderDTO struct {
	ID           uint64                 `json:"id"`
	OrderNo      string                 `json:"order_no"`
	FromBranchID uint64                 `json:"from_branch_id"`
	ToBranchID   uint64                 `json:"to_branch_id"`
	FromBranch   *ShortBranchDTO        `json:"from_branch,omitempty"`
	ToBranch     *ShortBranchDTO        `json:"to_branch,omitempty"`
	Type         string                 `json:"type"`
	Status       string                 `json:"status"`
	CreatedBy    uint64                 `json:"created_by"`
	Waybill      string                 `json:"waybill,omitempty"`
	Notes        string                 `json:"notes,omitempty"`
	Items        []TransferOrderItemDTO `json:"items,omitempty"`
	CreatedAt    string                 `json:"created_at"`
	UpdatedAt    string                 `json:"updated_at"`
}

// TransferOrderFilterDTO — параметры выборки списков ордеров.
type TransferOrderFilterDTO struct {
	BranchID *uint64    `query:"branch_id"`
	Status   string     `query:"status"`
	Type     string     `query:"type"`
	DateFrom *time.Time `query:"date_from"`
	DateTo   *time.Time `query:"date_to"`
	Limit    int        `query:"limit"`
	Offset   int        `query:"offset"`
	Page     int        `query:"page"`
}
