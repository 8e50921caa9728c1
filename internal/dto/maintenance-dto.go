package dto

// CreateMaintenanceRequestDTO — открытие ремонтной заявки на актив.
type CreateMaintenanceRequestDTO struct {
	Serial    string `json:"serial" validate:"required"`
	AssetType string `json:"asset_type" validate:"required,oneof=MACHINE SIM"`
	BranchID  uint64 `json:"branch_id" validate:"required"`
	Problem   string `json:"problem"`
}

// TransitionDTO — запрос перехода жизненного цикла. Payload (исход, стоимость,
// запчасти) обязателен только для решающих/терминальных состояний.
type TransitionDTO struct {
	TargetStatus string   `json:"target_status" validate:"required"`
	Resolution   string   `json:"resolution" validate:"omitempty,oneof=REPAIRED SCRAPPED REJECTED_REPAIR"`
	RepairCost   *float64 `json:"repair_cost"`
	PartsUsed    []string `json:"parts_used"`
	Notes        string   `json:"notes"`
}

type MaintenanceRequestDTO struct {
	ID           uint64   `json:"id"`
	Serial       string   `json:"serial"`
	AssetType    string   `json:"asset_type"`
	BranchID     uint64   `json:"branch_id"`
	Status       string   `json:"status"`
	Problem      string   `json:"problem,omitempty"`
	TechnicianID *uint64  `json:"technician_id,omitempty"`
	Resolution   string   `json:"resolution,omitempty"`
	RepairCost   *float64 `json:"repair_cost,omitempty"`
	PartsUsed    string   `json:"parts_used,omitempty"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// KanbanStatsDTO — счётчики активов по состояниям ремонтного цикла.
type KanbanStatsDTO struct {
	BranchID uint64            `json:"branch_id,omitempty"`
	Counts   map[string]uint64 `json:"counts"`
}
