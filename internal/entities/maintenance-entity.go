package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// MaintenanceRequest — ремонтная заявка на актив. Закрывается машиной
// состояний жизненного цикла с исходом (REPAIRED/SCRAPPED/REJECTED_REPAIR).
type MaintenanceRequest struct {
	ID           uint64       `json:"id"`
	Serial       string       `json:"serial"`
	AssetType    string       `json:"asset_type"`
	BranchID     uint64       `json:"branch_id"`
	Status       string       `json:"status"`
	Problem      null.String  `json:"problem,omitempty"`
	TechnicianID null.Uint64  `json:"technician_id,omitempty"`
	Resolution   null.String  `json:"resolution,omitempty"`
	RepairCost   null.Float64 `json:"repair_cost,omitempty"`
	PartsUsed    null.String  `json:"parts_used,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
