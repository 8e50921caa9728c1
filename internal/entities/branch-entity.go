package entities

import "time"

// Типы филиалов. Иерархия — лес: parent_id может быть NULL, циклов нет.
const (
	BranchTypeOperating   = "OPERATING"
	BranchTypeCenter      = "MAINTENANCE_CENTER"
	BranchTypeHeadquarter = "HEADQUARTER"
)

type Branch struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
	Type      string    `json:"type"`
	ParentID  *uint64   `json:"parent_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Parent    *Branch   `json:"parent,omitempty"`
}

func (b *Branch) IsMaintenanceCenter() bool {
	return b.Type == BranchTypeCenter
}
