package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// Machine — POS-терминал. Статус ограничен таблицей переходов:
// IN_TRANSIT выставляет только оркестратор перебросок.
type Machine struct {
	ID           uint64      `json:"id"`
	Serial       string      `json:"serial"`
	Model        null.String `json:"model,omitempty"`
	BranchID     uint64      `json:"branch_id"`
	Status       string      `json:"status"`
	CustomerID   null.Uint64 `json:"customer_id,omitempty"`
	TechnicianID null.Uint64 `json:"technician_id,omitempty"`
	Notes        null.String `json:"notes,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Branch       *Branch     `json:"branch,omitempty"`
}

// SimCard — SIM-карта. Параллельное семейство с той же формой, что и Machine.
type SimCard struct {
	ID           uint64      `json:"id"`
	Serial       string      `json:"serial"`
	Operator     null.String `json:"operator,omitempty"`
	BranchID     uint64      `json:"branch_id"`
	Status       string      `json:"status"`
	CustomerID   null.Uint64 `json:"customer_id,omitempty"`
	TechnicianID null.Uint64 `json:"technician_id,omitempty"`
	Notes        null.String `json:"notes,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Branch       *Branch     `json:"branch,omitempty"`
}

// Asset — общий срез для движка валидации: ему безразлично семейство.
type Asset struct {
	Serial   string
	Type     string
	BranchID uint64
	Status   string
}

func (m *Machine) AsAsset() Asset {
	return Asset{Serial: m.Serial, Type: "MACHINE", BranchID: m.BranchID, Status: m.Status}
}

func (s *SimCard) AsAsset() Asset {
	return Asset{Serial: s.Serial, Type: "SIM", BranchID: s.BranchID, Status: s.Status}
}
