package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// MovementLog — мелкозернистая запись журнала движений по серийнику.
// Append-only: после создания не обновляется и не удаляется;
// пишется в той же транзакции, что и породившая её мутация.
type MovementLog struct {
	ID           uint64      `json:"id"`
	Serial       string      `json:"serial"`
	AssetType    string      `json:"asset_type"`
	Action       string      `json:"action"`
	FromBranchID null.Uint64 `json:"from_branch_id,omitempty"`
	ToBranchID   null.Uint64 `json:"to_branch_id,omitempty"`
	PerformedBy  uint64      `json:"performed_by"`
	Detail       null.String `json:"detail,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// SystemLog — крупнозернистая запись системного аудита по сущностям.
// Тот же контракт: append-only, одна транзакция с мутацией.
type SystemLog struct {
	ID          uint64      `json:"id"`
	EntityType  string      `json:"entity_type"`
	EntityID    string      `json:"entity_id"`
	Action      string      `json:"action"`
	PerformedBy uint64      `json:"performed_by"`
	BranchID    null.Uint64 `json:"branch_id,omitempty"`
	Detail      null.String `json:"detail,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
