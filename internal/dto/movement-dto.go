package dto

type MovementLogDTO struct {
	ID           uint64  `json:"id"`
	Serial       string  `json:"serial"`
	AssetType    string  `json:"asset_type"`
	Action       string  `json:"action"`
	FromBranchID *uint64 `json:"from_branch_id,omitempty"`
	ToBranchID   *uint64 `json:"to_branch_id,omitempty"`
	PerformedBy  uint64  `json:"performed_by"`
	Detail       string  `json:"detail,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type SystemLogDTO struct {
	ID          uint64  `json:"id"`
	EntityType  string  `json:"entity_type"`
	EntityID    string  `json:"entity_id"`
	Action      string  `json:"action"`
	PerformedBy uint64  `json:"performed_by"`
	BranchID    *uint64 `json:"branch_id,omitempty"`
	Detail      string  `json:"detail,omitempty"`
	CreatedAt   string  `json:"created_at"`
}
