package dto

type MachineDTO struct {
	ID           uint64          `json:"id"`
	Serial       string          `json:"serial"`
	Model        string          `json:"model,omitempty"`
	BranchID     uint64          `json:"branch_id"`
	Branch       *ShortBranchDTO `json:"branch,omitempty"`
	Status       string          `json:"status"`
	CustomerID   *uint64         `json:"customer_id,omitempty"`
	TechnicianID *uint64         `json:"technician_id,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

type SimCardDTO struct {
	ID           uint64          `json:"id"`
	Serial       string          `json:"serial"`
	Operator     string          `json:"operator,omitempty"`
	BranchID     uint64          `json:"branch_id"`
	Branch       *ShortBranchDTO `json:"branch,omitempty"`
	Status       string          `json:"status"`
	CustomerID   *uint64         `json:"customer_id,omitempty"`
	TechnicianID *uint64         `json:"technician_id,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}
