package dto

type ShortBranchDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type BranchDTO struct {
	ID        uint64  `json:"id"`
	Name      string  `json:"name"`
	ShortName string  `json:"short_name"`
	Type      string  `json:"type"`
	ParentID  *uint64 `json:"parent_id,omitempty"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}
