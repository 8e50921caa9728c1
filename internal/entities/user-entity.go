package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// User потребляется ядром, но не принадлежит ему: создание/управление
// пользователями — внешний контур.
type User struct {
	ID           uint64      `json:"id"`
	Fio          string      `json:"fio"`
	Login        string      `json:"login"`
	PasswordHash string      `json:"-"`
	Role         string      `json:"role"`
	BranchID     null.Uint64 `json:"branch_id,omitempty"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
