package seeders

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type userSeed struct {
	Fio    string
	Login  string
	Role   string
	Branch string // имя филиала, пустое для глобальных ролей
}

var userSeeds = []userSeed{
	{Fio: "Администратор системы", Login: "admin", Role: "ADMIN"},
	{Fio: "Генеральный менеджер", Login: "gm", Role: "GENERAL_MANAGER"},
	{Fio: "Менеджер филиала Центр", Login: "manager-center", Role: "BRANCH_MANAGER", Branch: "Филиал Центр"},
	{Fio: "Сотрудник точки Центр-1", Login: "employee-tc1", Role: "BRANCH_EMPLOYEE", Branch: "Точка Центр-1"},
	{Fio: "Менеджер сервисного центра", Login: "sc-manager", Role: "CENTER_MANAGER", Branch: "Сервисный центр"},
	{Fio: "Техник сервисного центра", Login: "sc-tech", Role: "CENTER_TECHNICIAN", Branch: "Сервисный центр"},
}

const defaultPassword = "ChangeMe123!"

func seedUsers(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - Наполнение пользователей...")

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("не удалось захешировать пароль: %w", err)
	}

	for _, seed := range userSeeds {
		var existing uint64
		if err := db.QueryRow(ctx, "SELECT id FROM users WHERE login = $1", seed.Login).Scan(&existing); err == nil {
			continue
		}

		var branchID *uint64
		if seed.Branch != "" {
			var id uint64
			if err := db.QueryRow(ctx, "SELECT id FROM branches WHERE name = $1", seed.Branch).Scan(&id); err != nil {
				return fmt.Errorf("не найден филиал %q для пользователя %q: %w", seed.Branch, seed.Login, err)
			}
			branchID = &id
		}

		_, err := db.Exec(ctx, `
			INSERT INTO users (fio, login, password_hash, role, branch_id)
			VALUES ($1, $2, $3, $4, $5)`,
			seed.Fio, seed.Login, string(hash), seed.Role, branchID,
		)
		if err != nil {
			return fmt.Errorf("не удалось вставить пользователя %q: %w", seed.Login, err)
		}
	}
	return nil
}
