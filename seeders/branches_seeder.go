package seeders

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

type branchSeed struct {
	Name      string
	ShortName string
	Type      string
	Parent    string // имя родителя, пустое для корня
}

var branchSeeds = []branchSeed{
	{Name: "Головной офис", ShortName: "ГО", Type: "HEADQUARTER"},
	{Name: "Филиал Центр", ShortName: "ФЦ", Type: "OPERATING", Parent: "Головной офис"},
	{Name: "Филиал Север", ShortName: "ФС", Type: "OPERATING", Parent: "Головной офис"},
	{Name: "Точка Центр-1", ShortName: "ТЦ1", Type: "OPERATING", Parent: "Филиал Центр"},
	{Name: "Точка Центр-2", ShortName: "ТЦ2", Type: "OPERATING", Parent: "Филиал Центр"},
	{Name: "Сервисный центр", ShortName: "СЦ", Type: "MAINTENANCE_CENTER", Parent: "Головной офис"},
}

func seedBranches(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - Наполнение сети филиалов...")

	ids := make(map[string]uint64, len(branchSeeds))
	for _, seed := range branchSeeds {
		var existing uint64
		err := db.QueryRow(ctx, "SELECT id FROM branches WHERE name = $1", seed.Name).Scan(&existing)
		if err == nil {
			ids[seed.Name] = existing
			continue
		}

		var parentID *uint64
		if seed.Parent != "" {
			id, ok := ids[seed.Parent]
			if !ok {
				return fmt.Errorf("родитель %q должен идти раньше %q", seed.Parent, seed.Name)
			}
			parentID = &id
		}

		var id uint64
		err = db.QueryRow(ctx, `
			INSERT INTO branches (name, short_name, type, parent_id)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			seed.Name, seed.ShortName, seed.Type, parentID,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("не удалось вставить филиал %q: %w", seed.Name, err)
		}
		ids[seed.Name] = id
	}
	return nil
}
