package seeders

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

var machineSeeds = []struct {
	Serial string
	Model  string
	Branch string
}{
	{Serial: "POS-0001", Model: "PAX A920", Branch: "Точка Центр-1"},
	{Serial: "POS-0002", Model: "PAX A920", Branch: "Точка Центр-1"},
	{Serial: "POS-0003", Model: "Ingenico Move/2500", Branch: "Точка Центр-2"},
	{Serial: "POS-0004", Model: "Ingenico Move/2500", Branch: "Филиал Север"},
	{Serial: "POS-0005", Model: "PAX A930", Branch: "Филиал Север"},
}

var simSeeds = []struct {
	Serial   string
	Operator string
	Branch   string
}{
	{Serial: "SIM-0001", Operator: "Tcell", Branch: "Точка Центр-1"},
	{Serial: "SIM-0002", Operator: "Tcell", Branch: "Точка Центр-2"},
	{Serial: "SIM-0003", Operator: "Megafon", Branch: "Филиал Север"},
}

func seedAssets(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - Наполнение реестра активов...")

	branchID := func(name string) (uint64, error) {
		var id uint64
		err := db.QueryRow(ctx, "SELECT id FROM branches WHERE name = $1", name).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("не найден филиал %q: %w", name, err)
		}
		return id, nil
	}

	for _, seed := range machineSeeds {
		var existing uint64
		if err := db.QueryRow(ctx, "SELECT id FROM machines WHERE serial = $1", seed.Serial).Scan(&existing); err == nil {
			continue
		}
		id, err := branchID(seed.Branch)
		if err != nil {
			return err
		}
		_, err = db.Exec(ctx,
			"INSERT INTO machines (serial, model, branch_id) VALUES ($1, $2, $3)",
			seed.Serial, seed.Model, id,
		)
		if err != nil {
			return fmt.Errorf("не удалось вставить терминал %q: %w", seed.Serial, err)
		}
	}

	for _, seed := range simSeeds {
		var existing uint64
		if err := db.QueryRow(ctx, "SELECT id FROM sim_cards WHERE serial = $1", seed.Serial).Scan(&existing); err == nil {
			continue
		}
		id, err := branchID(seed.Branch)
		if err != nil {
			return err
		}
		_, err = db.Exec(ctx,
			"INSERT INTO sim_cards (serial, operator, branch_id) VALUES ($1, $2, $3)",
			seed.Serial, seed.Operator, id,
		)
		if err != nil {
			return fmt.Errorf("не удалось вставить SIM-карту %q: %w", seed.Serial, err)
		}
	}
	return nil
}
