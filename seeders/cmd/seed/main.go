package main

import (
	"asset-transfer-system/pkg/config"
	"asset-transfer-system/pkg/database/postgresql"
	"asset-transfer-system/seeders"
)

func main() {
	cfg := config.New()
	db := postgresql.ConnectDB(cfg.Postgres.DSN)
	defer db.Close()

	seeders.Seed(db)
}
