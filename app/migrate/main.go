package main

import (
	"database/sql"
	"flag"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"asset-transfer-system/pkg/config"
)

// Запуск: go run ./app/migrate -command up|down|status [-dir migrations]
func main() {
	command := flag.String("command", "up", "команда goose: up, down, status, version")
	dir := flag.String("dir", "migrations", "каталог с миграциями")
	flag.Parse()

	cfg := config.New()

	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("не удалось открыть соединение с БД: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("не удалось выбрать диалект: %v", err)
	}

	if err := goose.Run(*command, db, *dir, flag.Args()...); err != nil {
		log.Fatalf("ошибка миграции (%s): %v", *command, err)
	}
}
