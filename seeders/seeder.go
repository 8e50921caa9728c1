package seeders

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Seed наполняет пустую базу стартовыми данными: сеть филиалов,
// пользователи всех ролей и демонстрационный реестр активов.
func Seed(db *pgxpool.Pool) {
	ctx := context.Background()
	log.Println("▶️  Запуск наполнения базы...")

	if err := seedBranches(ctx, db); err != nil {
		log.Fatalf("❌ Ошибка наполнения филиалов: %v", err)
	}
	if err := seedUsers(ctx, db); err != nil {
		log.Fatalf("❌ Ошибка наполнения пользователей: %v", err)
	}
	if err := seedAssets(ctx, db); err != nil {
		log.Fatalf("❌ Ошибка наполнения реестра активов: %v", err)
	}

	log.Println("✅ Наполнение базы завершено!")
}
