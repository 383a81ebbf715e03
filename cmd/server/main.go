package main

import (
	"log"

	"investment-ledger-go/internal/config"
	"investment-ledger-go/internal/database"
	httpserver "investment-ledger-go/internal/http"
	"investment-ledger-go/internal/models"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	database.Connect()
	database.DB.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Membership{},
		&models.Transaction{},
	)

	cfg := config.Load()
	r := httpserver.NewServer(cfg, database.DB)
	log.Printf("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
