package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shiksha-labs/shiksha-api/database"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Initialize database connection using GORM
	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := store.Init(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	gormDB := store.GetDB().(*gorm.DB)

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("Shiksha API - Database Seeding")
	fmt.Println(separator)
	fmt.Println()

	if err := database.NewSeeder(gormDB).SeedAll(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("Seeding completed successfully!")
	fmt.Println(separator)
	fmt.Println()
	fmt.Println("Admin user is created from ADMIN_PHONE, ADMIN_EMAIL and ADMIN_PASSWORD environment variables.")
	fmt.Println("If not set, admin user creation is skipped.")
}
