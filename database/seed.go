package database

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/shiksha-labs/shiksha-api/model"
	"github.com/shiksha-labs/shiksha-api/utils/auth"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("Starting database seeding...")

	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedPrepClasses(); err != nil {
		return fmt.Errorf("failed to seed preparation classes: %w", err)
	}

	if err := s.SeedPlans(); err != nil {
		return fmt.Errorf("failed to seed subscription plans: %w", err)
	}

	if err := s.SeedAppSettings(); err != nil {
		return fmt.Errorf("failed to seed app settings: %w", err)
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

// SeedAdminUser creates the default admin user from env credentials
func (s *Seeder) SeedAdminUser() error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping...")
		return nil
	}

	adminPhone := os.Getenv("ADMIN_PHONE")
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminPhone == "" || adminEmail == "" || adminPassword == "" {
		log.Println("ADMIN_PHONE, ADMIN_EMAIL and ADMIN_PASSWORD not set, skipping admin user creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return err
	}

	admin := model.User{
		Phone:        adminPhone,
		Email:        adminEmail,
		Name:         "Administrator",
		Role:         model.RoleAdmin,
		PasswordHash: passwordHash,
	}

	if err := s.db.Create(&admin).Error; err != nil {
		return err
	}

	log.Println("Seeded admin user:", adminEmail)
	return nil
}

// SeedPrepClasses creates the default exam-prep class tracks
func (s *Seeder) SeedPrepClasses() error {
	classes := []model.Class{
		{Name: "JEE", Description: "Joint Entrance Examination preparation track"},
		{Name: "NEET", Description: "National Eligibility cum Entrance Test preparation track"},
	}

	for _, class := range classes {
		var existing model.Class
		err := s.db.Where("name = ?", class.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := s.db.Create(&class).Error; err != nil {
			return err
		}
		log.Println("Seeded preparation class:", class.Name)
	}

	return nil
}

// SeedPlans creates a starter catalog when the plan table is empty
func (s *Seeder) SeedPlans() error {
	var count int64
	if err := s.db.Model(&model.SubscriptionPlan{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Subscription plans already exist, skipping...")
		return nil
	}

	classes10, _ := json.Marshal([]int{10})
	classes12, _ := json.Marshal([]int{11, 12})

	plans := []model.SubscriptionPlan{
		{
			Name:     "CBSE Class 10 Monthly",
			Type:     model.PlanTypeRegular,
			Board:    "CBSE",
			Classes:  classes10,
			Duration: model.DurationMonthly,
			Price:    499,
		},
		{
			Name:     "CBSE Senior Secondary Yearly",
			Type:     model.PlanTypeRegular,
			Board:    "CBSE",
			Classes:  classes12,
			Duration: model.DurationYearly,
			Price:    4999,
		},
		{
			Name:         "CBSE Class 10 Demo",
			Type:         model.PlanTypeRegular,
			Board:        "CBSE",
			Classes:      classes10,
			Duration:     model.DurationDemo,
			Price:        0,
			ValidityDays: 7,
		},
	}

	for i := range plans {
		if err := s.db.Create(&plans[i]).Error; err != nil {
			return err
		}
	}

	log.Println("Seeded", len(plans), "subscription plans")
	return nil
}

// SeedAppSettings creates the default public settings
func (s *Seeder) SeedAppSettings() error {
	settings := []model.AppSetting{
		{Key: "support_email", Value: "support@shiksha.app", Description: "Support contact shown in the app", IsPublic: true},
		{Key: "support_phone", Value: "+911800000000", Description: "Support phone shown in the app", IsPublic: true},
		{Key: "maintenance_mode", Value: "false", Type: "bool", Description: "Disables purchases when true", IsPublic: true},
		{Key: "min_app_version", Value: "1.0.0", Description: "Oldest mobile client allowed", IsPublic: true},
	}

	for _, setting := range settings {
		var existing model.AppSetting
		err := s.db.Where("key = ?", setting.Key).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := s.db.Create(&setting).Error; err != nil {
			return err
		}
	}

	log.Println("Seeded app settings")
	return nil
}
