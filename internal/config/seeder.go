package config

import (
	"log"

	"latanda-core/internal/adapters/persistence/models"
	"latanda-core/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAdminUser runs the seeders that must exist before first login
func SeedAdminUser(db *gorm.DB) error {
	return NewSeeder(db).Run()
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	if err := s.seedDemoGroup(); err != nil {
		log.Printf("⚠️ Demo group seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds default admin user
// This is for development/testing only
// In production, create admin through secure process
func (s *Seeder) seedAdminUser() error {
	// Check if admin already exists
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", "ADMIN").Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := password.Hash("admin123456")
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:  "admin",
		Email:     "admin@latanda.mx",
		FullName:  "Platform Admin",
		Password:  hashedPassword,
		Role:      "ADMIN",
		KYCStatus: models.KYCVerified,
		IsActive:  true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Username)
	return nil
}

// seedDemoGroup seeds two demo members and a forming tanda so a fresh
// dev database has something to click through.
func (s *Seeder) seedDemoGroup() error {
	var count int64
	s.db.Model(&models.TandaGroup{}).Count(&count)
	if count > 0 {
		return nil // Groups already exist
	}

	hashedPassword, err := password.Hash("demo123456")
	if err != nil {
		return err
	}

	maria := &models.User{
		Username:  "maria",
		Email:     "maria@latanda.mx",
		FullName:  "María Demo",
		Password:  hashedPassword,
		Role:      models.RoleMember,
		KYCStatus: models.KYCVerified,
		IsActive:  true,
	}
	jose := &models.User{
		Username:  "jose",
		Email:     "jose@latanda.mx",
		FullName:  "José Demo",
		Password:  hashedPassword,
		Role:      models.RoleMember,
		KYCStatus: models.KYCVerified,
		IsActive:  true,
	}
	for _, u := range []*models.User{maria, jose} {
		if err := s.db.Create(u).Error; err != nil {
			return err
		}
	}

	group := &models.TandaGroup{
		Code:               "LT-DEMO0001",
		Name:               "Tanda Demo",
		Description:        "Seeded development tanda",
		ContributionAmount: 500,
		Currency:           "MXN",
		Frequency:          models.FrequencyWeekly,
		MaxMembers:         12,
		Status:             models.GroupForming,
		CoordinatorID:      maria.ID,
	}
	if err := s.db.Create(group).Error; err != nil {
		return err
	}

	members := []*models.GroupMember{
		{
			GroupID:     group.ID,
			UserID:      maria.ID,
			DisplayName: maria.FullName,
			Role:        models.MemberRoleCoordinator,
			Positions:   1,
			PayoutOrder: 0,
			Status:      models.MemberActive,
		},
		{
			GroupID:     group.ID,
			UserID:      jose.ID,
			DisplayName: jose.FullName,
			Role:        models.MemberRoleMember,
			Positions:   1,
			PayoutOrder: 1,
			Status:      models.MemberActive,
		},
	}
	for _, m := range members {
		if err := s.db.Create(m).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Demo group created: %s (code: %s)", group.Name, group.Code)
	return nil
}
