package services

import (
	"context"
	"testing"

	"latanda-core/internal/adapters/persistence/models"
	"latanda-core/internal/adapters/persistence/repositories"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.TandaGroup{},
		&models.GroupMember{},
		&models.Contribution{},
		&models.Payout{},
		&models.WalletTransaction{},
		&models.SecurityEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, verified bool) *models.User {
	t.Helper()
	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		FullName:  username,
		Password:  "x",
		Role:      models.RoleMember,
		KYCStatus: models.KYCPending,
		IsActive:  true,
	}
	if verified {
		user.KYCStatus = models.KYCVerified
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

// seedActiveGroup builds an active group with the given users as
// members, first user as coordinator, rotation in user order.
func seedActiveGroup(t *testing.T, db *gorm.DB, amount float64, users ...*models.User) *models.TandaGroup {
	t.Helper()
	ctx := context.Background()
	groupRepo := repositories.NewGroupRepository(db)
	userRepo := repositories.NewUserRepository(db)
	groupSvc := NewGroupService(groupRepo, userRepo, nil)

	group, err := groupSvc.CreateGroup(ctx, users[0].ID, &CreateGroupInput{
		Name:               "Test Tanda",
		ContributionAmount: amount,
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, u := range users[1:] {
		if _, err := groupSvc.JoinGroup(ctx, u.ID, group.Code); err != nil {
			t.Fatalf("join group (%s): %v", u.Username, err)
		}
	}
	group, err = groupSvc.StartGroup(ctx, group.ID, users[0].ID)
	if err != nil {
		t.Fatalf("start group: %v", err)
	}
	return group
}

func TestRotation_GetRequiresMembership(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	eve := seedUser(t, db, "eve", true)
	group := seedActiveGroup(t, db, 100, alice, bob)

	svc := NewRotationService(repositories.NewGroupRepository(db))

	slots, err := svc.GetRotation(ctx, group.ID, bob.ID)
	if err != nil {
		t.Fatalf("member view: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}

	if _, err := svc.GetRotation(ctx, group.ID, eve.ID); err != ErrNotGroupMember {
		t.Errorf("outsider view: got %v, want ErrNotGroupMember", err)
	}
}

func TestRotation_ReorderPersists(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	group := seedActiveGroup(t, db, 100, alice, bob)

	svc := NewRotationService(repositories.NewGroupRepository(db))

	slots, err := svc.Reorder(ctx, group.ID, alice.ID, []SlotRef{
		{UserID: bob.ID, SlotIndex: 0},
		{UserID: alice.ID, SlotIndex: 0},
	})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if slots[0].UserID != rotationID(bob.ID) {
		t.Errorf("expected bob first, got %s", slots[0].UserID)
	}

	// The new ordering must survive a reload.
	reloaded, err := svc.GetRotation(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded[0].UserID != rotationID(bob.ID) || reloaded[1].UserID != rotationID(alice.ID) {
		t.Errorf("persisted order wrong: %s, %s", reloaded[0].UserID, reloaded[1].UserID)
	}
}

func TestRotation_ReorderValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	group := seedActiveGroup(t, db, 100, alice, bob)

	svc := NewRotationService(repositories.NewGroupRepository(db))

	cases := []struct {
		name string
		refs []SlotRef
	}{
		{"too few", []SlotRef{{UserID: alice.ID, SlotIndex: 0}}},
		{"duplicate slot", []SlotRef{{UserID: alice.ID, SlotIndex: 0}, {UserID: alice.ID, SlotIndex: 0}}},
		{"unknown user", []SlotRef{{UserID: alice.ID, SlotIndex: 0}, {UserID: 999, SlotIndex: 0}}},
		{"bad index", []SlotRef{{UserID: alice.ID, SlotIndex: 0}, {UserID: bob.ID, SlotIndex: 3}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Reorder(ctx, group.ID, alice.ID, tc.refs); err != ErrInvalidRotation {
				t.Errorf("got %v, want ErrInvalidRotation", err)
			}
		})
	}

	// Valid permutation submitted by a non-coordinator must be refused.
	_, err := svc.Reorder(ctx, group.ID, bob.ID, []SlotRef{
		{UserID: alice.ID, SlotIndex: 0},
		{UserID: bob.ID, SlotIndex: 0},
	})
	if err != ErrNotCoordinator {
		t.Errorf("non-coordinator reorder: got %v, want ErrNotCoordinator", err)
	}
}

func TestRotation_AddAndRemoveSlot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	group := seedActiveGroup(t, db, 100, alice, bob)

	groupRepo := repositories.NewGroupRepository(db)
	svc := NewRotationService(groupRepo)

	slots, err := svc.AddSlot(ctx, group.ID, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("add slot: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots after add, got %d", len(slots))
	}

	member, err := groupRepo.GetMember(ctx, group.ID, bob.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if member.Positions != 2 {
		t.Errorf("bob positions = %d, want 2", member.Positions)
	}

	// Last remaining slot is never removable.
	slots, err = svc.RemoveSlot(ctx, group.ID, alice.ID, alice.ID, 0)
	if err != nil {
		t.Fatalf("remove last slot: %v", err)
	}
	if len(slots) != 3 {
		t.Errorf("removing a sole slot must be a no-op, got %d slots", len(slots))
	}

	slots, err = svc.RemoveSlot(ctx, group.ID, alice.ID, bob.ID, 1)
	if err != nil {
		t.Fatalf("remove slot: %v", err)
	}
	if len(slots) != 2 {
		t.Errorf("expected 2 slots after remove, got %d", len(slots))
	}
}

func TestRotation_SetSlotLock(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	group := seedActiveGroup(t, db, 100, alice, bob)

	svc := NewRotationService(repositories.NewGroupRepository(db))

	if _, err := svc.SetSlotLock(ctx, group.ID, alice.ID, bob.ID, 0, true); err != nil {
		t.Fatalf("set lock: %v", err)
	}

	slots, err := svc.GetRotation(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	var found bool
	for _, s := range slots {
		if s.UserID == rotationID(bob.ID) && s.SlotIndex == 0 {
			found = true
			if !s.Locked {
				t.Error("bob's slot should be locked after reload")
			}
		}
	}
	if !found {
		t.Fatal("bob's slot missing from rotation")
	}
}

func TestRotation_RemoveMember(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	carol := seedUser(t, db, "carol", true)
	group := seedActiveGroup(t, db, 100, alice, bob, carol)

	groupRepo := repositories.NewGroupRepository(db)
	svc := NewRotationService(groupRepo)

	slots, err := svc.RemoveMember(ctx, group.ID, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("remove member: %v", err)
	}
	for _, s := range slots {
		if s.UserID == rotationID(bob.ID) {
			t.Fatal("bob still present in rotation")
		}
	}

	var member models.GroupMember
	if err := db.Where("group_id = ? AND user_id = ?", group.ID, bob.ID).First(&member).Error; err != nil {
		t.Fatalf("load member row: %v", err)
	}
	if member.Status != models.MemberRemoved {
		t.Errorf("bob status = %s, want REMOVED", member.Status)
	}

	// The survivors keep a dense rank.
	members, err := groupRepo.GetActiveMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("active members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 active members, got %d", len(members))
	}
	for rank, m := range members {
		if m.PayoutOrder != rank {
			t.Errorf("member %d payout_order = %d, want %d", m.UserID, m.PayoutOrder, rank)
		}
	}
}
