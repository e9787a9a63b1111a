package services

import (
	"context"
	"strings"
	"testing"

	"latanda-core/internal/adapters/persistence/models"
	"latanda-core/internal/adapters/persistence/repositories"
)

func TestCreateGroup_Defaults(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)

	svc := NewGroupService(repositories.NewGroupRepository(db), repositories.NewUserRepository(db), nil)

	group, err := svc.CreateGroup(ctx, alice.ID, &CreateGroupInput{
		Name:               "Familia",
		ContributionAmount: 500,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if group.Frequency != models.FrequencyWeekly {
		t.Errorf("frequency = %s, want WEEKLY", group.Frequency)
	}
	if group.MaxMembers != 12 {
		t.Errorf("max members = %d, want 12", group.MaxMembers)
	}
	if group.Currency != "MXN" {
		t.Errorf("currency = %s, want MXN", group.Currency)
	}
	if group.Status != models.GroupForming {
		t.Errorf("status = %s, want FORMING", group.Status)
	}
	if !strings.HasPrefix(group.Code, "LT-") || len(group.Code) != 11 {
		t.Errorf("bad invite code %q", group.Code)
	}

	// The creator is enrolled as coordinator.
	member, err := repositories.NewGroupRepository(db).GetMember(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if member.Role != models.MemberRoleCoordinator {
		t.Errorf("creator role = %s, want COORDINATOR", member.Role)
	}

	if _, err := svc.CreateGroup(ctx, alice.ID, &CreateGroupInput{
		Name:               "Bad",
		ContributionAmount: 100,
		Frequency:          "DAILY",
	}); err != ErrInvalidFrequency {
		t.Errorf("bad frequency: got %v, want ErrInvalidFrequency", err)
	}
}

func TestJoinGroup_Guards(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	carol := seedUser(t, db, "carol", true)

	svc := NewGroupService(repositories.NewGroupRepository(db), repositories.NewUserRepository(db), nil)

	group, err := svc.CreateGroup(ctx, alice.ID, &CreateGroupInput{
		Name:               "Small",
		ContributionAmount: 100,
		MaxMembers:         2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.JoinGroup(ctx, bob.ID, "LT-NOPE1234"); err != ErrGroupNotFound {
		t.Errorf("bad code: got %v, want ErrGroupNotFound", err)
	}
	if _, err := svc.JoinGroup(ctx, alice.ID, group.Code); err != ErrAlreadyMember {
		t.Errorf("rejoin: got %v, want ErrAlreadyMember", err)
	}

	// Invite codes are case-insensitive on input.
	member, err := svc.JoinGroup(ctx, bob.ID, strings.ToLower(group.Code))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if member.PayoutOrder != 1 {
		t.Errorf("bob payout order = %d, want 1", member.PayoutOrder)
	}

	if _, err := svc.JoinGroup(ctx, carol.ID, group.Code); err != ErrGroupFull {
		t.Errorf("full group: got %v, want ErrGroupFull", err)
	}
}

func TestStartGroup_Guards(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)

	svc := NewGroupService(repositories.NewGroupRepository(db), repositories.NewUserRepository(db), nil)

	group, err := svc.CreateGroup(ctx, alice.ID, &CreateGroupInput{
		Name:               "Solo",
		ContributionAmount: 100,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.StartGroup(ctx, group.ID, alice.ID); err != ErrTooFewMembers {
		t.Errorf("solo start: got %v, want ErrTooFewMembers", err)
	}

	if _, err := svc.JoinGroup(ctx, bob.ID, group.Code); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := svc.StartGroup(ctx, group.ID, bob.ID); err != ErrNotCoordinator {
		t.Errorf("member start: got %v, want ErrNotCoordinator", err)
	}

	started, err := svc.StartGroup(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != models.GroupActive || started.CurrentCycle != 1 {
		t.Errorf("started group: status=%s cycle=%d", started.Status, started.CurrentCycle)
	}
	if started.StartedAt == nil {
		t.Error("started_at not set")
	}

	// A running group cannot accept members or start twice.
	carol := seedUser(t, db, "carol", true)
	if _, err := svc.JoinGroup(ctx, carol.ID, group.Code); err != ErrGroupNotForming {
		t.Errorf("late join: got %v, want ErrGroupNotForming", err)
	}
	if _, err := svc.StartGroup(ctx, group.ID, alice.ID); err != ErrGroupNotForming {
		t.Errorf("restart: got %v, want ErrGroupNotForming", err)
	}
}
