package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"latanda-core/internal/adapters/persistence/models"
	"latanda-core/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

func fundCycle(t *testing.T, db *gorm.DB, group *models.TandaGroup, users ...*models.User) {
	t.Helper()
	ctx := context.Background()
	svc := newContributionService(db)
	for _, u := range users {
		if _, err := svc.Deposit(ctx, u.ID, group.ContributionAmount); err != nil {
			t.Fatalf("deposit (%s): %v", u.Username, err)
		}
		if _, err := svc.Contribute(ctx, group.ID, u.ID); err != nil {
			t.Fatalf("contribute (%s): %v", u.Username, err)
		}
	}
}

func TestPayout_FullRotation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	group := seedActiveGroup(t, db, 100, alice, bob)

	groupRepo := repositories.NewGroupRepository(db)
	contribRepo := repositories.NewContributionRepository(db)
	contribSvc := newContributionService(db)
	svc := NewPayoutService(groupRepo, contribRepo, nil)

	// Nothing paid in yet.
	if err := svc.ProcessGroupPayout(ctx, group.ID); err != ErrCycleNotFunded {
		t.Fatalf("unfunded cycle: got %v, want ErrCycleNotFunded", err)
	}

	// Cycle 1: first slot in the rotation collects the pool.
	fundCycle(t, db, group, alice, bob)
	if err := svc.ProcessGroupPayout(ctx, group.ID); err != nil {
		t.Fatalf("cycle 1 payout: %v", err)
	}

	balance, err := contribSvc.GetBalance(ctx, alice.ID)
	if err != nil {
		t.Fatalf("alice balance: %v", err)
	}
	if balance != 200 {
		t.Errorf("alice balance = %.2f, want 200 (pool of 2 x 100)", balance)
	}

	group, err = groupRepo.GetByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("reload group: %v", err)
	}
	if group.CurrentCycle != 2 {
		t.Errorf("current cycle = %d, want 2", group.CurrentCycle)
	}
	if group.Status != models.GroupActive {
		t.Errorf("group status = %s, want ACTIVE", group.Status)
	}

	// Cycle 2: last slot collects and the group completes.
	fundCycle(t, db, group, alice, bob)
	if err := svc.ProcessGroupPayout(ctx, group.ID); err != nil {
		t.Fatalf("cycle 2 payout: %v", err)
	}

	balance, _ = contribSvc.GetBalance(ctx, bob.ID)
	if balance != 200 {
		t.Errorf("bob balance = %.2f, want 200", balance)
	}

	group, _ = groupRepo.GetByID(ctx, group.ID)
	if group.Status != models.GroupCompleted {
		t.Errorf("group status = %s, want COMPLETED", group.Status)
	}

	if err := svc.ProcessGroupPayout(ctx, group.ID); err != ErrGroupNotActive {
		t.Errorf("completed group: got %v, want ErrGroupNotActive", err)
	}

	payouts, err := svc.ListPayouts(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("list payouts: %v", err)
	}
	if len(payouts) != 2 {
		t.Fatalf("expected 2 payouts, got %d", len(payouts))
	}
	if payouts[0].RecipientID != alice.ID || payouts[1].RecipientID != bob.ID {
		t.Errorf("recipients = %d, %d; want %d, %d",
			payouts[0].RecipientID, payouts[1].RecipientID, alice.ID, bob.ID)
	}
}

func TestPayout_ExtraPositionCollectsTwice(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	group := seedActiveGroup(t, db, 100, alice, bob)

	groupRepo := repositories.NewGroupRepository(db)
	rotationSvc := NewRotationService(groupRepo)
	if _, err := rotationSvc.AddSlot(ctx, group.ID, alice.ID, bob.ID); err != nil {
		t.Fatalf("add slot: %v", err)
	}

	svc := NewPayoutService(groupRepo, repositories.NewContributionRepository(db), nil)

	// Three cycles now: alice, bob, bob.
	wantRecipients := []uint{alice.ID, bob.ID, bob.ID}
	for cycle, want := range wantRecipients {
		fundCycle(t, db, group, alice, bob)
		if err := svc.ProcessGroupPayout(ctx, group.ID); err != nil {
			t.Fatalf("cycle %d payout: %v", cycle+1, err)
		}

		var payout models.Payout
		if err := db.Where("group_id = ? AND cycle = ?", group.ID, cycle+1).First(&payout).Error; err != nil {
			t.Fatalf("load payout %d: %v", cycle+1, err)
		}
		if payout.RecipientID != want {
			t.Errorf("cycle %d recipient = %d, want %d", cycle+1, payout.RecipientID, want)
		}
	}

	group, _ = groupRepo.GetByID(ctx, group.ID)
	if group.Status != models.GroupCompleted {
		t.Errorf("group status = %s, want COMPLETED", group.Status)
	}
}

func TestProcessDuePayouts_SweepsActiveGroups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	carol := seedUser(t, db, "carol", true)
	dave := seedUser(t, db, "dave", true)

	funded := seedActiveGroup(t, db, 100, alice, bob)
	fundCycle(t, db, funded, alice, bob)

	// Second group stays unfunded; the sweep must skip it quietly.
	seedActiveGroup(t, db, 50, carol, dave)

	svc := NewPayoutService(
		repositories.NewGroupRepository(db),
		repositories.NewContributionRepository(db),
		nil,
	)

	paid, err := svc.ProcessDuePayouts(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if paid != 1 {
		t.Errorf("sweep paid %d groups, want 1", paid)
	}
}

func TestPayout_OneDisbursementPerCycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	group := seedActiveGroup(t, db, 100, alice, bob)

	repo := repositories.NewContributionRepository(db)

	now := time.Now()
	first := &models.Payout{GroupID: group.ID, Cycle: 1, RecipientID: alice.ID, Amount: 200, Status: models.PayoutPaid, ScheduledAt: now, PaidAt: &now}
	if err := repo.CreatePayout(ctx, first); err != nil {
		t.Fatalf("create payout: %v", err)
	}

	// A concurrent sweep of the same cycle must lose on the unique
	// (group, cycle) index rather than disburse twice.
	dup := &models.Payout{GroupID: group.ID, Cycle: 1, RecipientID: bob.ID, Amount: 200, Status: models.PayoutPaid, ScheduledAt: now, PaidAt: &now}
	if err := repo.CreatePayout(ctx, dup); !errors.Is(err, repositories.ErrDuplicate) {
		t.Errorf("duplicate payout: got %v, want ErrDuplicate", err)
	}
}
