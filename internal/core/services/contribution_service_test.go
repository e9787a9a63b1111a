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

func newContributionService(db *gorm.DB) *ContributionService {
	return NewContributionService(
		repositories.NewContributionRepository(db),
		repositories.NewGroupRepository(db),
		repositories.NewUserRepository(db),
	)
}

func TestDeposit_RequiresKYC(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	pending := seedUser(t, db, "pending", false)

	svc := newContributionService(db)

	if _, err := svc.Deposit(ctx, pending.ID, 100); err != ErrKYCRequired {
		t.Errorf("got %v, want ErrKYCRequired", err)
	}
	if _, err := svc.Deposit(ctx, pending.ID, 0); err != ErrInvalidAmount {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Deposit(ctx, pending.ID, -50); err != ErrInvalidAmount {
		t.Errorf("negative amount: got %v, want ErrInvalidAmount", err)
	}
}

func TestDeposit_LedgerRunningBalance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)

	svc := newContributionService(db)

	tx1, err := svc.Deposit(ctx, alice.ID, 100)
	if err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	if tx1.BalanceAfter != 100 {
		t.Errorf("balance after first deposit = %.2f, want 100", tx1.BalanceAfter)
	}

	tx2, err := svc.Deposit(ctx, alice.ID, 50.5)
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if tx2.BalanceAfter != 150.5 {
		t.Errorf("balance after second deposit = %.2f, want 150.5", tx2.BalanceAfter)
	}
	if tx1.Reference == tx2.Reference {
		t.Error("ledger references must be unique")
	}

	balance, err := svc.GetBalance(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 150.5 {
		t.Errorf("balance = %.2f, want 150.5", balance)
	}

	txs, total, err := svc.ListTransactions(ctx, alice.ID, 0, 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if total != 2 || len(txs) != 2 {
		t.Fatalf("expected 2 ledger entries, got total=%d len=%d", total, len(txs))
	}
	// Newest first.
	if txs[0].ID != tx2.ID {
		t.Errorf("expected latest entry first, got id %d", txs[0].ID)
	}
}

func TestContribute_Guards(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	eve := seedUser(t, db, "eve", true)
	group := seedActiveGroup(t, db, 100, alice, bob)

	svc := newContributionService(db)

	if _, err := svc.Contribute(ctx, group.ID, eve.ID); err != ErrNotGroupMember {
		t.Errorf("outsider: got %v, want ErrNotGroupMember", err)
	}
	if _, err := svc.Contribute(ctx, group.ID, alice.ID); err != ErrInsufficientBalance {
		t.Errorf("empty wallet: got %v, want ErrInsufficientBalance", err)
	}
	if _, err := svc.Contribute(ctx, 999, alice.ID); err != ErrGroupNotFound {
		t.Errorf("missing group: got %v, want ErrGroupNotFound", err)
	}
}

func TestContribute_DebitsWalletOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	group := seedActiveGroup(t, db, 100, alice, bob)

	svc := newContributionService(db)

	if _, err := svc.Deposit(ctx, alice.ID, 250); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	contribution, err := svc.Contribute(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if contribution.Status != models.ContributionPaid {
		t.Errorf("status = %s, want PAID", contribution.Status)
	}
	if contribution.Cycle != 1 {
		t.Errorf("cycle = %d, want 1", contribution.Cycle)
	}
	if contribution.PaidAt == nil {
		t.Error("paid_at not set")
	}

	balance, err := svc.GetBalance(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 150 {
		t.Errorf("balance after contribution = %.2f, want 150", balance)
	}

	if _, err := svc.Contribute(ctx, group.ID, alice.ID); err != ErrAlreadyContributed {
		t.Errorf("double pay: got %v, want ErrAlreadyContributed", err)
	}
	// The failed retry must not touch the wallet.
	balance, _ = svc.GetBalance(ctx, alice.ID)
	if balance != 150 {
		t.Errorf("balance after rejected retry = %.2f, want 150", balance)
	}
}

func TestWalletLedger_SequenceGuardRejectsForkedAppend(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)

	repo := repositories.NewContributionRepository(db)

	first := &models.WalletTransaction{UserID: alice.ID, Type: models.TxDeposit, Amount: 100, Reference: "ref-1"}
	if err := repo.AppendWalletEntry(ctx, first); err != nil {
		t.Fatalf("first append: %v", err)
	}
	second := &models.WalletTransaction{UserID: alice.ID, Type: models.TxDeposit, Amount: 50, Reference: "ref-2"}
	if err := repo.AppendWalletEntry(ctx, second); err != nil {
		t.Fatalf("second append: %v", err)
	}
	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("ledger sequence = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if second.BalanceAfter != 150 {
		t.Errorf("running balance = %.2f, want 150", second.BalanceAfter)
	}

	// A writer that read a stale tail and claims an already-taken
	// sequence must be rejected, not fork the balance.
	stale := &models.WalletTransaction{
		UserID:       alice.ID,
		Seq:          second.Seq,
		Type:         models.TxContribution,
		Amount:       -100,
		BalanceAfter: 0,
		Reference:    "ref-stale",
	}
	if err := repo.CreateWalletTransaction(ctx, stale); !errors.Is(err, repositories.ErrDuplicate) {
		t.Errorf("stale append: got %v, want ErrDuplicate", err)
	}

	balance, err := repo.GetWalletBalance(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 150 {
		t.Errorf("balance after rejected fork = %.2f, want 150", balance)
	}
}

func TestContribution_OneRecordPerMemberCycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	group := seedActiveGroup(t, db, 100, alice, bob)

	repo := repositories.NewContributionRepository(db)

	c := &models.Contribution{GroupID: group.ID, UserID: alice.ID, Cycle: 1, Amount: 100, Status: models.ContributionPending}
	if err := repo.CreateContribution(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &models.Contribution{GroupID: group.ID, UserID: alice.ID, Cycle: 1, Amount: 100, Status: models.ContributionPending}
	if err := repo.CreateContribution(ctx, dup); !errors.Is(err, repositories.ErrDuplicate) {
		t.Errorf("duplicate cycle record: got %v, want ErrDuplicate", err)
	}

	// First writer flips the record to PAID, everyone after loses.
	now := time.Now()
	marked, err := repo.MarkContributionPaid(ctx, c.ID, now)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !marked {
		t.Fatal("first mark should win")
	}
	marked, err = repo.MarkContributionPaid(ctx, c.ID, now)
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if marked {
		t.Error("second mark should see zero rows")
	}
}

func TestListCycleContributions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", true)
	bob := seedUser(t, db, "bob", true)
	group := seedActiveGroup(t, db, 100, alice, bob)

	svc := newContributionService(db)
	for _, u := range []*models.User{alice, bob} {
		if _, err := svc.Deposit(ctx, u.ID, 100); err != nil {
			t.Fatalf("deposit: %v", err)
		}
		if _, err := svc.Contribute(ctx, group.ID, u.ID); err != nil {
			t.Fatalf("contribute: %v", err)
		}
	}

	// Cycle 0 defaults to the group's current cycle.
	contributions, err := svc.ListCycleContributions(ctx, group.ID, alice.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(contributions) != 2 {
		t.Errorf("expected 2 contributions, got %d", len(contributions))
	}

	eve := seedUser(t, db, "eve", true)
	if _, err := svc.ListCycleContributions(ctx, group.ID, eve.ID, 0); err != ErrNotGroupMember {
		t.Errorf("outsider list: got %v, want ErrNotGroupMember", err)
	}
}
