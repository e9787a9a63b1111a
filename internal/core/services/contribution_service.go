package services

import (
	"context"
	"errors"
	"log"
	"time"

	"latanda-core/internal/adapters/persistence/models"
	"latanda-core/internal/adapters/persistence/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contribution / wallet errors
var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrAlreadyContributed  = errors.New("contribution for this cycle is already paid")
	ErrKYCRequired         = errors.New("KYC verification is required for this operation")
)

// ledgerRetries bounds re-runs of a money write that lost the race for
// the next wallet ledger sequence.
const ledgerRetries = 3

// retryLedger re-runs fn while it keeps losing ledger append races.
// The unique (user_id, seq) index rejects the loser, so a retry reads
// the fresh tail instead of forking the running balance.
func retryLedger(fn func() error) error {
	var err error
	for attempt := 0; attempt < ledgerRetries; attempt++ {
		err = fn()
		if !errors.Is(err, repositories.ErrDuplicate) {
			return err
		}
	}
	return err
}

// appendLedger builds one signed ledger entry and appends it with its
// running balance
func appendLedger(ctx context.Context, repo repositories.ContributionRepository, userID uint, groupID *uint, txType string, amount float64) (*models.WalletTransaction, error) {
	entry := &models.WalletTransaction{
		UserID:    userID,
		GroupID:   groupID,
		Type:      txType,
		Amount:    amount,
		Reference: uuid.New().String(),
	}
	if err := repo.AppendWalletEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ContributionService handles wallet deposits and cycle contributions.
// The wallet is an append-only ledger; the current balance is always the
// latest entry's running balance.
type ContributionService struct {
	contribRepo repositories.ContributionRepository
	groupRepo   repositories.GroupRepository
	userRepo    repositories.UserRepository
}

// NewContributionService creates a new contribution service
func NewContributionService(
	contribRepo repositories.ContributionRepository,
	groupRepo repositories.GroupRepository,
	userRepo repositories.UserRepository,
) *ContributionService {
	return &ContributionService{
		contribRepo: contribRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
	}
}

// Deposit credits the user's wallet. KYC must be verified before any
// money movement.
func (s *ContributionService) Deposit(ctx context.Context, userID uint, amount float64) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.requireKYC(ctx, userID); err != nil {
		return nil, err
	}
	var tx *models.WalletTransaction
	err := retryLedger(func() error {
		var err error
		tx, err = appendLedger(ctx, s.contribRepo, userID, nil, models.TxDeposit, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("💰 Deposit: user %d +%.2f (balance %.2f)", userID, amount, tx.BalanceAfter)
	return tx, nil
}

// Contribute pays the member's contribution for the group's current
// cycle out of their wallet. The payment record and the wallet debit
// commit in one transaction: the contribution's unique cycle index and
// the guarded status update pick a single winner, and the loser's debit
// rolls back with it.
func (s *ContributionService) Contribute(ctx context.Context, groupID, userID uint) (*models.Contribution, error) {
	if err := s.requireKYC(ctx, userID); err != nil {
		return nil, err
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, ErrGroupNotFound
	}
	if group.Status != models.GroupActive {
		return nil, ErrGroupNotActive
	}
	if _, err := s.groupRepo.GetMember(ctx, groupID, userID); err != nil {
		return nil, ErrNotGroupMember
	}

	var contribution *models.Contribution
	err = retryLedger(func() error {
		return s.contribRepo.WithTx(ctx, func(repo repositories.ContributionRepository) error {
			existing, err := repo.GetContribution(ctx, groupID, userID, group.CurrentCycle)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if existing != nil && existing.Status == models.ContributionPaid {
				return ErrAlreadyContributed
			}

			balance, err := repo.GetWalletBalance(ctx, userID)
			if err != nil {
				return err
			}
			if balance < group.ContributionAmount {
				return ErrInsufficientBalance
			}

			now := time.Now()
			if existing != nil {
				marked, err := repo.MarkContributionPaid(ctx, existing.ID, now)
				if err != nil {
					return err
				}
				if !marked {
					return ErrAlreadyContributed
				}
				existing.Status = models.ContributionPaid
				existing.PaidAt = &now
				contribution = existing
			} else {
				contribution = &models.Contribution{
					GroupID: groupID,
					UserID:  userID,
					Cycle:   group.CurrentCycle,
					Amount:  group.ContributionAmount,
					Status:  models.ContributionPaid,
					PaidAt:  &now,
				}
				if err := repo.CreateContribution(ctx, contribution); err != nil {
					if errors.Is(err, repositories.ErrDuplicate) {
						return ErrAlreadyContributed
					}
					return err
				}
			}

			gid := groupID
			_, err = appendLedger(ctx, repo, userID, &gid, models.TxContribution, -group.ContributionAmount)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Contribution paid: user %d, group %s, cycle %d", userID, group.Code, group.CurrentCycle)
	return contribution, nil
}

// ListCycleContributions lists a cycle's contributions for group members
func (s *ContributionService) ListCycleContributions(ctx context.Context, groupID, actorID uint, cycle int) ([]*models.Contribution, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, ErrGroupNotFound
	}
	if _, err := s.groupRepo.GetMember(ctx, groupID, actorID); err != nil {
		return nil, ErrNotGroupMember
	}
	if cycle <= 0 {
		cycle = group.CurrentCycle
	}
	return s.contribRepo.ListContributions(ctx, groupID, cycle)
}

// GetBalance returns the user's current wallet balance
func (s *ContributionService) GetBalance(ctx context.Context, userID uint) (float64, error) {
	return s.contribRepo.GetWalletBalance(ctx, userID)
}

// ListTransactions returns the user's ledger entries, newest first
func (s *ContributionService) ListTransactions(ctx context.Context, userID uint, offset, limit int) ([]*models.WalletTransaction, int64, error) {
	return s.contribRepo.ListWalletTransactions(ctx, userID, offset, limit)
}

func (s *ContributionService) requireKYC(ctx context.Context, userID uint) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if user.KYCStatus != models.KYCVerified {
		return ErrKYCRequired
	}
	return nil
}
