package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"latanda-core/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// contributionRepository implements ContributionRepository interface
type contributionRepository struct {
	db *gorm.DB
}

// NewContributionRepository creates a new contribution repository
func NewContributionRepository(db *gorm.DB) ContributionRepository {
	return &contributionRepository{db: db}
}

// WithTx runs fn against a repository bound to one transaction
func (r *contributionRepository) WithTx(ctx context.Context, fn func(ContributionRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&contributionRepository{db: tx})
	})
}

// isDuplicate recognizes unique index violations across drivers: GORM's
// translated sentinel when the dialector supports it, the raw MySQL and
// SQLite messages otherwise.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint")
}

// ============================================================
// Contribution Queries
// ============================================================

// CreateContribution records a contribution. Inserting a second row for
// the same (group, user, cycle) returns ErrDuplicate.
func (r *contributionRepository) CreateContribution(ctx context.Context, c *models.Contribution) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// UpdateContribution updates a contribution record
func (r *contributionRepository) UpdateContribution(ctx context.Context, c *models.Contribution) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// MarkContributionPaid flips an unpaid contribution to PAID. The status
// guard in the WHERE clause makes the first writer win; everyone else
// sees zero rows affected.
func (r *contributionRepository) MarkContributionPaid(ctx context.Context, id uint, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Where("id = ? AND status <> ?", id, models.ContributionPaid).
		Updates(map[string]interface{}{
			"status":  models.ContributionPaid,
			"paid_at": paidAt,
		})
	return res.RowsAffected > 0, res.Error
}

// GetContribution gets one member's contribution for a cycle
func (r *contributionRepository) GetContribution(ctx context.Context, groupID, userID uint, cycle int) (*models.Contribution, error) {
	var c models.Contribution
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ? AND cycle = ?", groupID, userID, cycle).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContributions lists all contributions for a group cycle
func (r *contributionRepository) ListContributions(ctx context.Context, groupID uint, cycle int) ([]*models.Contribution, error) {
	var contributions []*models.Contribution
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ? AND cycle = ?", groupID, cycle).
		Order("created_at ASC").
		Find(&contributions).Error
	return contributions, err
}

// CountPaid counts paid contributions for a group cycle
func (r *contributionRepository) CountPaid(ctx context.Context, groupID uint, cycle int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Where("group_id = ? AND cycle = ? AND status = ?", groupID, cycle, models.ContributionPaid).
		Count(&count).Error
	return count, err
}

// ============================================================
// Payout Queries
// ============================================================

// CreatePayout creates a payout record. A second payout for the same
// (group, cycle) returns ErrDuplicate.
func (r *contributionRepository) CreatePayout(ctx context.Context, p *models.Payout) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetPayout gets the payout for a group cycle
func (r *contributionRepository) GetPayout(ctx context.Context, groupID uint, cycle int) (*models.Payout, error) {
	var p models.Payout
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND cycle = ?", groupID, cycle).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPayouts lists all payouts for a group
func (r *contributionRepository) ListPayouts(ctx context.Context, groupID uint) ([]*models.Payout, error) {
	var payouts []*models.Payout
	err := r.db.WithContext(ctx).
		Preload("Recipient").
		Where("group_id = ?", groupID).
		Order("cycle ASC").
		Find(&payouts).Error
	return payouts, err
}

// UpdatePayout updates a payout record
func (r *contributionRepository) UpdatePayout(ctx context.Context, p *models.Payout) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// ============================================================
// Wallet Queries
// ============================================================

// AppendWalletEntry assigns the next ledger sequence and running
// balance from the current tail, then inserts. A concurrent append that
// already claimed the sequence violates the (user_id, seq) index and
// surfaces as ErrDuplicate instead of a forked balance.
func (r *contributionRepository) AppendWalletEntry(ctx context.Context, entry *models.WalletTransaction) error {
	var latest models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", entry.UserID).
		Order("seq DESC").
		First(&latest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	entry.ID = 0
	entry.Seq = latest.Seq + 1
	entry.BalanceAfter = latest.BalanceAfter + entry.Amount
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// CreateWalletTransaction inserts a pre-built ledger entry
func (r *contributionRepository) CreateWalletTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetWalletBalance reads the running balance from the ledger tail
func (r *contributionRepository) GetWalletBalance(ctx context.Context, userID uint) (float64, error) {
	var latest models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("seq DESC").
		First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return latest.BalanceAfter, nil
}

// ListWalletTransactions lists a user's ledger entries with pagination
func (r *contributionRepository) ListWalletTransactions(ctx context.Context, userID uint, offset, limit int) ([]*models.WalletTransaction, int64, error) {
	var txs []*models.WalletTransaction
	var total int64

	if err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&txs).Error
	return txs, total, err
}
