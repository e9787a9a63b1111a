package repositories

import (
	"context"
	"errors"
	"time"

	"latanda-core/internal/adapters/persistence/models"
)

// ErrDuplicate is returned when an insert loses to a concurrent writer
// on a unique index.
var ErrDuplicate = errors.New("duplicate record")

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	GetByUserID(ctx context.Context, userID uint) ([]*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
	CountActiveByUserID(ctx context.Context, userID uint) (int64, error)
}

// GroupRepository defines tanda group + membership repository interface
type GroupRepository interface {
	Create(ctx context.Context, group *models.TandaGroup) error
	GetByID(ctx context.Context, id uint) (*models.TandaGroup, error)
	GetByCode(ctx context.Context, code string) (*models.TandaGroup, error)
	Update(ctx context.Context, group *models.TandaGroup) error
	ListByUser(ctx context.Context, userID uint) ([]*models.TandaGroup, error)
	ListActive(ctx context.Context) ([]*models.TandaGroup, error)

	AddMember(ctx context.Context, member *models.GroupMember) error
	GetMember(ctx context.Context, groupID, userID uint) (*models.GroupMember, error)
	GetActiveMembers(ctx context.Context, groupID uint) ([]*models.GroupMember, error)
	CountActiveMembers(ctx context.Context, groupID uint) (int64, error)

	// ReplaceRotation persists a recomputed payout ordering for the group
	// atomically: member ranks, position counts and turn locks together.
	ReplaceRotation(ctx context.Context, groupID uint, members []*models.GroupMember) error
}

// ContributionRepository defines contribution + payout + wallet repository interface
type ContributionRepository interface {
	// WithTx runs fn against a repository bound to one database
	// transaction, so a money movement's reads and writes commit or
	// roll back together.
	WithTx(ctx context.Context, fn func(ContributionRepository) error) error

	CreateContribution(ctx context.Context, c *models.Contribution) error
	UpdateContribution(ctx context.Context, c *models.Contribution) error
	// MarkContributionPaid flips a contribution to PAID only if it is
	// not paid yet. Returns false when another writer won the race.
	MarkContributionPaid(ctx context.Context, id uint, paidAt time.Time) (bool, error)
	GetContribution(ctx context.Context, groupID, userID uint, cycle int) (*models.Contribution, error)
	ListContributions(ctx context.Context, groupID uint, cycle int) ([]*models.Contribution, error)
	CountPaid(ctx context.Context, groupID uint, cycle int) (int64, error)

	CreatePayout(ctx context.Context, p *models.Payout) error
	GetPayout(ctx context.Context, groupID uint, cycle int) (*models.Payout, error)
	ListPayouts(ctx context.Context, groupID uint) ([]*models.Payout, error)
	UpdatePayout(ctx context.Context, p *models.Payout) error

	// AppendWalletEntry assigns the next per-user ledger sequence and
	// running balance, then inserts the entry. A concurrent append that
	// claimed the same sequence surfaces as ErrDuplicate; callers retry.
	AppendWalletEntry(ctx context.Context, entry *models.WalletTransaction) error
	CreateWalletTransaction(ctx context.Context, tx *models.WalletTransaction) error
	GetWalletBalance(ctx context.Context, userID uint) (float64, error)
	ListWalletTransactions(ctx context.Context, userID uint, offset, limit int) ([]*models.WalletTransaction, int64, error)
}

// SecurityEventRepository defines the risk audit log repository interface
type SecurityEventRepository interface {
	Create(ctx context.Context, event *models.SecurityEvent) error
	ListRecent(ctx context.Context, since time.Time, minScore, limit int) ([]*models.SecurityEvent, error)
	CountByIdentity(ctx context.Context, identity string, since time.Time) (int64, error)
}
