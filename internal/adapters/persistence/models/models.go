package models

import (
	"time"

	"latanda-core/internal/core/rotation"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// Platform roles
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// KYC status values
const (
	KYCPending  = "PENDING"
	KYCVerified = "VERIFIED"
	KYCRejected = "REJECTED"
)

// User represents users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Phone     string         `gorm:"size:20" json:"phone"`
	FullName  string         `gorm:"size:100" json:"full_name"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'MEMBER'" json:"role"`
	KYCStatus string         `gorm:"size:20;default:'PENDING'" json:"kyc_status"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	Role      string    `json:"role"`
	KYCStatus string    `json:"kyc_status"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		FullName:  u.FullName,
		Role:      u.Role,
		KYCStatus: u.KYCStatus,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Tanda Tables
// ============================================================

// Group status
const (
	GroupForming   = "FORMING"
	GroupActive    = "ACTIVE"
	GroupCompleted = "COMPLETED"
	GroupCancelled = "CANCELLED"
)

// Contribution frequency
const (
	FrequencyWeekly   = "WEEKLY"
	FrequencyBiweekly = "BIWEEKLY"
	FrequencyMonthly  = "MONTHLY"
)

// TandaGroup represents a rotating savings group
type TandaGroup struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Code               string         `gorm:"size:12;uniqueIndex;not null" json:"code"`
	Name               string         `gorm:"size:100;not null" json:"name"`
	Description        string         `gorm:"type:text" json:"description"`
	ContributionAmount float64        `gorm:"type:decimal(12,2);not null" json:"contribution_amount"`
	Currency           string         `gorm:"size:3;default:'MXN'" json:"currency"`
	Frequency          string         `gorm:"size:10;default:'WEEKLY'" json:"frequency"`
	MaxMembers         int            `gorm:"default:12" json:"max_members"`
	CurrentCycle       int            `gorm:"default:0" json:"current_cycle"`
	Status             string         `gorm:"size:12;default:'FORMING';index" json:"status"`
	CoordinatorID      uint           `gorm:"not null;index" json:"coordinator_id"`
	StartedAt          *time.Time     `json:"started_at"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
	Coordinator        User           `gorm:"foreignKey:CoordinatorID" json:"coordinator,omitempty"`
}

func (TandaGroup) TableName() string {
	return "tanda_groups"
}

// Member role within a group
const (
	MemberRoleMember      = "MEMBER"
	MemberRoleCoordinator = "COORDINATOR"
)

// Member status
const (
	MemberActive  = "ACTIVE"
	MemberRemoved = "REMOVED"
)

// GroupMember represents one participant's rotation record in a group.
// TurnLocks is stored as JSON: per-turn lock state survives reorders of
// the payout queue without a separate slots table.
type GroupMember struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	GroupID     uint                `gorm:"not null;index:idx_group_user,unique" json:"group_id"`
	UserID      uint                `gorm:"not null;index:idx_group_user,unique" json:"user_id"`
	DisplayName string              `gorm:"size:100" json:"display_name"`
	Role        string              `gorm:"size:20;default:'MEMBER'" json:"role"`
	Positions   int                 `gorm:"default:1" json:"num_positions"`
	TurnLocks   []rotation.TurnLock `gorm:"serializer:json" json:"turn_locks"`
	TurnLocked  bool                `gorm:"default:false" json:"turn_locked"`
	PayoutOrder int                 `gorm:"default:0;index" json:"payout_order"`
	Status      string              `gorm:"size:10;default:'ACTIVE';index" json:"status"`
	JoinedAt    time.Time           `gorm:"autoCreateTime" json:"joined_at"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	Group       TandaGroup          `gorm:"foreignKey:GroupID" json:"-"`
	User        User                `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

// Contribution status
const (
	ContributionPending = "PENDING"
	ContributionPaid    = "PAID"
	ContributionLate    = "LATE"
)

// Contribution represents one member's payment for one cycle. The
// composite unique index is the authoritative double-payment guard:
// concurrent writers for the same (group, member, cycle) cannot both
// insert.
type Contribution struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	GroupID   uint       `gorm:"not null;uniqueIndex:idx_contribution_member_cycle,priority:1" json:"group_id"`
	UserID    uint       `gorm:"not null;index;uniqueIndex:idx_contribution_member_cycle,priority:2" json:"user_id"`
	Cycle     int        `gorm:"not null;index;uniqueIndex:idx_contribution_member_cycle,priority:3" json:"cycle"`
	Amount    float64    `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status    string     `gorm:"size:10;default:'PENDING';index" json:"status"`
	PaidAt    *time.Time `json:"paid_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Group     TandaGroup `gorm:"foreignKey:GroupID" json:"-"`
	User      User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Contribution) TableName() string {
	return "contributions"
}

// Payout status
const (
	PayoutScheduled = "SCHEDULED"
	PayoutPaid      = "PAID"
)

// Payout represents a cycle's pooled disbursement to one member.
// One payout per (group, cycle), enforced by the unique index.
type Payout struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	GroupID     uint       `gorm:"not null;uniqueIndex:idx_payout_group_cycle,priority:1" json:"group_id"`
	Cycle       int        `gorm:"not null;uniqueIndex:idx_payout_group_cycle,priority:2" json:"cycle"`
	RecipientID uint       `gorm:"not null;index" json:"recipient_id"`
	Amount      float64    `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status      string     `gorm:"size:10;default:'SCHEDULED';index" json:"status"`
	ScheduledAt time.Time  `gorm:"not null" json:"scheduled_at"`
	PaidAt      *time.Time `json:"paid_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	Group       TandaGroup `gorm:"foreignKey:GroupID" json:"-"`
	Recipient   User       `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}

func (Payout) TableName() string {
	return "payouts"
}

// Wallet transaction types
const (
	TxDeposit      = "DEPOSIT"
	TxContribution = "CONTRIBUTION"
	TxPayout       = "PAYOUT"
	TxRefund       = "REFUND"
)

// WalletTransaction is one entry in a user's wallet ledger.
// BalanceAfter is the running balance, so the current balance is the
// latest row's value. Seq is a per-user sequence assigned on append;
// the unique (user_id, seq) index rejects a writer that read a stale
// tail, so two concurrent appends can never fork the running balance.
type WalletTransaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index;uniqueIndex:idx_wallet_user_seq,priority:1" json:"user_id"`
	Seq          int       `gorm:"not null;uniqueIndex:idx_wallet_user_seq,priority:2" json:"seq"`
	GroupID      *uint     `gorm:"index" json:"group_id,omitempty"`
	Type         string    `gorm:"size:15;not null" json:"type"`
	Amount       float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	BalanceAfter float64   `gorm:"type:decimal(12,2);not null" json:"balance_after"`
	Reference    string    `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	Description  string    `gorm:"size:255" json:"description"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	User         User      `gorm:"foreignKey:UserID" json:"-"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

// ============================================================
// Security Tables
// ============================================================

// SecurityEvent is the audit record persisted when a request scores at
// or above the flag threshold. Writes are best-effort: a failed insert
// never blocks the request path.
type SecurityEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Identity    string    `gorm:"size:64;index" json:"identity"`
	IPAddress   string    `gorm:"size:45" json:"ip_address"`
	UserAgent   string    `gorm:"size:255" json:"user_agent"`
	Endpoint    string    `gorm:"size:255" json:"endpoint"`
	Method      string    `gorm:"size:10" json:"method"`
	RiskScore   int       `gorm:"not null;index" json:"risk_score"`
	Reason      string    `gorm:"size:255" json:"reason"`
	DeviceType  string    `gorm:"size:10" json:"device_type"`
	Fingerprint string    `gorm:"size:16;index" json:"fingerprint"`
	Blocked     bool      `gorm:"default:false" json:"blocked"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (SecurityEvent) TableName() string {
	return "security_events"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Auth
		&User{},
		&RefreshToken{},
		// Tanda
		&TandaGroup{},
		&GroupMember{},
		&Contribution{},
		&Payout{},
		&WalletTransaction{},
		// Security
		&SecurityEvent{},
	)
}
