package services

import (
	"context"
	"time"

	"latanda-core/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// DashboardService aggregates cross-table statistics. Reads only, raw
// queries over the live schema instead of repository round-trips.
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// ============================================================
// Admin Dashboard
// ============================================================

// AdminDashboardData represents admin dashboard data
type AdminDashboardData struct {
	// User statistics
	TotalUsers    int64 `json:"total_users"`
	VerifiedUsers int64 `json:"verified_users"`
	PendingKYC    int64 `json:"pending_kyc"`

	// Group statistics
	TotalGroups     int64 `json:"total_groups"`
	FormingGroups   int64 `json:"forming_groups"`
	ActiveGroups    int64 `json:"active_groups"`
	CompletedGroups int64 `json:"completed_groups"`

	// Money flow
	ContributionsThisMonth float64 `json:"contributions_this_month"`
	PayoutsThisMonth       float64 `json:"payouts_this_month"`
	WalletFloat            float64 `json:"wallet_float"`

	// Security (last 24h)
	FlaggedRequests int64 `json:"flagged_requests"`
	BlockedRequests int64 `json:"blocked_requests"`

	// Largest groups
	TopGroups []GroupSummary `json:"top_groups"`
}

// GroupSummary represents a group in dashboard listings
type GroupSummary struct {
	ID           uint    `json:"id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	CurrentCycle int     `json:"current_cycle"`
	MemberCount  int64   `json:"member_count"`
	PoolPerCycle float64 `json:"pool_per_cycle"`
}

// GetAdminDashboard returns admin dashboard data
func (s *DashboardService) GetAdminDashboard(ctx context.Context) (*AdminDashboardData, error) {
	data := &AdminDashboardData{}

	// User counts
	s.db.WithContext(ctx).Table("users").Where("deleted_at IS NULL").Count(&data.TotalUsers)
	s.db.WithContext(ctx).Table("users").Where("kyc_status = ? AND deleted_at IS NULL", models.KYCVerified).Count(&data.VerifiedUsers)
	s.db.WithContext(ctx).Table("users").Where("kyc_status = ? AND deleted_at IS NULL", models.KYCPending).Count(&data.PendingKYC)

	// Group counts by status
	s.db.WithContext(ctx).Table("tanda_groups").Where("deleted_at IS NULL").Count(&data.TotalGroups)
	s.db.WithContext(ctx).Table("tanda_groups").Where("status = ? AND deleted_at IS NULL", models.GroupForming).Count(&data.FormingGroups)
	s.db.WithContext(ctx).Table("tanda_groups").Where("status = ? AND deleted_at IS NULL", models.GroupActive).Count(&data.ActiveGroups)
	s.db.WithContext(ctx).Table("tanda_groups").Where("status = ? AND deleted_at IS NULL", models.GroupCompleted).Count(&data.CompletedGroups)

	// This month money flow
	startOfMonth := time.Now().AddDate(0, 0, -time.Now().Day()+1).Truncate(24 * time.Hour)
	s.db.WithContext(ctx).Table("contributions").
		Where("status = ? AND paid_at >= ?", models.ContributionPaid, startOfMonth).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.ContributionsThisMonth)

	s.db.WithContext(ctx).Table("payouts").
		Where("status = ? AND paid_at >= ?", models.PayoutPaid, startOfMonth).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.PayoutsThisMonth)

	// Float is the sum of every ledger delta across all wallets
	s.db.WithContext(ctx).Table("wallet_transactions").
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.WalletFloat)

	// Security events, last 24 hours
	dayAgo := time.Now().Add(-24 * time.Hour)
	s.db.WithContext(ctx).Table("security_events").
		Where("created_at >= ?", dayAgo).
		Count(&data.FlaggedRequests)
	s.db.WithContext(ctx).Table("security_events").
		Where("created_at >= ? AND blocked = ?", dayAgo, true).
		Count(&data.BlockedRequests)

	// Largest groups by active membership
	var topGroups []struct {
		ID           uint
		Code         string
		Name         string
		Status       string
		CurrentCycle int
		MemberCount  int64
		PoolPerCycle float64
	}
	s.db.WithContext(ctx).Table("tanda_groups").
		Select(`
			tanda_groups.id,
			tanda_groups.code,
			tanda_groups.name,
			tanda_groups.status,
			tanda_groups.current_cycle,
			COUNT(group_members.id) as member_count,
			tanda_groups.contribution_amount * COUNT(group_members.id) as pool_per_cycle
		`).
		Joins("LEFT JOIN group_members ON group_members.group_id = tanda_groups.id AND group_members.status = ?", models.MemberActive).
		Where("tanda_groups.deleted_at IS NULL").
		Group("tanda_groups.id, tanda_groups.code, tanda_groups.name, tanda_groups.status, tanda_groups.current_cycle, tanda_groups.contribution_amount").
		Order("member_count DESC").
		Limit(5).
		Scan(&topGroups)

	data.TopGroups = make([]GroupSummary, len(topGroups))
	for i, g := range topGroups {
		data.TopGroups[i] = GroupSummary{
			ID:           g.ID,
			Code:         g.Code,
			Name:         g.Name,
			Status:       g.Status,
			CurrentCycle: g.CurrentCycle,
			MemberCount:  g.MemberCount,
			PoolPerCycle: g.PoolPerCycle,
		}
	}

	return data, nil
}

// ============================================================
// Member Dashboard
// ============================================================

// MemberDashboardData represents a member's dashboard data
type MemberDashboardData struct {
	// Wallet
	WalletBalance float64 `json:"wallet_balance"`

	// My groups
	TotalGroups  int64             `json:"total_groups"`
	ActiveGroups []MemberGroupInfo `json:"active_groups"`

	// Money history
	TotalContributed float64 `json:"total_contributed"`
	TotalReceived    float64 `json:"total_received"`
}

// MemberGroupInfo represents one of the member's groups with cycle state
type MemberGroupInfo struct {
	ID                 uint    `json:"id"`
	Code               string  `json:"code"`
	Name               string  `json:"name"`
	Status             string  `json:"status"`
	CurrentCycle       int     `json:"current_cycle"`
	ContributionAmount float64 `json:"contribution_amount"`
	Currency           string  `json:"currency"`
	PayoutOrder        int     `json:"payout_order"`
	CyclePaid          bool    `json:"cycle_paid"`
}

// GetMemberDashboard returns a member's dashboard data
func (s *DashboardService) GetMemberDashboard(ctx context.Context, userID uint) (*MemberDashboardData, error) {
	data := &MemberDashboardData{}

	// Current balance from the latest ledger entry
	s.db.WithContext(ctx).Table("wallet_transactions").
		Where("user_id = ?", userID).
		Order("seq DESC").
		Limit(1).
		Select("COALESCE(balance_after, 0)").
		Scan(&data.WalletBalance)

	// Group membership count
	s.db.WithContext(ctx).Table("group_members").
		Where("user_id = ? AND status = ?", userID, models.MemberActive).
		Count(&data.TotalGroups)

	// Lifetime totals
	s.db.WithContext(ctx).Table("contributions").
		Where("user_id = ? AND status = ?", userID, models.ContributionPaid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.TotalContributed)

	s.db.WithContext(ctx).Table("payouts").
		Where("recipient_id = ? AND status = ?", userID, models.PayoutPaid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.TotalReceived)

	// Active groups with the member's cycle state
	var groups []struct {
		ID                 uint
		Code               string
		Name               string
		Status             string
		CurrentCycle       int
		ContributionAmount float64
		Currency           string
		PayoutOrder        int
		CyclePaid          int64
	}
	s.db.WithContext(ctx).Table("tanda_groups").
		Select(`
			tanda_groups.id,
			tanda_groups.code,
			tanda_groups.name,
			tanda_groups.status,
			tanda_groups.current_cycle,
			tanda_groups.contribution_amount,
			tanda_groups.currency,
			group_members.payout_order,
			(SELECT COUNT(*) FROM contributions
				WHERE contributions.group_id = tanda_groups.id
				AND contributions.user_id = group_members.user_id
				AND contributions.cycle = tanda_groups.current_cycle
				AND contributions.status = 'PAID') as cycle_paid
		`).
		Joins("JOIN group_members ON group_members.group_id = tanda_groups.id").
		Where("group_members.user_id = ? AND group_members.status = ? AND tanda_groups.status = ? AND tanda_groups.deleted_at IS NULL",
			userID, models.MemberActive, models.GroupActive).
		Order("tanda_groups.created_at DESC").
		Scan(&groups)

	data.ActiveGroups = make([]MemberGroupInfo, len(groups))
	for i, g := range groups {
		data.ActiveGroups[i] = MemberGroupInfo{
			ID:                 g.ID,
			Code:               g.Code,
			Name:               g.Name,
			Status:             g.Status,
			CurrentCycle:       g.CurrentCycle,
			ContributionAmount: g.ContributionAmount,
			Currency:           g.Currency,
			PayoutOrder:        g.PayoutOrder,
			CyclePaid:          g.CyclePaid > 0,
		}
	}

	return data, nil
}
