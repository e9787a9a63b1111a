package repositories

import (
	"context"

	"latanda-core/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// groupRepository implements GroupRepository interface
type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

// ============================================================
// Group Queries
// ============================================================

// Create creates a new tanda group
func (r *groupRepository) Create(ctx context.Context, group *models.TandaGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

// GetByID gets a group by ID
func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.TandaGroup, error) {
	var group models.TandaGroup
	err := r.db.WithContext(ctx).First(&group, id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetByCode gets a group by its invite code
func (r *groupRepository) GetByCode(ctx context.Context, code string) (*models.TandaGroup, error) {
	var group models.TandaGroup
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Update updates a group
func (r *groupRepository) Update(ctx context.Context, group *models.TandaGroup) error {
	return r.db.WithContext(ctx).Save(group).Error
}

// ListByUser lists all groups where the user is an active member
func (r *groupRepository) ListByUser(ctx context.Context, userID uint) ([]*models.TandaGroup, error) {
	var groups []*models.TandaGroup
	err := r.db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.group_id = tanda_groups.id").
		Where("group_members.user_id = ? AND group_members.status = ?", userID, models.MemberActive).
		Order("tanda_groups.created_at DESC").
		Find(&groups).Error
	return groups, err
}

// ListActive lists all groups with a running rotation
func (r *groupRepository) ListActive(ctx context.Context) ([]*models.TandaGroup, error) {
	var groups []*models.TandaGroup
	err := r.db.WithContext(ctx).
		Where("status = ?", models.GroupActive).
		Order("id ASC").
		Find(&groups).Error
	return groups, err
}

// ============================================================
// Membership Queries
// ============================================================

// AddMember adds a member to a group
func (r *groupRepository) AddMember(ctx context.Context, member *models.GroupMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// GetMember gets a group member by group and user
func (r *groupRepository) GetMember(ctx context.Context, groupID, userID uint) (*models.GroupMember, error) {
	var member models.GroupMember
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, models.MemberActive).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetActiveMembers returns active members ordered by payout rank
func (r *groupRepository) GetActiveMembers(ctx context.Context, groupID uint) ([]*models.GroupMember, error) {
	var members []*models.GroupMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ? AND status = ?", groupID, models.MemberActive).
		Order("payout_order ASC").
		Find(&members).Error
	return members, err
}

// CountActiveMembers counts active members of a group
func (r *groupRepository) CountActiveMembers(ctx context.Context, groupID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ? AND status = ?", groupID, models.MemberActive).
		Count(&count).Error
	return count, err
}

// ReplaceRotation persists a recomputed payout ordering in one transaction.
// Members present in the new ordering get their rank, position count and
// turn locks updated; active members absent from it are marked removed.
func (r *groupRepository) ReplaceRotation(ctx context.Context, groupID uint, members []*models.GroupMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kept := make([]uint, 0, len(members))
		for rank, m := range members {
			kept = append(kept, m.UserID)
			// Select forces zero values (rank 0, unlocked) to be written
			// and keeps the JSON serializer on turn_locks in play.
			err := tx.Model(&models.GroupMember{}).
				Where("group_id = ? AND user_id = ? AND status = ?", groupID, m.UserID, models.MemberActive).
				Select("payout_order", "positions", "turn_locks", "turn_locked").
				Updates(models.GroupMember{
					PayoutOrder: rank,
					Positions:   m.Positions,
					TurnLocks:   m.TurnLocks,
					TurnLocked:  m.TurnLocked,
				}).Error
			if err != nil {
				return err
			}
		}

		q := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND status = ?", groupID, models.MemberActive)
		if len(kept) > 0 {
			q = q.Where("user_id NOT IN ?", kept)
		}
		return q.Update("status", models.MemberRemoved).Error
	})
}
