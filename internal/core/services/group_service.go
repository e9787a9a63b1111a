package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"latanda-core/internal/adapters/persistence/models"
	"latanda-core/internal/adapters/persistence/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Group errors
var (
	ErrGroupNotFound    = errors.New("group not found")
	ErrGroupFull        = errors.New("group is full")
	ErrGroupNotForming  = errors.New("group is not accepting members")
	ErrGroupNotActive   = errors.New("group is not active")
	ErrAlreadyMember    = errors.New("user is already a member of this group")
	ErrNotGroupMember   = errors.New("user is not a member of this group")
	ErrNotCoordinator   = errors.New("only the coordinator can perform this action")
	ErrTooFewMembers    = errors.New("group needs at least two members to start")
	ErrInvalidFrequency = errors.New("invalid contribution frequency")
)

// GroupService handles tanda group business logic
type GroupService struct {
	groupRepo repositories.GroupRepository
	userRepo  repositories.UserRepository
	notify    *NotificationService
}

// NewGroupService creates a new group service
func NewGroupService(groupRepo repositories.GroupRepository, userRepo repositories.UserRepository, notify *NotificationService) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
		notify:    notify,
	}
}

// CreateGroupInput represents group creation request
type CreateGroupInput struct {
	Name               string  `json:"name" validate:"required"`
	Description        string  `json:"description"`
	ContributionAmount float64 `json:"contribution_amount" validate:"required,gt=0"`
	Currency           string  `json:"currency"`
	Frequency          string  `json:"frequency"`
	MaxMembers         int     `json:"max_members"`
}

// CreateGroup creates a new tanda group; the creator becomes its
// coordinator and its first member.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID uint, input *CreateGroupInput) (*models.TandaGroup, error) {
	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	frequency := strings.ToUpper(input.Frequency)
	if frequency == "" {
		frequency = models.FrequencyWeekly
	}
	switch frequency {
	case models.FrequencyWeekly, models.FrequencyBiweekly, models.FrequencyMonthly:
	default:
		return nil, ErrInvalidFrequency
	}

	maxMembers := input.MaxMembers
	if maxMembers <= 0 {
		maxMembers = 12
	}

	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = "MXN"
	}

	group := &models.TandaGroup{
		Code:               generateGroupCode(),
		Name:               input.Name,
		Description:        input.Description,
		ContributionAmount: input.ContributionAmount,
		Currency:           currency,
		Frequency:          frequency,
		MaxMembers:         maxMembers,
		Status:             models.GroupForming,
		CoordinatorID:      creatorID,
	}

	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}

	member := &models.GroupMember{
		GroupID:     group.ID,
		UserID:      creatorID,
		DisplayName: displayName(creator),
		Role:        models.MemberRoleCoordinator,
		Positions:   1,
		PayoutOrder: 0,
		Status:      models.MemberActive,
	}
	if err := s.groupRepo.AddMember(ctx, member); err != nil {
		return nil, err
	}

	log.Printf("✅ Group created: %s (code: %s, coordinator: %s)", group.Name, group.Code, creator.Username)
	return group, nil
}

// JoinGroup adds a user to a forming group via its invite code
func (s *GroupService) JoinGroup(ctx context.Context, userID uint, code string) (*models.GroupMember, error) {
	group, err := s.groupRepo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	if group.Status != models.GroupForming {
		return nil, ErrGroupNotForming
	}

	if _, err := s.groupRepo.GetMember(ctx, group.ID, userID); err == nil {
		return nil, ErrAlreadyMember
	}

	count, err := s.groupRepo.CountActiveMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	if int(count) >= group.MaxMembers {
		return nil, ErrGroupFull
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	member := &models.GroupMember{
		GroupID:     group.ID,
		UserID:      userID,
		DisplayName: displayName(user),
		Role:        models.MemberRoleMember,
		Positions:   1,
		PayoutOrder: int(count), // joins at the back of the rotation
		Status:      models.MemberActive,
	}
	if err := s.groupRepo.AddMember(ctx, member); err != nil {
		return nil, err
	}

	log.Printf("✅ %s joined group %s", user.Username, group.Code)
	if s.notify != nil {
		s.notify.NotifyMemberJoined(group.Code, member.DisplayName)
	}
	return member, nil
}

// StartGroup activates a forming group and freezes its initial payout
// ordering. Only the coordinator can start a group.
func (s *GroupService) StartGroup(ctx context.Context, groupID, actorID uint) (*models.TandaGroup, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.CoordinatorID != actorID {
		return nil, ErrNotCoordinator
	}
	if group.Status != models.GroupForming {
		return nil, ErrGroupNotForming
	}

	count, err := s.groupRepo.CountActiveMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if count < 2 {
		return nil, ErrTooFewMembers
	}

	now := time.Now()
	group.Status = models.GroupActive
	group.CurrentCycle = 1
	group.StartedAt = &now
	if err := s.groupRepo.Update(ctx, group); err != nil {
		return nil, err
	}

	log.Printf("✅ Group %s started with %d members", group.Code, count)
	return group, nil
}

// GetGroup returns a group with its active members
func (s *GroupService) GetGroup(ctx context.Context, groupID uint) (*models.TandaGroup, []*models.GroupMember, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.groupRepo.GetActiveMembers(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	return group, members, nil
}

// ListUserGroups lists the groups the user belongs to
func (s *GroupService) ListUserGroups(ctx context.Context, userID uint) ([]*models.TandaGroup, error) {
	return s.groupRepo.ListByUser(ctx, userID)
}

func (s *GroupService) getGroup(ctx context.Context, groupID uint) (*models.TandaGroup, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return group, nil
}

// generateGroupCode returns a short uppercase invite code
func generateGroupCode() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "LT-" + id[:8]
}

// displayName prefers the full name and falls back to the username
func displayName(user *models.User) string {
	if user.FullName != "" {
		return user.FullName
	}
	return user.Username
}
