package services

import (
	"context"
	"errors"
	"log"
	"time"

	"latanda-core/internal/adapters/persistence/models"
	"latanda-core/internal/adapters/persistence/repositories"
	"latanda-core/internal/core/rotation"

	"gorm.io/gorm"
)

// Payout errors
var (
	ErrCycleNotFunded  = errors.New("cycle is not fully funded yet")
	ErrPayoutDone      = errors.New("payout for this cycle is already paid")
	ErrNoRecipient     = errors.New("no recipient slot for this cycle")
	ErrRotationDrained = errors.New("rotation has no remaining cycles")
)

// PayoutService disburses each cycle's pool to the member whose payout
// turn it is, then advances the group to the next cycle. The recipient
// of cycle N is the Nth slot of the expanded rotation, so members with
// extra positions collect more than once.
type PayoutService struct {
	groupRepo   repositories.GroupRepository
	contribRepo repositories.ContributionRepository
	notify      *NotificationService
}

// NewPayoutService creates a new payout service
func NewPayoutService(
	groupRepo repositories.GroupRepository,
	contribRepo repositories.ContributionRepository,
	notify *NotificationService,
) *PayoutService {
	return &PayoutService{
		groupRepo:   groupRepo,
		contribRepo: contribRepo,
		notify:      notify,
	}
}

// ProcessDuePayouts walks every active group and pays out each cycle
// whose contributions are complete. Called from the scheduler; safe to
// run repeatedly.
func (s *PayoutService) ProcessDuePayouts(ctx context.Context) (int, error) {
	groups, err := s.groupRepo.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	paid := 0
	for _, group := range groups {
		if err := s.ProcessGroupPayout(ctx, group.ID); err != nil {
			switch {
			case errors.Is(err, ErrCycleNotFunded), errors.Is(err, ErrPayoutDone):
				// Not due yet; keep walking.
			default:
				log.Printf("❌ Payout failed for group %s: %v", group.Code, err)
			}
			continue
		}
		paid++
	}
	return paid, nil
}

// ProcessGroupPayout pays out the group's current cycle if every active
// member has contributed, then advances the cycle. Completing the last
// cycle completes the group.
func (s *PayoutService) ProcessGroupPayout(ctx context.Context, groupID uint) error {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return ErrGroupNotFound
	}
	if group.Status != models.GroupActive {
		return ErrGroupNotActive
	}

	members, err := s.groupRepo.GetActiveMembers(ctx, groupID)
	if err != nil {
		return err
	}

	slots := expandStored(members)
	if group.CurrentCycle < 1 || group.CurrentCycle > len(slots) {
		return ErrRotationDrained
	}

	paidCount, err := s.contribRepo.CountPaid(ctx, groupID, group.CurrentCycle)
	if err != nil {
		return err
	}
	if paidCount < int64(len(members)) {
		return ErrCycleNotFunded
	}

	if existing, err := s.contribRepo.GetPayout(ctx, groupID, group.CurrentCycle); err == nil && existing.Status == models.PayoutPaid {
		return ErrPayoutDone
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	recipient := recipientForCycle(members, slots, group.CurrentCycle)
	if recipient == nil {
		return ErrNoRecipient
	}

	amount := group.ContributionAmount * float64(len(members))

	// Disbursement record and wallet credit commit together. The unique
	// (group, cycle) payout index makes a concurrent sweep of the same
	// cycle fail its insert and roll back cleanly.
	err = retryLedger(func() error {
		return s.contribRepo.WithTx(ctx, func(repo repositories.ContributionRepository) error {
			now := time.Now()
			payout := &models.Payout{
				GroupID:     groupID,
				Cycle:       group.CurrentCycle,
				RecipientID: recipient.UserID,
				Amount:      amount,
				Status:      models.PayoutPaid,
				ScheduledAt: now,
				PaidAt:      &now,
			}
			if err := repo.CreatePayout(ctx, payout); err != nil {
				if errors.Is(err, repositories.ErrDuplicate) {
					return ErrPayoutDone
				}
				return err
			}

			gid := groupID
			_, err := appendLedger(ctx, repo, recipient.UserID, &gid, models.TxPayout, amount)
			return err
		})
	})
	if err != nil {
		return err
	}

	log.Printf("💸 Payout: group %s cycle %d → %s (%.2f %s)",
		group.Code, group.CurrentCycle, recipient.DisplayName, amount, group.Currency)
	if s.notify != nil {
		s.notify.NotifyPayoutSent(group.Code, group.CurrentCycle, recipient.DisplayName, amount, group.Currency)
	}

	if group.CurrentCycle >= len(slots) {
		group.Status = models.GroupCompleted
		log.Printf("🏁 Group %s completed after %d cycles", group.Code, group.CurrentCycle)
		if s.notify != nil {
			s.notify.NotifyGroupCompleted(group.Code)
		}
	} else {
		group.CurrentCycle++
	}
	return s.groupRepo.Update(ctx, group)
}

// ListPayouts returns the group's payout history for its members
func (s *PayoutService) ListPayouts(ctx context.Context, groupID, actorID uint) ([]*models.Payout, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		return nil, ErrGroupNotFound
	}
	if _, err := s.groupRepo.GetMember(ctx, groupID, actorID); err != nil {
		return nil, ErrNotGroupMember
	}
	return s.contribRepo.ListPayouts(ctx, groupID)
}

// expandStored converts stored member records into the rotation editor's
// slot sequence, preserving payout_order ranking.
func expandStored(records []*models.GroupMember) []rotation.Slot {
	members := make([]rotation.Member, 0, len(records))
	for _, rec := range records {
		members = append(members, rotation.Member{
			UserID:      rotationID(rec.UserID),
			DisplayName: rec.DisplayName,
			Role:        rec.Role,
			Positions:   rec.Positions,
			TurnLocks:   rec.TurnLocks,
			TurnLocked:  rec.TurnLocked,
		})
	}
	return rotation.Expand(members)
}

// recipientForCycle resolves cycle N to the stored member behind slot N-1
func recipientForCycle(records []*models.GroupMember, slots []rotation.Slot, cycle int) *models.GroupMember {
	if cycle < 1 || cycle > len(slots) {
		return nil
	}
	want := slots[cycle-1].UserID
	for _, rec := range records {
		if rotationID(rec.UserID) == want {
			return rec
		}
	}
	return nil
}
