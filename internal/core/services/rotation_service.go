package services

import (
	"context"
	"errors"
	"log"
	"strconv"

	"latanda-core/internal/adapters/persistence/models"
	"latanda-core/internal/adapters/persistence/repositories"
	"latanda-core/internal/core/rotation"
)

// Rotation errors
var (
	ErrInvalidRotation = errors.New("submitted rotation does not match the group's slots")
)

// RotationService bridges the pure rotation editor to group persistence.
// Every mutation expands the stored members into slots, applies one edit,
// collapses the result and writes it back atomically.
type RotationService struct {
	groupRepo repositories.GroupRepository
}

// NewRotationService creates a new rotation service
func NewRotationService(groupRepo repositories.GroupRepository) *RotationService {
	return &RotationService{groupRepo: groupRepo}
}

// SlotRef identifies one slot in a submitted ordering
type SlotRef struct {
	UserID    uint `json:"user_id" validate:"required"`
	SlotIndex int  `json:"slot_index"`
}

// GetRotation returns the group's payout queue as an editable slot
// sequence. Any active member can view it.
func (s *RotationService) GetRotation(ctx context.Context, groupID, actorID uint) ([]rotation.Slot, error) {
	if _, err := s.groupRepo.GetMember(ctx, groupID, actorID); err != nil {
		return nil, ErrNotGroupMember
	}
	_, slots, err := s.loadSlots(ctx, groupID)
	return slots, err
}

// Reorder replaces the whole payout queue with the submitted slot
// sequence. The submission must reference exactly the current slots;
// coordinator only.
func (s *RotationService) Reorder(ctx context.Context, groupID, actorID uint, refs []SlotRef) ([]rotation.Slot, error) {
	if err := s.requireCoordinator(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	stored, slots, err := s.loadSlots(ctx, groupID)
	if err != nil {
		return nil, err
	}

	reordered, err := applyOrdering(slots, refs)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, groupID, stored, reordered); err != nil {
		return nil, err
	}
	log.Printf("🔄 Rotation reordered for group %d by user %d", groupID, actorID)
	return reordered, nil
}

// AddSlot grants the member one extra payout turn, placed right after
// their current last turn. Coordinator only. Adding a turn for someone
// outside the rotation is a no-op.
func (s *RotationService) AddSlot(ctx context.Context, groupID, actorID, targetUserID uint) ([]rotation.Slot, error) {
	return s.edit(ctx, groupID, actorID, func(slots []rotation.Slot) []rotation.Slot {
		return rotation.AddSlot(slots, rotationID(targetUserID))
	})
}

// RemoveSlot takes away one of the member's payout turns. The member's
// last remaining turn cannot be removed this way. Coordinator only.
func (s *RotationService) RemoveSlot(ctx context.Context, groupID, actorID, targetUserID uint, slotIndex int) ([]rotation.Slot, error) {
	return s.edit(ctx, groupID, actorID, func(slots []rotation.Slot) []rotation.Slot {
		return rotation.RemoveSlot(slots, rotationID(targetUserID), slotIndex)
	})
}

// SetSlotLock marks one of the member's turns as locked or unlocked.
// Locked turns are flagged in the editor so reorders keep them visible.
func (s *RotationService) SetSlotLock(ctx context.Context, groupID, actorID, targetUserID uint, slotIndex int, locked bool) ([]rotation.Slot, error) {
	return s.edit(ctx, groupID, actorID, func(slots []rotation.Slot) []rotation.Slot {
		id := rotationID(targetUserID)
		out := make([]rotation.Slot, len(slots))
		copy(out, slots)
		for i := range out {
			if out[i].UserID == id && out[i].SlotIndex == slotIndex {
				out[i].Locked = locked
			}
		}
		return out
	})
}

// RemoveMember drops the member from the rotation entirely and marks the
// membership record removed. Coordinator only.
func (s *RotationService) RemoveMember(ctx context.Context, groupID, actorID, targetUserID uint) ([]rotation.Slot, error) {
	slots, err := s.edit(ctx, groupID, actorID, func(slots []rotation.Slot) []rotation.Slot {
		return rotation.RemoveMember(slots, rotationID(targetUserID))
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🚪 User %d removed from rotation of group %d by user %d", targetUserID, groupID, actorID)
	return slots, nil
}

// edit runs one slot-level edit under the coordinator check and persists
// the collapsed result.
func (s *RotationService) edit(ctx context.Context, groupID, actorID uint, fn func([]rotation.Slot) []rotation.Slot) ([]rotation.Slot, error) {
	if err := s.requireCoordinator(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	stored, slots, err := s.loadSlots(ctx, groupID)
	if err != nil {
		return nil, err
	}

	edited := fn(slots)
	if err := s.persist(ctx, groupID, stored, edited); err != nil {
		return nil, err
	}
	return edited, nil
}

func (s *RotationService) requireCoordinator(ctx context.Context, groupID, actorID uint) error {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return ErrGroupNotFound
	}
	if group.CoordinatorID != actorID {
		return ErrNotCoordinator
	}
	return nil
}

// loadSlots reads the group's active members and expands them. The
// stored map keys members by their rotation ID for write-back.
func (s *RotationService) loadSlots(ctx context.Context, groupID uint) (map[string]*models.GroupMember, []rotation.Slot, error) {
	records, err := s.groupRepo.GetActiveMembers(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	stored := make(map[string]*models.GroupMember, len(records))
	members := make([]rotation.Member, 0, len(records))
	for _, rec := range records {
		id := rotationID(rec.UserID)
		stored[id] = rec
		members = append(members, rotation.Member{
			UserID:      id,
			DisplayName: rec.DisplayName,
			Role:        rec.Role,
			Positions:   rec.Positions,
			TurnLocks:   rec.TurnLocks,
			TurnLocked:  rec.TurnLocked,
		})
	}
	return stored, rotation.Expand(members), nil
}

// persist collapses the edited slots back into member records and writes
// the new ordering in one transaction. Members absent from the collapsed
// result are marked removed by the repository.
func (s *RotationService) persist(ctx context.Context, groupID uint, stored map[string]*models.GroupMember, slots []rotation.Slot) error {
	collapsed := rotation.Collapse(slots)

	updated := make([]*models.GroupMember, 0, len(collapsed))
	for _, m := range collapsed {
		rec, ok := stored[m.UserID]
		if !ok {
			// Slot for a user with no membership record; nothing to write.
			continue
		}
		rec.Positions = m.Positions
		rec.TurnLocks = m.TurnLocks
		rec.TurnLocked = m.TurnLocked
		updated = append(updated, rec)
	}

	return s.groupRepo.ReplaceRotation(ctx, groupID, updated)
}

// applyOrdering rebuilds the slot sequence in the submitted order. Every
// reference must resolve to a distinct current slot, and every current
// slot must be referenced.
func applyOrdering(slots []rotation.Slot, refs []SlotRef) ([]rotation.Slot, error) {
	if len(refs) != len(slots) {
		return nil, ErrInvalidRotation
	}

	type key struct {
		userID    string
		slotIndex int
	}
	byKey := make(map[key]*rotation.Slot, len(slots))
	for i := range slots {
		byKey[key{slots[i].UserID, slots[i].SlotIndex}] = &slots[i]
	}

	out := make([]rotation.Slot, 0, len(refs))
	for _, ref := range refs {
		k := key{rotationID(ref.UserID), ref.SlotIndex}
		slot, ok := byKey[k]
		if !ok || slot == nil {
			return nil, ErrInvalidRotation
		}
		out = append(out, *slot)
		byKey[k] = nil // each slot may be used once
	}
	return out, nil
}

// rotationID converts a numeric user ID into the editor's string key
func rotationID(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
