package rotation

// ============================================================
// Payout rotation: expand members into editable slots and
// collapse an edited slot sequence back into member records.
// All functions are pure; callers own the input and the result.
// ============================================================

// TurnLock records the lock state of one of a member's payout turns.
type TurnLock struct {
	Slot       int  `json:"slot"`
	TurnNumber int  `json:"turn_number"`
	Locked     bool `json:"locked"`
}

// Member is the canonical per-member rotation record.
type Member struct {
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Role        string     `json:"role"`
	Positions   int        `json:"num_positions"`
	TurnLocks   []TurnLock `json:"turn_locks,omitempty"`
	TurnLocked  bool       `json:"turn_locked"`
}

// Slot is one payout position, materialized from a Member for editing.
// Slots are never stored; an edited sequence is always collapsed back
// into Members before persistence.
type Slot struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Role        string  `json:"role"`
	SlotIndex   int     `json:"slot_index"`
	SlotCount   int     `json:"slot_count"`
	Locked      bool    `json:"locked"`
	Source      *Member `json:"-"`
}

// Expand materializes the member list into a flat slot sequence,
// one slot per requested position, in member order.
// Non-positive position counts are clamped to 1, never rejected.
func Expand(members []Member) []Slot {
	slots := make([]Slot, 0, len(members))
	for i := range members {
		m := &members[i]
		count := m.Positions
		if count < 1 {
			count = 1
		}
		for idx := 0; idx < count; idx++ {
			locked := false
			if idx < len(m.TurnLocks) {
				locked = m.TurnLocks[idx].Locked
			}
			slots = append(slots, Slot{
				UserID:      m.UserID,
				DisplayName: m.DisplayName,
				Role:        m.Role,
				SlotIndex:   idx,
				SlotCount:   count,
				Locked:      locked,
				Source:      m,
			})
		}
	}
	return slots
}

// Collapse folds an (possibly reordered) slot sequence back into member
// records. Members come out in order of first appearance of their user ID
// in the slot sequence — NOT the original member-list order — so that
// dragging a member's first slot earlier re-ranks the whole member.
// A member's TurnLocked flag is the OR of its slots' lock flags.
func Collapse(slots []Slot) []Member {
	// members is appended in first-appearance order; index maps a user ID
	// to its rank so later slots fold into the right record.
	index := make(map[string]int, len(slots))
	members := make([]Member, 0, len(slots))

	for i := range slots {
		s := &slots[i]
		pos, seen := index[s.UserID]
		if !seen {
			pos = len(members)
			index[s.UserID] = pos

			m := Member{
				UserID:      s.UserID,
				DisplayName: s.DisplayName,
				Role:        s.Role,
			}
			if s.Source != nil {
				m.DisplayName = s.Source.DisplayName
				m.Role = s.Source.Role
			}
			members = append(members, m)
		}

		m := &members[pos]
		m.TurnLocks = append(m.TurnLocks, TurnLock{
			Slot:       m.Positions,
			TurnNumber: i + 1,
			Locked:     s.Locked,
		})
		m.Positions++
		if s.Locked {
			m.TurnLocked = true
		}
	}

	return members
}

// AddSlot appends one unlocked slot for the given user, placed right after
// that user's current last slot by array position. Silently returns the
// input unchanged when the user holds no slot — the member is not part of
// the rotation being edited.
func AddSlot(slots []Slot, userID string) []Slot {
	last := -1
	oldCount := 0
	for i := range slots {
		if slots[i].UserID == userID {
			last = i
			oldCount++
		}
	}
	if last < 0 {
		return slots
	}

	template := slots[last]
	added := Slot{
		UserID:      userID,
		DisplayName: template.DisplayName,
		Role:        template.Role,
		SlotIndex:   oldCount,
		SlotCount:   oldCount + 1,
		Locked:      false,
		Source:      template.Source,
	}

	out := make([]Slot, 0, len(slots)+1)
	out = append(out, slots[:last+1]...)
	out = append(out, added)
	out = append(out, slots[last+1:]...)

	for i := range out {
		if out[i].UserID == userID {
			out[i].SlotCount = oldCount + 1
		}
	}
	return out
}

// RemoveSlot removes the user's slot with the given slot index and
// renumbers the remaining slots contiguously from 0 by array order.
// A member keeps at least one slot while present in the rotation:
// removing the last slot is a no-op (use RemoveMember instead).
func RemoveSlot(slots []Slot, userID string, slotIndex int) []Slot {
	count := 0
	target := -1
	for i := range slots {
		if slots[i].UserID != userID {
			continue
		}
		count++
		if slots[i].SlotIndex == slotIndex {
			target = i
		}
	}
	if count <= 1 || target < 0 {
		return slots
	}

	out := make([]Slot, 0, len(slots)-1)
	out = append(out, slots[:target]...)
	out = append(out, slots[target+1:]...)

	next := 0
	for i := range out {
		if out[i].UserID == userID {
			out[i].SlotIndex = next
			out[i].SlotCount = count - 1
			next++
		}
	}
	return out
}

// RemoveMember drops every slot belonging to the user. This affects the
// payout queue; confirming intent is the caller's responsibility.
func RemoveMember(slots []Slot, userID string) []Slot {
	out := make([]Slot, 0, len(slots))
	for i := range slots {
		if slots[i].UserID != userID {
			out = append(out, slots[i])
		}
	}
	return out
}
