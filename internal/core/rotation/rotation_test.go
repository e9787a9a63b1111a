package rotation

import "testing"

func twoMembers() []Member {
	return []Member{
		{
			UserID:      "u-ana",
			DisplayName: "Ana",
			Role:        "COORDINATOR",
			Positions:   2,
			TurnLocks: []TurnLock{
				{Slot: 0, TurnNumber: 1, Locked: true},
				{Slot: 1, TurnNumber: 2, Locked: false},
			},
			TurnLocked: true,
		},
		{
			UserID:      "u-beto",
			DisplayName: "Beto",
			Role:        "MEMBER",
			Positions:   1,
		},
	}
}

func TestExpand_SlotPerPosition(t *testing.T) {
	slots := Expand(twoMembers())

	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}

	expected := []struct {
		userID string
		index  int
		count  int
		locked bool
	}{
		{"u-ana", 0, 2, true},
		{"u-ana", 1, 2, false},
		{"u-beto", 0, 1, false},
	}
	for i, want := range expected {
		got := slots[i]
		if got.UserID != want.userID || got.SlotIndex != want.index ||
			got.SlotCount != want.count || got.Locked != want.locked {
			t.Errorf("slot %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestExpand_ClampsInvalidPositions(t *testing.T) {
	for _, positions := range []int{0, -3} {
		slots := Expand([]Member{{UserID: "u-x", Positions: positions}})
		if len(slots) != 1 {
			t.Errorf("positions=%d: expected 1 slot, got %d", positions, len(slots))
		}
	}
}

func TestCollapse_RoundTrip(t *testing.T) {
	members := twoMembers()
	out := Collapse(Expand(members))

	if len(out) != len(members) {
		t.Fatalf("expected %d members, got %d", len(members), len(out))
	}
	for i, want := range members {
		got := out[i]
		if got.UserID != want.UserID {
			t.Errorf("member %d: got user %s, want %s", i, got.UserID, want.UserID)
		}
		if got.Positions != want.Positions {
			t.Errorf("member %s: got %d positions, want %d", got.UserID, got.Positions, want.Positions)
		}
		if got.TurnLocked != want.TurnLocked {
			t.Errorf("member %s: got turn_locked=%v, want %v", got.UserID, got.TurnLocked, want.TurnLocked)
		}
		if got.DisplayName != want.DisplayName || got.Role != want.Role {
			t.Errorf("member %s: metadata not preserved: %+v", got.UserID, got)
		}
	}
}

func TestCollapse_OrderByFirstAppearance(t *testing.T) {
	// [A0, A1, B0] with B0 dragged between the two A slots: A stays first
	// because its first slot still leads, and per-member counts survive.
	slots := Expand(twoMembers())
	reordered := []Slot{slots[0], slots[2], slots[1]}

	out := Collapse(reordered)
	if len(out) != 2 {
		t.Fatalf("expected 2 members, got %d", len(out))
	}
	if out[0].UserID != "u-ana" || out[1].UserID != "u-beto" {
		t.Fatalf("expected order [u-ana u-beto], got [%s %s]", out[0].UserID, out[1].UserID)
	}
	if out[0].Positions != 2 || out[1].Positions != 1 {
		t.Errorf("positions not preserved: ana=%d beto=%d", out[0].Positions, out[1].Positions)
	}

	// Dragging B0 to the front re-ranks B first.
	front := []Slot{slots[2], slots[0], slots[1]}
	out = Collapse(front)
	if out[0].UserID != "u-beto" {
		t.Errorf("expected u-beto first after reorder, got %s", out[0].UserID)
	}
}

func TestCollapse_TurnNumbersFollowSequence(t *testing.T) {
	slots := Expand(twoMembers())
	out := Collapse(slots)

	ana := out[0]
	if len(ana.TurnLocks) != 2 {
		t.Fatalf("expected 2 turn locks for ana, got %d", len(ana.TurnLocks))
	}
	if ana.TurnLocks[0].TurnNumber != 1 || ana.TurnLocks[1].TurnNumber != 2 {
		t.Errorf("unexpected turn numbers: %+v", ana.TurnLocks)
	}
	if ana.TurnLocks[0].Slot != 0 || ana.TurnLocks[1].Slot != 1 {
		t.Errorf("unexpected slot numbering: %+v", ana.TurnLocks)
	}

	beto := out[1]
	if beto.TurnLocks[0].TurnNumber != 3 {
		t.Errorf("expected beto turn_number 3, got %d", beto.TurnLocks[0].TurnNumber)
	}
}

func TestAddSlot_InsertsAfterLastSlot(t *testing.T) {
	slots := Expand(twoMembers())
	out := AddSlot(slots, "u-ana")

	if len(out) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(out))
	}
	added := out[2] // right after ana's last slot, before beto
	if added.UserID != "u-ana" || added.SlotIndex != 2 || added.Locked {
		t.Errorf("unexpected added slot: %+v", added)
	}
	for _, s := range out {
		if s.UserID == "u-ana" && s.SlotCount != 3 {
			t.Errorf("slot count not updated on %+v", s)
		}
	}
}

func TestAddSlot_UnknownUserIsNoop(t *testing.T) {
	slots := Expand(twoMembers())
	out := AddSlot(slots, "u-ghost")
	if len(out) != len(slots) {
		t.Errorf("expected no-op, got %d slots", len(out))
	}
}

func TestRemoveSlot_FloorOfOne(t *testing.T) {
	slots := Expand(twoMembers())
	out := RemoveSlot(slots, "u-beto", 0)
	if len(out) != len(slots) {
		t.Errorf("removing a member's only slot must be a no-op, got %d slots", len(out))
	}
}

func TestRemoveSlot_Renumbers(t *testing.T) {
	slots := Expand(twoMembers())
	out := RemoveSlot(slots, "u-ana", 0)

	if len(out) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(out))
	}
	remaining := out[0]
	if remaining.UserID != "u-ana" || remaining.SlotIndex != 0 || remaining.SlotCount != 1 {
		t.Errorf("unexpected remaining slot: %+v", remaining)
	}
}

func TestRemoveSlot_UnknownIndexIsNoop(t *testing.T) {
	slots := Expand(twoMembers())
	out := RemoveSlot(slots, "u-ana", 7)
	if len(out) != len(slots) {
		t.Errorf("expected no-op for unknown index, got %d slots", len(out))
	}
}

func TestAddRemoveSymmetry(t *testing.T) {
	slots := Expand(twoMembers())
	added := AddSlot(slots, "u-ana")
	restored := RemoveSlot(added, "u-ana", 2)

	if len(restored) != len(slots) {
		t.Fatalf("expected %d slots after add+remove, got %d", len(slots), len(restored))
	}
	for i := range slots {
		a, b := slots[i], restored[i]
		if a.UserID != b.UserID || a.SlotIndex != b.SlotIndex || a.SlotCount != b.SlotCount || a.Locked != b.Locked {
			t.Errorf("slot %d diverged: %+v vs %+v", i, a, b)
		}
	}
}

func TestRemoveMember_DropsAllSlots(t *testing.T) {
	slots := Expand(twoMembers())
	out := RemoveMember(slots, "u-ana")

	if len(out) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(out))
	}
	if out[0].UserID != "u-beto" {
		t.Errorf("expected only u-beto, got %s", out[0].UserID)
	}

	// Collapsing a sequence without the member drops it entirely.
	members := Collapse(out)
	if len(members) != 1 || members[0].UserID != "u-beto" {
		t.Errorf("unexpected collapsed members: %+v", members)
	}
}

func TestExpand_DoesNotMutateInput(t *testing.T) {
	members := twoMembers()
	_ = AddSlot(Expand(members), "u-ana")
	if members[0].Positions != 2 || members[1].Positions != 1 {
		t.Errorf("input members mutated: %+v", members)
	}
}
