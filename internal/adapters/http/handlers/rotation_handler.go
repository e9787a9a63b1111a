package handlers

import (
	"errors"
	"strconv"

	"latanda-core/internal/core/services"
	"latanda-core/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RotationHandler handles payout rotation endpoints
type RotationHandler struct {
	rotationService *services.RotationService
}

// NewRotationHandler creates a new rotation handler
func NewRotationHandler(rotationService *services.RotationService) *RotationHandler {
	return &RotationHandler{rotationService: rotationService}
}

// ReorderRequest represents a full rotation reorder submission
type ReorderRequest struct {
	Slots []services.SlotRef `json:"slots"`
}

// SlotRequest targets one member slot
type SlotRequest struct {
	UserID    uint `json:"user_id"`
	SlotIndex int  `json:"slot_index"`
	Locked    bool `json:"locked"`
}

// Get returns the group's payout queue as editable slots
// @Summary Get payout rotation
// @Description Get the group's payout queue expanded into slots
// @Tags Rotation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /groups/{id}/rotation [get]
func (h *RotationHandler) Get(c *fiber.Ctx) error {
	userID, groupID, err := rotationParams(c)
	if err != nil {
		return response.BadRequest(c, "Invalid group ID")
	}

	slots, err := h.rotationService.GetRotation(c.Context(), groupID, userID)
	if err != nil {
		return h.mapError(c, err, "Failed to get rotation")
	}

	return response.Success(c, "Rotation retrieved successfully", fiber.Map{
		"slots": slots,
	})
}

// Reorder replaces the whole payout queue
// @Summary Reorder payout rotation
// @Description Replace the payout queue with the submitted slot order
// @Tags Rotation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param body body ReorderRequest true "New slot order"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /groups/{id}/rotation [put]
func (h *RotationHandler) Reorder(c *fiber.Ctx) error {
	userID, groupID, err := rotationParams(c)
	if err != nil {
		return response.BadRequest(c, "Invalid group ID")
	}

	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.Slots) == 0 {
		return response.BadRequest(c, "Slot order is required")
	}

	slots, err := h.rotationService.Reorder(c.Context(), groupID, userID, req.Slots)
	if err != nil {
		return h.mapError(c, err, "Failed to reorder rotation")
	}

	return response.Success(c, "Rotation reordered successfully", fiber.Map{
		"slots": slots,
	})
}

// AddSlot grants a member one extra payout turn
// @Summary Add payout slot
// @Description Give a member an extra payout turn after their last one
// @Tags Rotation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param body body SlotRequest true "Target member"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /groups/{id}/rotation/slots [post]
func (h *RotationHandler) AddSlot(c *fiber.Ctx) error {
	userID, groupID, err := rotationParams(c)
	if err != nil {
		return response.BadRequest(c, "Invalid group ID")
	}

	var req SlotRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.UserID == 0 {
		return response.BadRequest(c, "user_id is required")
	}

	slots, err := h.rotationService.AddSlot(c.Context(), groupID, userID, req.UserID)
	if err != nil {
		return h.mapError(c, err, "Failed to add slot")
	}

	return response.Success(c, "Slot added successfully", fiber.Map{
		"slots": slots,
	})
}

// RemoveSlot takes away one of a member's payout turns
// @Summary Remove payout slot
// @Description Remove one of a member's payout turns (never the last one)
// @Tags Rotation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param body body SlotRequest true "Target slot"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /groups/{id}/rotation/slots [delete]
func (h *RotationHandler) RemoveSlot(c *fiber.Ctx) error {
	userID, groupID, err := rotationParams(c)
	if err != nil {
		return response.BadRequest(c, "Invalid group ID")
	}

	var req SlotRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.UserID == 0 {
		return response.BadRequest(c, "user_id is required")
	}

	slots, err := h.rotationService.RemoveSlot(c.Context(), groupID, userID, req.UserID, req.SlotIndex)
	if err != nil {
		return h.mapError(c, err, "Failed to remove slot")
	}

	return response.Success(c, "Slot removed successfully", fiber.Map{
		"slots": slots,
	})
}

// SetLock toggles a turn's lock flag
// @Summary Lock or unlock a payout turn
// @Description Mark one of a member's turns as locked or unlocked
// @Tags Rotation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param body body SlotRequest true "Target slot and lock state"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /groups/{id}/rotation/locks [put]
func (h *RotationHandler) SetLock(c *fiber.Ctx) error {
	userID, groupID, err := rotationParams(c)
	if err != nil {
		return response.BadRequest(c, "Invalid group ID")
	}

	var req SlotRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.UserID == 0 {
		return response.BadRequest(c, "user_id is required")
	}

	slots, err := h.rotationService.SetSlotLock(c.Context(), groupID, userID, req.UserID, req.SlotIndex, req.Locked)
	if err != nil {
		return h.mapError(c, err, "Failed to update lock")
	}

	return response.Success(c, "Lock updated successfully", fiber.Map{
		"slots": slots,
	})
}

// RemoveMember drops a member from the rotation
// @Summary Remove rotation member
// @Description Drop a member and all their payout turns from the rotation
// @Tags Rotation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param userId path int true "Member user ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /groups/{id}/rotation/members/{userId} [delete]
func (h *RotationHandler) RemoveMember(c *fiber.Ctx) error {
	userID, groupID, err := rotationParams(c)
	if err != nil {
		return response.BadRequest(c, "Invalid group ID")
	}

	targetID, err := strconv.ParseUint(c.Params("userId"), 10, 32)
	if err != nil || targetID == 0 {
		return response.BadRequest(c, "Invalid member user ID")
	}

	slots, err := h.rotationService.RemoveMember(c.Context(), groupID, userID, uint(targetID))
	if err != nil {
		return h.mapError(c, err, "Failed to remove member")
	}

	return response.Success(c, "Member removed successfully", fiber.Map{
		"slots": slots,
	})
}

// mapError translates service errors into HTTP responses
func (h *RotationHandler) mapError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrGroupNotFound):
		return response.NotFound(c, "Group not found")
	case errors.Is(err, services.ErrNotGroupMember):
		return response.Forbidden(c, "Not a member of this group")
	case errors.Is(err, services.ErrNotCoordinator):
		return response.Forbidden(c, "Only the coordinator can edit the rotation")
	case errors.Is(err, services.ErrInvalidRotation):
		return response.BadRequest(c, "Submitted order does not match the group's slots")
	default:
		return response.InternalServerError(c, fallback)
	}
}

// rotationParams extracts the caller and target group from the request
func rotationParams(c *fiber.Ctx) (userID, groupID uint, err error) {
	uid, ok := c.Locals("userID").(uint)
	if !ok {
		return 0, 0, fiber.ErrUnauthorized
	}
	gid, err := parseGroupID(c)
	if err != nil {
		return 0, 0, err
	}
	return uid, gid, nil
}
