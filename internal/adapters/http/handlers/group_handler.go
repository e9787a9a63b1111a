package handlers

import (
	"errors"
	"strconv"

	"latanda-core/internal/core/services"
	"latanda-core/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// GroupHandler handles tanda group endpoints
type GroupHandler struct {
	groupService *services.GroupService
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// JoinRequest represents join-by-code request body
type JoinRequest struct {
	Code string `json:"code"`
}

// Create handles group creation
// @Summary Create tanda group
// @Description Create a new tanda group; the creator becomes coordinator
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateGroupInput true "Group data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /groups [post]
func (h *GroupHandler) Create(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req services.CreateGroupInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name == "" {
		return response.BadRequest(c, "Group name is required")
	}
	if req.ContributionAmount <= 0 {
		return response.BadRequest(c, "Contribution amount must be greater than zero")
	}

	group, err := h.groupService.CreateGroup(c.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidFrequency):
			return response.BadRequest(c, "Frequency must be WEEKLY, BIWEEKLY or MONTHLY")
		default:
			return response.InternalServerError(c, "Failed to create group")
		}
	}

	return response.Created(c, "Group created successfully", fiber.Map{
		"group": group,
	})
}

// Join handles joining a group by invite code
// @Summary Join tanda group
// @Description Join a forming group using its invite code
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body JoinRequest true "Invite code"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /groups/join [post]
func (h *GroupHandler) Join(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req JoinRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Code == "" {
		return response.BadRequest(c, "Invite code is required")
	}

	member, err := h.groupService.JoinGroup(c.Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGroupNotFound):
			return response.NotFound(c, "Group not found")
		case errors.Is(err, services.ErrGroupNotForming):
			return response.Conflict(c, "Group is no longer accepting members")
		case errors.Is(err, services.ErrGroupFull):
			return response.Conflict(c, "Group is full")
		case errors.Is(err, services.ErrAlreadyMember):
			return response.Conflict(c, "Already a member of this group")
		default:
			return response.InternalServerError(c, "Failed to join group")
		}
	}

	return response.Success(c, "Joined group successfully", fiber.Map{
		"member": member,
	})
}

// Start activates a forming group
// @Summary Start tanda group
// @Description Activate a forming group and freeze its payout order
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /groups/{id}/start [post]
func (h *GroupHandler) Start(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	groupID, err := parseGroupID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid group ID")
	}

	group, err := h.groupService.StartGroup(c.Context(), groupID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGroupNotFound):
			return response.NotFound(c, "Group not found")
		case errors.Is(err, services.ErrNotCoordinator):
			return response.Forbidden(c, "Only the coordinator can start the group")
		case errors.Is(err, services.ErrGroupNotForming):
			return response.Conflict(c, "Group has already started")
		case errors.Is(err, services.ErrTooFewMembers):
			return response.Conflict(c, "Group needs at least two members to start")
		default:
			return response.InternalServerError(c, "Failed to start group")
		}
	}

	return response.Success(c, "Group started successfully", fiber.Map{
		"group": group,
	})
}

// Get returns a group with its members
// @Summary Get tanda group
// @Description Get a group's details and active members
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *fiber.Ctx) error {
	groupID, err := parseGroupID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid group ID")
	}

	group, members, err := h.groupService.GetGroup(c.Context(), groupID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGroupNotFound):
			return response.NotFound(c, "Group not found")
		default:
			return response.InternalServerError(c, "Failed to get group")
		}
	}

	return response.Success(c, "Group retrieved successfully", fiber.Map{
		"group":   group,
		"members": members,
	})
}

// List returns the caller's groups
// @Summary List my groups
// @Description List the groups the current user belongs to
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /groups [get]
func (h *GroupHandler) List(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	groups, err := h.groupService.ListUserGroups(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list groups")
	}

	return response.Success(c, "Groups retrieved successfully", fiber.Map{
		"groups": groups,
	})
}

// parseGroupID reads the :id path param
func parseGroupID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}
