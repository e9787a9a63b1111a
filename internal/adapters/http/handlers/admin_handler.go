package handlers

import (
	"errors"
	"strconv"
	"time"

	"latanda-core/internal/adapters/persistence/repositories"
	"latanda-core/internal/core/ratelimit"
	"latanda-core/internal/core/services"
	"latanda-core/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles admin-only endpoints: KYC review, the security
// audit log, limiter introspection and manual payout runs.
type AdminHandler struct {
	authService   *services.AuthService
	payoutService *services.PayoutService
	eventRepo     repositories.SecurityEventRepository
	store         *ratelimit.Store
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	authService *services.AuthService,
	payoutService *services.PayoutService,
	eventRepo repositories.SecurityEventRepository,
	store *ratelimit.Store,
) *AdminHandler {
	return &AdminHandler{
		authService:   authService,
		payoutService: payoutService,
		eventRepo:     eventRepo,
		store:         store,
	}
}

// KYCRequest represents a KYC review decision
type KYCRequest struct {
	Approved bool `json:"approved"`
}

// VerifyKYC approves or rejects a user's KYC
// @Summary Review user KYC
// @Description Approve or reject a user's KYC verification
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body KYCRequest true "Decision"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id}/kyc [post]
func (h *AdminHandler) VerifyKYC(c *fiber.Ctx) error {
	targetID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || targetID == 0 {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req KYCRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.authService.VerifyKYC(c.Context(), uint(targetID), req.Approved)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		default:
			return response.InternalServerError(c, "Failed to update KYC status")
		}
	}

	return response.Success(c, "KYC status updated", fiber.Map{
		"user": user.ToResponse(),
	})
}

// SecurityEvents lists recent flagged and blocked requests
// @Summary List security events
// @Description List recent requests flagged or blocked by risk scoring
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param hours query int false "Lookback window in hours (default 24)"
// @Param min_score query int false "Minimum risk score (default 70)"
// @Param limit query int false "Maximum rows (default 100)"
// @Success 200 {object} response.Response
// @Router /admin/security/events [get]
func (h *AdminHandler) SecurityEvents(c *fiber.Ctx) error {
	hours, _ := strconv.Atoi(c.Query("hours", "24"))
	if hours < 1 {
		hours = 24
	}
	minScore, _ := strconv.Atoi(c.Query("min_score", "70"))
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	if limit < 1 || limit > 500 {
		limit = 100
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	events, err := h.eventRepo.ListRecent(c.Context(), since, minScore, limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list security events")
	}

	return response.Success(c, "Security events retrieved successfully", fiber.Map{
		"events": events,
		"since":  since,
	})
}

// LimiterStats exposes rate limiter counters
// @Summary Rate limiter stats
// @Description Current limiter table size and per-class policies
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/security/limiter [get]
func (h *AdminHandler) LimiterStats(c *fiber.Ctx) error {
	return response.Success(c, "Limiter stats retrieved successfully", fiber.Map{
		"tracked_entries": h.store.Size(),
		"policies":        ratelimit.DefaultPolicies(),
	})
}

// RunPayout triggers a payout attempt for one group
// @Summary Run group payout
// @Description Disburse the group's current cycle if it is fully funded
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/groups/{id}/payout [post]
func (h *AdminHandler) RunPayout(c *fiber.Ctx) error {
	groupID, err := parseGroupID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid group ID")
	}

	if err := h.payoutService.ProcessGroupPayout(c.Context(), groupID); err != nil {
		switch {
		case errors.Is(err, services.ErrGroupNotFound):
			return response.NotFound(c, "Group not found")
		case errors.Is(err, services.ErrGroupNotActive):
			return response.Conflict(c, "Group is not active")
		case errors.Is(err, services.ErrCycleNotFunded):
			return response.Conflict(c, "Current cycle is not fully funded")
		case errors.Is(err, services.ErrPayoutDone):
			return response.Conflict(c, "Payout for this cycle is already paid")
		case errors.Is(err, services.ErrRotationDrained):
			return response.Conflict(c, "Rotation has no remaining cycles")
		default:
			return response.InternalServerError(c, "Failed to run payout")
		}
	}

	return response.Success(c, "Payout processed successfully", nil)
}
