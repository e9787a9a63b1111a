package handlers

import (
	"errors"
	"strconv"

	"latanda-core/internal/core/services"
	"latanda-core/internal/pkg/pagination"
	"latanda-core/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ContributionHandler handles wallet and contribution endpoints
type ContributionHandler struct {
	contributionService *services.ContributionService
	payoutService       *services.PayoutService
}

// NewContributionHandler creates a new contribution handler
func NewContributionHandler(
	contributionService *services.ContributionService,
	payoutService *services.PayoutService,
) *ContributionHandler {
	return &ContributionHandler{
		contributionService: contributionService,
		payoutService:       payoutService,
	}
}

// DepositRequest represents a wallet deposit request body
type DepositRequest struct {
	Amount float64 `json:"amount"`
}

// Deposit credits the caller's wallet
// @Summary Deposit to wallet
// @Description Credit the caller's wallet; requires verified KYC
// @Tags Wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body DepositRequest true "Deposit amount"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /wallet/deposit [post]
func (h *ContributionHandler) Deposit(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	tx, err := h.contributionService.Deposit(c.Context(), userID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount):
			return response.BadRequest(c, "Amount must be greater than zero")
		case errors.Is(err, services.ErrKYCRequired):
			return response.Forbidden(c, "KYC verification is required")
		default:
			return response.InternalServerError(c, "Failed to deposit")
		}
	}

	return response.Created(c, "Deposit successful", fiber.Map{
		"transaction": tx,
	})
}

// Balance returns the caller's wallet balance
// @Summary Get wallet balance
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /wallet/balance [get]
func (h *ContributionHandler) Balance(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	balance, err := h.contributionService.GetBalance(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to get balance")
	}

	return response.Success(c, "Balance retrieved successfully", fiber.Map{
		"balance": balance,
	})
}

// Transactions returns the caller's wallet ledger, newest first
// @Summary List wallet transactions
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /wallet/transactions [get]
func (h *ContributionHandler) Transactions(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	txs, total, err := h.contributionService.ListTransactions(c.Context(), userID, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list transactions")
	}

	return response.Success(c, "Transactions retrieved successfully",
		pagination.NewResponse(txs, params, total))
}

// Contribute pays the caller's contribution for the current cycle
// @Summary Pay cycle contribution
// @Description Pay the group's current cycle contribution from the wallet
// @Tags Contributions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 201 {object} response.Response
// @Failure 402 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /contributions/groups/{id} [post]
func (h *ContributionHandler) Contribute(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	groupID, err := parseGroupID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid group ID")
	}

	contribution, err := h.contributionService.Contribute(c.Context(), groupID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGroupNotFound):
			return response.NotFound(c, "Group not found")
		case errors.Is(err, services.ErrGroupNotActive):
			return response.Conflict(c, "Group is not active")
		case errors.Is(err, services.ErrNotGroupMember):
			return response.Forbidden(c, "Not a member of this group")
		case errors.Is(err, services.ErrKYCRequired):
			return response.Forbidden(c, "KYC verification is required")
		case errors.Is(err, services.ErrAlreadyContributed):
			return response.Conflict(c, "Contribution for this cycle is already paid")
		case errors.Is(err, services.ErrInsufficientBalance):
			return response.Error(c, fiber.StatusPaymentRequired, "Insufficient wallet balance")
		default:
			return response.InternalServerError(c, "Failed to record contribution")
		}
	}

	return response.Created(c, "Contribution paid successfully", fiber.Map{
		"contribution": contribution,
	})
}

// ListContributions lists a cycle's contributions
// @Summary List cycle contributions
// @Tags Contributions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param cycle query int false "Cycle (defaults to current)"
// @Success 200 {object} response.Response
// @Router /contributions/groups/{id} [get]
func (h *ContributionHandler) ListContributions(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	groupID, err := parseGroupID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid group ID")
	}

	cycle, _ := strconv.Atoi(c.Query("cycle", "0"))
	contributions, err := h.contributionService.ListCycleContributions(c.Context(), groupID, userID, cycle)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGroupNotFound):
			return response.NotFound(c, "Group not found")
		case errors.Is(err, services.ErrNotGroupMember):
			return response.Forbidden(c, "Not a member of this group")
		default:
			return response.InternalServerError(c, "Failed to list contributions")
		}
	}

	return response.Success(c, "Contributions retrieved successfully", fiber.Map{
		"contributions": contributions,
	})
}

// ListPayouts lists the group's payout history
// @Summary List group payouts
// @Tags Payouts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} response.Response
// @Router /payouts/groups/{id} [get]
func (h *ContributionHandler) ListPayouts(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	groupID, err := parseGroupID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid group ID")
	}

	payouts, err := h.payoutService.ListPayouts(c.Context(), groupID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGroupNotFound):
			return response.NotFound(c, "Group not found")
		case errors.Is(err, services.ErrNotGroupMember):
			return response.Forbidden(c, "Not a member of this group")
		default:
			return response.InternalServerError(c, "Failed to list payouts")
		}
	}

	return response.Success(c, "Payouts retrieved successfully", fiber.Map{
		"payouts": payouts,
	})
}
