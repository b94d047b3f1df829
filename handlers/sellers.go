package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"verifybot/registry"
	"verifybot/utils"
)

// actor_id recorded in the audit log for admin API mutations
const apiActorID = 0

// Registry is the store surface the admin API needs
type Registry interface {
	Lookup(ctx context.Context, username string) (registry.VerifiedUser, bool, error)
	Upsert(ctx context.Context, username, service string, addedBy int64) (registry.VerifiedUser, error)
	Remove(ctx context.Context, username string, actorID int64) (bool, error)
	List(ctx context.Context, limit, offset int) ([]registry.VerifiedUser, error)
	Count(ctx context.Context) (int64, error)
}

// SellersHandler exposes the verified-seller registry over the admin API
type SellersHandler struct {
	registry  Registry
	startTime time.Time
	botReady  func() bool
}

type upsertSellerRequest struct {
	Service string `json:"service"`
}

// NewSellersHandler builds a SellersHandler.
func NewSellersHandler(reg Registry, startTime time.Time, botReady func() bool) *SellersHandler {
	if botReady == nil {
		botReady = func() bool { return false }
	}
	return &SellersHandler{registry: reg, startTime: startTime, botReady: botReady}
}

// ListSellers pages through the registry
func (h *SellersHandler) ListSellers(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	sellers, err := h.registry.List(c.Context(), limit, offset)
	if err != nil {
		utils.LogRequestError(c, "LIST_SELLERS_FAILED", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to list sellers"})
	}

	return c.JSON(fiber.Map{"sellers": sellers, "count": len(sellers)})
}

// GetSeller looks up one seller by username
func (h *SellersHandler) GetSeller(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	if username == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Username is required"})
	}

	seller, found, err := h.registry.Lookup(c.Context(), username)
	if err != nil {
		utils.LogRequestError(c, "GET_SELLER_FAILED", err, "username", username)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to look up seller"})
	}
	if !found {
		return c.Status(404).JSON(fiber.Map{"error": "Seller not verified"})
	}

	return c.JSON(seller)
}

// PutSeller adds or updates a seller
func (h *SellersHandler) PutSeller(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	if username == "" || username == "@" {
		return c.Status(400).JSON(fiber.Map{"error": "Username is required"})
	}

	var req upsertSellerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}
	req.Service = strings.TrimSpace(req.Service)
	if req.Service == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Service is required"})
	}

	seller, err := h.registry.Upsert(c.Context(), username, req.Service, apiActorID)
	if err != nil {
		utils.LogRequestError(c, "PUT_SELLER_FAILED", err, "username", username)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to save seller"})
	}

	return c.JSON(seller)
}

// DeleteSeller removes a seller
func (h *SellersHandler) DeleteSeller(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	if username == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Username is required"})
	}

	removed, err := h.registry.Remove(c.Context(), username, apiActorID)
	if err != nil {
		utils.LogRequestError(c, "DELETE_SELLER_FAILED", err, "username", username)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to remove seller"})
	}
	if !removed {
		return c.Status(404).JSON(fiber.Map{"error": "Seller not verified"})
	}

	return c.JSON(fiber.Map{"removed": registry.Normalize(username)})
}

// Stats reports registry size and service state
func (h *SellersHandler) Stats(c *fiber.Ctx) error {
	count, err := h.registry.Count(c.Context())
	if err != nil {
		utils.LogRequestError(c, "STATS_FAILED", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to compute stats"})
	}

	return c.JSON(fiber.Map{
		"sellers":   count,
		"bot_ready": h.botReady(),
		"uptime":    time.Since(h.startTime).String(),
	})
}
