package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trading-journal/internal/models"
	"trading-journal/internal/services"
)

// TradeSyncer is the slice of the sync service the REST handlers use.
type TradeSyncer interface {
	GetTrades(ctx context.Context, telegramID string) ([]models.Trade, error)
	UpsertUser(ctx context.Context, telegramID string, update models.UserUpdate) (*models.UserProfile, error)
	ReplaceTrades(ctx context.Context, telegramID string, trades []models.Trade) (int, error)
	DeleteTrade(ctx context.Context, telegramID, tradeID string) error
}

type SyncHandler struct {
	service TradeSyncer
}

func NewSyncHandler(service TradeSyncer) *SyncHandler {
	return &SyncHandler{service: service}
}

type SyncUserRequest struct {
	TelegramID string `json:"telegramId"`
	FirstName  string `json:"firstName"`
	Username   string `json:"username"`
	PhotoURL   string `json:"photoUrl"`
}

// SyncTradesRequest carries a full snapshot of the client's trade list.
// Trades is a pointer so a missing field can be told apart from an
// empty array: absent is rejected, empty clears the owner's trades.
type SyncTradesRequest struct {
	TelegramID string          `json:"telegramId"`
	Trades     *[]models.Trade `json:"trades"`
}

// GetTrades handles GET /api/trades/:telegramId.
func (h *SyncHandler) GetTrades(c *gin.Context) {
	telegramID := c.Param("telegramId")

	trades, err := h.service.GetTrades(c.Request.Context(), telegramID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"trades":  trades,
		"count":   len(trades),
	})
}

// UpsertUser handles POST /api/users.
func (h *SyncHandler) UpsertUser(c *gin.Context) {
	var req SyncUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: " + err.Error()})
		return
	}

	profile, err := h.service.UpsertUser(c.Request.Context(), req.TelegramID, models.UserUpdate{
		FirstName: req.FirstName,
		Username:  req.Username,
		PhotoURL:  req.PhotoURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    profile,
	})
}

// SyncTrades handles POST /api/trades.
func (h *SyncHandler) SyncTrades(c *gin.Context) {
	var req SyncTradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: " + err.Error()})
		return
	}

	var trades []models.Trade
	if req.Trades != nil {
		trades = *req.Trades
		if trades == nil {
			trades = []models.Trade{}
		}
	}

	count, err := h.service.ReplaceTrades(c.Request.Context(), req.TelegramID, trades)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Trades synced successfully",
		"count":   count,
	})
}

// DeleteTrade handles DELETE /api/trades/:telegramId/:tradeId.
func (h *SyncHandler) DeleteTrade(c *gin.Context) {
	telegramID := c.Param("telegramId")
	tradeID := c.Param("tradeId")

	if err := h.service.DeleteTrade(c.Request.Context(), telegramID, tradeID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Trade deleted successfully",
	})
}

// NoRoute is the body for any unmatched route. A 404 here means no
// route matched, not that a domain lookup failed.
func NoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Route not found"})
}

func respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var notFoundErr *services.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": validationErr.Message})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": notFoundErr.Message})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	}
}
