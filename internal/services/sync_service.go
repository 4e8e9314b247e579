package services

import (
	"context"
	"log"

	"trading-journal/internal/models"
	"trading-journal/internal/store"
)

// Store is the persistence contract the sync service needs. Implemented
// by store.MongoStore; tests substitute an in-memory fake.
type Store interface {
	FindUser(ctx context.Context, telegramID string) (*models.User, error)
	UpsertUser(ctx context.Context, telegramID string, update models.UserUpdate) (*models.User, error)
	ListTrades(ctx context.Context, telegramID string) ([]models.Trade, error)
	ReplaceTrades(ctx context.Context, telegramID string, trades []models.Trade) (int, error)
	DeleteTrade(ctx context.Context, telegramID, tradeID string) (bool, error)
	Ping(ctx context.Context) error
}

// SyncService reconciles a client's full local trade list with stored
// state. It is the only writer of both collections.
type SyncService struct {
	store Store
	hub   *SyncHub
}

// NewSyncService builds the service over an injected store. hub may be
// nil when no push channel is wired (e.g. in tests).
func NewSyncService(st Store, hub *SyncHub) *SyncService {
	return &SyncService{store: st, hub: hub}
}

// GetTrades returns every trade for one owner, newest first. An owner
// with no trades yields an empty list, not an error.
func (s *SyncService) GetTrades(ctx context.Context, telegramID string) ([]models.Trade, error) {
	if telegramID == "" {
		return nil, &ValidationError{Message: "Telegram ID is required"}
	}
	return s.store.ListTrades(ctx, telegramID)
}

// UpsertUser creates or updates a profile. Merge policy: a non-empty
// incoming field overwrites the stored one, an empty field keeps it.
// A client can therefore never clear a field to empty through this API.
func (s *SyncService) UpsertUser(ctx context.Context, telegramID string, update models.UserUpdate) (*models.UserProfile, error) {
	if telegramID == "" {
		return nil, &ValidationError{Message: "Telegram ID is required"}
	}

	user, err := s.store.UpsertUser(ctx, telegramID, update)
	if err != nil {
		return nil, err
	}

	profile := user.Profile()
	return &profile, nil
}

// ReplaceTrades swaps the owner's entire trade set for the submitted
// snapshot. An empty slice is a valid "clear everything"; a nil slice
// means the field was missing from the request and is rejected. Every
// trade is stamped with the owner id before storage, overriding any
// owner the client embedded.
func (s *SyncService) ReplaceTrades(ctx context.Context, telegramID string, trades []models.Trade) (int, error) {
	if telegramID == "" {
		return 0, &ValidationError{Message: "Telegram ID is required"}
	}
	if trades == nil {
		return 0, &ValidationError{Message: "Trades array is required"}
	}

	stamped := make([]models.Trade, len(trades))
	for i, t := range trades {
		t.TelegramID = telegramID
		stamped[i] = t
	}

	count, err := s.store.ReplaceTrades(ctx, telegramID, stamped)
	if err != nil {
		return 0, err
	}

	log.Printf("✅ Synced %d trades for user %s", count, telegramID)
	s.publish(SyncEvent{Type: EventTradesReplaced, TelegramID: telegramID, Count: count})
	return count, nil
}

// DeleteTrade removes one trade by (owner, tradeId).
func (s *SyncService) DeleteTrade(ctx context.Context, telegramID, tradeID string) error {
	found, err := s.store.DeleteTrade(ctx, telegramID, tradeID)
	if err != nil {
		return err
	}
	if !found {
		return &NotFoundError{Message: "Trade not found"}
	}

	s.publish(SyncEvent{Type: EventTradeDeleted, TelegramID: telegramID, TradeID: tradeID})
	return nil
}

// Ping exposes store reachability for the health endpoint.
func (s *SyncService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *SyncService) publish(ev SyncEvent) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}

var _ Store = (*store.MongoStore)(nil)
