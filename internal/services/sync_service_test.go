package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/models"
)

// memStore is an in-memory Store implementing the same contract as the
// Mongo store: merge-by-non-empty on upsert, replace-all on sync,
// newest-first listing.
type memStore struct {
	users  map[string]*models.User
	trades map[string][]models.Trade
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[string]*models.User),
		trades: make(map[string][]models.Trade),
	}
}

func (m *memStore) FindUser(_ context.Context, telegramID string) (*models.User, error) {
	user, ok := m.users[telegramID]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *user
	return &copied, nil
}

func (m *memStore) UpsertUser(_ context.Context, telegramID string, update models.UserUpdate) (*models.User, error) {
	user, ok := m.users[telegramID]
	if !ok {
		user = &models.User{TelegramID: telegramID, CreatedAt: time.Now()}
		m.users[telegramID] = user
	}
	if update.FirstName != "" {
		user.FirstName = update.FirstName
	}
	if update.Username != "" {
		user.Username = update.Username
	}
	if update.PhotoURL != "" {
		user.PhotoURL = update.PhotoURL
	}
	copied := *user
	return &copied, nil
}

func (m *memStore) ListTrades(_ context.Context, telegramID string) ([]models.Trade, error) {
	trades := append([]models.Trade(nil), m.trades[telegramID]...)
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.After(trades[j].Timestamp)
	})
	if trades == nil {
		trades = []models.Trade{}
	}
	return trades, nil
}

func (m *memStore) ReplaceTrades(_ context.Context, telegramID string, trades []models.Trade) (int, error) {
	m.trades[telegramID] = append([]models.Trade(nil), trades...)
	return len(trades), nil
}

func (m *memStore) DeleteTrade(_ context.Context, telegramID, tradeID string) (bool, error) {
	trades := m.trades[telegramID]
	for i, t := range trades {
		if t.TradeID == tradeID {
			m.trades[telegramID] = append(trades[:i:i], trades[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Ping(_ context.Context) error {
	return nil
}

func newTestService() (*SyncService, *memStore) {
	st := newMemStore()
	return NewSyncService(st, nil), st
}

func TestUpsertUserIdempotent(t *testing.T) {
	svc, _ := newTestService()
	update := models.UserUpdate{FirstName: "Alice", Username: "alice", PhotoURL: "https://t.me/a.jpg"}

	first, err := svc.UpsertUser(context.Background(), "u1", update)
	require.NoError(t, err)

	second, err := svc.UpsertUser(context.Background(), "u1", update)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "u1", second.ID)
	assert.Equal(t, "Alice", second.FirstName)
}

func TestUpsertUserMergePreservesExisting(t *testing.T) {
	svc, st := newTestService()

	_, err := svc.UpsertUser(context.Background(), "u1", models.UserUpdate{FirstName: "Alice"})
	require.NoError(t, err)

	profile, err := svc.UpsertUser(context.Background(), "u1", models.UserUpdate{Username: "alice"})
	require.NoError(t, err)

	assert.Equal(t, "Alice", profile.FirstName)
	assert.Equal(t, "alice", profile.Username)

	stored := st.users["u1"]
	assert.Equal(t, "Alice", stored.FirstName)
	assert.Equal(t, "alice", stored.Username)
}

func TestUpsertUserCreatedAtNeverLeaks(t *testing.T) {
	svc, st := newTestService()

	profile, err := svc.UpsertUser(context.Background(), "u1", models.UserUpdate{FirstName: "Alice"})
	require.NoError(t, err)

	assert.False(t, st.users["u1"].CreatedAt.IsZero())
	assert.Equal(t, &models.UserProfile{ID: "u1", FirstName: "Alice"}, profile)
}

func TestReplaceTradesReplacesAll(t *testing.T) {
	svc, _ := newTestService()

	count, err := svc.ReplaceTrades(context.Background(), "u1", []models.Trade{
		{TradeID: "t1", Ticker: "BTCUSDT"},
		{TradeID: "t2", Ticker: "ETHUSDT"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = svc.ReplaceTrades(context.Background(), "u1", []models.Trade{
		{TradeID: "t3", Ticker: "SOLUSDT"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	trades, err := svc.GetTrades(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "t3", trades[0].TradeID)
}

func TestReplaceTradesCrossOwnerIsolation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.ReplaceTrades(context.Background(), "u1", []models.Trade{{TradeID: "t1"}})
	require.NoError(t, err)
	_, err = svc.ReplaceTrades(context.Background(), "u2", []models.Trade{{TradeID: "t2"}})
	require.NoError(t, err)

	_, err = svc.ReplaceTrades(context.Background(), "u1", []models.Trade{})
	require.NoError(t, err)

	trades, err := svc.GetTrades(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "t2", trades[0].TradeID)
}

func TestReplaceTradesStampsOwner(t *testing.T) {
	svc, _ := newTestService()

	// A client-embedded owner id must never survive storage.
	_, err := svc.ReplaceTrades(context.Background(), "u1", []models.Trade{
		{TradeID: "t1", TelegramID: "someone-else"},
	})
	require.NoError(t, err)

	trades, err := svc.GetTrades(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "u1", trades[0].TelegramID)
}

func TestReplaceTradesEmptyArrayClears(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.ReplaceTrades(context.Background(), "u1", []models.Trade{{TradeID: "t1"}})
	require.NoError(t, err)

	count, err := svc.ReplaceTrades(context.Background(), "u1", []models.Trade{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	trades, err := svc.GetTrades(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestGetTradesNewestFirst(t *testing.T) {
	svc, _ := newTestService()
	now := time.Now()

	_, err := svc.ReplaceTrades(context.Background(), "u1", []models.Trade{
		{TradeID: "old", Timestamp: now.Add(-time.Hour)},
		{TradeID: "new", Timestamp: now},
	})
	require.NoError(t, err)

	trades, err := svc.GetTrades(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "new", trades[0].TradeID)
	assert.Equal(t, "old", trades[1].TradeID)
}

func TestGetTradesEmptyOwnerIsNotAnError(t *testing.T) {
	svc, _ := newTestService()

	trades, err := svc.GetTrades(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, trades)
	assert.Empty(t, trades)
}

func TestDeleteTradeThenGet(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.ReplaceTrades(context.Background(), "u1", []models.Trade{
		{TradeID: "tx"},
		{TradeID: "ty"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTrade(context.Background(), "u1", "tx"))

	trades, err := svc.GetTrades(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "ty", trades[0].TradeID)
}

func TestDeleteTradeNotFound(t *testing.T) {
	svc, _ := newTestService()

	err := svc.DeleteTrade(context.Background(), "u1", "missing")
	var notFoundErr *NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestValidationRejectsAndMutatesNothing(t *testing.T) {
	svc, st := newTestService()
	var validationErr *ValidationError

	_, err := svc.GetTrades(context.Background(), "")
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.UpsertUser(context.Background(), "", models.UserUpdate{FirstName: "Alice"})
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.ReplaceTrades(context.Background(), "", []models.Trade{{TradeID: "t1"}})
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.ReplaceTrades(context.Background(), "u1", nil)
	require.ErrorAs(t, err, &validationErr)

	assert.Empty(t, st.users)
	assert.Empty(t, st.trades)
}
