package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trading-journal/config"
	"trading-journal/internal/models"
)

// ErrNotFound is returned by lookups that match no document.
var ErrNotFound = errors.New("record not found")

// MongoStore persists users and trades in two collections keyed by the
// owner's telegram id.
type MongoStore struct {
	db     *config.Database
	users  *mongo.Collection
	trades *mongo.Collection
}

func NewMongoStore(db *config.Database) (*MongoStore, error) {
	s := &MongoStore{
		db:     db,
		users:  db.Collection("users"),
		trades: db.Collection("trades"),
	}
	if err := s.ensureIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}
	return s, nil
}

// ensureIndexes enforces telegram_id uniqueness at the collection
// level. Without it, two concurrent first syncs for the same id could
// both take the insert path of the upsert and leave duplicate users.
func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := s.users.Indexes().CreateOne(ctx, userIndexModel())
	return err
}

func userIndexModel() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "telegram_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
}

func (s *MongoStore) FindUser(ctx context.Context, telegramID string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"telegram_id": telegramID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertUser creates the user on first sight and otherwise merges only
// the non-empty incoming fields into the stored document. created_at is
// written once on insert and never touched again.
func (s *MongoStore) UpsertUser(ctx context.Context, telegramID string, update models.UserUpdate) (*models.User, error) {
	set := bson.M{"telegram_id": telegramID}
	if update.FirstName != "" {
		set["first_name"] = update.FirstName
	}
	if update.Username != "" {
		set["username"] = update.Username
	}
	if update.PhotoURL != "" {
		set["photo_url"] = update.PhotoURL
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var user models.User
	err := s.users.FindOneAndUpdate(
		ctx,
		bson.M{"telegram_id": telegramID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": time.Now()},
		},
		opts,
	).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTrades returns all trades for one owner, newest first.
func (s *MongoStore) ListTrades(ctx context.Context, telegramID string) ([]models.Trade, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cur, err := s.trades.Find(ctx, bson.M{"telegram_id": telegramID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	trades := make([]models.Trade, 0)
	if err := cur.All(ctx, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// ReplaceTrades drops every trade the owner has and inserts the new set.
// The two phases are not atomic: a concurrent reader may observe zero
// trades in between, and a failed insert leaves the owner empty.
func (s *MongoStore) ReplaceTrades(ctx context.Context, telegramID string, trades []models.Trade) (int, error) {
	if _, err := s.trades.DeleteMany(ctx, bson.M{"telegram_id": telegramID}); err != nil {
		return 0, err
	}

	if len(trades) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(trades))
	for i := range trades {
		docs[i] = trades[i]
	}

	res, err := s.trades.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return len(res.InsertedIDs), nil
}

// DeleteTrade removes at most one trade matching both keys and reports
// whether anything was deleted.
func (s *MongoStore) DeleteTrade(ctx context.Context, telegramID, tradeID string) (bool, error) {
	res, err := s.trades.DeleteOne(ctx, bson.M{
		"telegram_id": telegramID,
		"trade_id":    tradeID,
	})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// Ping reports store reachability for the health endpoint.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
