package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a Telegram-authenticated profile. TelegramID is the external
// lookup key; users are created on first sync and never deleted.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TelegramID string             `bson:"telegram_id" json:"telegramId"`
	FirstName  string             `bson:"first_name,omitempty" json:"firstName"`
	Username   string             `bson:"username,omitempty" json:"username"`
	PhotoURL   string             `bson:"photo_url,omitempty" json:"photoUrl"`
	CreatedAt  time.Time          `bson:"created_at" json:"-"`
}

// UserProfile is the client-facing projection of a User. Internal
// timestamps never leave the service.
type UserProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photoUrl"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:        u.TelegramID,
		FirstName: u.FirstName,
		Username:  u.Username,
		PhotoURL:  u.PhotoURL,
	}
}

// UserUpdate carries the optional profile fields of a sync request.
// Empty values mean "keep whatever is stored" — a client cannot clear
// a field to empty through this API.
type UserUpdate struct {
	FirstName string
	Username  string
	PhotoURL  string
}

// Trade is one journal entry. TradeID is assigned by the client and is
// unique only within one owner; TelegramID is stamped server-side on
// every sync, overriding whatever the client embedded.
type Trade struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TelegramID         string             `bson:"telegram_id" json:"telegramId"`
	TradeID            string             `bson:"trade_id" json:"tradeId"`
	Date               string             `bson:"date,omitempty" json:"date"`
	Timestamp          time.Time          `bson:"timestamp,omitempty" json:"timestamp"`
	Ticker             string             `bson:"ticker,omitempty" json:"ticker"`
	Entry              float64            `bson:"entry,omitempty" json:"entry"`
	SL                 float64            `bson:"sl,omitempty" json:"sl"`
	TP1                float64            `bson:"tp1,omitempty" json:"tp1"`
	TP2                float64            `bson:"tp2,omitempty" json:"tp2"`
	TP3                float64            `bson:"tp3,omitempty" json:"tp3"`
	TP1Size            float64            `bson:"tp1_size,omitempty" json:"tp1_size"`
	TP2Size            float64            `bson:"tp2_size,omitempty" json:"tp2_size"`
	TP3Size            float64            `bson:"tp3_size,omitempty" json:"tp3_size"`
	Leverage           float64            `bson:"leverage,omitempty" json:"leverage"`
	RR                 string             `bson:"rr,omitempty" json:"rr"`
	ProfitMoney        string             `bson:"profit_money,omitempty" json:"profitMoney"`
	ProfitUSD          string             `bson:"profit_usd,omitempty" json:"profitUsd"`
	MoneyRiskRub       float64            `bson:"money_risk_rub,omitempty" json:"moneyRiskRub"`
	PotentialProfitRub float64            `bson:"potential_profit_rub,omitempty" json:"potentialProfitRub"`
	ClosedBy           string             `bson:"closed_by,omitempty" json:"closedBy"`
}

// UnmarshalJSON accepts the timestamp either as an RFC3339 string or
// as epoch milliseconds; clients built on Date.now() send the latter.
func (t *Trade) UnmarshalJSON(data []byte) error {
	type tradeAlias Trade
	aux := struct {
		Timestamp json.RawMessage `json:"timestamp"`
		*tradeAlias
	}{tradeAlias: (*tradeAlias)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Timestamp) == 0 || string(aux.Timestamp) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.Timestamp, &s); err == nil {
		if s == "" {
			return nil
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
		t.Timestamp = ts
		return nil
	}

	var millis float64
	if err := json.Unmarshal(aux.Timestamp, &millis); err != nil {
		return err
	}
	t.Timestamp = time.UnixMilli(int64(millis)).UTC()
	return nil
}
