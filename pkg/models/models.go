package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mode is the side of an order as sent by the dashboard.
type Mode string

const (
	ModeBuy  Mode = "BUY"
	ModeSell Mode = "SELL"
)

// Holding is a long-term position in the user's demat account.
type Holding struct {
	ID     uint            `json:"id" gorm:"primaryKey"`
	Name   string          `json:"name" gorm:"index"`
	Qty    int             `json:"qty"`
	Avg    decimal.Decimal `json:"avg" gorm:"type:decimal(20,2)"`
	Price  decimal.Decimal `json:"price" gorm:"type:decimal(20,2)"`
	Net    string          `json:"net"`
	Day    string          `json:"day"`
	IsLoss bool            `json:"isLoss"`
}

// Position is an intraday or carry-forward position.
type Position struct {
	ID      uint            `json:"id" gorm:"primaryKey"`
	Product string          `json:"product"`
	Name    string          `json:"name" gorm:"index"`
	Qty     int             `json:"qty"`
	Avg     decimal.Decimal `json:"avg" gorm:"type:decimal(20,2)"`
	Price   decimal.Decimal `json:"price" gorm:"type:decimal(20,2)"`
	Net     string          `json:"net"`
	Day     string          `json:"day"`
	IsLoss  bool            `json:"isLoss"`
}

// Order is an order record. It is never amended after insert.
type Order struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string          `json:"name" gorm:"index"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(20,2)"`
	Mode      Mode            `json:"mode" gorm:"type:varchar(4)"`
	CreatedAt time.Time       `json:"createdAt"`
}

// User is the account whose balance is topped up by funds credits.
type User struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username  string          `json:"username" gorm:"uniqueIndex"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:decimal(20,2)"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
