package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/priya3054/ZerodhaClone/pkg/models"
	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

var ErrNotFound = errors.New("record not found")

// HoldingsStore is read by the instrument registry and the REST layer.
type HoldingsStore interface {
	DistinctHoldingNames(ctx context.Context) ([]string, error)
	ListHoldings(ctx context.Context) ([]models.Holding, error)
}

type PositionsStore interface {
	DistinctPositionNames(ctx context.Context) ([]string, error)
	ListPositions(ctx context.Context) ([]models.Position, error)
}

type OrdersStore interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	ListOrders(ctx context.Context) ([]models.Order, error)
}

type AccountStore interface {
	Credit(ctx context.Context, userID string, amount decimal.Decimal) (*models.User, error)
}

// PriceStore caches the last tick per instrument and republishes it to Redis
// subscribers.
type PriceStore interface {
	SaveTicks(ctx context.Context, ticks []protocol.PriceTick) error
	GetSnapshots(ctx context.Context, names []string) ([]protocol.PriceTick, error)
	Close() error
}
