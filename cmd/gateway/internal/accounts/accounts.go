package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/repository"
	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

var ErrInvalidAmount = errors.New("amount must be positive")

type Publisher interface {
	Publish(p protocol.Payload)
}

// Service applies verified fund credits and broadcasts the new balance.
type Service struct {
	store     repository.AccountStore
	publisher Publisher
	logger    *zap.Logger
}

func NewService(store repository.AccountStore, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{store: store, publisher: publisher, logger: logger}
}

func (s *Service) Credit(ctx context.Context, userID string, amount decimal.Decimal) (protocol.BalanceUpdate, error) {
	if !amount.IsPositive() {
		return protocol.BalanceUpdate{}, ErrInvalidAmount
	}

	user, err := s.store.Credit(ctx, userID, amount)
	if err != nil {
		return protocol.BalanceUpdate{}, fmt.Errorf("credit %s: %w", userID, err)
	}

	update := protocol.BalanceUpdate{UserID: user.ID, Balance: user.Balance}
	s.publisher.Publish(update)
	s.logger.Info("Balance updated", zap.String("user_id", user.ID), zap.String("balance", user.Balance.StringFixed(2)))
	return update, nil
}
