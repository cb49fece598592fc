package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/hub"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/journal"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/metrics"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/repository"
	"github.com/priya3054/ZerodhaClone/pkg/models"
	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

const (
	failedMessage = "Order failed"
	placedMessage = "New order placed"

	writeTimeout = 5 * time.Second
)

// Broadcaster is satisfied by hub.Hub.
type Broadcaster interface {
	Publish(p protocol.Payload)
	SendTo(client hub.ClientInterface, id string, p protocol.Payload)
}

// Intake persists submitted orders and announces the outcome to every
// subscriber. It performs no validation and no deduplication: each call
// writes a new record.
type Intake struct {
	store   repository.OrdersStore
	hub     Broadcaster
	journal journal.Journal
	logger  *zap.Logger
	now     func() time.Time
}

func NewIntake(store repository.OrdersStore, h Broadcaster, j journal.Journal, logger *zap.Logger) *Intake {
	return &Intake{
		store:   store,
		hub:     h,
		journal: j,
		logger:  logger,
		now:     time.Now,
	}
}

// Submit handles a place-order request from a connected subscriber.
func (in *Intake) Submit(ctx context.Context, submitter hub.ClientInterface, requestID string, req protocol.PlaceOrder) protocol.OrderConfirmation {
	order, err := in.persist(ctx, req)
	if err != nil {
		in.logger.Error("Order save failed",
			zap.String("client_id", submitter.ID()),
			zap.String("name", req.Name),
			zap.Error(err))
		metrics.OrdersSubmitted.WithLabelValues(protocol.StatusError).Inc()

		conf := protocol.OrderConfirmation{Status: protocol.StatusError, Message: failedMessage}
		in.hub.Publish(conf)
		in.hub.SendTo(submitter, requestID, protocol.ErrorMessage{Message: failedMessage})
		return conf
	}

	metrics.OrdersSubmitted.WithLabelValues(protocol.StatusSuccess).Inc()
	conf := protocol.OrderConfirmation{Status: protocol.StatusSuccess, Order: &order}
	in.hub.Publish(conf)
	in.appendJournal(ctx, order)
	return conf
}

// Place handles the REST order path and broadcasts order-update on success.
func (in *Intake) Place(ctx context.Context, req protocol.PlaceOrder) (models.Order, error) {
	order, err := in.persist(ctx, req)
	if err != nil {
		return models.Order{}, err
	}

	in.hub.Publish(protocol.OrderUpdate{Message: placedMessage, Order: order})
	in.appendJournal(ctx, order)
	return order, nil
}

// HandlePlaceOrder adapts Submit to the hub's request routing.
func (in *Intake) HandlePlaceOrder(ctx context.Context, client hub.ClientInterface, msg protocol.Message) {
	req, ok := msg.Payload.(protocol.PlaceOrder)
	if !ok {
		in.hub.SendTo(client, msg.ID, protocol.ErrorMessage{Message: "Invalid order"})
		return
	}
	in.Submit(ctx, client, msg.ID, req)
}

func (in *Intake) persist(ctx context.Context, req protocol.PlaceOrder) (models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	order := models.Order{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Qty:       req.Qty,
		Price:     req.Price,
		Mode:      req.Mode,
		CreatedAt: in.now(),
	}
	if err := in.store.InsertOrder(ctx, &order); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (in *Intake) appendJournal(ctx context.Context, order models.Order) {
	if err := in.journal.Append(ctx, order); err != nil {
		in.logger.Warn("Failed to journal order", zap.String("order_id", order.ID), zap.Error(err))
	}
}
