package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/pkg/client"
	"github.com/priya3054/ZerodhaClone/pkg/config"
	"github.com/priya3054/ZerodhaClone/pkg/models"
	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

func main() {
	url := flag.String("url", "ws://localhost:3002/ws", "gateway websocket endpoint")
	names := flag.String("names",
		"INFY:1555.45,ONGC:116.8,TCS:3194.8,KPITTECH:266.45,QUICKHEAL:308.55,WIPRO:577.75,M&M:779.8,RELIANCE:2112.4,HUL:512.4",
		"comma separated instruments to watch, each optionally NAME:PRICE")
	level := flag.String("log-level", "info", "debug, info, warn, error")
	orderName := flag.String("order-name", "", "place one order for this instrument after connecting")
	orderQty := flag.Int("order-qty", 1, "order quantity")
	orderPrice := flag.String("order-price", "0", "order price")
	orderMode := flag.String("order-mode", string(models.ModeBuy), "BUY or SELL")
	flag.Parse()

	logger, err := config.NewLogger(config.LoggerConfig{Level: *level, Encoding: "console"})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	seeds, err := client.ParseSeeds(*names)
	if err != nil {
		logger.Fatal("Invalid -names", zap.Error(err))
	}
	watchlist := client.NewWatchlist(seeds...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, *url, client.Handlers{
		OnPrice: func(p protocol.PriceTick) {
			q, ok := watchlist.Apply(p)
			if !ok {
				return
			}
			logger.Info("Price",
				zap.String("name", q.Name),
				zap.String("price", q.Price.StringFixed(2)),
				zap.String("change", q.Percent),
				zap.Bool("down", q.IsDown))
		},
		OnOrderConfirmed: func(conf protocol.OrderConfirmation) {
			if conf.Status != protocol.StatusSuccess {
				logger.Warn("Order failed", zap.String("message", conf.Message))
				return
			}
			logger.Info("Order confirmed",
				zap.String("order_id", conf.Order.ID),
				zap.String("name", conf.Order.Name),
				zap.Int("qty", conf.Order.Qty),
				zap.String("mode", string(conf.Order.Mode)))
		},
		OnOrderUpdate: func(u protocol.OrderUpdate) {
			logger.Info(u.Message, zap.String("order_id", u.Order.ID), zap.String("name", u.Order.Name))
		},
		OnBalance: func(b protocol.BalanceUpdate) {
			logger.Info("Balance updated", zap.String("user_id", b.UserID), zap.String("balance", b.Balance.StringFixed(2)))
		},
		OnError: func(id string, e protocol.ErrorMessage) {
			logger.Error("Gateway error", zap.String("request_id", id), zap.String("message", e.Message))
		},
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect", zap.Error(err))
	}
	defer c.Close()
	logger.Info("Connected", zap.String("url", *url))

	if *orderName != "" {
		price, err := decimal.NewFromString(*orderPrice)
		if err != nil {
			logger.Fatal("Invalid order price", zap.String("price", *orderPrice), zap.Error(err))
		}
		id, err := c.PlaceOrder(*orderName, *orderQty, price, models.Mode(strings.ToUpper(*orderMode)))
		if err != nil {
			logger.Fatal("Failed to place order", zap.Error(err))
		}
		logger.Info("Order sent", zap.String("request_id", id))
	}

	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Connection lost", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Bye")
}
