package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gobwas/ws"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/accounts"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/gateway"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/hub"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/repository"
	"github.com/priya3054/ZerodhaClone/pkg/models"
	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

// OrderPlacer is satisfied by orders.Intake.
type OrderPlacer interface {
	Place(ctx context.Context, req protocol.PlaceOrder) (models.Order, error)
}

type InstrumentLister interface {
	ListInstruments(ctx context.Context) ([]string, error)
}

type Crediter interface {
	Credit(ctx context.Context, userID string, amount decimal.Decimal) (protocol.BalanceUpdate, error)
}

type Deps struct {
	Holdings    repository.HoldingsStore
	Positions   repository.PositionsStore
	Orders      repository.OrdersStore
	Prices      repository.PriceStore
	Instruments InstrumentLister
	Placer      OrderPlacer
	Accounts    Crediter
	Hub         *hub.Hub

	// CreditSecret signs account credits. The credit route is not mounted
	// when it is empty.
	CreditSecret []byte
}

// Server serves the REST endpoints and the websocket upgrade.
type Server struct {
	deps     Deps
	router   *mux.Router
	logger   *zap.Logger
	validate *validator.Validate
	origins  []string
}

const maxCreditBody = 4 << 10

type creditRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// placeOrderRequest is checked on the REST path only; websocket orders are
// stored as sent.
type placeOrderRequest struct {
	Name  string          `json:"name" validate:"required,max=64"`
	Qty   int             `json:"qty"`
	Price decimal.Decimal `json:"price"`
	Mode  models.Mode     `json:"mode" validate:"oneof=BUY SELL"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func NewServer(deps Deps, allowedOrigins []string, logger *zap.Logger) *Server {
	s := &Server{
		deps:     deps,
		router:   mux.NewRouter(),
		logger:   logger,
		validate: validator.New(),
		origins:  allowedOrigins,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Dashboard routes
	s.router.HandleFunc("/allHoldings", s.handleAllHoldings).Methods("GET")
	s.router.HandleFunc("/allPositions", s.handleAllPositions).Methods("GET")
	s.router.HandleFunc("/newOrder", s.handleNewOrder).Methods("POST")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/instruments", s.handleInstruments).Methods("GET")
	api.HandleFunc("/prices", s.handlePrices).Methods("GET")
	if len(s.deps.CreditSecret) > 0 {
		api.HandleFunc("/accounts/{id}/credit", s.handleCredit).Methods("POST")
	}

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

func (s *Server) handleAllHoldings(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Holdings.ListHoldings(r.Context())
	if err != nil {
		s.internalError(w, "failed to list holdings", err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleAllPositions(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Positions.ListPositions(r.Context())
	if err != nil {
		s.internalError(w, "failed to list positions", err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleNewOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	order, err := s.deps.Placer.Place(r.Context(), protocol.PlaceOrder(req))
	if err != nil {
		s.internalError(w, "failed to save order", err)
		return
	}

	s.logger.Info("Order saved", zap.String("order_id", order.ID), zap.String("name", order.Name))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Order saved!"))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Orders.ListOrders(r.Context())
	if err != nil {
		s.internalError(w, "failed to list orders", err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	names, err := s.deps.Instruments.ListInstruments(r.Context())
	if err != nil {
		s.internalError(w, "failed to list instruments", err)
		return
	}
	respondJSON(w, http.StatusOK, names)
}

// handlePrices returns the last cached tick for every current instrument.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	names, err := s.deps.Instruments.ListInstruments(r.Context())
	if err != nil {
		s.internalError(w, "failed to list instruments", err)
		return
	}
	snaps, err := s.deps.Prices.GetSnapshots(r.Context(), names)
	if err != nil {
		s.internalError(w, "failed to read price snapshots", err)
		return
	}
	if snaps == nil {
		snaps = []protocol.PriceTick{}
	}
	respondJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if err := s.validate.Var(userID, "required,max=36"); err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id", err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCreditBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !accounts.VerifySignature(s.deps.CreditSecret, userID, body, r.Header.Get(accounts.SignatureHeader)) {
		s.logger.Warn("Rejected unsigned credit", zap.String("user_id", userID))
		respondError(w, http.StatusUnauthorized, "invalid signature", "")
		return
	}

	var req creditRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	update, err := s.deps.Accounts.Credit(r.Context(), userID, req.Amount)
	switch {
	case errors.Is(err, accounts.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, err.Error(), "")
		return
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "account not found", "")
		return
	case err != nil:
		s.internalError(w, "failed to credit account", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"balance": update.Balance,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := gateway.NewClient(conn, s.deps.Hub, s.logger)
	client.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": s.deps.Hub.Count(),
	})
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	respondError(w, http.StatusInternalServerError, msg, "")
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg, details string) {
	respondJSON(w, status, errorResponse{Error: msg, Details: details})
}
