package generator

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/metrics"
	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

// Prices are drawn in whole paise from [1200.00, 2200.00).
const (
	minPricePaise  = 120000
	priceSpanPaise = 100000
)

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// TickGenerator publishes one synthetic price per instrument on a fixed cadence.
// It is started at most once; Stop is terminal.
//
// Each draw is independent of the previous price for the same instrument, so
// the resulting series is not a random walk.
type TickGenerator struct {
	logger    *zap.Logger
	source    InstrumentSource
	publisher Publisher
	sink      TickSink
	rand      Rand
	clock     Clock
	interval  time.Duration

	mu     sync.Mutex
	state  state
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTickGenerator(
	logger *zap.Logger,
	source InstrumentSource,
	publisher Publisher,
	sink TickSink,
	rnd Rand,
	clock Clock,
	interval time.Duration,
) *TickGenerator {
	return &TickGenerator{
		logger:    logger,
		source:    source,
		publisher: publisher,
		sink:      sink,
		rand:      rnd,
		clock:     clock,
		interval:  interval,
	}
}

// Start launches the tick loop. It returns true only for the call that
// actually started it; later calls, concurrent or not, are no-ops.
func (g *TickGenerator) Start() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != stateIdle {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.done = make(chan struct{})
	g.state = stateRunning

	ticker := g.clock.NewTicker(g.interval)
	go g.run(ctx, ticker, g.done)

	g.logger.Info("Starting global live price feed", zap.Duration("interval", g.interval))
	return true
}

// Stop cancels the loop and waits for an in-flight cycle to finish.
func (g *TickGenerator) Stop() {
	g.mu.Lock()
	if g.state != stateRunning {
		g.state = stateStopped
		g.mu.Unlock()
		return
	}
	g.state = stateStopped
	g.cancel()
	done := g.done
	g.mu.Unlock()

	<-done
	g.logger.Info("Live price feed stopped")
}

func (g *TickGenerator) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == stateRunning
}

// run executes cycles on a single goroutine. Ticks that fire while a cycle is
// still running are dropped by the ticker, so cycles never overlap.
func (g *TickGenerator) run(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			g.RunCycle(ctx)
		}
	}
}

// RunCycle quotes every registered instrument once. A registry failure skips
// the whole cycle and is returned for the caller's information only.
func (g *TickGenerator) RunCycle(ctx context.Context) error {
	started := g.clock.Now()
	ctx, cancel := context.WithTimeout(ctx, g.interval)
	defer cancel()

	names, err := g.source.ListInstruments(ctx)
	if err != nil {
		g.logger.Error("Price update error", zap.Error(err))
		metrics.TickCycles.WithLabelValues("skipped").Inc()
		return err
	}

	ticks := make([]protocol.PriceTick, 0, len(names))
	for _, name := range names {
		tick := protocol.PriceTick{Name: name, Price: g.nextPrice()}
		g.publisher.Publish(tick)
		ticks = append(ticks, tick)
	}

	if g.sink != nil {
		if err := g.sink.SaveTicks(ctx, ticks); err != nil {
			g.logger.Warn("Failed to save price snapshots", zap.Error(err))
		}
	}

	metrics.TickCycles.WithLabelValues("ok").Inc()
	metrics.TickCycleDuration.Observe(g.clock.Now().Sub(started).Seconds())
	g.logger.Debug("Tick cycle done", zap.Int("instruments", len(ticks)))
	return nil
}

func (g *TickGenerator) nextPrice() decimal.Decimal {
	return decimal.New(int64(minPricePaise+g.rand.Intn(priceSpanPaise)), -2)
}
