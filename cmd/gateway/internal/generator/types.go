package generator

import (
	"context"
	"math/rand"
	"time"

	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// for deterministic values
type Rand interface {
	Intn(n int) int
}

// InstrumentSource is satisfied by registry.Registry.
type InstrumentSource interface {
	ListInstruments(ctx context.Context) ([]string, error)
}

// Publisher is satisfied by hub.Hub.
type Publisher interface {
	Publish(p protocol.Payload)
}

// TickSink receives every completed cycle's ticks, e.g. the Redis snapshot cache.
type TickSink interface {
	SaveTicks(ctx context.Context, ticks []protocol.PriceTick) error
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
func (RealClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

type RealRand struct{ *rand.Rand }

func NewRealRand() RealRand {
	return RealRand{rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r RealRand) Intn(n int) int { return r.Rand.Intn(n) }
