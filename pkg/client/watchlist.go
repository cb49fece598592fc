package client

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

var hundred = decimal.NewFromInt(100)

// Quote is one row of the local price table.
type Quote struct {
	Name    string
	Price   decimal.Decimal
	Percent string
	IsDown  bool
}

// Watchlist is the subscriber-side price table. Only names it was seeded with
// are ever updated.
type Watchlist struct {
	mu     sync.RWMutex
	order  []string
	quotes map[string]*Quote
}

// Seed is one watched instrument and its last known price. A zero price
// means the first tick only sets the baseline.
type Seed struct {
	Name  string
	Price decimal.Decimal
}

func NewWatchlist(seeds ...Seed) *Watchlist {
	w := &Watchlist{quotes: make(map[string]*Quote, len(seeds))}
	for _, seed := range seeds {
		if _, dup := w.quotes[seed.Name]; dup {
			continue
		}
		w.order = append(w.order, seed.Name)
		w.quotes[seed.Name] = &Quote{Name: seed.Name, Price: seed.Price, Percent: "0.00%"}
	}
	return w
}

// ParseSeeds reads "NAME:PRICE" pairs separated by commas. The price is
// optional.
func ParseSeeds(s string) ([]Seed, error) {
	var seeds []Seed
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		name, rawPrice, hasPrice := strings.Cut(field, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("empty instrument name in %q", field)
		}
		seed := Seed{Name: name}
		if hasPrice {
			price, err := decimal.NewFromString(strings.TrimSpace(rawPrice))
			if err != nil {
				return nil, fmt.Errorf("price for %s: %w", name, err)
			}
			if price.IsNegative() {
				return nil, fmt.Errorf("price for %s is negative", name)
			}
			seed.Price = price
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

// Apply folds a tick into the table. The change is measured against the
// previous price; a row with no previous price reports 0.00%.
func (w *Watchlist) Apply(tick protocol.PriceTick) (Quote, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	q, ok := w.quotes[tick.Name]
	if !ok {
		return Quote{}, false
	}

	old := q.Price
	if old.IsZero() {
		q.Percent = "0.00%"
		q.IsDown = false
	} else {
		change := tick.Price.Sub(old).Div(old).Mul(hundred)
		q.Percent = change.StringFixed(2) + "%"
		q.IsDown = tick.Price.LessThan(old)
	}
	q.Price = tick.Price

	return *q, true
}

func (w *Watchlist) Get(name string) (Quote, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	q, ok := w.quotes[name]
	if !ok {
		return Quote{}, false
	}
	return *q, true
}

// Snapshot returns every row in seed order.
func (w *Watchlist) Snapshot() []Quote {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Quote, 0, len(w.order))
	for _, name := range w.order {
		out = append(out, *w.quotes[name])
	}
	return out
}
