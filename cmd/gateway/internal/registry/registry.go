package registry

import (
	"context"
	"fmt"

	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/repository"
)

// Registry derives the quoted instruments from holdings and positions. The set
// is recomputed on every call.
type Registry struct {
	holdings  repository.HoldingsStore
	positions repository.PositionsStore
}

func NewRegistry(holdings repository.HoldingsStore, positions repository.PositionsStore) *Registry {
	return &Registry{holdings: holdings, positions: positions}
}

// ListInstruments returns the distinct union of holding and position names in
// first-seen order.
func (r *Registry) ListInstruments(ctx context.Context) ([]string, error) {
	holdings, err := r.holdings.DistinctHoldingNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list holding names: %w", err)
	}
	positions, err := r.positions.DistinctPositionNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list position names: %w", err)
	}

	seen := make(map[string]struct{}, len(holdings)+len(positions))
	names := make([]string, 0, len(holdings)+len(positions))
	for _, group := range [][]string{holdings, positions} {
		for _, name := range group {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names, nil
}
