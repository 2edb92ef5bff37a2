package inventory

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Candidate is a stock link considered for a reservation, together with the
// priority of its warehouse.
type Candidate struct {
	Link     *StockLink
	Priority int
}

// Allocation is the warehouse chosen for a reservation. Shortfall is non-zero
// only when the multi-warehouse fallback served part of the request.
type Allocation struct {
	WarehouseID uuid.UUID
	UnitPrice   decimal.Decimal
	Quantity    decimal.Decimal
	Shortfall   decimal.Decimal
}

// RankCandidates orders candidates: the preferred warehouse first, then
// higher priority, then lower unit price. Ties keep warehouse ID order so
// the result is deterministic.
func RankCandidates(candidates []Candidate, preferred *uuid.UUID) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if preferred != nil {
			ap, bp := a.Link.WarehouseID == *preferred, b.Link.WarehouseID == *preferred
			if ap != bp {
				return ap
			}
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.Link.UnitPrice.Equal(b.Link.UnitPrice) {
			return a.Link.UnitPrice.LessThan(b.Link.UnitPrice)
		}
		return a.Link.WarehouseID.String() < b.Link.WarehouseID.String()
	})
	return ranked
}

// SelectWarehouse picks a single warehouse able to serve the whole quantity.
// With allowPartial, and when no single warehouse suffices, it falls back to
// the first ranked warehouse holding any stock and reports the rest as
// shortfall. A reservation is never split across warehouses.
func SelectWarehouse(productID uuid.UUID, candidates []Candidate, quantity decimal.Decimal, preferred *uuid.UUID, allowPartial bool) (*Candidate, Allocation, error) {
	ranked := RankCandidates(candidates, preferred)
	total := decimal.Zero
	for i := range ranked {
		c := ranked[i]
		total = total.Add(c.Link.Available)
		if c.Link.CanFulfill(quantity) {
			return &ranked[i], Allocation{
				WarehouseID: c.Link.WarehouseID,
				UnitPrice:   c.Link.UnitPrice,
				Quantity:    quantity,
				Shortfall:   decimal.Zero,
			}, nil
		}
	}
	if allowPartial {
		for i := range ranked {
			c := ranked[i]
			if c.Link.Available.IsPositive() {
				return &ranked[i], Allocation{
					WarehouseID: c.Link.WarehouseID,
					UnitPrice:   c.Link.UnitPrice,
					Quantity:    c.Link.Available,
					Shortfall:   quantity.Sub(c.Link.Available),
				}, nil
			}
		}
	}
	return nil, Allocation{}, NewInsufficientStockError(productID, nil, quantity, total)
}
