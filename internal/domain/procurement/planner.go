package procurement

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
)

// SupplierGroup is the demand routed to one supplier in one currency.
// It becomes one draft purchase order.
type SupplierGroup struct {
	SupplierID uuid.UUID
	Currency   valueobject.Currency
	Demands    []Demand
}

// Plan is the routing of a procurement pass
type Plan struct {
	Groups        []SupplierGroup
	Unfulfillable []OrderItem
}

// ChooseOffer picks the supplier offer for a demanded quantity. Only
// qualifying offers of active suppliers are considered. Offers that cover
// the whole quantity win over those that do not; within the same tier the
// cheapest cost in the rates' base currency wins, ties broken by offer ID.
// Offers whose currency cannot be converted are skipped.
func ChooseOffer(offers []catalog.SupplierOffer, quantity decimal.Decimal, active map[uuid.UUID]bool, rates valueobject.ExchangeRates) (*catalog.SupplierOffer, bool) {
	var (
		best       *catalog.SupplierOffer
		bestCost   decimal.Decimal
		bestCovers bool
	)
	for i := range offers {
		o := &offers[i]
		if !o.Qualifies() || !active[o.SupplierID] {
			continue
		}
		cost, err := rates.Convert(o.Cost, o.Currency, rates.Base())
		if err != nil {
			continue
		}
		covers := o.Quantity.GreaterThanOrEqual(quantity)
		if best == nil || better(covers, cost, o.ID, bestCovers, bestCost, best.ID) {
			best, bestCost, bestCovers = o, cost, covers
		}
	}
	return best, best != nil
}

func better(covers bool, cost decimal.Decimal, id uuid.UUID, bestCovers bool, bestCost decimal.Decimal, bestID uuid.UUID) bool {
	if covers != bestCovers {
		return covers
	}
	if !cost.Equal(bestCost) {
		return cost.LessThan(bestCost)
	}
	return id.String() < bestID.String()
}

// PlanPurchases routes procurable items to suppliers. Items of the same
// product and supplier end up in the same group so AddDemand merges them
// into one line.
func PlanPurchases(items []OrderItem, offersByProduct map[uuid.UUID][]catalog.SupplierOffer, active map[uuid.UUID]bool, rates valueobject.ExchangeRates) Plan {
	type groupKey struct {
		supplier uuid.UUID
		currency valueobject.Currency
	}
	groups := make(map[groupKey]*SupplierGroup)
	var plan Plan

	for _, item := range items {
		if !item.NeedsProcurement() {
			continue
		}
		offer, ok := ChooseOffer(offersByProduct[item.ProductID], item.ProcureQuantity, active, rates)
		if !ok {
			plan.Unfulfillable = append(plan.Unfulfillable, item)
			continue
		}
		key := groupKey{supplier: offer.SupplierID, currency: offer.Currency}
		g, exists := groups[key]
		if !exists {
			g = &SupplierGroup{SupplierID: offer.SupplierID, Currency: offer.Currency}
			groups[key] = g
		}
		g.Demands = append(g.Demands, Demand{
			OrderItemID:       item.ID,
			ProductID:         item.ProductID,
			OfferID:           offer.ID,
			ExternalProductID: offer.ExternalID,
			Quantity:          item.ProcureQuantity,
			UnitCost:          offer.Cost,
		})
	}

	plan.Groups = make([]SupplierGroup, 0, len(groups))
	for _, g := range groups {
		plan.Groups = append(plan.Groups, *g)
	}
	sort.Slice(plan.Groups, func(i, j int) bool {
		a, b := plan.Groups[i], plan.Groups[j]
		if a.SupplierID != b.SupplierID {
			return a.SupplierID.String() < b.SupplierID.String()
		}
		return a.Currency < b.Currency
	})
	return plan
}
