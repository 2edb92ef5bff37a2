// Package pricing recomputes channel prices from supplier offers.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/application/uow"
	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
	"github.com/vde76ru/module-sub000/internal/infrastructure/logger"
)

// PriceResult is the outcome for one (product, channel) pair
type PriceResult struct {
	ProductID uuid.UUID              `json:"product_id"`
	ChannelID uuid.UUID              `json:"channel_id"`
	Price     *string                `json:"price,omitempty"`
	Currency  valueobject.Currency   `json:"currency,omitempty"`
	Changed   bool                   `json:"changed"`
	Kept      bool                   `json:"kept"`
	Trail     []string               `json:"trail"`
	OfferID   *uuid.UUID             `json:"offer_id,omitempty"`
	Link      *marketplace.PriceLink `json:"-"`
	Quote     *marketplace.CostQuote `json:"-"`
}

// Service recalculates price links. Rates and rules are read once per pass.
type Service struct {
	scope  uow.TransactionScope
	rates  RateProvider
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a pricing service
func NewService(scope uow.TransactionScope, rates RateProvider, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{scope: scope, rates: rates, logger: log, now: time.Now}
}

// quotesOf keeps the offers that may take part in pricing
func quotesOf(offers []catalog.SupplierOffer) []marketplace.CostQuote {
	quotes := make([]marketplace.CostQuote, 0, len(offers))
	for i := range offers {
		o := &offers[i]
		if !o.Qualifies() {
			continue
		}
		quotes = append(quotes, marketplace.CostQuote{
			OfferID:    o.ID,
			SupplierID: o.SupplierID,
			Cost:       o.Cost,
			Currency:   o.Currency,
			MRC:        o.MRC,
			EnforceMRC: o.EnforceMRC,
		})
	}
	return quotes
}

// RecalculateProduct recomputes a product on every active channel of the tenant
func (s *Service) RecalculateProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]PriceResult, error) {
	repos := s.scope.Repositories()
	if _, err := repos.Products().FindByIDForTenant(ctx, tenantID, productID); err != nil {
		return nil, err
	}
	channels, err := repos.Channels().FindActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	rates, err := s.rates.Rates(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]PriceResult, 0, len(channels))
	for i := range channels {
		res, err := s.recalculate(ctx, &channels[i], productID, rates)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// RecalculateChannel recomputes every active product of the tenant on one channel
func (s *Service) RecalculateChannel(ctx context.Context, tenantID, channelID uuid.UUID) (*shared.BatchResult, error) {
	repos := s.scope.Repositories()
	channel, err := repos.Channels().FindByIDForTenant(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}
	return s.recalculateAll(ctx, tenantID, []marketplace.SalesChannel{*channel})
}

// RecalculateTenant recomputes every active product on every active channel
func (s *Service) RecalculateTenant(ctx context.Context, tenantID uuid.UUID) (*shared.BatchResult, error) {
	channels, err := s.scope.Repositories().Channels().FindActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.recalculateAll(ctx, tenantID, channels)
}

func (s *Service) recalculateAll(ctx context.Context, tenantID uuid.UUID, channels []marketplace.SalesChannel) (*shared.BatchResult, error) {
	log := logger.WithLogger(logger.WithTenantID(ctx, tenantID.String()), s.logger)
	ids, err := s.scope.Repositories().Products().FindActiveIDs(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	rates, err := s.rates.Rates(ctx)
	if err != nil {
		return nil, err
	}

	result := &shared.BatchResult{}
	for _, productID := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		var failed error
		for i := range channels {
			if _, err := s.recalculate(ctx, &channels[i], productID, rates); err != nil {
				failed = errors.Join(failed, err)
			}
		}
		if failed != nil {
			result.Fail(productID.String(), failed)
			log.Warn("Price recalculation failed", zap.String("product_id", productID.String()), zap.Error(failed))
			continue
		}
		result.Success()
	}
	log.Info("Price recalculation finished",
		zap.Int("channels", len(channels)),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed))
	return result, nil
}

// recalculate computes and stores one price link in its own transaction
func (s *Service) recalculate(ctx context.Context, channel *marketplace.SalesChannel, productID uuid.UUID, rates valueobject.ExchangeRates) (PriceResult, error) {
	res := PriceResult{ProductID: productID, ChannelID: channel.ID}
	rules := channel.Rules()
	log := logger.WithLogger(ctx, s.logger).With(
		zap.String("product_id", productID.String()),
		zap.String("channel", channel.Code))

	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		offers, err := repos.Offers().FindByProduct(ctx, channel.TenantID, productID)
		if err != nil {
			return err
		}
		calc := marketplace.CalculatePrice(quotesOf(offers), rules, rates)
		for _, w := range calc.Warnings {
			log.Warn("Pricing warning", zap.String("detail", w))
		}

		link, err := repos.PriceLinks().FindByProductChannel(ctx, channel.TenantID, productID, channel.ID)
		if errors.Is(err, shared.ErrNotFound) {
			link = marketplace.NewPriceLink(channel.TenantID, productID, channel.ID)
		} else if err != nil {
			return err
		}

		now := s.now()
		if calc.Kept {
			log.Info("No qualifying offers, price kept")
			link.KeepPrice(calc.Trail, channel.RulesVersion, now)
		} else {
			offerID := calc.Offer.OfferID
			res.Changed = link.ApplyCalculation(calc.Price, calc.Currency, &offerID, calc.Trail, channel.RulesVersion, now)
		}
		if err := repos.PriceLinks().Save(ctx, link); err != nil {
			return err
		}
		res.Kept = calc.Kept
		res.Trail = calc.Trail
		res.Link = link
		res.OfferID = link.OfferID
		res.Currency = link.Currency
		if p, ok := link.CurrentPrice(); ok {
			str := p.StringFixed(2)
			res.Price = &str
		}
		return uow.RecordEvents(ctx, repos, link)
	})
	return res, err
}

// Links lists the price links of a product
func (s *Service) Links(ctx context.Context, tenantID, productID uuid.UUID) ([]marketplace.PriceLink, error) {
	return s.scope.Repositories().PriceLinks().FindByProduct(ctx, tenantID, productID)
}
