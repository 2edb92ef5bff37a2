// Package catalogsync pulls supplier catalogs, normalizes them and
// reconciles products, offers and virtual-warehouse stock.
package catalogsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	appinventory "github.com/vde76ru/module-sub000/internal/application/inventory"
	"github.com/vde76ru/module-sub000/internal/application/uow"
	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
	"github.com/vde76ru/module-sub000/internal/infrastructure/logger"
)

// Run triggers
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// SnapshotArchive stores the raw pulled catalog of a run
type SnapshotArchive interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Config tunes the pull loop
type Config struct {
	PageSize int
	MaxPages int
	LockTTL  time.Duration
	Locale   language.Tag
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 500
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 10000
	}
	if c.LockTTL <= 0 {
		c.LockTTL = time.Hour
	}
	if c.Locale == language.Und {
		c.Locale = language.Russian
	}
	return c
}

// Service runs catalog syncs. Runs are exclusive per (tenant, supplier).
type Service struct {
	scope    uow.TransactionScope
	registry integration.ConnectorRegistry
	ledger   *appinventory.StockLedger
	locker   shared.RunLocker
	archive  SnapshotArchive
	cfg      Config
	logger   *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithSnapshotArchive enables archiving of raw snapshots
func WithSnapshotArchive(a SnapshotArchive) Option {
	return func(s *Service) {
		s.archive = a
	}
}

// NewService creates a sync service
func NewService(scope uow.TransactionScope, registry integration.ConnectorRegistry, ledger *appinventory.StockLedger,
	locker shared.RunLocker, cfg Config, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		scope:    scope,
		registry: registry,
		ledger:   ledger,
		locker:   locker,
		cfg:      cfg.withDefaults(),
		logger:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LockKey is the run lock key of a supplier sync
func LockKey(tenantID, supplierID uuid.UUID) string {
	return fmt.Sprintf("sync:%s:%s", tenantID, supplierID)
}

// SnapshotKey is the archive key of a run's raw catalog
func SnapshotKey(run *catalog.SyncRun) string {
	return fmt.Sprintf("%s/%s/%s/%s.json.gz", run.TenantID, run.SupplierID, run.StartedAt.UTC().Format("2006/01/02"), run.ID)
}

// Sync pulls and reconciles one supplier. A concurrent run for the same
// supplier yields RUN_IN_PROGRESS. Per-item failures are collected on the
// returned run; pull failures abort the run and are returned.
func (s *Service) Sync(ctx context.Context, tenantID, supplierID uuid.UUID, trigger string) (*catalog.SyncRun, error) {
	lock, err := s.locker.TryLock(ctx, LockKey(tenantID, supplierID), s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release sync lock", zap.String("key", lock.Key()), zap.Error(err))
		}
	}()

	repos := s.scope.Repositories()
	supplier, err := repos.Suppliers().FindByIDForTenant(ctx, tenantID, supplierID)
	if err != nil {
		return nil, err
	}
	if !supplier.IsActive() {
		return nil, shared.NewInvalidStateError("supplier %s is inactive", supplier.Code)
	}
	if supplier.VirtualWarehouseID == nil {
		return nil, shared.NewInvalidStateError("supplier %s has no virtual warehouse", supplier.Code)
	}
	conn, err := s.registry.Connector(supplier.ConnectorType, supplier.ConnectorConfig())
	if err != nil {
		return nil, err
	}

	run := catalog.NewSyncRun(tenantID, supplierID, trigger)
	if err := repos.SyncRuns().Save(ctx, run); err != nil {
		return nil, err
	}
	ctx = logger.WithRunID(logger.WithTenantID(ctx, tenantID.String()), run.ID.String())
	log := logger.WithLogger(ctx, s.logger).With(zap.String("supplier", supplier.Code))
	log.Info("Catalog sync started", zap.String("trigger", trigger))

	rows, err := s.pull(ctx, conn)
	if err != nil {
		run.Abort(err)
		log.Error("Catalog pull failed", zap.Error(err))
		return run, errors.Join(err, s.saveRun(ctx, run))
	}
	s.archiveSnapshot(ctx, run, rows, log)

	currency := valueobject.DefaultCurrency
	if c, err := valueobject.ParseCurrency(supplier.Settings.Data().Currency); err == nil {
		currency = c
	}
	rec := &reconciler{
		service:    s,
		tenantID:   tenantID,
		supplierID: supplierID,
		warehouse:  *supplier.VirtualWarehouseID,
		normalizer: NewNormalizer(s.cfg.Locale, currency),
		run:        run,
		log:        log,
	}
	if err := rec.reconcile(ctx, rows); err != nil {
		run.Abort(err)
		log.Error("Catalog reconcile aborted", zap.Error(err))
		return run, errors.Join(err, s.saveRun(ctx, run))
	}

	supplier.MarkSynced(time.Now())
	if err := repos.Suppliers().Save(ctx, supplier); err != nil {
		log.Warn("Failed to stamp supplier sync time", zap.Error(err))
	}
	run.Finish()
	if err := s.saveRun(ctx, run); err != nil {
		return run, err
	}
	log.Info("Catalog sync finished",
		zap.String("status", string(run.Status)),
		zap.Int("processed", run.Processed),
		zap.Int("created", run.Created),
		zap.Int("updated", run.Updated),
		zap.Int("unchanged", run.Unchanged),
		zap.Int("retired", run.Retired),
		zap.Int("failed", run.Failed))
	return run, nil
}

func (s *Service) saveRun(ctx context.Context, run *catalog.SyncRun) error {
	return s.scope.Execute(ctx, func(repos uow.Repositories) error {
		if err := repos.SyncRuns().Save(ctx, run); err != nil {
			return err
		}
		return uow.RecordEvents(ctx, repos, run)
	})
}

// pull reads every page of the supplier catalog
func (s *Service) pull(ctx context.Context, conn integration.SupplierConnector) ([]integration.SupplierProduct, error) {
	if err := conn.Authenticate(ctx); err != nil {
		return nil, err
	}
	var rows []integration.SupplierProduct
	for page := 1; page <= s.cfg.MaxPages; page++ {
		res, err := conn.GetProducts(ctx, integration.ProductQuery{Page: page, PageSize: s.cfg.PageSize})
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		rows = append(rows, res.Products...)
		if !res.HasMore || len(res.Products) == 0 {
			return rows, nil
		}
	}
	return nil, shared.NewDomainError(shared.CodeReconciliation, fmt.Sprintf("catalog exceeds %d pages", s.cfg.MaxPages))
}

// archiveSnapshot stores the raw rows. Archive failures never fail a run.
func (s *Service) archiveSnapshot(ctx context.Context, run *catalog.SyncRun, rows []integration.SupplierProduct, log *zap.Logger) {
	if s.archive == nil {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		log.Warn("Failed to encode snapshot", zap.Error(err))
		return
	}
	key := SnapshotKey(run)
	if err := s.archive.Put(ctx, key, data); err != nil {
		log.Warn("Failed to archive snapshot", zap.String("key", key), zap.Error(err))
		return
	}
	run.SnapshotKey = key
}

// Runs lists the latest runs of a supplier
func (s *Service) Runs(ctx context.Context, tenantID, supplierID uuid.UUID, limit int) ([]catalog.SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.scope.Repositories().SyncRuns().FindBySupplier(ctx, tenantID, supplierID, limit)
}

// Run reads one sync run
func (s *Service) Run(ctx context.Context, tenantID, runID uuid.UUID) (*catalog.SyncRun, error) {
	return s.scope.Repositories().SyncRuns().FindByIDForTenant(ctx, tenantID, runID)
}

// TestConnection checks a supplier's credentials and reachability
func (s *Service) TestConnection(ctx context.Context, tenantID, supplierID uuid.UUID) (integration.ConnectionTestResult, error) {
	supplier, err := s.scope.Repositories().Suppliers().FindByIDForTenant(ctx, tenantID, supplierID)
	if err != nil {
		return integration.ConnectionTestResult{}, err
	}
	conn, err := s.registry.Connector(supplier.ConnectorType, supplier.ConnectorConfig())
	if err != nil {
		return integration.ConnectionTestResult{}, err
	}
	return conn.TestConnection(ctx), nil
}

// reconciler applies one snapshot. Each row commits in its own transaction
// so a failing row never rolls back the others.
type reconciler struct {
	service    *Service
	tenantID   uuid.UUID
	supplierID uuid.UUID
	warehouse  uuid.UUID
	normalizer *Normalizer
	run        *catalog.SyncRun
	log        *zap.Logger

	products map[string]*catalog.Product
	offers   map[string]*catalog.SupplierOffer
	masters  map[string]uuid.UUID
}

func (r *reconciler) reconcile(ctx context.Context, rows []integration.SupplierProduct) error {
	if err := r.load(ctx, rows); err != nil {
		return err
	}
	if len(rows) == 0 && len(r.offers) > 0 {
		return shared.NewDomainError(shared.CodeReconciliation, "supplier returned an empty catalog; refusing to retire every offer")
	}

	seen := make(map[string]bool, len(rows))
	for _, raw := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		ref := raw.ExternalID
		if ref == "" {
			ref = raw.SKU
		}
		item, err := r.normalizer.Normalize(raw)
		if err != nil {
			r.fail(ref, err)
			continue
		}
		if seen[item.ExternalID] {
			r.fail(ref, shared.NewDomainError(shared.CodeReconciliation, "duplicate external id in snapshot"))
			continue
		}
		seen[item.ExternalID] = true
		if len(item.Warnings) > 0 {
			r.log.Debug("Row normalized with warnings", zap.String("ref", ref), zap.Strings("warnings", item.Warnings))
		}
		if err := r.apply(ctx, item); err != nil {
			r.fail(ref, err)
		}
	}

	for externalID, offer := range r.offers {
		if seen[externalID] {
			continue
		}
		if err := r.retire(ctx, offer); err != nil {
			r.fail(externalID, err)
		}
	}
	return nil
}

func (r *reconciler) fail(ref string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	r.run.RecordError(ref, err)
	r.log.Warn("Sync item failed", zap.String("ref", ref), zap.Error(err))
}

// load reads the supplier's offers, the products their SKUs refer to and
// the brand master map
func (r *reconciler) load(ctx context.Context, rows []integration.SupplierProduct) error {
	repos := r.service.scope.Repositories()

	offers, err := repos.Offers().FindBySupplier(ctx, r.tenantID, r.supplierID)
	if err != nil {
		return err
	}
	r.offers = make(map[string]*catalog.SupplierOffer, len(offers))
	for i := range offers {
		r.offers[offers[i].ExternalID] = &offers[i]
	}

	skus := make([]string, 0, len(rows))
	for _, raw := range rows {
		if sku := r.normalizer.NormalizeSKU(raw.SKU); sku != "" {
			skus = append(skus, sku)
		}
	}
	r.products = make(map[string]*catalog.Product, len(skus))
	const chunk = 500
	for start := 0; start < len(skus); start += chunk {
		end := min(start+chunk, len(skus))
		found, err := repos.Products().FindBySKUs(ctx, r.tenantID, skus[start:end])
		if err != nil {
			return err
		}
		for i := range found {
			r.products[found[i].SKU] = &found[i]
		}
	}

	sources, err := repos.ContentSources().FindAll(ctx, r.tenantID)
	if err != nil {
		return err
	}
	r.masters = make(map[string]uuid.UUID, len(sources))
	for _, src := range sources {
		r.masters[src.Brand] = src.SupplierID
	}
	return nil
}

// isMaster reports whether this supplier owns descriptive data for the
// brand. Brands without a configured master keep their content.
func (r *reconciler) isMaster(brand string) bool {
	owner, ok := r.masters[catalog.NormalizeBrand(brand)]
	return ok && owner == r.supplierID
}

// contentBrand is the brand whose master may rewrite a stored product: its
// own brand, or the incoming one while it has none
func contentBrand(product *catalog.Product, item NormalizedItem) string {
	if product.Brand != "" {
		return product.Brand
	}
	return item.Content.Brand
}

func (r *reconciler) apply(ctx context.Context, item NormalizedItem) error {
	var (
		product        *catalog.Product
		offer          *catalog.SupplierOffer
		created, dirty bool
	)
	err := r.service.scope.Execute(ctx, func(repos uow.Repositories) error {
		created, dirty = false, false

		product = r.products[item.SKU]
		switch {
		case product == nil:
			p, err := catalog.NewProduct(r.tenantID, item.SKU, item.Content)
			if err != nil {
				return err
			}
			product, created = p, true
		case r.isMaster(contentBrand(product, item)):
			cp := *product
			product = &cp
			dirty = product.ApplyContent(item.Content, r.supplierID)
		}
		if created || dirty {
			if err := repos.Products().Save(ctx, product); err != nil {
				return err
			}
		}

		offer = r.offers[item.ExternalID]
		if offer == nil {
			o, err := catalog.NewSupplierOffer(r.tenantID, product.ID, r.supplierID, item.ExternalID, item.Quote)
			if err != nil {
				return err
			}
			offer, created = o, true
		} else {
			cp := *offer
			offer = &cp
			if offer.ApplyQuote(item.Quote) {
				dirty = true
			}
		}
		if err := repos.Offers().Save(ctx, offer); err != nil {
			return err
		}

		var unitPrice *decimal.Decimal
		if item.Quote.Cost.IsPositive() {
			unitPrice = &item.Quote.Cost
		}
		delta, err := r.service.ledger.SetStockTx(ctx, repos, appinventory.SetStockRequest{
			TenantID:    r.tenantID,
			WarehouseID: r.warehouse,
			ProductID:   offer.ProductID,
			Quantity:    item.Quote.Quantity,
			UnitPrice:   unitPrice,
			Movement:    inventory.MovementContext{Actor: "sync", Reason: "supplier catalog sync"},
		})
		if err != nil {
			return err
		}
		if !delta.IsZero() {
			dirty = true
		}
		return uow.RecordEvents(ctx, repos, product, offer)
	})
	if err != nil {
		return err
	}

	r.products[item.SKU] = product
	r.offers[item.ExternalID] = offer
	r.run.Processed++
	switch {
	case created:
		r.run.Created++
	case dirty:
		r.run.Updated++
	default:
		r.run.Unchanged++
	}
	return nil
}

// retire marks an offer missing from the snapshot unavailable and zeroes
// its virtual-warehouse stock. Product and price history stay.
func (r *reconciler) retire(ctx context.Context, offer *catalog.SupplierOffer) error {
	cp := *offer
	changed := false
	err := r.service.scope.Execute(ctx, func(repos uow.Repositories) error {
		changed = cp.MarkUnavailable()
		if !changed {
			return nil
		}
		if err := repos.Offers().Save(ctx, &cp); err != nil {
			return err
		}
		if _, err := r.service.ledger.SetStockTx(ctx, repos, appinventory.SetStockRequest{
			TenantID:    r.tenantID,
			WarehouseID: r.warehouse,
			ProductID:   cp.ProductID,
			Quantity:    decimal.Zero,
			Movement:    inventory.MovementContext{Actor: "sync", Reason: "offer retired"},
		}); err != nil {
			return err
		}
		return uow.RecordEvents(ctx, repos, &cp)
	})
	if err != nil {
		return err
	}
	if changed {
		*offer = cp
		r.run.Retired++
	}
	return nil
}
