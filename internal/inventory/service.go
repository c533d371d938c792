package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/logging"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/metrics"
)

var tracer = otel.Tracer("github.com/prthgajera30/Ecom-Application-main-sub001/internal/inventory")

// Service is the stock ledger. Every change to stored stock goes through
// AdjustStock, which writes exactly one HistoryEntry per mutation.
type Service struct {
	Store   Store
	Cache   Cache     // optional
	Events  EventSink // optional
	Log     *zap.Logger
	Metrics *metrics.Metrics

	Now   func() time.Time
	NewID func() string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) logger(ctx context.Context) *zap.Logger {
	return logging.FromContext(ctx, s.Log)
}

func startSpan(ctx context.Context, name, productID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("product.id", productID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// AdjustStock applies a signed change to base or variant stock. A result below
// zero is clamped for manual_adjustment and initial_stock; any other reason is
// rejected with InsufficientStockError and nothing is written.
func (s *Service) AdjustStock(ctx context.Context, a Adjustment) (st *InventoryStatus, err error) {
	ctx, span := startSpan(ctx, "inventory.AdjustStock", a.ProductID)
	span.SetAttributes(attribute.String("reason", string(a.Reason)), attribute.Int("change", a.Change))
	defer func() {
		s.Metrics.StockMutation("adjust", string(a.Reason), outcomeOf(err))
		endSpan(span, err)
	}()

	if !a.Reason.Valid() {
		return nil, ErrInvalidReason
	}
	if a.Change == 0 {
		return nil, ErrInvalidQuantity
	}

	var entry HistoryEntry
	p, err := s.Store.Mutate(ctx, a.ProductID, func(p *Product) (*HistoryEntry, error) {
		if !p.TrackInventory {
			return nil, ErrTrackingDisabled
		}
		if !p.IsActive {
			return nil, ErrProductInactive
		}
		prev, err := p.StockFor(a.VariantID)
		if err != nil {
			return nil, err
		}
		next := prev + a.Change
		if next < 0 {
			if !a.Reason.FloorsAtZero() {
				return nil, &InsufficientStockError{ProductID: p.ID, VariantID: a.VariantID, Requested: -a.Change, Available: prev}
			}
			next = 0
		}
		p.setStockFor(a.VariantID, next)

		entry = HistoryEntry{
			ID:            s.newID(),
			ProductID:     p.ID,
			VariantID:     a.VariantID,
			Change:        a.Change,
			PreviousStock: prev,
			NewStock:      next,
			Reason:        a.Reason,
			Reference:     a.Reference,
			UserID:        a.ActorID,
			Metadata:      a.Metadata,
			CreatedAt:     s.now(),
		}
		return &entry, nil
	})
	if err != nil {
		return nil, err
	}

	log := s.logger(ctx)
	log.Info("stock_adjusted",
		zap.String("product_id", entry.ProductID),
		zap.String("variant_id", entry.VariantID),
		zap.Int("change", entry.Change),
		zap.Int("previous_stock", entry.PreviousStock),
		zap.Int("new_stock", entry.NewStock),
		zap.String("reason", string(entry.Reason)),
		zap.String("reference", entry.Reference),
	)
	s.afterWrite(ctx, p.ID)
	if s.Events != nil {
		if err := s.Events.StockAdjusted(ctx, entry); err != nil {
			log.Warn("stock_event_publish_failed", zap.String("product_id", p.ID), zap.Error(err))
		}
	}

	status := StatusOf(p)
	return &status, nil
}

// ReserveStock holds qty units of the product-wide available stock. Products
// that do not track inventory are left untouched.
func (s *Service) ReserveStock(ctx context.Context, productID, variantID string, qty int) (st *InventoryStatus, err error) {
	ctx, span := startSpan(ctx, "inventory.ReserveStock", productID)
	defer func() {
		s.Metrics.StockMutation("reserve", "", outcomeOf(err))
		endSpan(span, err)
	}()

	p, err := s.precheck(ctx, productID, variantID, qty)
	if err != nil || !p.TrackInventory {
		return statusOrNil(p), err
	}

	updated, err := s.Store.Reserve(ctx, productID, qty)
	if errors.Is(err, ErrInsufficientStock) {
		available := 0
		if cur, gerr := s.Store.Get(ctx, productID); gerr == nil {
			available = cur.Available()
		} else if errors.Is(gerr, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &InsufficientStockError{ProductID: productID, VariantID: variantID, Requested: qty, Available: available}
	}
	if err != nil {
		return nil, err
	}

	s.logger(ctx).Info("stock_reserved",
		zap.String("product_id", productID),
		zap.Int("qty", qty),
		zap.Int("reserved_stock", updated.ReservedStock),
	)
	s.afterWrite(ctx, productID)
	status := StatusOf(updated)
	return &status, nil
}

// ReleaseStock returns qty reserved units to the available pool, flooring the
// reservation counter at zero.
func (s *Service) ReleaseStock(ctx context.Context, productID, variantID string, qty int) (st *InventoryStatus, err error) {
	ctx, span := startSpan(ctx, "inventory.ReleaseStock", productID)
	defer func() {
		s.Metrics.StockMutation("release", "", outcomeOf(err))
		endSpan(span, err)
	}()

	p, err := s.precheck(ctx, productID, variantID, qty)
	if err != nil || !p.TrackInventory {
		return statusOrNil(p), err
	}

	updated, err := s.Store.Release(ctx, productID, qty)
	if err != nil {
		return nil, err
	}
	s.logger(ctx).Info("stock_released",
		zap.String("product_id", productID),
		zap.Int("qty", qty),
		zap.Int("reserved_stock", updated.ReservedStock),
	)
	s.afterWrite(ctx, productID)
	status := StatusOf(updated)
	return &status, nil
}

func (s *Service) precheck(ctx context.Context, productID, variantID string, qty int) (*Product, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	p, err := s.Store.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if variantID != "" {
		if _, err := p.StockFor(variantID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *Service) afterWrite(ctx context.Context, productID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, productID); err != nil {
		s.logger(ctx).Warn("product_cache_invalidate_failed", zap.String("product_id", productID), zap.Error(err))
	}
}

func (s *Service) GetInventoryStatus(ctx context.Context, productID string) (*InventoryStatus, error) {
	p, err := s.Store.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	st := StatusOf(p)
	return &st, nil
}

// GetLowStockProducts lists tracked, active products whose available stock is
// under their threshold.
func (s *Service) GetLowStockProducts(ctx context.Context, limit int) ([]InventoryStatus, error) {
	if limit <= 0 {
		limit = defaultLowStockLimit
	}
	products, err := s.Store.LowStock(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]InventoryStatus, 0, len(products))
	for i := range products {
		out = append(out, StatusOf(&products[i]))
	}
	return out, nil
}

// CheckStockAvailability reports every requested line that cannot be met from
// current available stock. Untracked and inactive products are skipped; an
// unknown product or variant counts as zero available.
func (s *Service) CheckStockAvailability(ctx context.Context, items []StockRequest) (*AvailabilityReport, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Store.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	report := &AvailabilityReport{Available: true, InsufficientStock: []Shortage{}}
	for _, it := range items {
		available := 0
		if p, ok := products[it.ProductID]; ok {
			if !p.TrackInventory || !p.IsActive {
				continue
			}
			available = availableFor(p, it.VariantID)
		}
		if it.Quantity > available {
			report.Available = false
			report.InsufficientStock = append(report.InsufficientStock, Shortage{
				ProductID: it.ProductID,
				VariantID: it.VariantID,
				Requested: it.Quantity,
				Available: available,
			})
		}
	}
	return report, nil
}

func availableFor(p *Product, variantID string) int {
	if variantID == "" {
		return p.Available()
	}
	stock, err := p.StockFor(variantID)
	if err != nil {
		return 0
	}
	return max(0, stock-p.ReservedStock)
}

// GetInventoryHistory returns ledger entries newest first.
func (s *Service) GetInventoryHistory(ctx context.Context, q HistoryQuery) ([]HistoryEntry, error) {
	if q.Limit <= 0 {
		q.Limit = defaultHistoryLimit
	}
	if q.Limit > maxHistoryLimit {
		q.Limit = maxHistoryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return s.Store.History(ctx, q)
}

func statusOrNil(p *Product) *InventoryStatus {
	if p == nil {
		return nil
	}
	st := StatusOf(p)
	return &st
}
