package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/printflow/internal/catalog/domain"
	"github.com/smallbiznis/printflow/internal/clock"
	"github.com/smallbiznis/printflow/internal/config"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	"github.com/smallbiznis/printflow/internal/inventory/domain"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Catalog   catalogdomain.Repository
	Events    eventdomain.Publisher
	Lifecycle *config.LifecycleConfigHolder
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	catalog   catalogdomain.Repository
	events    eventdomain.Publisher
	lifecycle *config.LifecycleConfigHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("inventory.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		catalog:   p.Catalog,
		events:    p.Events,
		lifecycle: p.Lifecycle,
	}
}

func (s *Service) CreateItem(ctx context.Context, req domain.CreateItemRequest) (domain.InventoryItem, error) {
	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	if sku == "" {
		return domain.InventoryItem{}, domain.ErrInvalidSKU
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.InventoryItem{}, domain.ErrInvalidName
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		return domain.InventoryItem{}, domain.ErrInvalidUnit
	}
	if req.OpeningQty.IsNegative() || req.ReorderPoint.IsNegative() {
		return domain.InventoryItem{}, domain.ErrInvalidQty
	}

	now := s.clock.Now()
	item := domain.InventoryItem{
		ID:           s.genID.Generate(),
		SKU:          sku,
		Name:         name,
		Unit:         unit,
		QtyOnHand:    decimal.Zero,
		ReorderPoint: req.ReorderPoint,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.repo.InsertItem(ctx, tx, &item); err != nil {
			return err
		}
		if req.OpeningQty.IsZero() {
			return nil
		}
		// Opening stock goes through the ledger like any other movement.
		opening := domain.InventoryTransaction{
			ID:        s.genID.Generate(),
			ItemID:    item.ID,
			Type:      domain.TransactionAdjustment,
			QtyChange: req.OpeningQty,
			Note:      "opening balance",
			CreatedAt: now,
		}
		if err := s.repo.InsertTransaction(ctx, tx, &opening); err != nil {
			return err
		}
		if err := s.repo.RecomputeQtyOnHand(ctx, tx, item.ID, now); err != nil {
			return err
		}
		item.QtyOnHand = req.OpeningQty
		return nil
	})
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.InventoryItem{}, domain.ErrDuplicateSKU.Withf("sku %q already exists", sku)
		}
		return domain.InventoryItem{}, err
	}

	s.log.Info("inventory item created", zap.String("item_id", item.ID.String()), zap.String("sku", item.SKU))
	return item, nil
}

func (s *Service) GetItem(ctx context.Context, id string) (domain.InventoryItem, error) {
	itemID, err := parseID(id)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	item, err := s.repo.FindItemByID(ctx, s.db, itemID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if item == nil {
		return domain.InventoryItem{}, domain.ErrItemNotFound
	}
	return *item, nil
}

func (s *Service) ListItems(ctx context.Context, req domain.ListItemsRequest) (domain.ListItemsResponse, error) {
	page, err := req.Params.Normalize(domain.ItemSortable, "created_at")
	if err != nil {
		return domain.ListItemsResponse{}, domain.ErrInvalidSort.Withf("%v", err)
	}
	items, total, err := s.repo.ListItems(ctx, s.db, domain.ListItemsFilter{BelowReorder: req.BelowReorder}, page)
	if err != nil {
		return domain.ListItemsResponse{}, err
	}
	return domain.ListItemsResponse{PageInfo: page.PageInfo(total), Items: items}, nil
}

func (s *Service) RecordTransaction(ctx context.Context, itemID string, req domain.RecordTransactionRequest) (domain.InventoryTransaction, error) {
	id, err := parseID(itemID)
	if err != nil {
		return domain.InventoryTransaction{}, err
	}

	switch req.Type {
	case domain.TransactionPurchase, domain.TransactionReturn:
		if !req.Qty.IsPositive() {
			return domain.InventoryTransaction{}, domain.ErrInvalidQty.Withf("%s quantity must be positive", req.Type)
		}
	case domain.TransactionAdjustment:
		if req.Qty.IsZero() {
			return domain.InventoryTransaction{}, domain.ErrInvalidQty.Withf("adjustment cannot be zero")
		}
	default:
		// CONSUMPTION rows are written only by order production.
		return domain.InventoryTransaction{}, domain.ErrInvalidType
	}

	now := s.clock.Now()
	txn := domain.InventoryTransaction{
		ID:        s.genID.Generate(),
		ItemID:    id,
		Type:      req.Type,
		QtyChange: req.Qty,
		Note:      strings.TrimSpace(req.Note),
		CreatedAt: now,
	}
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		item, err := s.repo.FindItemByID(ctx, pkgdb.ForUpdate(tx), id)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}
		if err := s.repo.InsertTransaction(ctx, tx, &txn); err != nil {
			return err
		}
		_, err = s.settle(ctx, tx, *item, txn.ID)
		return err
	})
	if err != nil {
		return domain.InventoryTransaction{}, err
	}

	s.log.Info("inventory transaction recorded",
		zap.String("item_id", id.String()),
		zap.String("type", string(txn.Type)),
		zap.String("qty_change", txn.QtyChange.String()),
	)
	return txn, nil
}

func (s *Service) ListTransactions(ctx context.Context, itemID string) ([]domain.InventoryTransaction, error) {
	id, err := parseID(itemID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, s.db, domain.ListTransactionsFilter{ItemID: id})
}

func (s *Service) CreateRule(ctx context.Context, req domain.CreateRuleRequest) (domain.MaterialConsumptionRule, error) {
	serviceID, err := parseID(req.ServiceID)
	if err != nil {
		return domain.MaterialConsumptionRule{}, err
	}
	itemID, err := parseID(req.ItemID)
	if err != nil {
		return domain.MaterialConsumptionRule{}, err
	}
	if !req.QtyPerUnit.IsPositive() {
		return domain.MaterialConsumptionRule{}, domain.ErrInvalidRule
	}

	svc, err := s.catalog.FindServiceByID(ctx, s.db, serviceID)
	if err != nil {
		return domain.MaterialConsumptionRule{}, err
	}
	if svc == nil {
		return domain.MaterialConsumptionRule{}, catalogdomain.ErrServiceNotFound
	}

	var tierFilter *snowflake.ID
	if strings.TrimSpace(req.TierID) != "" {
		tierID, err := parseID(req.TierID)
		if err != nil {
			return domain.MaterialConsumptionRule{}, err
		}
		tier, err := s.catalog.FindTierByID(ctx, s.db, tierID)
		if err != nil {
			return domain.MaterialConsumptionRule{}, err
		}
		if tier == nil {
			return domain.MaterialConsumptionRule{}, catalogdomain.ErrTierNotFound
		}
		if tier.ServiceID != serviceID {
			return domain.MaterialConsumptionRule{}, domain.ErrTierMismatch
		}
		tierFilter = &tierID
	}

	item, err := s.repo.FindItemByID(ctx, s.db, itemID)
	if err != nil {
		return domain.MaterialConsumptionRule{}, err
	}
	if item == nil {
		return domain.MaterialConsumptionRule{}, domain.ErrItemNotFound
	}

	rule := domain.MaterialConsumptionRule{
		ID:         s.genID.Generate(),
		ServiceID:  serviceID,
		TierFilter: tierFilter,
		ItemID:     itemID,
		QtyPerUnit: req.QtyPerUnit,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.InsertRule(ctx, s.db, &rule); err != nil {
		return domain.MaterialConsumptionRule{}, err
	}
	return rule, nil
}

func (s *Service) ListRules(ctx context.Context, serviceID string) ([]domain.MaterialConsumptionRule, error) {
	id, err := parseID(serviceID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRules(ctx, s.db, id)
}

func (s *Service) ApplyConsumptionTx(ctx context.Context, tx *gorm.DB, in domain.ConsumptionInput) ([]domain.InventoryTransaction, error) {
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQty
	}
	rules, err := s.repo.ListMatchingRules(ctx, tx, in.ServiceID, in.TierID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	quantity := decimal.NewFromInt(int64(in.Quantity))
	applied := make([]domain.InventoryTransaction, 0, len(rules))
	for _, rule := range rules {
		item, err := s.repo.FindItemByID(ctx, pkgdb.ForUpdate(tx), rule.ItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, domain.ErrItemNotFound.Withf("rule %s references missing item %s", rule.ID, rule.ItemID)
		}

		orderID, ruleID := in.OrderID, rule.ID
		txn := domain.InventoryTransaction{
			ID:        s.genID.Generate(),
			ItemID:    rule.ItemID,
			OrderID:   &orderID,
			RuleID:    &ruleID,
			Type:      domain.TransactionConsumption,
			QtyChange: rule.QtyPerUnit.Mul(quantity).Neg(),
			Note:      fmt.Sprintf("order %s", in.OrderID),
			CreatedAt: now,
		}
		inserted, err := s.repo.InsertConsumption(ctx, tx, &txn)
		if err != nil {
			return nil, err
		}
		if !inserted {
			continue
		}
		if _, err := s.settle(ctx, tx, *item, txn.ID); err != nil {
			return nil, err
		}
		applied = append(applied, txn)
	}

	if len(applied) > 0 {
		s.log.Info("inventory consumed",
			zap.String("order_id", in.OrderID.String()),
			zap.Int("transactions", len(applied)),
		)
	}
	return applied, nil
}

// settle recomputes the item's stock from its ledger, enforces the negative
// stock rule and emits a reorder event when txnID takes the item from above
// its reorder point to at or below it. Further movements below the point do
// not emit again until stock is replenished above it.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, before domain.InventoryItem, txnID snowflake.ID) (*domain.InventoryItem, error) {
	now := s.clock.Now()
	if err := s.repo.RecomputeQtyOnHand(ctx, tx, before.ID, now); err != nil {
		return nil, err
	}
	item, err := s.repo.FindItemByID(ctx, tx, before.ID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}

	if item.QtyOnHand.IsNegative() && !s.lifecycle.Get().Inventory.AllowNegativeStock {
		return nil, domain.ErrInsufficientStock.Withf("item %s would fall to %s %s", item.SKU, item.QtyOnHand.String(), item.Unit)
	}

	if !before.NeedsReorder() && item.NeedsReorder() {
		dedupe := fmt.Sprintf("%s:%s:%s", eventdomain.EventInventoryReorderDue, item.ID, txnID)
		if err := s.events.PublishTx(ctx, tx, eventdomain.Event{
			Type:          eventdomain.EventInventoryReorderDue,
			AggregateType: eventdomain.AggregateInventory,
			AggregateID:   item.ID,
			DedupeKey:     dedupe,
			Payload: eventdomain.ReorderPayload{
				ItemID:       item.ID.String(),
				SKU:          item.SKU,
				Name:         item.Name,
				QtyOnHand:    item.QtyOnHand.String(),
				ReorderPoint: item.ReorderPoint.String(),
			},
		}); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (s *Service) ReorderAlertItems(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.ListReorderItems(ctx, s.db)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
