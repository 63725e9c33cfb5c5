package services

import (
	"context"
	"time"

	"gstledger/internal/caching"
	"gstledger/internal/common"
	"gstledger/internal/models"
	"gstledger/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderServiceInterface defines the interface for order service operations
type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, buyerID uuid.UUID, lines []models.OrderLineInput) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, lines []models.OrderLineInput) (*models.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*models.Order, error)
}

type orderService struct {
	transactor repositories.Transactor
	store      *repositories.Store
	cache      caching.CacheService
	logger     *zap.Logger
}

// NewOrderService wires the order service. cache may be nil.
func NewOrderService(transactor repositories.Transactor, store *repositories.Store, cache caching.CacheService, logger *zap.Logger) OrderServiceInterface {
	return &orderService{
		transactor: transactor,
		store:      store,
		cache:      cache,
		logger:     logger,
	}
}

func validateLines(lines []models.OrderLineInput) error {
	if len(lines) == 0 {
		return common.NewValidationError("items", "no items found in the order")
	}
	for _, line := range lines {
		if line.ItemID == uuid.Nil {
			return common.NewValidationError("item_id", "item_id is required")
		}
	}
	return nil
}

// CreateOrder builds and persists a new order for a buyer. The order row and its lines
// are written in one transaction.
func (s *orderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, lines []models.OrderLineInput) (*models.Order, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.transactor.WithinTx(ctx, func(store *repositories.Store) error {
		buyer, err := store.Parties.GetByID(ctx, buyerID)
		if err != nil {
			return err
		}
		if err := requireBuyer(buyer); err != nil {
			return err
		}

		buyerState, err := store.Parties.GetPrimaryState(ctx, buyer.ID)
		if err != nil {
			return err
		}

		priced, err := priceLines(ctx, store, buyerState, lines)
		if err != nil {
			return err
		}
		totals := sumTotals(priced)

		now := time.Now().UTC()
		order = &models.Order{
			ID:            uuid.New(),
			BuyerID:       buyer.ID,
			OrderDate:     now,
			TotalPrice:    totals.TotalPrice,
			TotalTax:      totals.TotalTax,
			GrandTotal:    totals.GrandTotal,
			PaymentStatus: models.PaymentStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := store.Orders.Create(ctx, order); err != nil {
			return err
		}

		order.Lines = toOrderLines(order.ID, priced)
		return store.Orders.ReplaceLines(ctx, order.ID, order.Lines)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.Int("lines", len(order.Lines)),
		zap.String("grand_total", order.GrandTotal.StringFixed(2)),
	)
	return order, nil
}

// UpdateOrder replaces the order's whole line set and recomputes its totals.
func (s *orderService) UpdateOrder(ctx context.Context, orderID uuid.UUID, lines []models.OrderLineInput) (*models.Order, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.transactor.WithinTx(ctx, func(store *repositories.Store) error {
		var err error
		order, err = store.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.IsDeleted {
			return common.NewNotFoundError("order", orderID.String())
		}

		buyerState, err := store.Parties.GetPrimaryState(ctx, order.BuyerID)
		if err != nil {
			return err
		}

		priced, err := priceLines(ctx, store, buyerState, lines)
		if err != nil {
			return err
		}
		totals := sumTotals(priced)
		order.TotalPrice = totals.TotalPrice
		order.TotalTax = totals.TotalTax
		order.GrandTotal = totals.GrandTotal
		order.UpdatedAt = time.Now().UTC()

		if err := store.Orders.UpdateTotals(ctx, order); err != nil {
			return err
		}
		order.Lines = toOrderLines(order.ID, priced)
		return store.Orders.ReplaceLines(ctx, order.ID, order.Lines)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOrder(ctx, orderID)
	s.logger.Info("order updated",
		zap.String("order_id", orderID.String()),
		zap.Int("lines", len(order.Lines)),
		zap.String("grand_total", order.GrandTotal.StringFixed(2)),
	)
	return order, nil
}

// DeleteOrder soft-deletes an order. Deleting an already deleted order returns it unchanged.
func (s *orderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.transactor.WithinTx(ctx, func(store *repositories.Store) error {
		var err error
		order, err = store.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.IsDeleted {
			return nil
		}
		if err := store.Orders.SoftDelete(ctx, orderID); err != nil {
			return err
		}
		order.IsDeleted = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOrder(ctx, orderID)
	s.logger.Info("order deleted", zap.String("order_id", orderID.String()))
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.cache != nil {
		cached, err := s.cache.GetOrder(ctx, orderID)
		if err != nil {
			s.logger.Warn("order cache read failed", zap.String("order_id", orderID.String()), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	order, err := s.store.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Lines, err = s.store.Orders.ListLines(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetOrder(ctx, order); err != nil {
			s.logger.Warn("order cache write failed", zap.String("order_id", orderID.String()), zap.Error(err))
		}
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	return s.store.Orders.List(ctx, limit, offset)
}

func (s *orderService) invalidateOrder(ctx context.Context, orderID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteOrder(ctx, orderID); err != nil {
		s.logger.Warn("order cache invalidation failed", zap.String("order_id", orderID.String()), zap.Error(err))
	}
}

// requireBuyer rejects parties that cannot place orders. They are reported as a missing buyer.
func requireBuyer(party *models.Party) error {
	switch party.Role {
	case models.PartyRoleBuyer:
		return nil
	case models.PartyRoleSeller, models.PartyRoleBroker, models.PartyRoleGuest:
		return common.NewNotFoundError("buyer", party.ID.String())
	}
	return common.NewNotFoundError("buyer", party.ID.String())
}

func toOrderLines(orderID uuid.UUID, priced []pricedLine) []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(priced))
	for i, p := range priced {
		lines = append(lines, models.OrderLine{
			ID:         uuid.New(),
			OrderID:    orderID,
			Position:   i + 1,
			ItemID:     p.Item.ID,
			Quantity:   p.Quantity,
			UnitPrice:  p.Item.Price,
			LineAmount: p.Amount,
			TaxAmount:  p.Tax.Amount(),
		})
	}
	return lines
}
