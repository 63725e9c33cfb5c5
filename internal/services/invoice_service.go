package services

import (
	"context"
	"fmt"
	"time"

	"gstledger/internal/caching"
	"gstledger/internal/common"
	"gstledger/internal/models"
	"gstledger/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceServiceInterface defines the interface for invoice service operations
type InvoiceServiceInterface interface {
	GenerateInvoice(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error)
	DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, limit, offset int) ([]*models.Invoice, error)
	GenerateInvoicePDF(ctx context.Context, invoiceID uuid.UUID) (*InvoiceDocument, error)
}

// InvoiceDocument points at a rendered invoice in object storage.
type InvoiceDocument struct {
	ObjectKey string    `json:"object_key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type invoiceService struct {
	transactor repositories.Transactor
	store      *repositories.Store
	cache      caching.CacheService
	documents  DocumentStore
	renderer   InvoicePDFRenderer
	urlExpiry  time.Duration
	logger     *zap.Logger
}

// NewInvoiceService wires the invoice service. cache may be nil.
func NewInvoiceService(
	transactor repositories.Transactor,
	store *repositories.Store,
	cache caching.CacheService,
	documents DocumentStore,
	renderer InvoicePDFRenderer,
	urlExpiry time.Duration,
	logger *zap.Logger,
) InvoiceServiceInterface {
	return &invoiceService{
		transactor: transactor,
		store:      store,
		cache:      cache,
		documents:  documents,
		renderer:   renderer,
		urlExpiry:  urlExpiry,
		logger:     logger,
	}
}

// GenerateInvoice supersedes any live invoice of the order and creates a fresh one with tax
// recomputed from current prices and addresses. Everything happens in one transaction while
// the order row is locked, so an order never has two live invoices.
//
// One invoice is produced per order even when its items come from several sellers.
func (s *invoiceService) GenerateInvoice(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error) {
	var invoice *models.Invoice
	var superseded []uuid.UUID

	err := s.transactor.WithinTx(ctx, func(store *repositories.Store) error {
		order, err := store.Orders.GetByIDForUpdate(ctx, orderID)
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
		if buyerState == nil {
			return common.NewValidationError("buyer", "buyer has no address, tax jurisdiction cannot be determined")
		}

		superseded, err = store.Invoices.Supersede(ctx, orderID)
		if err != nil {
			return err
		}

		orderLines, err := store.Orders.ListLines(ctx, orderID)
		if err != nil {
			return err
		}
		inputs := make([]models.OrderLineInput, 0, len(orderLines))
		for i := range orderLines {
			inputs = append(inputs, models.OrderLineInput{ItemID: orderLines[i].ItemID, Quantity: &orderLines[i].Quantity})
		}

		priced, err := priceLines(ctx, store, buyerState, inputs)
		if err != nil {
			return err
		}
		totals := sumTotals(priced)

		now := time.Now().UTC()
		invoice = &models.Invoice{
			ID:         uuid.New(),
			OrderID:    orderID,
			TaxType:    models.TaxTypeGST,
			TotalTax:   totals.TotalTax,
			TotalPrice: totals.TotalPrice,
			GrandTotal: totals.GrandTotal,
			CreatedAt:  now,
			UpdatedAt:  now,
			Lines:      toInvoiceLines(priced),
		}
		for i := range invoice.Lines {
			invoice.Lines[i].InvoiceID = &invoice.ID
		}
		return store.Invoices.Create(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	for _, id := range superseded {
		s.invalidateInvoice(ctx, id)
	}
	s.logger.Info("invoice generated",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("order_id", orderID.String()),
		zap.Int("superseded", len(superseded)),
		zap.String("total_tax", invoice.TotalTax.StringFixed(2)),
		zap.String("grand_total", invoice.GrandTotal.StringFixed(2)),
	)
	return invoice, nil
}

// DeleteInvoice soft-deletes an invoice. Its lines stay attached.
func (s *invoiceService) DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := s.transactor.WithinTx(ctx, func(store *repositories.Store) error {
		var err error
		invoice, err = store.Invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice.IsDeleted {
			return nil
		}
		if err := store.Invoices.SoftDelete(ctx, invoiceID); err != nil {
			return err
		}
		invoice.IsDeleted = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateInvoice(ctx, invoiceID)
	s.logger.Info("invoice deleted", zap.String("invoice_id", invoiceID.String()))
	return invoice, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	if s.cache != nil {
		cached, err := s.cache.GetInvoice(ctx, invoiceID)
		if err != nil {
			s.logger.Warn("invoice cache read failed", zap.String("invoice_id", invoiceID.String()), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	invoice, err := s.store.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	invoice.Lines, err = s.store.Invoices.ListLines(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetInvoice(ctx, invoice); err != nil {
			s.logger.Warn("invoice cache write failed", zap.String("invoice_id", invoiceID.String()), zap.Error(err))
		}
	}
	return invoice, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, limit, offset int) ([]*models.Invoice, error) {
	return s.store.Invoices.List(ctx, limit, offset)
}

// GenerateInvoicePDF renders the invoice, uploads it and returns a presigned download URL.
func (s *invoiceService) GenerateInvoicePDF(ctx context.Context, invoiceID uuid.UUID) (*InvoiceDocument, error) {
	invoice, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	order, err := s.store.Orders.GetByID(ctx, invoice.OrderID)
	if err != nil {
		return nil, err
	}
	buyer, err := s.store.Parties.GetByID(ctx, order.BuyerID)
	if err != nil {
		return nil, err
	}

	data, err := s.renderer.Render(invoice, buyer)
	if err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("invoices/%s/%s.pdf", invoice.OrderID.String(), invoice.ID.String())
	if err := s.documents.UploadPDF(ctx, objectKey, data); err != nil {
		return nil, fmt.Errorf("failed to upload invoice pdf: %w", err)
	}
	if err := s.store.Invoices.SetPDFObjectKey(ctx, invoice.ID, objectKey); err != nil {
		return nil, err
	}
	s.invalidateInvoice(ctx, invoice.ID)

	url, err := s.documents.GetPresignedURL(ctx, objectKey, s.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign invoice pdf: %w", err)
	}

	s.logger.Info("invoice pdf stored",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("object_key", objectKey),
		zap.Int("bytes", len(data)),
	)
	return &InvoiceDocument{
		ObjectKey: objectKey,
		URL:       url,
		ExpiresAt: time.Now().UTC().Add(s.urlExpiry),
	}, nil
}

func (s *invoiceService) invalidateInvoice(ctx context.Context, invoiceID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteInvoice(ctx, invoiceID); err != nil {
		s.logger.Warn("invoice cache invalidation failed", zap.String("invoice_id", invoiceID.String()), zap.Error(err))
	}
}

func toInvoiceLines(priced []pricedLine) []models.InvoiceLine {
	lines := make([]models.InvoiceLine, 0, len(priced))
	for i, p := range priced {
		tax := p.Tax
		tax.ID = uuid.New()
		lines = append(lines, models.InvoiceLine{
			ID:         uuid.New(),
			Position:   i + 1,
			ItemID:     p.Item.ID,
			ItemName:   p.Item.Name,
			Quantity:   p.Quantity,
			UnitPrice:  p.Item.Price,
			LineAmount: p.Amount,
			Tax:        tax,
		})
	}
	return lines
}
