package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gstledger/internal/common"
	"gstledger/internal/models"
	"gstledger/internal/repositories"

	"github.com/google/uuid"
)

// memDB is an in-memory backing for every repository, used by the feature tests.
type memDB struct {
	mu           sync.Mutex
	parties      map[uuid.UUID]*models.Party
	states       map[uuid.UUID]string
	items        map[uuid.UUID]*models.CatalogItem
	orders       map[uuid.UUID]*models.Order
	orderLines   map[uuid.UUID][]models.OrderLine
	invoices     map[uuid.UUID]*models.Invoice
	invoiceLines []models.InvoiceLine
	transactions map[string]*models.Transaction
}

func newMemDB() *memDB {
	return &memDB{
		parties:      make(map[uuid.UUID]*models.Party),
		states:       make(map[uuid.UUID]string),
		items:        make(map[uuid.UUID]*models.CatalogItem),
		orders:       make(map[uuid.UUID]*models.Order),
		orderLines:   make(map[uuid.UUID][]models.OrderLine),
		invoices:     make(map[uuid.UUID]*models.Invoice),
		transactions: make(map[string]*models.Transaction),
	}
}

func (db *memDB) store() *repositories.Store {
	return &repositories.Store{
		Parties:      memParties{db},
		Items:        memItems{db},
		Orders:       memOrders{db},
		Invoices:     memInvoices{db},
		Transactions: memTransactions{db},
	}
}

// WithinTx runs fn against the in-memory store. Writes are not undone on error.
func (db *memDB) WithinTx(_ context.Context, fn func(store *repositories.Store) error) error {
	return fn(db.store())
}

type memParties struct{ db *memDB }

func (r memParties) GetByID(_ context.Context, id uuid.UUID) (*models.Party, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.parties[id]
	if !ok {
		return nil, common.NewNotFoundError("party", id.String())
	}
	cp := *p
	return &cp, nil
}

func (r memParties) GetPrimaryState(_ context.Context, partyID uuid.UUID) (*string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	state, ok := r.db.states[partyID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

type memItems struct{ db *memDB }

func (r memItems) GetByID(_ context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	item, ok := r.db.items[id]
	if !ok {
		return nil, common.NewNotFoundError("item", id.String())
	}
	cp := *item
	return &cp, nil
}

type memOrders struct{ db *memDB }

func (r memOrders) Create(_ context.Context, order *models.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *order
	cp.Lines = nil
	r.db.orders[order.ID] = &cp
	return nil
}

func (r memOrders) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, common.NewNotFoundError("order", id.String())
	}
	cp := *o
	return &cp, nil
}

func (r memOrders) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.GetByID(ctx, id)
}

func (r memOrders) UpdateTotals(_ context.Context, order *models.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[order.ID]
	if !ok {
		return common.NewNotFoundError("order", order.ID.String())
	}
	o.TotalPrice, o.TotalTax, o.GrandTotal = order.TotalPrice, order.TotalTax, order.GrandTotal
	return nil
}

func (r memOrders) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status models.PaymentStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return common.NewNotFoundError("order", id.String())
	}
	o.PaymentStatus = status
	return nil
}

func (r memOrders) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return common.NewNotFoundError("order", id.String())
	}
	o.IsDeleted = true
	return nil
}

func (r memOrders) List(_ context.Context, limit, offset int) ([]*models.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.Order
	for _, o := range r.db.orders {
		if !o.IsDeleted {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r memOrders) ReplaceLines(_ context.Context, orderID uuid.UUID, lines []models.OrderLine) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.orderLines[orderID] = append([]models.OrderLine(nil), lines...)
	return nil
}

func (r memOrders) ListLines(_ context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := append([]models.OrderLine(nil), r.db.orderLines[orderID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

type memInvoices struct{ db *memDB }

func (r memInvoices) Create(_ context.Context, invoice *models.Invoice) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *invoice
	cp.Lines = nil
	r.db.invoices[invoice.ID] = &cp
	r.db.invoiceLines = append(r.db.invoiceLines, invoice.Lines...)
	return nil
}

func (r memInvoices) GetByID(_ context.Context, id uuid.UUID) (*models.Invoice, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	inv, ok := r.db.invoices[id]
	if !ok {
		return nil, common.NewNotFoundError("invoice", id.String())
	}
	cp := *inv
	return &cp, nil
}

func (r memInvoices) List(_ context.Context, limit, offset int) ([]*models.Invoice, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.Invoice
	for _, inv := range r.db.invoices {
		if !inv.IsDeleted {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return page(out, limit, offset), nil
}

func (r memInvoices) ListLines(_ context.Context, invoiceID uuid.UUID) ([]models.InvoiceLine, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.InvoiceLine
	for _, line := range r.db.invoiceLines {
		if line.InvoiceID != nil && *line.InvoiceID == invoiceID {
			out = append(out, line)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r memInvoices) Supersede(_ context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	retired := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for id, inv := range r.db.invoices {
		if inv.OrderID == orderID && !inv.IsDeleted {
			inv.IsDeleted = true
			inv.UpdatedAt = time.Now().UTC()
			retired[id] = true
			ids = append(ids, id)
		}
	}
	for i := range r.db.invoiceLines {
		if id := r.db.invoiceLines[i].InvoiceID; id != nil && retired[*id] {
			r.db.invoiceLines[i].InvoiceID = nil
		}
	}
	return ids, nil
}

func (r memInvoices) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	inv, ok := r.db.invoices[id]
	if !ok {
		return common.NewNotFoundError("invoice", id.String())
	}
	inv.IsDeleted = true
	return nil
}

func (r memInvoices) SetPDFObjectKey(_ context.Context, id uuid.UUID, key string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	inv, ok := r.db.invoices[id]
	if !ok {
		return common.NewNotFoundError("invoice", id.String())
	}
	inv.PDFObjectKey = &key
	return nil
}

func (db *memDB) liveInvoices(orderID uuid.UUID) []*models.Invoice {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*models.Invoice
	for _, inv := range db.invoices {
		if inv.OrderID == orderID && !inv.IsDeleted {
			out = append(out, inv)
		}
	}
	return out
}

type memTransactions struct{ db *memDB }

func (r memTransactions) Create(_ context.Context, txn *models.Transaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *txn
	r.db.transactions[txn.ExternalTransactionID] = &cp
	return nil
}

func (r memTransactions) FindByExternalID(_ context.Context, externalID string) (*models.Transaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	txn, ok := r.db.transactions[externalID]
	if !ok {
		return nil, nil
	}
	cp := *txn
	return &cp, nil
}

func (r memTransactions) GetByExternalIDForUpdate(ctx context.Context, externalID string) (*models.Transaction, error) {
	txn, err := r.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, common.NewNotFoundError("transaction", externalID)
	}
	return txn, nil
}

func (r memTransactions) UpdateStatus(_ context.Context, id uuid.UUID, status models.TransactionStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, txn := range r.db.transactions {
		if txn.ID == id {
			txn.Status = status
			return nil
		}
	}
	return common.NewNotFoundError("transaction", id.String())
}

func (r memTransactions) CountInitiatedBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, txn := range r.db.transactions {
		if txn.Status == models.TransactionStatusInitiated && txn.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
