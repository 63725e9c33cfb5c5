package services

import (
	"context"
	"time"

	"gstledger/internal/models"
	"gstledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockPartyRepository struct {
	mock.Mock
}

func (m *MockPartyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Party), args.Error(1)
}

func (m *MockPartyRepository) GetPrimaryState(ctx context.Context, partyID uuid.UUID) (*string, error) {
	args := m.Called(ctx, partyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CatalogItem), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateTotals(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) List(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockOrderRepository) ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []models.OrderLine) error {
	args := m.Called(ctx, orderID, lines)
	return args.Error(0)
}

func (m *MockOrderRepository) ListLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]models.OrderLine), args.Error(1)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) List(ctx context.Context, limit, offset int) ([]*models.Invoice, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListLines(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceLine, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]models.InvoiceLine), args.Error(1)
}

func (m *MockInvoiceRepository) Supersede(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockInvoiceRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SetPDFObjectKey(ctx context.Context, id uuid.UUID, key string) error {
	args := m.Called(ctx, id, key)
	return args.Error(0)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByExternalIDForUpdate(ctx context.Context, externalID string) (*models.Transaction, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTransactionRepository) CountInitiatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockCacheService) SetOrder(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockCacheService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockCacheService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockCacheService) SetInvoice(ctx context.Context, invoice *models.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockCacheService) DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	return m.Called(ctx, invoiceID).Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockCacheService) Close() error {
	return m.Called().Error(0)
}

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) UploadPDF(ctx context.Context, objectName string, data []byte) error {
	return m.Called(ctx, objectName, data).Error(0)
}

func (m *MockDocumentStore) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentStore) EnsureBucketExists(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDocumentStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// fakeTransactor runs the unit of work directly against the mocked store.
type fakeTransactor struct {
	store *repositories.Store
	calls int
}

func (t *fakeTransactor) WithinTx(_ context.Context, fn func(store *repositories.Store) error) error {
	t.calls++
	return fn(t.store)
}

// repoMocks bundles one mock per repository and the store that exposes them.
type repoMocks struct {
	parties      *MockPartyRepository
	items        *MockItemRepository
	orders       *MockOrderRepository
	invoices     *MockInvoiceRepository
	transactions *MockTransactionRepository
	store        *repositories.Store
}

func newRepoMocks() *repoMocks {
	m := &repoMocks{
		parties:      new(MockPartyRepository),
		items:        new(MockItemRepository),
		orders:       new(MockOrderRepository),
		invoices:     new(MockInvoiceRepository),
		transactions: new(MockTransactionRepository),
	}
	m.store = &repositories.Store{
		Parties:      m.parties,
		Items:        m.items,
		Orders:       m.orders,
		Invoices:     m.invoices,
		Transactions: m.transactions,
	}
	return m
}

func (m *repoMocks) assertExpectations(t mock.TestingT) {
	m.parties.AssertExpectations(t)
	m.items.AssertExpectations(t)
	m.orders.AssertExpectations(t)
	m.invoices.AssertExpectations(t)
	m.transactions.AssertExpectations(t)
}

func strPtr(s string) *string {
	return &s
}
