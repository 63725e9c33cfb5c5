package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gstledger/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "gstledger"

// redeleteDelay is how long after an invalidation the key is deleted a second time. A read
// that loaded from the database before the write can repopulate the key inside this window.
const redeleteDelay = 500 * time.Millisecond

// CacheService is a read-through cache for order and invoice reads.
// A miss is reported as (nil, nil).
type CacheService interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	SetOrder(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error

	GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	SetInvoice(ctx context.Context, invoice *models.Invoice) error
	DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error

	Ping(ctx context.Context) error
	Close() error
}

type redisCacheService struct {
	client        *redis.Client
	ttl           time.Duration
	redeleteDelay time.Duration
	afterFunc     func(time.Duration, func())
	logger        *zap.Logger
}

func afterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

func NewRedisCacheService(addr, password string, db int, ttl time.Duration, logger *zap.Logger) CacheService {
	// Accept redis://host:port as well as host:port
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed on initialization", zap.String("addr", parsedAddr), zap.Error(err))
	} else {
		logger.Info("redis connection established", zap.String("addr", parsedAddr))
	}

	return &redisCacheService{
		client:        client,
		ttl:           ttl,
		redeleteDelay: redeleteDelay,
		afterFunc:     afterFunc,
		logger:        logger,
	}
}

func OrderKey(orderID uuid.UUID) string {
	return fmt.Sprintf("%s:order:%s", keyPrefix, orderID.String())
}

func InvoiceKey(invoiceID uuid.UUID) string {
	return fmt.Sprintf("%s:invoice:%s", keyPrefix, invoiceID.String())
}

func (r *redisCacheService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	found, err := r.getJSON(ctx, OrderKey(orderID), &order)
	if err != nil || !found {
		return nil, err
	}
	return &order, nil
}

func (r *redisCacheService) SetOrder(ctx context.Context, order *models.Order) error {
	return r.setJSON(ctx, OrderKey(order.ID), order)
}

func (r *redisCacheService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.invalidate(ctx, OrderKey(orderID))
}

func (r *redisCacheService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	found, err := r.getJSON(ctx, InvoiceKey(invoiceID), &invoice)
	if err != nil || !found {
		return nil, err
	}
	return &invoice, nil
}

func (r *redisCacheService) SetInvoice(ctx context.Context, invoice *models.Invoice) error {
	return r.setJSON(ctx, InvoiceKey(invoice.ID), invoice)
}

func (r *redisCacheService) DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	return r.invalidate(ctx, InvoiceKey(invoiceID))
}

// invalidate deletes key now and again after redeleteDelay. Staleness past the second
// delete is bounded by the entry TTL.
func (r *redisCacheService) invalidate(ctx context.Context, key string) error {
	err := r.client.Del(ctx, key).Err()
	r.afterFunc(r.redeleteDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			r.logger.Debug("delayed cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	})
	return err
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCacheService) Close() error {
	return r.client.Close()
}

func (r *redisCacheService) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// A payload that no longer decodes is dropped and treated as a miss.
		r.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = r.client.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (r *redisCacheService) setJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}
