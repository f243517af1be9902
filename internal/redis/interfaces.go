package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireCallbackLock(ctx context.Context, checkoutRequestID string, ttl time.Duration) (token string, acquired bool, err error)
	ReleaseCallbackLock(ctx context.Context, checkoutRequestID, token string) error
}

// PaymentStatusCache caches payment statuses for polling clients.
type PaymentStatusCache interface {
	GetPaymentStatus(ctx context.Context, checkoutRequestID string) (*CachedPaymentStatus, error)
	SetPaymentStatus(ctx context.Context, status *CachedPaymentStatus) error
	InvalidatePaymentStatus(ctx context.Context, checkoutRequestID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface = (*LockStore)(nil)
	_ PaymentStatusCache = (*CacheStore)(nil)
)
