package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles short-lived caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// PaymentStatusCacheTTL bounds how stale a polled payment status may be.
const PaymentStatusCacheTTL = 5 * time.Second

// Key prefixes
const (
	accessTokenKey           = "cache:mpesa:access_token"
	paymentStatusCachePrefix = "cache:payment_status:"
)

// CachedPaymentStatus is the cached view of a payment request returned to pollers.
type CachedPaymentStatus struct {
	CheckoutRequestID  string `json:"checkout_request_id"`
	MemberID           string `json:"member_id"`
	Amount             string `json:"amount"`
	Status             string `json:"status"`
	MpesaReceiptNumber string `json:"mpesa_receipt_number,omitempty"`
	ResultDesc         string `json:"result_desc,omitempty"`
}

// GetAccessToken returns the cached gateway access token, or "" on a cache miss.
func (s *CacheStore) GetAccessToken(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, accessTokenKey).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // Cache miss
		}
		return "", err
	}
	return token, nil
}

// SetAccessToken caches the gateway access token for ttl.
func (s *CacheStore) SetAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, accessTokenKey, token, ttl).Err()
}

// GetPaymentStatus retrieves a payment status from cache.
func (s *CacheStore) GetPaymentStatus(ctx context.Context, checkoutRequestID string) (*CachedPaymentStatus, error) {
	key := paymentStatusCachePrefix + checkoutRequestID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var status CachedPaymentStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetPaymentStatus stores a payment status in cache.
func (s *CacheStore) SetPaymentStatus(ctx context.Context, status *CachedPaymentStatus) error {
	key := paymentStatusCachePrefix + status.CheckoutRequestID
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, PaymentStatusCacheTTL).Err()
}

// InvalidatePaymentStatus removes a payment status from cache.
func (s *CacheStore) InvalidatePaymentStatus(ctx context.Context, checkoutRequestID string) error {
	key := paymentStatusCachePrefix + checkoutRequestID
	return s.client.Del(ctx, key).Err()
}
