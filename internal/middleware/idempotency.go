package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour

	// reservationTTL bounds how long a crashed request can block its key.
	reservationTTL = 2 * time.Minute
)

// ResponseStore persists responses for replay. *redis.IdempotencyStore satisfies it.
type ResponseStore interface {
	GetResponse(ctx context.Context, key string) ([]byte, error)
	SetResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response when a POST, PUT or PATCH
// repeats an Idempotency-Key on the same route. The key is reserved while the
// first request runs, and repeats arriving meanwhile get 409, so a second STK
// Push with the same key never prompts the member's phone again.
func IdempotencyMiddleware(store ResponseStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only apply to mutating methods.
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := c.Request.Method + ":" + c.FullPath() + ":" + key

		replayed, err := replay(c, store, cacheKey)
		if err != nil {
			// Store error - proceed without idempotency.
			c.Next()
			return
		}
		if replayed {
			return
		}

		reserved, err := store.Reserve(ctx, cacheKey, reservationTTL)
		if err != nil {
			c.Next()
			return
		}
		if !reserved {
			// The first request may have finished since the lookup above.
			if replayed, err := replay(c, store, cacheKey); err == nil && replayed {
				return
			}
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "a request with this Idempotency-Key is still in progress",
			})
			return
		}
		defer func() {
			_ = store.Release(context.WithoutCancel(ctx), cacheKey)
		}()

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// 5xx responses are not stored so the client may retry.
		if c.Writer.Status() >= 200 && c.Writer.Status() < 500 {
			response := cachedResponse{
				StatusCode: c.Writer.Status(),
				Body:       w.body.Bytes(),
				Headers:    extractResponseHeaders(c),
			}
			if encoded, err := json.Marshal(&response); err == nil {
				_ = store.SetResponse(context.WithoutCancel(ctx), cacheKey, encoded, idempotencyTTL)
			}
		}
	}
}

// replay writes the stored response for cacheKey, if any, and aborts the chain.
func replay(c *gin.Context, store ResponseStore, cacheKey string) (bool, error) {
	data, err := store.GetResponse(c.Request.Context(), cacheKey)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return false, nil
	}
	for k, v := range cached.Headers {
		for _, val := range v {
			c.Header(k, val)
		}
	}
	c.Header("Idempotent-Replayed", "true")
	c.Data(cached.StatusCode, "application/json", cached.Body)
	c.Abort()
	return true, nil
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	// Only cache Content-Type header.
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
