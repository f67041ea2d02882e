package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the client-supplied key for a retried request.
	IdempotencyKeyHeader = "Idempotency-Key"

	idempotencyKeyPrefix    = "idempotency:"
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultProcessingTTL    = 60 * time.Second
	idempotencyStatusActive = "processing"
	idempotencyStatusDone   = "completed"
)

// IdempotencyStore is the subset of the Redis client the middleware needs.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type idempotencyRecord struct {
	Status       string    `json:"status"`
	RequestHash  string    `json:"request_hash"`
	ResponseCode int       `json:"response_code,omitempty"`
	ResponseBody string    `json:"response_body,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// IdempotencyConfig configures IdempotencyMiddleware.
type IdempotencyConfig struct {
	Store         IdempotencyStore
	TTL           time.Duration
	ProcessingTTL time.Duration
	Logger        *zap.Logger
}

type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response when a request is retried
// with the same Idempotency-Key and body. Only 2xx responses are stored, so a
// declined or failed attempt can be retried under the same key. Requests
// without the header pass through untouched, and Redis errors fail open.
func IdempotencyMiddleware(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultIdempotencyTTL
	}
	if cfg.ProcessingTTL <= 0 {
		cfg.ProcessingTTL = defaultProcessingTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || cfg.Store == nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		redisKey := idempotencyKeyPrefix + key
		hash := requestHash(c.Request.Method, c.Request.URL.Path, body)

		pending, _ := json.Marshal(idempotencyRecord{
			Status:      idempotencyStatusActive,
			RequestHash: hash,
			CreatedAt:   time.Now().UTC(),
		})
		acquired, err := cfg.Store.SetNX(ctx, redisKey, pending, cfg.ProcessingTTL).Result()
		if err != nil {
			cfg.Logger.Warn("idempotency store unavailable, continuing without it", zap.Error(err))
			c.Next()
			return
		}

		if !acquired {
			replayOrReject(c, cfg, redisKey, hash)
			return
		}

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			if err := cfg.Store.Del(ctx, redisKey).Err(); err != nil {
				cfg.Logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
			return
		}

		done, _ := json.Marshal(idempotencyRecord{
			Status:       idempotencyStatusDone,
			RequestHash:  hash,
			ResponseCode: status,
			ResponseBody: writer.body.String(),
			CreatedAt:    time.Now().UTC(),
		})
		if err := cfg.Store.Set(ctx, redisKey, done, cfg.TTL).Err(); err != nil {
			cfg.Logger.Warn("failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
	}
}

func replayOrReject(c *gin.Context, cfg IdempotencyConfig, redisKey, hash string) {
	raw, err := cfg.Store.Get(c.Request.Context(), redisKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "A request with this idempotency key is in progress"})
			return
		}
		cfg.Logger.Warn("failed to read idempotency record", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		cfg.Logger.Warn("corrupt idempotency record", zap.String("key", redisKey), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	switch {
	case record.RequestHash != hash:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "Idempotency key was already used with a different request"})
	case record.Status != idempotencyStatusDone:
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "A request with this idempotency key is in progress"})
	default:
		c.Header("Idempotent-Replayed", "true")
		c.Data(record.ResponseCode, "application/json; charset=utf-8", []byte(record.ResponseBody))
		c.Abort()
	}
}

func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
