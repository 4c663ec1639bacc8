package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/sweetshop/api/internal/config"
)

// cacheRecorder duplicates the response body into a buffer while streaming
// it to the client, up to the configured limit.
type cacheRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
}

func (cr *cacheRecorder) WriteHeader(code int) {
	cr.status = code
	cr.ResponseWriter.WriteHeader(code)
}

func (cr *cacheRecorder) Write(b []byte) (int, error) {
	if cr.buf.Len() < cr.limit {
		room := cr.limit - cr.buf.Len()
		if len(b) <= room {
			cr.buf.Write(b)
		} else {
			cr.buf.Write(b[:room])
		}
	}
	return cr.ResponseWriter.Write(b)
}

// CacheResponses caches successful GET responses for public catalog routes
// in Redis, keyed by route and query string. Disabled (or Redis missing) it
// is a no-op. Only 200 responses at or under the body limit are stored.
func CacheResponses(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			key := cacheKey(cfg.Prefix, c)

			if payload, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				if status, body, ok := decodeCached(payload); ok {
					c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, werr := c.Response().Write(body)
					return werr
				}
			}

			rec := &cacheRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if rec.status == http.StatusOK && rec.buf.Len() < cfg.MaxBodyBytes {
				_ = rdb.SetEx(context.Background(), key, encodeCached(rec.status, rec.buf.Bytes()), cfg.TTL).Err()
			}
			return nil
		}
	}
}

func cacheKey(prefix string, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum)
}

// Cached payload layout: [4 bytes status][body].
func encodeCached(status int, body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[:4], uint32(status))
	copy(out[4:], body)
	return out
}

func decodeCached(payload []byte) (status int, body []byte, ok bool) {
	if len(payload) < 4 {
		return 0, nil, false
	}
	return int(binary.BigEndian.Uint32(payload[:4])), payload[4:], true
}
