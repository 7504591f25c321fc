package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const envelopeMetaKey = "envelope_meta"

// WithResponseMeta attaches a metadata map to the request and stamps the
// processing time on it once the handler chain returns.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(envelopeMetaKey, map[string]interface{}{})
		c.Next()
		meta := metaFor(c)
		if _, exists := meta["processing_time_ms"]; !exists {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaFor(c)["cache_hit"] = hit
}

// ExtractMeta returns the metadata map stored on the context, or nil when
// WithResponseMeta is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if value, exists := c.Get(envelopeMetaKey); exists {
		if meta, ok := value.(map[string]interface{}); ok {
			return meta
		}
	}
	return nil
}

func metaFor(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := map[string]interface{}{}
	if c != nil {
		c.Set(envelopeMetaKey, meta)
	}
	return meta
}
