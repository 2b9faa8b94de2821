// internal/interfaces/http/middleware/cors.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
)

// OriginPolicy is the storefront origin allow-list, shared by CORS and the
// badge stream's websocket origin check. Entries are exact origins, "*", or
// "*.example.com" for any subdomain.
type OriginPolicy struct {
	any      bool
	exact    map[string]struct{}
	suffixes []string
}

// NewOriginPolicy compiles the configured allow-list
func NewOriginPolicy(allowed []string) *OriginPolicy {
	p := &OriginPolicy{exact: make(map[string]struct{}, len(allowed))}
	for _, entry := range allowed {
		switch {
		case entry == "*":
			p.any = true
		case strings.HasPrefix(entry, "*."):
			p.suffixes = append(p.suffixes, strings.TrimPrefix(entry, "*"))
		case entry != "":
			p.exact[strings.TrimSuffix(entry, "/")] = struct{}{}
		}
	}
	return p
}

// Allows reports whether origin may call the API
func (p *OriginPolicy) Allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.any {
		return true
	}
	if _, ok := p.exact[origin]; ok {
		return true
	}
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

// CORS answers preflights and tags responses for allowed storefront origins.
// Preflights from other origins are refused with 403.
func CORS(cfg *config.Config) gin.HandlerFunc {
	policy := NewOriginPolicy(cfg.Security.CORSAllowedOrigins)
	methods := strings.Join(cfg.Security.CORSAllowedMethods, ", ")
	headers := strings.Join(cfg.Security.CORSAllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		c.Header("Vary", "Origin")

		allowed := policy.Allows(origin)
		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Expose-Headers", RequestIDHeader)
		}

		if c.Request.Method != http.MethodOptions || c.Request.Header.Get("Access-Control-Request-Method") == "" {
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "origin not allowed",
				"code":  "CORS_ORIGIN_DENIED",
			})
			return
		}

		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Max-Age", "86400")
		c.AbortWithStatus(http.StatusNoContent)
	}
}
