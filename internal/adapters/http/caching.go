package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// cacheRule maps a path prefix to a Cache-Control policy.
type cacheRule struct {
	prefix string
	policy string
}

// First match wins.
var cacheRules = []cacheRule{
	{"/v1/health", "no-store"},
	{"/v1/ready", "no-store"},
	{"/v1/parking-routes/async/", "no-store"},
	{"/v1/parking-routes/history", "private, max-age=10"},
	{"/metrics", "no-cache"},
	{"/docs", "public, max-age=3600"},
}

// CachingMiddleware sets Cache-Control on GET responses. Handlers that set
// their own header win; plan results are POST responses and never cached.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.GetRespHeader(fiber.HeaderCacheControl) != "" {
			return err
		}
		if policy := cachePolicy(c.Path()); policy != "" {
			c.Set(fiber.HeaderCacheControl, policy)
		}
		return err
	}
}

func cachePolicy(path string) string {
	for _, r := range cacheRules {
		if strings.HasPrefix(path, r.prefix) {
			return r.policy
		}
	}
	return ""
}
