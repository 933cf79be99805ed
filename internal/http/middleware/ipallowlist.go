package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/go-hclog"

	"docvault/internal/config"
)

const (
	// NetworkLocalKey holds the configured name of the client's network.
	NetworkLocalKey = "network"
	// UnknownNetwork names addresses missing from the name mapping.
	UnknownNetwork = "Unknown Network"
)

// IPAllowlist rejects clients whose address is not in cfg.AllowedIPs with
// 403. Paths in open bypass the check. With no allowed addresses the
// middleware only labels the network.
func IPAllowlist(cfg config.NetworkConfig, logger hclog.Logger, open ...string) fiber.Handler {
	logger = logger.Named("ip-allowlist")
	allowed := make(map[string]struct{}, len(cfg.AllowedIPs))
	for _, ip := range cfg.AllowedIPs {
		allowed[ip] = struct{}{}
	}
	bypass := make(map[string]struct{}, len(open))
	for _, p := range open {
		bypass[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		ip := c.IP()
		network, ok := cfg.Names[ip]
		if !ok {
			network = UnknownNetwork
		}
		c.Locals(NetworkLocalKey, network)

		if len(allowed) == 0 {
			return c.Next()
		}
		if _, ok := bypass[c.Path()]; ok {
			return c.Next()
		}
		if _, ok := allowed[ip]; !ok {
			logger.Warn("blocked request from unlisted address",
				"request_id", c.Locals(RequestIDLocalKey), "client_ip", ip, "network", network, "path", c.Path())
			return fiber.NewError(fiber.StatusForbidden, "access is restricted to authorized networks")
		}
		return c.Next()
	}
}
