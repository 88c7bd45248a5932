package middleware

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// Logger writes one access line per request; health probes are skipped.
func Logger(env string) fiber.Handler {
	skipHealth := func(c *fiber.Ctx) bool {
		return c.Path() == "/healthz"
	}
	if env == "prod" {
		return logger.New(logger.Config{
			Next:       skipHealth,
			Format:     `{"time":"${time}","ip":"${ip}","method":"${method}","path":"${path}","status":${status},"latency":"${latency}","error":"${error}"}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "Local",
			Output:     os.Stdout,
		})
	}
	return logger.New(logger.Config{
		Next:       skipHealth,
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
		Output:     os.Stdout,
	})
}
