package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// commandKey holds the match command a handler resolved from the request,
// e.g. "goal(1)" or "penalize".
const commandKey = "refctl.command"

// SetCommand tags the request with the match command it carried so the
// request log line names it.
func SetCommand(c *gin.Context, command string) {
	c.Set(commandKey, command)
}

// CommandOf returns the command set by SetCommand, if any.
func CommandOf(c *gin.Context) (string, bool) {
	v, ok := c.Get(commandKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// RequestLogger writes one line per request. Reads log at debug; commands
// log at info, or warn when the controller refused them.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := requestEvent(logger, c.Request.Method, status)
		event = event.
			Str("method", c.Request.Method).
			Str("route", routeOf(c)).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP())
		if cmd, ok := CommandOf(c); ok {
			event = event.Str("command", cmd).Bool("accepted", status < 300)
		}
		event.Msg("observability.RequestLogger")
	}
}

func RequestMetricsMiddleware(node string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		RecordHTTPRequest(node, c.Request.Method, routeOf(c), c.Writer.Status(), time.Since(start))
	}
}

func requestEvent(logger zerolog.Logger, method string, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return logger.Error()
	case status >= 400:
		return logger.Warn()
	case method != "GET":
		return logger.Info()
	default:
		return logger.Debug()
	}
}

// routeOf prefers the registered route pattern so path parameters such as
// request IDs do not explode label cardinality.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}
