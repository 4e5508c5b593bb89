// Package logging builds the service's slog logger and the gin request
// logger that writes through it.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Setup returns a JSON logger unless format is "text". Unknown levels
// fall back to info. A nil w writes to stderr.
func Setup(format, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		lv = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lv}

	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

func GinMiddleware(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		st := c.Writer.Status()
		lv := slog.LevelInfo
		if st >= 500 {
			lv = slog.LevelError
		}
		l.Log(c.Request.Context(), lv, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", st,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
