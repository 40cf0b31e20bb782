// Package modectl exposes the global mode switch to external actors
// in the style of a proc file: a decimal ASCII value, stored and read
// back verbatim. Clamping of out-of-range values happens where the
// guard consults the store, not here. Two transports are provided, an
// HTTP endpoint and a watched mode file.
package modectl

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hardenfs/prfs"
)

// Handler serves the mode control endpoint over HTTP.
type Handler struct {
	store *prfs.ModeStore
	log   *slog.Logger
}

// NewHandler creates a handler over the given store.
func NewHandler(store *prfs.ModeStore, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, log: log}
}

// Register mounts the mode endpoint on a gin router:
//
//	GET  /prfs/mode  -> current mode as decimal ASCII plus newline
//	PUT  /prfs/mode  -> leading decimal integer in the body sets the mode
//	POST /prfs/mode  -> same as PUT
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/prfs/mode", h.getMode)
	r.PUT("/prfs/mode", h.setMode)
	r.POST("/prfs/mode", h.setMode)
}

func (h *Handler) getMode(c *gin.Context) {
	// Reads report the stored value verbatim, so an operator who
	// wrote an out-of-range value sees it back rather than the clamp.
	c.String(http.StatusOK, "%d\n", h.store.Raw())
}

func (h *Handler) setMode(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 100))
	if err != nil {
		c.String(http.StatusBadRequest, "read body: %v\n", err)
		return
	}

	v, err := parseLeadingInt(string(body))
	if err != nil {
		c.String(http.StatusBadRequest, "expected a decimal integer\n")
		return
	}

	// Any value is accepted; out-of-range values read back as
	// read-only via the store's clamp.
	h.store.Set(v)
	h.log.Info("mode set",
		"value", v,
		"effective", h.store.Get().String())
	c.String(http.StatusOK, "%d\n", v)
}

// parseLeadingInt parses the first whitespace-delimited token of s as
// a decimal integer. Trailing junk after the token is ignored.
func parseLeadingInt(s string) (int32, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t\n\r"); i >= 0 {
		s = s[:i]
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}
