// Package calllist serves call-list documents the way a memento server does.
// It backs local development and the client's integration tests.
package calllist

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	calllistService "memento-client/internal/service/calllist"
	"memento-client/pkg/logger"
	"memento-client/pkg/response"
)

// Route is the call-list resource in gin's path syntax
const Route = calllistService.ListPathPrefix + ":user/" + calllistService.ListDocument

var supportedEncodings = []string{"gzip", "deflate", "identity"}

// Handler handles call-list HTTP requests
type Handler struct {
	store         Store
	forceEncoding string
}

// Option customizes a Handler
type Option func(*Handler)

// WithForcedEncoding answers every request with encoding, whatever the client
// asked for. It simulates servers that ignore Accept-Encoding.
func WithForcedEncoding(encoding string) Option {
	return func(h *Handler) {
		h.forceEncoding = encoding
	}
}

// NewHandler creates a new call-list handler
func NewHandler(store Store, opts ...Option) *Handler {
	h := &Handler{store: store}
	for _, o := range opts {
		o(h)
	}
	return h
}

// RegisterRoutes adds the call-list route to r
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET(Route, h.GetCallList)
}

// GetCallList serves a subscriber's call list
// GET /org.projectclearwater.call-list/users/:user/call-list.xml
func (h *Handler) GetCallList(c *gin.Context) {
	user := c.Param("user")
	log := logger.FromContext(c.Request.Context())

	fragments, err := h.store.Fragments(c.Request.Context(), user)
	if err != nil {
		if errors.Is(err, ErrInvalidUser) {
			response.InvalidUser(c, "Invalid subscriber identity")
			return
		}
		log.Error("Failed to load call list", zap.String("user", user), zap.Error(err))
		response.InternalError(c, "Failed to load call list")
		return
	}

	encoding := h.forceEncoding
	if encoding == "" {
		encoding = negotiateEncoding(c.GetHeader("Accept-Encoding"))
	}
	body, err := calllistService.Encode(encoding, Assemble(fragments))
	if err != nil {
		log.Error("Failed to encode call list", zap.String("encoding", encoding), zap.Error(err))
		response.InternalError(c, "Failed to encode call list")
		return
	}

	log.Debug("Serving call list",
		zap.String("user", user),
		zap.Int("fragments", len(fragments)),
		zap.String("encoding", encoding))
	c.Header("Content-Encoding", encoding)
	c.Data(http.StatusOK, calllistService.MediaType, body)
}

// Assemble wraps the stored fragments into a complete call-list document
func Assemble(fragments [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString("<call-list><calls>")
	for _, f := range fragments {
		buf.Write(f)
	}
	buf.WriteString("</calls></call-list>")
	return buf.Bytes()
}

// negotiateEncoding picks the first supported coding the client accepts, in
// the client's order. Codings with q=0 are refused. Without a usable header
// the body is sent as identity.
func negotiateEncoding(header string) string {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if refused(params) {
			continue
		}
		if coding == "*" {
			return supportedEncodings[0]
		}
		for _, supported := range supportedEncodings {
			if coding == supported {
				return coding
			}
		}
	}
	return "identity"
}

func refused(params string) bool {
	for _, p := range strings.Split(params, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || strings.TrimSpace(name) != "q" {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return err == nil && q == 0
	}
	return false
}
