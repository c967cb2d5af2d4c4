// Package calllist fetches a subscriber's call history from a memento server
// and turns the validated call-list document into domain calls.
package calllist

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"memento-client/internal/domain"
	"memento-client/internal/schema"
	"memento-client/internal/xmltree"
	apperrors "memento-client/pkg/errors"
	"memento-client/pkg/logger"
	"memento-client/pkg/metrics"
)

// Stages a fetch goes through, in order. A fetch stops at the first stage that
// fails; the stage name labels the failure metric.
const (
	StageRequest     = "request"
	StageResponse    = "response"
	StageEncoding    = "encoding"
	StageContentType = "content_type"
	StageParse       = "parse"
	StageSchema      = "schema"
	StageMap         = "map"
)

// DefaultTimeout bounds a whole fetch when no timeout is configured
const DefaultTimeout = 30 * time.Second

// maxErrorBody is how much of a non-2xx response body ends up in the error
const maxErrorBody = 512

// Options identifies the server and subscriber a Service fetches for
type Options struct {
	Server   string // host[:port] of the memento server
	User     string // subscriber identity, e.g. sip:alice@example.com
	Username string // HTTP Basic credentials
	Password string
	Encoding string // requested Accept-Encoding; DefaultEncoding when empty
	Timeout  time.Duration

	// InsecureSkipVerify disables TLS certificate checks. Never use it in production.
	InsecureSkipVerify bool
	// Debug logs the raw response headers and body
	Debug bool
	// Scheme defaults to https
	Scheme string
}

// Option customizes a Service
type Option func(*Service)

// WithHTTPClient replaces the HTTP client built from the options
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		s.client = c
	}
}

// WithMetrics records fetch metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Service fetches call lists. It is safe for concurrent use; every Fetch
// returns an independent history.
type Service struct {
	opts    Options
	schema  *schema.Schema
	client  *http.Client
	metrics *metrics.Metrics
}

// NewService creates a call-list service
func NewService(opts Options, s *schema.Schema, options ...Option) (*Service, error) {
	if opts.Server == "" {
		return nil, apperrors.ConfigError("memento server is required", nil)
	}
	if opts.User == "" {
		return nil, apperrors.ConfigError("subscriber identity is required", nil)
	}
	if s == nil {
		return nil, apperrors.ConfigError("call-list schema is required", nil)
	}
	if opts.Encoding == "" {
		opts.Encoding = DefaultEncoding
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Scheme == "" {
		opts.Scheme = "https"
	}

	svc := &Service{
		opts:   opts,
		schema: s,
	}
	for _, o := range options {
		o(svc)
	}
	if svc.client == nil {
		svc.client = newHTTPClient(opts)
	}
	return svc, nil
}

func newHTTPClient(opts Options) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// the body is decoded explicitly so the requested encoding can be verified
	transport.DisableCompression = true
	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: opts.InsecureSkipVerify, // #nosec G402 -- explicit opt-in
	}
	if opts.InsecureSkipVerify {
		logger.Warn("TLS certificate verification is disabled", zap.String("server", opts.Server))
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}
}

// URL returns the call-list resource of the configured subscriber
func (s *Service) URL() string {
	return s.opts.Scheme + "://" + s.opts.Server + ListPathPrefix + url.PathEscape(s.opts.User) + "/" + ListDocument
}

// Fetch retrieves, checks and maps the call history using the configured encoding
func (s *Service) Fetch(ctx context.Context) (*domain.CallHistory, error) {
	return s.FetchWithEncoding(ctx, s.opts.Encoding)
}

// FetchWithEncoding retrieves the call history, asking for the given content
// encoding and rejecting a response that uses any other.
func (s *Service) FetchWithEncoding(ctx context.Context, encoding string) (*domain.CallHistory, error) {
	requestID := uuid.New().String()
	ctx = logger.WithRequestID(ctx, requestID)
	log := logger.FromContext(ctx)
	start := time.Now()

	history, stage, err := s.fetch(ctx, requestID, encoding)
	duration := time.Since(start)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordStageFailure(stage)
			s.metrics.RecordFetch(metrics.ResultFailure, 0, duration)
		}
		log.Error("Call list fetch failed",
			zap.String("stage", stage),
			zap.String("code", string(apperrors.CodeOf(err))),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordFetch(metrics.ResultSuccess, history.Len(), duration)
	}
	log.Info("Call list fetched",
		zap.String("user", s.opts.User),
		zap.Int("calls", history.Len()),
		zap.Duration("duration", duration))
	return history, nil
}

// fetch runs the stages in order and reports which one failed
func (s *Service) fetch(ctx context.Context, requestID, encoding string) (*domain.CallHistory, string, error) {
	log := logger.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(), nil)
	if err != nil {
		return nil, StageRequest, apperrors.ConfigError("cannot build call-list request", err)
	}
	req.SetBasicAuth(s.opts.Username, s.opts.Password)
	req.Header.Set("Accept-Encoding", encoding)
	req.Header.Set("Accept", MediaType)
	req.Header.Set("X-Request-ID", requestID)

	log.Debug("Requesting call list", zap.String("url", req.URL.String()), zap.String("encoding", encoding))
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, StageRequest, apperrors.TransportError("call-list request failed", err)
	}
	defer resp.Body.Close()

	if s.opts.Debug {
		log.Info("Call list response headers", zap.Int("status", resp.StatusCode), zap.Any("headers", resp.Header))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, StageResponse, apperrors.UnexpectedStatusError(resp.StatusCode, string(snippet))
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, StageResponse, apperrors.TransportError("cannot read call-list response", err)
	}
	if len(raw) > MaxBodySize {
		return nil, StageResponse, apperrors.TransportError(fmt.Sprintf("response body exceeds %d bytes", MaxBodySize), nil)
	}

	if err := Inspect(resp.Header, encoding, MediaType); err != nil {
		if apperrors.Is(err, apperrors.ErrCodeEncodingMismatch) {
			return nil, StageEncoding, err
		}
		return nil, StageContentType, err
	}

	body, err := Decode(encoding, raw)
	if err != nil {
		return nil, StageEncoding, err
	}
	if s.opts.Debug {
		log.Info("Call list response body", zap.ByteString("body", body))
	}

	doc, err := xmltree.Parse(body)
	if err != nil {
		return nil, StageParse, apperrors.MalformedXMLError(err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, StageSchema, err
	}

	history, err := MapHistory(doc)
	if err != nil {
		return nil, StageMap, err
	}
	return history, "", nil
}
