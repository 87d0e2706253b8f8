package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Config provides a way to configure the Handler depending on your needs.
type Config struct {
	// Store is the resource backend that identifiers are resolved against.
	// Must not be nil.
	Store ResourceStore
	// MaxConcurrentTransfers bounds the number of simultaneously open
	// transfers. Requests beyond the ceiling are rejected, never queued.
	// Defaults to 100.
	MaxConcurrentTransfers int64
	// RejectionStatus is the status code sent when the transfer ceiling is
	// reached. Must be 503 (default) or 429.
	RejectionStatus int
	// RetryAfter is the hint attached to rejected requests via the
	// Retry-After header. Defaults to 3s.
	RetryAfter time.Duration
	// CacheControl is the cache policy attached to every cacheable
	// response. Defaults to "public, max-age=31536000".
	CacheControl string
	// IdleTimeout is the cutoff after which a transfer without forward
	// progress is considered abandoned by the governor's sweep. The
	// primary idle defense are the network deadlines of the server's
	// listener; this is the in-process backstop. Defaults to 60s.
	IdleTimeout time.Duration
	// SweepInterval is how often the idle sweep runs. Defaults to 30s.
	SweepInterval time.Duration
	// Logger is the logger to use internally, mostly for printing requests.
	Logger *slog.Logger
}

func (config *Config) validate() error {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if config.Store == nil {
		return errors.New("rangd: Store in Config must not be nil")
	}

	if config.MaxConcurrentTransfers <= 0 {
		config.MaxConcurrentTransfers = 100
	}

	switch config.RejectionStatus {
	case 0:
		config.RejectionStatus = http.StatusServiceUnavailable
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
	default:
		return errors.New("rangd: RejectionStatus in Config must be 503 or 429")
	}

	if config.RetryAfter <= 0 {
		config.RetryAfter = 3 * time.Second
	}

	if config.CacheControl == "" {
		config.CacheControl = "public, max-age=31536000"
	}

	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 60 * time.Second
	}

	if config.SweepInterval <= 0 {
		config.SweepInterval = 30 * time.Second
	}

	return nil
}
