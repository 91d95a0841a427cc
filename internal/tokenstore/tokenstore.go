package tokenstore

import (
	"fmt"
	"strings"
	"time"
)

// Package tokenstore persists bearer tokens per service id with a TTL.

// Store keeps issued tokens between runs so callers can skip re-login.
type Store interface {
	Close() error
	Token(serviceID string) (string, bool, error)
	SaveToken(serviceID, token string) error
	DeleteToken(serviceID string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	TokenTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTokenTTL        = time.Hour
	defaultCleanupInterval = 10 * time.Minute
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt token store requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported token store type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                       { return nil }
func (noopStore) Token(string) (string, bool, error) { return "", false, nil }
func (noopStore) SaveToken(string, string) error     { return nil }
func (noopStore) DeleteToken(string) error           { return nil }
