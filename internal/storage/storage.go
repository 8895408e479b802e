package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/fatoora-client/internal/domain"
)

// Package storage provides the local submission ledger.

// Store records invoice submissions by operation and UUID. The same invoice
// may be sent once for compliance and once for reporting or clearance, so
// each operation keeps its own entry.
type Store interface {
	Close() error
	Record(sub domain.Submission) error
	Lookup(op domain.Operation, uuid string) (domain.Submission, bool, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RecordTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRecordTTL       = 90 * 24 * time.Hour
	defaultCleanupInterval = 24 * time.Hour
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
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = defaultRecordTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                   { return nil }
func (noopStore) Record(domain.Submission) error { return nil }
func (noopStore) Lookup(domain.Operation, string) (domain.Submission, bool, error) {
	return domain.Submission{}, false, nil
}

// ledgerKey joins op and uuid into the key a submission is stored under.
func ledgerKey(op domain.Operation, uuid string) string {
	return string(op) + "/" + strings.TrimSpace(uuid)
}
