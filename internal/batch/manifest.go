package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/fatoora-client/internal/domain"
)

// Package batch submits a manifest of signed invoices in one pass.

const defaultDelayMs = 250

// Entry is one invoice listed in a manifest.
type Entry struct {
	UUID            string           `json:"uuid" yaml:"uuid"`
	Hash            string           `json:"hash" yaml:"hash"`
	Path            string           `json:"path" yaml:"path"`
	Operation       domain.Operation `json:"operation" yaml:"operation"`
	ClearanceStatus *bool            `json:"clearance_status" yaml:"clearance_status"`
}

// Manifest lists invoices to submit and the pause between submissions.
type Manifest struct {
	DelayMs  int     `json:"delay_ms" yaml:"delay_ms"`
	Invoices []Entry `json:"invoices" yaml:"invoices"`
}

// LoadManifest reads a YAML/JSON manifest. Relative invoice paths resolve
// against the manifest's directory.
func LoadManifest(path string) (Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return Manifest{}, errors.New("manifest path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	m, err := parseManifest(raw, filepath.Ext(path))
	if err != nil {
		return Manifest{}, err
	}
	if len(m.Invoices) == 0 {
		return Manifest{}, errors.New("manifest contains no invoices entries")
	}
	if m.DelayMs <= 0 {
		m.DelayMs = defaultDelayMs
	}

	base := filepath.Dir(path)
	seen := make(map[string]struct{}, len(m.Invoices))
	for i := range m.Invoices {
		e := sanitizeEntry(m.Invoices[i], base)
		if err := validateEntry(e); err != nil {
			return Manifest{}, fmt.Errorf("invoices[%d]: %w", i, err)
		}
		if _, exists := seen[e.UUID]; exists {
			return Manifest{}, fmt.Errorf("duplicate invoice uuid %q", e.UUID)
		}
		seen[e.UUID] = struct{}{}
		m.Invoices[i] = e
	}
	return m, nil
}

func parseManifest(data []byte, ext string) (Manifest, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var m Manifest
		if err := d.fn(data, &m); err == nil {
			return m, nil
		}
	}

	return Manifest{}, errors.New("manifest format not recognized (expected YAML or JSON)")
}

func sanitizeEntry(e Entry, base string) Entry {
	e.UUID = strings.TrimSpace(e.UUID)
	e.Hash = strings.TrimSpace(e.Hash)
	e.Path = strings.TrimSpace(e.Path)
	e.Operation = domain.Operation(strings.ToLower(strings.TrimSpace(string(e.Operation))))

	if e.Operation == "" {
		e.Operation = domain.OperationReporting
	}
	if e.Path != "" && !filepath.IsAbs(e.Path) {
		e.Path = filepath.Join(base, e.Path)
	}
	if e.ClearanceStatus == nil {
		def := true
		e.ClearanceStatus = &def
	}
	return e
}

func validateEntry(e Entry) error {
	if e.UUID == "" {
		return errors.New("uuid is required")
	}
	if e.Path == "" {
		return fmt.Errorf("path is required for invoice %q", e.UUID)
	}
	switch e.Operation {
	case domain.OperationReporting, domain.OperationClearance, domain.OperationCompliance:
	default:
		return fmt.Errorf("unknown operation %q for invoice %q", e.Operation, e.UUID)
	}
	return nil
}

// Delay returns the pause between two submissions.
func (m Manifest) Delay() time.Duration {
	if m.DelayMs <= 0 {
		return time.Duration(defaultDelayMs) * time.Millisecond
	}
	return time.Duration(m.DelayMs) * time.Millisecond
}
