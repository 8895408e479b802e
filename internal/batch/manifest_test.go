package batch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samvad-hq/fatoora-client/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "batch.yaml", `
invoices:
  - uuid: " u-1 "
    path: one.xml
  - uuid: u-2
    path: /abs/two.xml
    operation: Clearance
    clearance_status: false
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Delay() != time.Duration(defaultDelayMs)*time.Millisecond {
		t.Fatalf("delay = %s", m.Delay())
	}

	first := m.Invoices[0]
	if first.UUID != "u-1" || first.Operation != domain.OperationReporting {
		t.Fatalf("unexpected first entry %#v", first)
	}
	if first.Path != filepath.Join(dir, "one.xml") {
		t.Fatalf("relative path not resolved: %s", first.Path)
	}
	if first.ClearanceStatus == nil || !*first.ClearanceStatus {
		t.Fatalf("clearance status should default to true")
	}

	second := m.Invoices[1]
	if second.Operation != domain.OperationClearance || *second.ClearanceStatus {
		t.Fatalf("unexpected second entry %#v", second)
	}
	if second.Path != "/abs/two.xml" {
		t.Fatalf("absolute path changed: %s", second.Path)
	}
}

func TestLoadManifestJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "batch.json", `{"delay_ms": 10, "invoices": [{"uuid": "u-1", "path": "a.xml", "operation": "compliance"}]}`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Delay() != 10*time.Millisecond || m.Invoices[0].Operation != domain.OperationCompliance {
		t.Fatalf("unexpected manifest %#v", m)
	}
}

func TestLoadManifestRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"empty":     "invoices: []\n",
		"no uuid":   "invoices:\n  - path: a.xml\n",
		"no path":   "invoices:\n  - uuid: u-1\n",
		"operation": "invoices:\n  - uuid: u-1\n    path: a.xml\n    operation: refund\n",
		"duplicate": "invoices:\n  - uuid: u-1\n    path: a.xml\n  - uuid: u-1\n    path: b.xml\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "batch.yaml", raw)
			if _, err := LoadManifest(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing manifest")
	}
}
