package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samvad-hq/fatoora-client/internal/domain"
)

func setupEnv(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("ZATCA_ENVIRONMENT", "sandbox")
	t.Setenv("ZATCA_BASE_URL", baseURL)
	t.Setenv("ZATCA_CERTIFICATE", "cert")
	t.Setenv("ZATCA_SECRET", "secret")
	t.Setenv("CREDENTIALS_FILE", filepath.Join(dir, "credentials.yaml"))
	t.Setenv("LEDGER_TYPE", "bbolt")
	t.Setenv("LEDGER_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("PUBLISHERS_FILE", "")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, cleanup := newRootCmd()
	defer func() { _ = cleanup() }()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReportThenStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invoices/reporting/single" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Clearance-Status") != "0" {
			t.Errorf("Clearance-Status = %q", r.Header.Get("Clearance-Status"))
		}
		_, _ = w.Write([]byte(`{"validationResults":{"status":"PASS"},"reportingStatus":"REPORTED"}`))
	}))
	defer srv.Close()

	dir := setupEnv(t, srv.URL)
	invoice := filepath.Join(dir, "invoice.xml")
	if err := os.WriteFile(invoice, []byte("<Invoice/>"), 0o644); err != nil {
		t.Fatalf("write invoice: %v", err)
	}

	out, err := execute(t, "report", "--invoice", invoice, "--uuid", "u-1", "--hash", "aGFzaA==", "--clearance-status=false")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, `"reportingStatus": "REPORTED"`) {
		t.Fatalf("unexpected report output %s", out)
	}

	out, err = execute(t, "status", "u-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var subs []domain.Submission
	if err := json.Unmarshal([]byte(out), &subs); err != nil {
		t.Fatalf("decode status output: %v (%s)", err, out)
	}
	if len(subs) != 1 || subs[0].Operation != domain.OperationReporting || subs[0].Status != "REPORTED" {
		t.Fatalf("unexpected submissions %#v", subs)
	}
}

func TestClearWritesClearedInvoice(t *testing.T) {
	cleared := base64.StdEncoding.EncodeToString([]byte("<Invoice cleared='1'/>"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"clearanceStatus":"CLEARED","clearedInvoice":"` + cleared + `"}`))
	}))
	defer srv.Close()

	dir := setupEnv(t, srv.URL)
	invoice := filepath.Join(dir, "invoice.xml")
	if err := os.WriteFile(invoice, []byte("<Invoice/>"), 0o644); err != nil {
		t.Fatalf("write invoice: %v", err)
	}
	target := filepath.Join(dir, "cleared.xml")

	if _, err := execute(t, "clear", "--invoice", invoice, "--uuid", "u-2", "--out", target); err != nil {
		t.Fatalf("clear: %v", err)
	}
	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read cleared invoice: %v", err)
	}
	if string(raw) != "<Invoice cleared='1'/>" {
		t.Fatalf("cleared invoice = %s", raw)
	}
}

func TestRejectedCallListsGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"code":"Invalid-OTP","message":"OTP is not valid"}]}`))
	}))
	defer srv.Close()

	dir := setupEnv(t, srv.URL)
	csr := filepath.Join(dir, "egs.csr")
	if err := os.WriteFile(csr, []byte("-----BEGIN CERTIFICATE REQUEST-----"), 0o644); err != nil {
		t.Fatalf("write csr: %v", err)
	}

	_, err := execute(t, "compliance-csid", "--csr", csr, "--otp", "000000")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "Invalid-OTP: OTP is not valid") {
		t.Fatalf("error should list gateway errors: %v", err)
	}
}

func TestStatusUnknownUUID(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")
	if _, err := execute(t, "status", "missing"); err == nil {
		t.Fatalf("expected error for unknown uuid")
	}
}

func TestInvalidEnvironmentFlag(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")
	if _, err := execute(t, "--environment", "staging", "status", "x"); err == nil {
		t.Fatalf("expected error for unknown environment")
	}
}

func TestBatchSubmitsManifest(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"reportingStatus":"REPORTED"}`))
	}))
	defer srv.Close()

	dir := setupEnv(t, srv.URL)
	for _, name := range []string{"a.xml", "b.xml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("<Invoice/>"), 0o644); err != nil {
			t.Fatalf("write invoice: %v", err)
		}
	}
	manifest := filepath.Join(dir, "batch.yaml")
	raw := "delay_ms: 1\ninvoices:\n  - uuid: a\n    path: a.xml\n  - uuid: b\n    path: b.xml\n"
	if err := os.WriteFile(manifest, []byte(raw), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	out, err := execute(t, "batch", manifest)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if !strings.Contains(out, `"submitted": 2`) {
		t.Fatalf("unexpected summary %s", out)
	}

	out, err = execute(t, "batch", manifest)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if !strings.Contains(out, `"skipped": 2`) || calls != 2 {
		t.Fatalf("second run should skip recorded invoices: %s (calls=%d)", out, calls)
	}
}
