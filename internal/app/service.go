package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/fatoora-client/internal/config"
	"github.com/samvad-hq/fatoora-client/internal/credentials"
	"github.com/samvad-hq/fatoora-client/internal/domain"
	"github.com/samvad-hq/fatoora-client/internal/logger"
	"github.com/samvad-hq/fatoora-client/internal/storage"
	"github.com/samvad-hq/fatoora-client/pkg/publishers"
	"github.com/samvad-hq/fatoora-client/pkg/zatca"
)

// Invoice is a signed invoice ready for submission.
type Invoice struct {
	SignedXML []byte
	Hash      string
	UUID      string
}

// Service wires the gateway client to the submission ledger and publishers.
// Every invoice call is recorded locally and announced downstream; neither
// side effect can fail the call itself.
type Service struct {
	cfg     *config.Config
	log     logger.Logger
	store   storage.Store
	fanout  *publishers.Fanout
	profile *credentials.Profile
	now     func() time.Time

	mu     sync.RWMutex
	client *zatca.Client
}

// NewService builds the runtime from config.
func NewService(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Service{cfg: cfg, log: log, now: func() time.Time { return time.Now().UTC() }}

	certificate, secret := s.resolveCredentials()
	opts := []zatca.Option{
		zatca.WithLogger(log),
		zatca.WithTimeout(cfg.HTTPTimeout),
	}
	if cfg.ZatcaBaseURL != "" {
		opts = append(opts, zatca.WithBaseURL(cfg.ZatcaBaseURL))
	}
	if certificate != "" && secret != "" {
		opts = append(opts, zatca.WithCredentials(certificate, secret))
	}

	client, err := zatca.New(cfg.Environment, opts...)
	if err != nil {
		return nil, fmt.Errorf("init zatca client: %w", err)
	}
	s.client = client

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	s.fanout = fanout

	store, err := storage.NewStore(cfg.LedgerType, cfg.LedgerPath, storage.Options{
		RecordTTL:       cfg.LedgerTTL,
		CleanupInterval: cfg.LedgerCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	s.store = store
	log.InfoObj("ledger initialized", "ledger_config", map[string]any{
		"type":                     cfg.LedgerType,
		"path":                     cfg.LedgerPath,
		"ttl_seconds":              int(cfg.LedgerTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.LedgerCleanupInterval.Seconds()),
	})

	return s, nil
}

// resolveCredentials prefers explicit config values over the saved profile.
func (s *Service) resolveCredentials() (string, string) {
	if s.cfg.ZatcaCertificate != "" && s.cfg.ZatcaSecret != "" {
		return s.cfg.ZatcaCertificate, s.cfg.ZatcaSecret
	}
	if s.cfg.CredentialsFile == "" {
		return "", ""
	}

	p, err := credentials.Load(s.cfg.CredentialsFile)
	switch {
	case errors.Is(err, credentials.ErrNotFound):
		return "", ""
	case err != nil:
		s.log.WarnObj("credentials profile unreadable", "error", err.Error())
		return "", ""
	case p.Environment != s.cfg.Environment:
		s.log.WarnObj("credentials profile ignored", "credentials_meta", map[string]any{
			"profile_environment": p.Environment.String(),
			"environment":         s.cfg.Environment.String(),
		})
		return "", ""
	}

	s.profile = &p
	s.log.DebugObj("credentials profile loaded", "credentials_meta", map[string]any{
		"kind":       p.Kind,
		"request_id": p.RequestID,
		"issued_at":  p.IssuedAt,
	})
	return p.Certificate, p.Secret
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{"id": pubCfg.ID, "type": pubCfg.Type})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Client returns the gateway client currently in use.
func (s *Service) Client() *zatca.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Profile returns the credentials profile in use, or nil when the service
// runs on explicitly configured credentials.
func (s *Service) Profile() *credentials.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Report sends a simplified invoice to the reporting endpoint.
func (s *Service) Report(ctx context.Context, inv Invoice, clearanceStatus bool) (*zatca.ReportingResponse, error) {
	resp, err := s.Client().Reporting(ctx, inv.SignedXML, inv.Hash, inv.UUID, clearanceStatus)
	sub := s.newSubmission(domain.OperationReporting, inv)
	if err == nil {
		fillFromValidation(&sub, resp.StatusCode(), resp.ReportingStatus, resp.ValidationResults)
		sub.Rejected = sub.Rejected || resp.ReportingStatus == "NOT_REPORTED"
	}
	s.track(ctx, sub, err)
	return resp, err
}

// Clear sends a standard invoice to the clearance endpoint.
func (s *Service) Clear(ctx context.Context, inv Invoice, clearanceStatus bool) (*zatca.ClearanceResponse, error) {
	resp, err := s.Client().Clearance(ctx, inv.SignedXML, inv.Hash, inv.UUID, clearanceStatus)
	sub := s.newSubmission(domain.OperationClearance, inv)
	if err == nil {
		fillFromValidation(&sub, resp.StatusCode(), resp.ClearanceStatus, resp.ValidationResults)
		sub.Rejected = sub.Rejected || resp.ClearanceStatus == "NOT_CLEARED"
	}
	s.track(ctx, sub, err)
	return resp, err
}

// CheckCompliance runs an invoice through the onboarding compliance check.
func (s *Service) CheckCompliance(ctx context.Context, inv Invoice) (*zatca.ComplianceResponse, error) {
	resp, err := s.Client().Compliance(ctx, inv.SignedXML, inv.Hash, inv.UUID)
	sub := s.newSubmission(domain.OperationCompliance, inv)
	if err == nil {
		status := resp.ReportingStatus
		if status == "" {
			status = resp.ClearanceStatus
		}
		fillFromValidation(&sub, resp.StatusCode(), status, resp.ValidationResults)
	}
	s.track(ctx, sub, err)
	return resp, err
}

// IssueComplianceCertificate exchanges a CSR and OTP for a compliance CSID
// and switches the service to it.
func (s *Service) IssueComplianceCertificate(ctx context.Context, csr []byte, otp string) (*zatca.CertificateResponse, error) {
	resp, err := s.Client().ComplianceCertificate(ctx, csr, otp)
	if err != nil {
		return nil, err
	}
	if err := s.adopt(credentials.FromCertificate(s.cfg.Environment, credentials.KindCompliance, resp)); err != nil {
		return resp, err
	}
	return resp, nil
}

// IssueProductionCertificate exchanges a compliance request id for a production
// CSID. An empty id falls back to the saved compliance profile.
func (s *Service) IssueProductionCertificate(ctx context.Context, complianceRequestID string) (*zatca.ProductionCertificateResponse, error) {
	complianceRequestID = strings.TrimSpace(complianceRequestID)
	if complianceRequestID == "" {
		if p := s.Profile(); p != nil && p.Kind == credentials.KindCompliance {
			complianceRequestID = p.RequestID
		}
	}
	if complianceRequestID == "" {
		return nil, fmt.Errorf("compliance request id is required")
	}

	resp, err := s.Client().ProductionCertificate(ctx, complianceRequestID)
	if err != nil {
		return nil, err
	}
	if err := s.adopt(credentials.FromCertificate(s.cfg.Environment, credentials.KindProduction, &resp.CertificateResponse)); err != nil {
		return resp, err
	}
	return resp, nil
}

// RenewProductionCertificate renews the production CSID in use.
func (s *Service) RenewProductionCertificate(ctx context.Context, csr []byte, otp string) (*zatca.RenewalProductionCertificateResponse, error) {
	resp, err := s.Client().RenewProductionCertificate(ctx, csr, otp)
	if err != nil {
		return nil, err
	}
	p := credentials.FromCertificate(s.cfg.Environment, credentials.KindProduction, &resp.CertificateResponse)
	p.TokenType = resp.TokenType
	if err := s.adopt(p); err != nil {
		return resp, err
	}
	return resp, nil
}

// Submission returns the ledger entry recorded for uuid under op.
func (s *Service) Submission(op domain.Operation, uuid string) (domain.Submission, bool, error) {
	sub, ok, err := s.store.Lookup(op, uuid)
	if err != nil {
		return domain.Submission{}, false, fmt.Errorf("lookup %s submission: %w", op, err)
	}
	return sub, ok, nil
}

// Status returns every ledger entry recorded for uuid, one per operation the
// invoice went through.
func (s *Service) Status(uuid string) ([]domain.Submission, error) {
	var subs []domain.Submission
	for _, op := range []domain.Operation{domain.OperationCompliance, domain.OperationReporting, domain.OperationClearance} {
		sub, ok, err := s.Submission(op, uuid)
		if err != nil {
			return nil, err
		}
		if ok {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

// Close releases the ledger and publisher connections.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger: %w", err))
		}
	}
	if err := s.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	return errors.Join(errs...)
}

// adopt switches the client to the issued CSID and persists it.
func (s *Service) adopt(p credentials.Profile) error {
	s.mu.Lock()
	s.client = s.client.WithCredentials(p.Certificate, p.Secret)
	s.profile = &p
	s.mu.Unlock()

	s.log.InfoObj("csid issued", "credentials_meta", map[string]any{
		"kind":       p.Kind,
		"request_id": p.RequestID,
	})

	if s.cfg.CredentialsFile == "" {
		return nil
	}
	if err := credentials.Save(s.cfg.CredentialsFile, p); err != nil {
		return fmt.Errorf("save credentials profile: %w", err)
	}
	return nil
}

func (s *Service) newSubmission(op domain.Operation, inv Invoice) domain.Submission {
	return domain.Submission{
		UUID:        inv.UUID,
		Operation:   op,
		Environment: s.cfg.Environment.String(),
		InvoiceHash: zatca.NormalizeInvoiceHash(inv.Hash),
		SubmittedAt: s.now(),
	}
}

func fillFromValidation(sub *domain.Submission, statusCode int, status string, v *zatca.ValidationResults) {
	sub.StatusCode = statusCode
	sub.Status = status
	if v != nil {
		sub.Warnings = len(v.WarningMessages)
		sub.Errors = len(v.ErrorMessages)
		if sub.Status == "" {
			sub.Status = v.Status
		}
	}
	sub.Rejected = v.HasErrors() || statusCode >= 400
}

// track records and publishes the outcome of an invoice call. Calls that never
// reached the gateway, or were refused before sending, leave no trace.
func (s *Service) track(ctx context.Context, sub domain.Submission, callErr error) {
	if callErr != nil {
		zerr, ok := zatca.AsError(callErr)
		if !ok || zerr.Kind != zatca.KindRequest || len(zerr.Errors()) == 0 {
			return
		}
		sub.Status = "FAILED"
		sub.Rejected = true
		sub.Errors = len(zerr.Errors())
		if code, ok := zerr.Context()["status_code"].(int); ok {
			sub.StatusCode = code
		}
	}

	if err := s.store.Record(sub); err != nil {
		s.log.ErrorObj("ledger record failed", "ledger_error", map[string]any{
			"uuid":  sub.UUID,
			"error": err.Error(),
		})
	}

	if s.fanout.Size() == 0 {
		return
	}
	delivered, err := s.fanout.Publish(ctx, publishers.NewEvent(s.cfg.AppName, sub))
	if err != nil {
		s.log.WarnObj("submission publish failed", "publish_meta", map[string]any{
			"uuid":      sub.UUID,
			"delivered": delivered,
			"error":     err.Error(),
		})
		return
	}
	s.log.DebugObj("submission published", "publish_meta", map[string]any{
		"uuid":      sub.UUID,
		"delivered": delivered,
	})
}
