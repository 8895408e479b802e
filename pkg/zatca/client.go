package zatca

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/samvad-hq/fatoora-client/pkg/httpclient"
)

// emptyInvoiceHash is sent in place of a missing invoice hash.
var emptyInvoiceHash = base64.StdEncoding.EncodeToString([]byte("0"))

// Client calls the Fatoora gateway. Its environment and credentials never
// change after construction, so one Client may be shared between goroutines
// as long as the transport allows it.
type Client struct {
	environment    Environment
	baseURL        string
	credentials    *Credentials
	http           httpclient.Client
	log            Logger
	acceptVersion  string
	acceptLanguage string
}

// New creates a client for env.
func New(env Environment, opts ...Option) (*Client, error) {
	if !env.Valid() {
		return nil, newValidationError("Invalid environment: "+env.String(), ErrInvalidEnvironment)
	}

	cfg := &clientConfig{
		timeout:        defaultTimeout,
		acceptVersion:  defaultAcceptVersion,
		acceptLanguage: defaultAcceptLanguage,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	baseURL := env.URL()
	if cfg.baseURL != "" {
		baseURL = cfg.baseURL
	}

	transport := cfg.httpClient
	if transport == nil {
		transport = httpclient.NewRestyClient(cfg.timeout)
	}

	c := &Client{
		environment:    env,
		baseURL:        baseURL,
		http:           transport,
		log:            ensureLogger(cfg.logger),
		acceptVersion:  cfg.acceptVersion,
		acceptLanguage: cfg.acceptLanguage,
	}
	if cfg.credentials != nil {
		c.credentials = newCredentials(cfg.credentials.Certificate, cfg.credentials.Secret)
	}
	return c, nil
}

// NewFromName resolves name with ParseEnvironment and creates a client.
func NewFromName(name string, opts ...Option) (*Client, error) {
	env, err := ParseEnvironment(name)
	if err != nil {
		return nil, err
	}
	return New(env, opts...)
}

// Environment returns the environment the client was built for.
func (c *Client) Environment() Environment { return c.environment }

// BaseURL returns the resolved gateway base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// HasCredentials reports whether authenticated endpoints can be called.
func (c *Client) HasCredentials() bool { return c.credentials != nil }

// WithCredentials returns a copy of the client using the given CSID. The
// receiver is left untouched.
func (c *Client) WithCredentials(certificate, secret string) *Client {
	cp := *c
	cp.credentials = newCredentials(certificate, secret)
	return &cp
}

// NormalizeInvoiceHash substitutes base64("0") for an empty hash.
func NormalizeInvoiceHash(hash string) string {
	if hash == "" {
		return emptyInvoiceHash
	}
	return hash
}

// Reporting submits a signed simplified invoice.
func (c *Client) Reporting(ctx context.Context, signedInvoice []byte, invoiceHash, uuid string, clearanceStatus bool) (*ReportingResponse, error) {
	body, err := c.request(ctx, EndpointReporting,
		invoicePayload(signedInvoice, invoiceHash, uuid),
		clearanceHeaders(clearanceStatus),
		true, http.MethodPost)
	if err != nil {
		return nil, err
	}
	out := &ReportingResponse{Response: body.response()}
	if err := c.complete(EndpointReporting, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clearance submits a signed standard invoice for clearance.
func (c *Client) Clearance(ctx context.Context, signedInvoice []byte, invoiceHash, uuid string, clearanceStatus bool) (*ClearanceResponse, error) {
	body, err := c.request(ctx, EndpointClearance,
		invoicePayload(signedInvoice, invoiceHash, uuid),
		clearanceHeaders(clearanceStatus),
		true, http.MethodPost)
	if err != nil {
		return nil, err
	}
	out := &ClearanceResponse{Response: body.response()}
	if err := c.complete(EndpointClearance, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Compliance checks a signed invoice against the compliance CSID.
func (c *Client) Compliance(ctx context.Context, signedInvoice []byte, invoiceHash, uuid string) (*ComplianceResponse, error) {
	body, err := c.request(ctx, EndpointCompliance,
		invoicePayload(signedInvoice, invoiceHash, uuid),
		nil, true, http.MethodPost)
	if err != nil {
		return nil, err
	}
	out := &ComplianceResponse{Response: body.response()}
	if err := c.complete(EndpointCompliance, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ComplianceCertificate requests a compliance CSID for csr, authorized by otp.
func (c *Client) ComplianceCertificate(ctx context.Context, csr []byte, otp string) (*CertificateResponse, error) {
	body, err := c.request(ctx, EndpointComplianceCertificate,
		map[string]string{"csr": base64.StdEncoding.EncodeToString(csr)},
		map[string]string{headerOTP: otp},
		false, http.MethodPost)
	if err != nil {
		return nil, err
	}
	out := &CertificateResponse{Response: body.response()}
	if err := c.complete(EndpointComplianceCertificate, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductionCertificate exchanges a compliance request id for a production CSID.
// The client must hold the compliance CSID credentials.
func (c *Client) ProductionCertificate(ctx context.Context, complianceRequestID string) (*ProductionCertificateResponse, error) {
	body, err := c.request(ctx, EndpointProductionCertificate,
		map[string]string{"compliance_request_id": complianceRequestID},
		nil, true, http.MethodPost)
	if err != nil {
		return nil, err
	}
	out := &ProductionCertificateResponse{CertificateResponse{Response: body.response()}}
	if err := c.complete(EndpointProductionCertificate, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RenewProductionCertificate renews a production CSID for csr, authorized by otp.
func (c *Client) RenewProductionCertificate(ctx context.Context, csr []byte, otp string) (*RenewalProductionCertificateResponse, error) {
	body, err := c.request(ctx, EndpointProductionCertificate,
		map[string]string{"csr": base64.StdEncoding.EncodeToString(csr)},
		map[string]string{headerOTP: otp},
		false, http.MethodPost)
	if err != nil {
		return nil, err
	}
	out := &RenewalProductionCertificateResponse{
		ProductionCertificateResponse: ProductionCertificateResponse{CertificateResponse{Response: body.response()}},
	}
	if err := c.complete(EndpointProductionCertificate, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

type wrapper interface {
	Errors() []ErrorDetail
}

// complete decodes body into out and turns a non-empty errors array into a
// request error.
func (c *Client) complete(endpoint Endpoint, body *rawBody, out wrapper) error {
	if err := json.Unmarshal(body.data, out); err != nil {
		return newResponseError("Unexpected response shape", err).WithContext(map[string]any{
			"endpoint":    endpoint.String(),
			"status_code": body.statusCode,
		})
	}

	if errs := out.Errors(); len(errs) > 0 {
		c.log.WarnObj("zatca request rejected", "zatca_rejection", map[string]any{
			"endpoint":    endpoint.String(),
			"status_code": body.statusCode,
			"errors":      errs,
		})
		return newRequestError("Request failed.", nil).WithContext(map[string]any{
			"errors":      errs,
			"endpoint":    endpoint.String(),
			"status_code": body.statusCode,
		})
	}

	if v, ok := out.(interface{ validate() error }); ok {
		if err := v.validate(); err != nil {
			return err
		}
	}
	return nil
}

func invoicePayload(signedInvoice []byte, invoiceHash, uuid string) map[string]string {
	return map[string]string{
		"invoiceHash": NormalizeInvoiceHash(invoiceHash),
		"uuid":        uuid,
		"invoice":     base64.StdEncoding.EncodeToString(signedInvoice),
	}
}

func clearanceHeaders(clearanceStatus bool) map[string]string {
	status := "0"
	if clearanceStatus {
		status = "1"
	}
	return map[string]string{headerClearance: status}
}
