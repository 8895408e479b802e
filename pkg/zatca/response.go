package zatca

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorDetail is one entry of a gateway error or validation message list.
// The gateway sends either objects or bare strings; a bare string lands in Message.
type ErrorDetail struct {
	Type     string `json:"type,omitempty"`
	Code     string `json:"code,omitempty"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message,omitempty"`
	Status   string `json:"status,omitempty"`
}

// UnmarshalJSON accepts an object or a bare scalar. Object fields are read
// one by one, so a numeric code or status does not spoil the rest.
func (d *ErrorDetail) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*d = ErrorDetail{Message: scalarString(data)}
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*d = ErrorDetail{
		Type:     scalarString(fields["type"]),
		Code:     scalarString(fields["code"]),
		Category: scalarString(fields["category"]),
		Message:  scalarString(fields["message"]),
		Status:   scalarString(fields["status"]),
	}
	return nil
}

func (d ErrorDetail) String() string {
	switch {
	case d.Code != "" && d.Message != "":
		return d.Code + ": " + d.Message
	case d.Code != "":
		return d.Code
	default:
		return d.Message
	}
}

// RequestID is the gateway's compliance request identifier. It arrives as a
// JSON number or string and is kept verbatim.
type RequestID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	*id = RequestID(scalarString(data))
	return nil
}

func (id RequestID) String() string { return string(id) }

// scalarString renders a JSON string or number without quotes.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// Response is the common read-only view over a decoded reply body.
type Response struct {
	statusCode int
	fields     map[string]json.RawMessage
}

func newResponse(statusCode int, fields map[string]json.RawMessage) Response {
	return Response{statusCode: statusCode, fields: fields}
}

// StatusCode returns the HTTP status of the reply.
func (r Response) StatusCode() int { return r.statusCode }

// Errors returns the reply's errors, or nil when the value is absent, null or
// empty ({}, [], "", false, 0). A single non-empty value becomes one entry.
func (r Response) Errors() []ErrorDetail {
	raw, ok := r.OptionalAttribute("errors")
	if !ok || isEmptyValue(raw) {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		var single ErrorDetail
		if err := json.Unmarshal(raw, &single); err != nil {
			single = ErrorDetail{Message: strings.TrimSpace(string(raw))}
		}
		return []ErrorDetail{single}
	}

	details := make([]ErrorDetail, 0, len(entries))
	for _, entry := range entries {
		var d ErrorDetail
		if err := json.Unmarshal(entry, &d); err != nil {
			d = ErrorDetail{Message: strings.TrimSpace(string(entry))}
		}
		details = append(details, d)
	}
	return details
}

// isEmptyValue reports whether raw holds a zero JSON value.
func isEmptyValue(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	}
	return false
}

// OptionalAttribute returns the raw value under key. A JSON null counts as absent.
func (r Response) OptionalAttribute(key string) (json.RawMessage, bool) {
	raw, ok := r.fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, true
}

// RequiredAttribute returns the raw value under key or a response error.
func (r Response) RequiredAttribute(key string) (json.RawMessage, error) {
	raw, ok := r.OptionalAttribute(key)
	if !ok {
		return nil, newResponseError(fmt.Sprintf("Missing required attribute: %s", key), nil).
			WithContext(map[string]any{"attribute": key, "status_code": r.statusCode})
	}
	return raw, nil
}

// Raw returns a copy of the top-level fields of the reply.
func (r Response) Raw() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(r.fields))
	for k, v := range r.fields {
		cp := make(json.RawMessage, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// ValidationResults is the gateway's verdict on a submitted invoice.
type ValidationResults struct {
	InfoMessages    []ErrorDetail `json:"infoMessages"`
	WarningMessages []ErrorDetail `json:"warningMessages"`
	ErrorMessages   []ErrorDetail `json:"errorMessages"`
	Status          string        `json:"status"`
}

// HasErrors reports whether the gateway listed any validation errors.
func (v *ValidationResults) HasErrors() bool {
	return v != nil && len(v.ErrorMessages) > 0
}

// HasWarnings reports whether the gateway listed any validation warnings.
func (v *ValidationResults) HasWarnings() bool {
	return v != nil && len(v.WarningMessages) > 0
}

// ReportingResponse is returned by the simplified invoice reporting endpoint.
type ReportingResponse struct {
	Response
	ValidationResults *ValidationResults `json:"validationResults"`
	ReportingStatus   string             `json:"reportingStatus"`
}

// ClearanceResponse is returned by the standard invoice clearance endpoint.
type ClearanceResponse struct {
	Response
	ValidationResults *ValidationResults `json:"validationResults"`
	ClearanceStatus   string             `json:"clearanceStatus"`
	ClearedInvoice    string             `json:"clearedInvoice"`
}

// DecodedClearedInvoice returns the stamped invoice XML returned on clearance.
func (c *ClearanceResponse) DecodedClearedInvoice() ([]byte, error) {
	if c.ClearedInvoice == "" {
		return nil, newResponseError("Missing required attribute: clearedInvoice", nil)
	}
	out, err := base64.StdEncoding.DecodeString(c.ClearedInvoice)
	if err != nil {
		return nil, newResponseError("Invalid clearedInvoice encoding", err)
	}
	return out, nil
}

// ComplianceResponse is returned by the compliance invoice check endpoint.
type ComplianceResponse struct {
	Response
	ValidationResults *ValidationResults `json:"validationResults"`
	ReportingStatus   string             `json:"reportingStatus"`
	ClearanceStatus   string             `json:"clearanceStatus"`
	QRSellerStatus    string             `json:"qrSellertStatus"`
	QRBuyerStatus     string             `json:"qrBuyertStatus"`
}

// CertificateResponse is returned when a compliance CSID is issued.
type CertificateResponse struct {
	Response
	RequestID           RequestID `json:"requestID"`
	DispositionMessage  string    `json:"dispositionMessage"`
	BinarySecurityToken string    `json:"binarySecurityToken"`
	Secret              string    `json:"secret"`
}

// Certificate decodes the binary security token into the base64 DER
// certificate body used for signing and for Basic auth.
func (c *CertificateResponse) Certificate() (string, error) {
	out, err := base64.StdEncoding.DecodeString(c.BinarySecurityToken)
	if err != nil {
		return "", newResponseError("Invalid binarySecurityToken encoding", err)
	}
	return string(out), nil
}

var certificateRequiredAttributes = []string{"requestID", "binarySecurityToken", "secret"}

func (c *CertificateResponse) validate() error {
	for _, key := range certificateRequiredAttributes {
		if _, err := c.RequiredAttribute(key); err != nil {
			return err
		}
	}
	return nil
}

// ProductionCertificateResponse is returned when a production CSID is issued.
type ProductionCertificateResponse struct {
	CertificateResponse
}

// RenewalProductionCertificateResponse is returned when a production CSID is renewed.
type RenewalProductionCertificateResponse struct {
	ProductionCertificateResponse
	TokenType string `json:"tokenType"`
}
