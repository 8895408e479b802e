package zatca

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/fatoora-client/pkg/httpclient"
)

const (
	headerContentType    = "Content-Type"
	headerAccept         = "Accept"
	headerAcceptVersion  = "Accept-Version"
	headerAcceptLanguage = "Accept-Language"
	headerAuthorization  = "Authorization"
	headerClearance      = "Clearance-Status"
	headerOTP            = "OTP"

	mimeJSON = "application/json"

	bodySnippetLimit = 512
)

// Credentials is a CSID certificate and its secret.
type Credentials struct {
	Certificate string
	Secret      string
}

func newCredentials(certificate, secret string) *Credentials {
	if certificate == "" && secret == "" {
		return nil
	}
	return &Credentials{Certificate: certificate, Secret: secret}
}

// BasicToken returns base64(certificate:secret).
func (c Credentials) BasicToken() string {
	return base64.StdEncoding.EncodeToString([]byte(c.Certificate + ":" + c.Secret))
}

// rawBody is a decoded reply that has not yet been typed.
type rawBody struct {
	statusCode int
	data       []byte
	fields     map[string]json.RawMessage
}

func (b *rawBody) response() Response {
	return newResponse(b.statusCode, b.fields)
}

// request builds and sends one call. Non-2xx replies are not errors here: the
// gateway answers 400/500 with structured bodies that callers inspect.
func (c *Client) request(
	ctx context.Context,
	endpoint Endpoint,
	payload map[string]string,
	headers map[string]string,
	authToken bool,
	method string,
) (*rawBody, error) {
	if method == "" {
		method = http.MethodPost
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reqHeaders := c.defaultHeaders()
	if authToken {
		if c.credentials == nil {
			return nil, newValidationError("Credentials are required for this endpoint", ErrMissingCredentials).
				WithContext(map[string]any{"endpoint": endpoint.String()})
		}
		reqHeaders[headerAuthorization] = "Basic " + c.credentials.BasicToken()
	}
	for k, v := range headers {
		reqHeaders[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, newRequestError("Unable to encode payload", err).
			WithContext(map[string]any{"endpoint": endpoint.String()})
	}

	url := joinURL(c.baseURL, endpoint)
	start := time.Now()
	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  method,
		URL:     url,
		Headers: reqHeaders,
		Body:    body,
	})
	if err != nil {
		c.log.WarnObj("zatca request failed", "zatca_transport_error", map[string]any{
			"endpoint": endpoint.String(),
			"method":   method,
			"error":    err.Error(),
		})
		return nil, newRequestError("Request failed.", err).
			WithContext(map[string]any{"endpoint": endpoint.String(), "method": method})
	}
	if resp == nil {
		return nil, newResponseError("Transport returned no response", nil).
			WithContext(map[string]any{"endpoint": endpoint.String()})
	}

	c.log.DebugObj("zatca request completed", "zatca_request", map[string]any{
		"endpoint":    endpoint.String(),
		"method":      method,
		"status_code": resp.StatusCode(),
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})

	data := resp.Body()
	fields, err := decodeObject(data)
	if err != nil {
		return nil, newResponseError("Invalid JSON response", err).WithContext(map[string]any{
			"endpoint":    endpoint.String(),
			"status_code": resp.StatusCode(),
			"body":        readBodySnippet(data),
		})
	}

	return &rawBody{statusCode: resp.StatusCode(), data: data, fields: fields}, nil
}

func (c *Client) defaultHeaders() map[string]string {
	h := map[string]string{
		headerContentType: mimeJSON,
		headerAccept:      mimeJSON,
	}
	if c.acceptVersion != "" {
		h[headerAcceptVersion] = c.acceptVersion
	}
	if c.acceptLanguage != "" {
		h[headerAcceptLanguage] = c.acceptLanguage
	}
	return h
}

// decodeObject requires the body to be a single JSON object.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		// a literal null decodes without error
		return nil, errNullBody
	}
	return fields, nil
}

var errNullBody = errors.New("response body is null")

func joinURL(base string, endpoint Endpoint) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(string(endpoint), "/")
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > bodySnippetLimit {
		body = body[:bodySnippetLimit]
	}
	return string(bytes.TrimSpace(body))
}
