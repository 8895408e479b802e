package zatca

import (
	"time"

	"github.com/samvad-hq/fatoora-client/pkg/httpclient"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultAcceptVersion  = "V2"
	defaultAcceptLanguage = "en"
)

// clientConfig holds construction-time settings.
type clientConfig struct {
	httpClient     httpclient.Client
	credentials    *Credentials
	logger         Logger
	baseURL        string
	timeout        time.Duration
	acceptVersion  string
	acceptLanguage string
}

// Option configures the client.
type Option func(*clientConfig)

// WithHTTPClient sets the transport. The default is a resty-backed client.
func WithHTTPClient(client httpclient.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithCredentials sets the CSID certificate and secret used for Basic auth.
func WithCredentials(certificate, secret string) Option {
	return func(c *clientConfig) {
		c.credentials = &Credentials{Certificate: certificate, Secret: secret}
	}
}

// WithLogger sets the logger. Nothing is logged by default.
func WithLogger(log Logger) Option {
	return func(c *clientConfig) {
		c.logger = log
	}
}

// WithBaseURL overrides the environment base URL, e.g. for a local gateway proxy.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithTimeout sets the timeout of the default transport. It has no effect
// when WithHTTPClient is used.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithAcceptVersion sets the Accept-Version header. Default: V2
func WithAcceptVersion(version string) Option {
	return func(c *clientConfig) {
		c.acceptVersion = version
	}
}

// WithAcceptLanguage sets the Accept-Language header. Default: en
func WithAcceptLanguage(lang string) Option {
	return func(c *clientConfig) {
		c.acceptLanguage = lang
	}
}
