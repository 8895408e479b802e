package httpclient

import "context"

// Request is a single outbound HTTP call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
// Implementations return an error only for transport failures; non-2xx replies are
// returned as regular responses.
type Client interface {
	Do(ctx context.Context, req Request) (Response, error)
}
