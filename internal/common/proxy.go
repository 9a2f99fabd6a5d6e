package common

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

const (
	OK                    int = 200
	BAD_REQUEST           int = 400
	UNAUTHORIZED          int = 401
	FORBIDDEN             int = 403
	DATA_NOT_FOUND        int = 404
	RATE_LIMIT_EXCEEDED   int = 429
	INTERNAL_SERVER_ERROR int = 500
	BAD_GATEWAY           int = 502
	SERVICE_UNAVAILABLE   int = 503
	GATEWAY_TIMEOUT       int = 504
)

var messages = map[int]string{
	OK:                    "OK",
	BAD_REQUEST:           "Bad request",
	UNAUTHORIZED:          "Unauthorized",
	FORBIDDEN:             "Forbidden",
	DATA_NOT_FOUND:        "Data not found",
	RATE_LIMIT_EXCEEDED:   "Rate limit exceeded",
	INTERNAL_SERVER_ERROR: "Internal server error",
	BAD_GATEWAY:           "Bad gateway",
	SERVICE_UNAVAILABLE:   "Service unavailable",
	GATEWAY_TIMEOUT:       "Gateway timeout",
}

// StatusError is returned when the server answers with anything but 200
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d (%s)", e.Code, e.Message)
}

type Proxy struct {
	header      map[string]string
	client      *http.Client
	rateLimiter *RateLimiter
}

func NewProxy(header map[string]string, restrictions []Restriction, client *http.Client) *Proxy {
	if client == nil {
		client = http.DefaultClient
	}
	return &Proxy{header, client, NewRateLimiter(restrictions)}
}

// Make a GET request to the provided url, indicating if it is vital.
// The request will be performed depending on the status of the rate limiter
func (proxy *Proxy) Request(ctx context.Context, url string, vital bool) ([]byte, error) {

	// ask for permission to execute the request
	// and wait if necessary
	if err := proxy.rateLimiter.Allowed(ctx, vital); err != nil {
		return nil, err
	}

	// Create the request and add the header
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	for key, value := range proxy.header {
		request.Header.Set(key, value)
	}

	// Perform the request
	res, err := proxy.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("could not perform request: %w", err)
	}
	defer res.Body.Close()

	message, ok := messages[res.StatusCode]
	if !ok {
		message = http.StatusText(res.StatusCode)
	}
	log.Debug().Msg(fmt.Sprintf("%d %s", res.StatusCode, message))

	switch res.StatusCode {
	case OK:
		stream, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, fmt.Errorf("could not read the response: %w", err)
		}
		return stream, nil
	case RATE_LIMIT_EXCEEDED:
		proxy.rateLimiter.ReceivedRateLimit()
		return nil, &StatusError{res.StatusCode, message}
	default:
		return nil, &StatusError{res.StatusCode, message}
	}
}
