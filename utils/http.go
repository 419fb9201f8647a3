package utils

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"filestack/internal"
)

// HTTPClientConfig contains configuration for the HTTP client
type HTTPClientConfig struct {
	// Timeout bounds the wait for response headers. Body transfer is bounded
	// only by the request context.
	Timeout     time.Duration
	ProxyURL    string
	RateLimiter internal.RateLimiter
}

// HTTPClient is the default internal.Transport. It issues exactly one
// request per call and reports every status back to the caller.
type HTTPClient struct {
	client      *http.Client
	rateLimiter internal.RateLimiter
}

// NewHTTPClient creates a new HTTP client with default configuration
func NewHTTPClient() *HTTPClient {
	client, _ := NewHTTPClientWithConfig(&HTTPClientConfig{Timeout: 30 * time.Second})
	return client
}

// NewHTTPClientWithConfig creates a new HTTP client with custom configuration
func NewHTTPClientWithConfig(config *HTTPClientConfig) (*HTTPClient, error) {
	if config == nil {
		config = &HTTPClientConfig{}
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	if config.Timeout > 0 {
		transport.ResponseHeaderTimeout = config.Timeout
	}

	if config.ProxyURL != "" {
		if err := configureProxy(transport, config.ProxyURL); err != nil {
			return nil, err
		}
	}

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &HTTPClient{
		client:      client,
		rateLimiter: config.RateLimiter,
	}, nil
}

// NewHTTPClientFromConfig builds a transport from the application config
func NewHTTPClientFromConfig(config *internal.Config) (*HTTPClient, error) {
	rate, err := ParseRateLimit(config.RateLimit)
	if err != nil {
		return nil, internal.NewValidationErrorWithValue("limit_rate", err.Error(), config.RateLimit).
			WithSuggestion("Use formats like 1M (1 MB/s), 500K (500 KB/s) or 1024 (bytes/s)")
	}

	var limiter internal.RateLimiter
	if rate > 0 {
		limiter = NewTokenBucketLimiter(rate)
	}

	return NewHTTPClientWithConfig(&HTTPClientConfig{
		Timeout:     config.Timeout,
		ProxyURL:    config.ProxyURL,
		RateLimiter: limiter,
	})
}

// configureProxy sets up proxy configuration for the transport
func configureProxy(transport *http.Transport, proxyURL string) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	case "socks5":
		var auth *proxy.Auth
		if parsedURL.User != nil {
			password, _ := parsedURL.User.Password()
			auth = &proxy.Auth{User: parsedURL.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, auth, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		transport.Proxy = nil
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", parsedURL.Scheme)
	}

	return nil
}

// Do performs the request. A 200 response with req.Sink set is streamed into
// the sink; any other response body is buffered into the returned Response.
func (c *HTTPClient) Do(ctx context.Context, req *internal.Request) (*internal.Response, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		body = req.Body
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Form == nil && req.Body != nil && req.ContentLength > 0 {
		httpReq.ContentLength = req.ContentLength
	}

	logger := internal.GetLogger()
	logger.LogHTTPRequest(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", req.Method, err)
	}
	defer resp.Body.Close()
	logger.LogHTTPResponse(resp)

	result := &internal.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
	}

	if resp.StatusCode == http.StatusOK && req.Sink != nil {
		if err := c.stream(ctx, req, resp); err != nil {
			return nil, err
		}
		return result, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	result.Body = data
	return result, nil
}

func (c *HTTPClient) stream(ctx context.Context, req *internal.Request, resp *http.Response) error {
	sink := req.Sink
	if req.Progress != nil {
		req.Progress.Start(resp.ContentLength)
		defer req.Progress.Finish()
		sink = req.Progress.Wrap(sink)
	}

	written, err := copyWithRateLimit(ctx, sink, resp.Body, c.rateLimiter)
	if err != nil {
		return fmt.Errorf("failed to stream response body after %d bytes: %w", written, err)
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return fmt.Errorf("short response body: got %d of %d bytes", written, resp.ContentLength)
	}
	return nil
}

// copyWithRateLimit copies src to dst, waiting on limiter before each write
func copyWithRateLimit(ctx context.Context, dst io.Writer, src io.Reader, limiter internal.RateLimiter) (int64, error) {
	if limiter == nil {
		return io.Copy(dst, src)
	}

	const bufferSize = 32 * 1024
	buffer := make([]byte, bufferSize)
	var totalWritten int64

	for {
		n, err := src.Read(buffer)
		if n > 0 {
			if waitErr := limiter.Wait(ctx, n); waitErr != nil {
				return totalWritten, fmt.Errorf("rate limiting error: %w", waitErr)
			}

			written, writeErr := dst.Write(buffer[:n])
			totalWritten += int64(written)
			if writeErr != nil {
				return totalWritten, writeErr
			}
			if written != n {
				return totalWritten, io.ErrShortWrite
			}
		}

		if err != nil {
			if err == io.EOF {
				return totalWritten, nil
			}
			return totalWritten, err
		}
	}
}
