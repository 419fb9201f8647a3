// Package client references files kept by the Filestack storage/CDN
// service and fetches, downloads and stores them over its HTTP API.
package client

import (
	"context"

	"filestack/internal"
	"filestack/utils"
)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	transport internal.Transport
}

// WithTransport replaces the HTTP transport, e.g. with a stub in tests.
func WithTransport(t internal.Transport) Option {
	return func(o *clientOptions) {
		if t != nil {
			o.transport = t
		}
	}
}

// Client holds the configuration shared by the Filelinks it creates.
type Client struct {
	*requester
	apiKey string
}

// New creates a Client from config. A nil config means DefaultConfig.
func New(config *internal.Config, opts ...Option) (*Client, error) {
	if config == nil {
		config = internal.DefaultConfig()
	}
	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}

	options := &clientOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.transport == nil {
		transport, err := utils.NewHTTPClientFromConfig(config)
		if err != nil {
			return nil, err
		}
		options.transport = transport
	}

	return &Client{
		requester: &requester{
			transport: options.transport,
			userAgent: config.UserAgent,
			cdnURL:    config.CDNURL,
			apiURL:    config.APIURL,
			fileOps:   utils.NewFileOperations(),
		},
		apiKey: config.APIKey,
	}, nil
}

// APIKey returns the key used for store calls
func (c *Client) APIKey() string {
	return c.apiKey
}

// Filelink returns a reference to an existing file
func (c *Client) Filelink(handle string) *Filelink {
	return &Filelink{handle: handle, apiKey: c.apiKey, requester: c.requester}
}

// Store uploads a local file, or copies a remote http(s) URL, into storage.
// If opts.Filename is empty the base name of source is used.
func (c *Client) Store(ctx context.Context, source string, opts *StoreOptions, security *internal.Security) (*Filelink, error) {
	return c.sendStore(ctx, source, c.apiKey, opts, security)
}
