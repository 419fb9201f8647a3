package client

import (
	"context"

	"filestack/internal"
	"filestack/utils"
)

// Filelink references one stored file by its handle. The handle never
// changes; Store returns a new Filelink for the copy.
type Filelink struct {
	*requester
	handle string
	apiKey string
}

// NewFilelink returns a Filelink using the default configuration. apiKey is
// only needed for Store.
func NewFilelink(handle, apiKey string, opts ...Option) (*Filelink, error) {
	config := internal.DefaultConfig()
	config.APIKey = apiKey

	c, err := New(config, opts...)
	if err != nil {
		return nil, err
	}
	return c.Filelink(handle), nil
}

// Handle returns the file handle
func (f *Filelink) Handle() string {
	return f.handle
}

// APIKey returns the key used for store calls
func (f *Filelink) APIKey() string {
	return f.apiKey
}

// URL returns the CDN URL of the file
func (f *Filelink) URL() string {
	return utils.CDNURL(f.cdnURL, f.handle)
}

// SignedURL returns the CDN URL with the security policy and signature
// appended as query parameters
func (f *Filelink) SignedURL(security *internal.Security) string {
	return utils.SignedURL(f.URL(), security)
}

// Content returns the file's bytes. A non-200 reply, such as 404 for an
// unknown handle, is returned as *internal.ServiceError.
func (f *Filelink) Content(ctx context.Context, security *internal.Security) ([]byte, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f.sendGetContent(ctx, f.URL(), security)
}

// Metadata returns the requested metadata fields, or the service's default
// set when fields is empty.
func (f *Filelink) Metadata(ctx context.Context, fields []string, security *internal.Security) (Metadata, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f.sendGetMetadata(ctx, f.URL(), fields, security)
}

// Download saves the file to destination and returns the path written. If
// destination is an existing directory or ends in a path separator, the
// stored filename is used inside it. Nothing is left at the destination
// when the download fails.
func (f *Filelink) Download(ctx context.Context, destination string, security *internal.Security) (string, error) {
	return f.DownloadWithProgress(ctx, destination, security, nil)
}

// DownloadWithProgress is Download with progress reported to progress
func (f *Filelink) DownloadWithProgress(ctx context.Context, destination string, security *internal.Security, progress internal.ProgressReporter) (string, error) {
	if err := f.validate(); err != nil {
		return "", err
	}
	return f.sendDownload(ctx, f.URL(), destination, security, progress)
}

// Store copies this file into storage and returns a Filelink for the copy.
// An API key is required.
func (f *Filelink) Store(ctx context.Context, opts *StoreOptions, security *internal.Security) (*Filelink, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f.sendStore(ctx, f.URL(), f.apiKey, opts, security)
}

func (f *Filelink) validate() error {
	if f.handle == "" {
		return internal.NewValidationError("handle", "file handle cannot be empty")
	}
	return nil
}
