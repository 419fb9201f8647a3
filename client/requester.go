package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"filestack/internal"
	"filestack/utils"
)

// requester holds the request building and response interpretation shared
// by every file-like type in this package. Client and Filelink both embed
// one, so a Filelink produced by a store call talks to the same service.
type requester struct {
	transport internal.Transport
	userAgent string
	cdnURL    string
	apiURL    string
	fileOps   *utils.FileOperations
}

// getOptions are the optional parts of a GET
type getOptions struct {
	header   http.Header
	sink     io.Writer
	progress internal.ProgressReporter
}

// uploadPayload is either a remote source passed as a form field or a local
// byte stream sent as the body
type uploadPayload struct {
	form          url.Values
	body          io.Reader
	contentLength int64
	contentType   string
}

// get issues a GET for rawURL with params appended in order
func (r *requester) get(ctx context.Context, rawURL string, params []utils.QueryParam, opts *getOptions) (*internal.Response, string, error) {
	if opts == nil {
		opts = &getOptions{}
	}

	requestURL := utils.AppendQuery(rawURL, params...)
	req := &internal.Request{
		Method:   http.MethodGet,
		URL:      requestURL,
		Header:   r.headers(opts.header),
		Sink:     opts.sink,
		Progress: opts.progress,
	}

	resp, err := r.transport.Do(ctx, req)
	if err != nil {
		return nil, requestURL, err
	}
	return resp, requestURL, nil
}

// post issues a POST of payload to rawURL
func (r *requester) post(ctx context.Context, rawURL string, payload *uploadPayload, header http.Header) (*internal.Response, error) {
	req := &internal.Request{
		Method: http.MethodPost,
		URL:    rawURL,
		Header: r.headers(header),
	}
	if payload != nil {
		req.Form = payload.form
		req.Body = payload.body
		req.ContentLength = payload.contentLength
		if payload.contentType != "" {
			req.Header.Set("Content-Type", payload.contentType)
		}
	}

	return r.transport.Do(ctx, req)
}

func (r *requester) headers(extra http.Header) http.Header {
	header := make(http.Header, len(extra)+1)
	for key, values := range extra {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	header.Set("User-Agent", r.userAgent)
	return header
}

// checkResponse maps any status other than 200 to a ServiceError carrying
// the untouched body and status code
func checkResponse(resp *internal.Response, requestURL string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	serviceErr := internal.NewServiceError(resp.StatusCode, string(resp.Body)).WithURL(requestURL)
	internal.LogDebug("Request to %s failed with status %d", requestURL, resp.StatusCode)
	return serviceErr
}

// sendGetContent fetches the raw bytes behind fileURL
func (r *requester) sendGetContent(ctx context.Context, fileURL string, security *internal.Security) ([]byte, error) {
	resp, requestURL, err := r.get(ctx, fileURL, utils.SecurityParams(security), nil)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp, requestURL); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// sendGetMetadata fetches <fileURL>/metadata, requesting each field as
// field=true; no fields requests the service defaults
func (r *requester) sendGetMetadata(ctx context.Context, fileURL string, fields []string, security *internal.Security) (Metadata, error) {
	if err := ValidateMetadataFields(fields); err != nil {
		return nil, err
	}

	params := make([]utils.QueryParam, 0, len(fields)+2)
	for _, field := range fields {
		params = append(params, utils.QueryParam{Key: field, Value: "true"})
	}
	params = append(params, utils.SecurityParams(security)...)

	resp, requestURL, err := r.get(ctx, fileURL+"/metadata", params, nil)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp, requestURL); err != nil {
		return nil, err
	}

	var metadata Metadata
	if err := json.Unmarshal(resp.Body, &metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata response: %w", err)
	}
	return metadata, nil
}

// sendDownload writes the content of fileURL to destination and returns the
// final path. When destination names a directory, existing or ending in a
// separator, the remote filename is looked up and appended. The body goes to a .part file that is renamed
// into place only after a complete 200 response, and removed otherwise.
func (r *requester) sendDownload(ctx context.Context, fileURL, destination string, security *internal.Security, progress internal.ProgressReporter) (string, error) {
	if strings.TrimSpace(destination) == "" {
		return "", internal.NewValidationError("destination", "destination path cannot be empty")
	}

	if r.fileOps.NamesDirectory(destination) {
		metadata, err := r.sendGetMetadata(ctx, fileURL, []string{FieldFilename}, security)
		if err != nil {
			return "", err
		}
		remoteName := filepath.Base(filepath.Clean("/" + metadata.Filename()))
		if remoteName == "/" || remoteName == "." {
			return "", fmt.Errorf("metadata response has no usable filename for %s", destination)
		}
		destination = filepath.Join(destination, remoteName)
	}

	part, err := r.fileOps.CreatePartFile(destination)
	if err != nil {
		return "", err
	}

	committed := false
	closed := false
	defer func() {
		if !closed {
			part.Close()
		}
		if !committed {
			if err := r.fileOps.DiscardPartFile(destination); err != nil {
				internal.LogWarn("Failed to remove partial file for %s: %v", destination, err)
			}
		}
	}()

	params := append([]utils.QueryParam{{Key: "dl", Value: "true"}}, utils.SecurityParams(security)...)
	resp, requestURL, err := r.get(ctx, fileURL, params, &getOptions{sink: part, progress: progress})
	if err != nil {
		return "", err
	}
	if err := checkResponse(resp, requestURL); err != nil {
		return "", err
	}

	closed = true
	if err := part.Close(); err != nil {
		return "", fmt.Errorf("failed to close partial file: %w", err)
	}
	if err := r.fileOps.CommitPartFile(destination); err != nil {
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}
	committed = true

	internal.LogDebug("Downloaded %s to %s", fileURL, destination)
	return destination, nil
}

// storeResponse is the subset of the store reply used to build the new link
type storeResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
}

// sendStore copies source, a local path or a remote URL, into storage and
// returns a Filelink for the stored copy
func (r *requester) sendStore(ctx context.Context, source, apiKey string, opts *StoreOptions, security *internal.Security) (*Filelink, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, internal.NewValidationError("api_key", "an API key is required to store files").
			WithSuggestion("Provide an API key with --api-key or FILESTACK_API_KEY")
	}
	if strings.TrimSpace(source) == "" {
		return nil, internal.NewValidationError("source", "source path or URL cannot be empty")
	}

	options := StoreOptions{}
	if opts != nil {
		options = *opts
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if options.Filename == "" {
		options.Filename = utils.SourceBaseName(source)
	}

	payload, closePayload, err := createUploadPayload(source, options.Mimetype)
	if err != nil {
		return nil, err
	}
	defer closePayload()

	storeURL := utils.StoreURL(r.apiURL, apiKey, options.location(), options.params(), security)
	resp, err := r.post(ctx, storeURL, payload, nil)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp, storeURL); err != nil {
		return nil, err
	}

	var stored storeResponse
	if err := json.Unmarshal(resp.Body, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode store response: %w", err)
	}
	if stored.URL == "" {
		return nil, errors.New("store response does not contain a url")
	}

	internal.LogDebug("Stored %s as %s (%d bytes)", source, stored.URL, stored.Size)
	return &Filelink{
		requester: r,
		handle:    utils.HandleFromURL(stored.URL),
		apiKey:    apiKey,
	}, nil
}

// createUploadPayload opens local sources for streaming; the returned func
// releases the file and must always be called
func createUploadPayload(source, mimetype string) (*uploadPayload, func(), error) {
	if utils.IsURL(source) {
		return &uploadPayload{form: url.Values{"url": {source}}}, func() {}, nil
	}

	file, size, err := openLocalSource(source)
	if err != nil {
		return nil, nil, err
	}

	contentType := mimetype
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	payload := &uploadPayload{body: file, contentLength: size, contentType: contentType}
	if size == 0 {
		payload.body = http.NoBody
	}
	return payload, func() { file.Close() }, nil
}
