package client

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"filestack/internal"
	"filestack/utils"
)

// DefaultLocation is the storage location used when none is given.
const DefaultLocation = "s3"

// Access values accepted by StoreOptions.Access.
const (
	AccessPublic  = "public"
	AccessPrivate = "private"
)

var storeLocations = map[string]bool{
	"s3":        true,
	"gcs":       true,
	"azure":     true,
	"rackspace": true,
	"dropbox":   true,
}

// StoreOptions are the optional parameters of a store call. Empty fields are
// not sent.
type StoreOptions struct {
	// Location is the storage backend: s3 (default), gcs, azure, rackspace
	// or dropbox.
	Location string
	// Filename defaults to the base name of the source.
	Filename  string
	Mimetype  string
	Path      string
	Container string
	// Access is "public" or "private".
	Access       string
	Base64Decode *bool
}

// Validate checks the option values before any request is made
func (o *StoreOptions) Validate() error {
	if o.Location != "" && !storeLocations[strings.ToLower(o.Location)] {
		return internal.NewValidationErrorWithValue("location", "unsupported storage location", o.Location).
			WithSuggestion("Use one of s3, gcs, azure, rackspace, dropbox")
	}
	if o.Access != "" && o.Access != AccessPublic && o.Access != AccessPrivate {
		return internal.NewValidationErrorWithValue("access", "access must be public or private", o.Access)
	}
	return nil
}

func (o *StoreOptions) location() string {
	if o.Location == "" {
		return DefaultLocation
	}
	return strings.ToLower(o.Location)
}

// params returns the store query parameters in a stable order
func (o *StoreOptions) params() []utils.QueryParam {
	var params []utils.QueryParam
	add := func(key, value string) {
		if value != "" {
			params = append(params, utils.QueryParam{Key: key, Value: value})
		}
	}

	add("filename", o.Filename)
	add("mimetype", o.Mimetype)
	add("path", o.Path)
	add("container", o.Container)
	add("access", o.Access)
	if o.Base64Decode != nil {
		add("base64decode", strconv.FormatBool(*o.Base64Decode))
	}
	return params
}

// openLocalSource opens path for upload and returns its size
func openLocalSource(path string) (*os.File, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open source file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, internal.NewValidationErrorWithValue("source", "source is a directory", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open source file: %w", err)
	}
	return file, info.Size(), nil
}
