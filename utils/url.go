package utils

import (
	"fmt"
	"net/url"
	"strings"

	"filestack/internal"
)

// QueryParam is a single key/value pair appended to a URL. Order is preserved.
type QueryParam struct {
	Key   string
	Value string
}

// CDNURL returns the content URL of a handle
func CDNURL(cdnBase, handle string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(cdnBase, "/"), handle)
}

// AppendQuery appends params to rawURL in order. A '?' is introduced only
// when rawURL has no query yet; otherwise params are joined with '&' so an
// existing query is merged rather than overwritten. Keys and values are
// query-escaped.
func AppendQuery(rawURL string, params ...QueryParam) string {
	if len(params) == 0 {
		return rawURL
	}

	pairs := make([]string, 0, len(params))
	for _, p := range params {
		pairs = append(pairs, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}

	separator := "&"
	switch {
	case !strings.Contains(rawURL, "?"):
		separator = "?"
	case strings.HasSuffix(rawURL, "?"), strings.HasSuffix(rawURL, "&"):
		separator = ""
	}

	return rawURL + separator + strings.Join(pairs, "&")
}

// SecurityParams returns the policy and signature query parameters, or nil
// when security is not in use
func SecurityParams(security *internal.Security) []QueryParam {
	if security == nil {
		return nil
	}
	return []QueryParam{
		{Key: "policy", Value: security.Policy},
		{Key: "signature", Value: security.Signature},
	}
}

// SignedURL appends the security policy to rawURL
func SignedURL(rawURL string, security *internal.Security) string {
	return AppendQuery(rawURL, SecurityParams(security)...)
}

// StoreURL builds the store endpoint for a storage location:
// <apiBase>/store/<location>?key=<apiKey>&<params>[&policy=..&signature=..]
func StoreURL(apiBase, apiKey, location string, params []QueryParam, security *internal.Security) string {
	endpoint := fmt.Sprintf("%s/store/%s", strings.TrimRight(apiBase, "/"), url.PathEscape(location))

	query := make([]QueryParam, 0, len(params)+3)
	query = append(query, QueryParam{Key: "key", Value: apiKey})
	query = append(query, params...)
	query = append(query, SecurityParams(security)...)

	return AppendQuery(endpoint, query...)
}

// IsURL reports whether source is an absolute http(s) URL rather than a
// local file path
func IsURL(source string) bool {
	parsed, err := url.Parse(source)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

// SourceBaseName returns the last path element of a local path or URL,
// ignoring any query string
func SourceBaseName(source string) string {
	if IsURL(source) {
		if parsed, err := url.Parse(source); err == nil {
			source = parsed.Path
		}
	}

	source = strings.TrimRight(strings.ReplaceAll(source, "\\", "/"), "/")
	if idx := strings.LastIndex(source, "/"); idx != -1 {
		return source[idx+1:]
	}
	return source
}

// HandleFromURL returns everything after the final '/' of a file URL
func HandleFromURL(fileURL string) string {
	return fileURL[strings.LastIndex(fileURL, "/")+1:]
}
