package client

import (
	"encoding/json"
	"strings"

	"filestack/internal"
)

// Metadata field names understood by the service.
const (
	FieldMimetype  = "mimetype"
	FieldFilename  = "filename"
	FieldSize      = "size"
	FieldWidth     = "width"
	FieldHeight    = "height"
	FieldLocation  = "location"
	FieldPath      = "path"
	FieldContainer = "container"
	FieldExif      = "exif"
	FieldUploaded  = "uploaded"
	FieldWritable  = "writable"
	FieldCloud     = "cloud"
	FieldSourceURL = "source_url"
)

var metadataFields = map[string]bool{
	FieldMimetype:  true,
	FieldFilename:  true,
	FieldSize:      true,
	FieldWidth:     true,
	FieldHeight:    true,
	FieldLocation:  true,
	FieldPath:      true,
	FieldContainer: true,
	FieldExif:      true,
	FieldUploaded:  true,
	FieldWritable:  true,
	FieldCloud:     true,
	FieldSourceURL: true,
}

// Metadata is the decoded metadata response, keyed by field name.
type Metadata map[string]interface{}

// ValidateMetadataFields rejects field names outside the service vocabulary
func ValidateMetadataFields(fields []string) error {
	for _, field := range fields {
		if !metadataFields[field] {
			return internal.NewValidationErrorWithValue("fields", "unknown metadata field", field).
				WithSuggestion("Valid fields: " + strings.Join(MetadataFieldNames(), ", "))
		}
	}
	return nil
}

// MetadataFieldNames lists the supported metadata fields
func MetadataFieldNames() []string {
	return []string{
		FieldMimetype, FieldFilename, FieldSize, FieldWidth, FieldHeight,
		FieldLocation, FieldPath, FieldContainer, FieldExif, FieldUploaded,
		FieldWritable, FieldCloud, FieldSourceURL,
	}
}

// GetString returns the value of a string field, or "" if absent
func (m Metadata) GetString(field string) string {
	if s, ok := m[field].(string); ok {
		return s
	}
	return ""
}

// GetInt returns a numeric field as int64
func (m Metadata) GetInt(field string) (int64, bool) {
	switch v := m[field].(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// Filename returns the stored filename, or "" if absent
func (m Metadata) Filename() string { return m.GetString(FieldFilename) }

// Mimetype returns the MIME type, or "" if absent
func (m Metadata) Mimetype() string { return m.GetString(FieldMimetype) }

// Size returns the file size in bytes, or -1 if the field was not returned
func (m Metadata) Size() int64 {
	if n, ok := m.GetInt(FieldSize); ok {
		return n
	}
	return -1
}
