package validator

import (
	"net/http"
	"strings"
)

// DefaultContentType is served when a stored object carries no content type.
const DefaultContentType = "application/octet-stream"

// SVGContentType is the registered MIME type for SVG documents.
const SVGContentType = "image/svg+xml"

// NormalizeMimeType lowercases mimeType and strips parameters
// (e.g. "Image/SVG+XML; charset=utf-8" -> "image/svg+xml").
func NormalizeMimeType(mimeType string) string {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(normalized, ";"); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	return normalized
}

// IsSVG reports whether mimeType names an SVG document.
func IsSVG(mimeType string) bool {
	return NormalizeMimeType(mimeType) == SVGContentType
}

// DetectMimeType returns declared when it is set, otherwise sniffs data.
// Sniffed XML that opens an <svg> element is reported as SVG.
func DetectMimeType(data []byte, declared string) string {
	if strings.TrimSpace(declared) != "" {
		return declared
	}
	if len(data) == 0 {
		return DefaultContentType
	}
	if LooksLikeSVG(data) {
		return SVGContentType
	}
	return http.DetectContentType(data)
}

// LooksLikeSVG reports whether the first kilobyte of data contains an
// opening <svg element.
func LooksLikeSVG(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return strings.Contains(strings.ToLower(string(head)), "<svg")
}
