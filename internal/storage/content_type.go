package storage

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// documentTypes are the upload formats accepted for project documents,
// keyed by base MIME type.
var documentTypes = map[string]string{
	"application/pdf": ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
	"application/vnd.hancom.hwp": ".hwp",
	"application/x-hwp": ".hwp",
	"text/plain": ".txt",
	"text/markdown": ".md",
	"text/csv": ".csv",
}

// DetectContentType picks a MIME type from, in order, the provided type, the
// filename extension, a sniff of head, or application/octet-stream.
func DetectContentType(providedType, filename string, head []byte) string {
	if providedType != "" && providedType != "application/octet-stream" {
		return providedType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".hwp" {
		return "application/x-hwp"
	}
	if ext == ".md" {
		return "text/markdown"
	}
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	if len(head) > 0 {
		return http.DetectContentType(head)
	}

	return "application/octet-stream"
}

// baseType strips parameters such as charset and lowercases.
func baseType(contentType string) string {
	return strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
}

// IsAllowedDocumentType reports whether contentType may be uploaded as a
// project document.
func IsAllowedDocumentType(contentType string) bool {
	_, ok := documentTypes[baseType(contentType)]
	return ok
}

// IsPDF returns true if the content type is a PDF document.
func IsPDF(contentType string) bool {
	return baseType(contentType) == "application/pdf"
}

// IsText returns true for plain-text formats the AI provider can read directly.
func IsText(contentType string) bool {
	return strings.HasPrefix(baseType(contentType), "text/")
}

// ExtensionForContentType returns a file extension for a MIME type.
func ExtensionForContentType(contentType string) string {
	if ext, ok := documentTypes[baseType(contentType)]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(baseType(contentType)); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
