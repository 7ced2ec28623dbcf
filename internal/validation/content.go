// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// MaxFilenameLength bounds the declared (unsanitized) upload filename.
const MaxFilenameLength = 255

// DefaultAllowedMimeTypes is the attachment allow-list used when none is configured.
var DefaultAllowedMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/webp",
}

// executableTypes are rejected whatever the declared type. Scripts are
// listed explicitly since their sniffed types descend from text/plain.
var executableTypes = []string{
	"application/x-executable",
	"application/x-elf",
	"application/x-mach-binary",
	"application/vnd.microsoft.portable-executable",
	"text/x-shellscript",
	"text/x-python",
	"text/x-perl",
	"text/x-php",
	"text/x-lua",
	"text/x-tcl",
	"text/javascript",
}

func isExecutable(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		for _, t := range executableTypes {
			if m.Is(t) {
				return true
			}
		}
	}
	return false
}

// Limits configures content and attachment rules.
type Limits struct {
	MaxContentLength  int
	MaxAttachmentSize int64
	AllowedMimeTypes  []string
}

// MessageContent trims content and enforces the non-empty and maximum
// length rules. It returns the trimmed content.
func MessageContent(content string, limits Limits) (string, *RequestValidationError) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", newError("content", "required", content, "message content cannot be empty")
	}
	if limits.MaxContentLength > 0 && utf8.RuneCountInString(trimmed) > limits.MaxContentLength {
		return "", newError("content", "max", len(trimmed),
			"message content too long (max %d characters)", limits.MaxContentLength)
	}
	return trimmed, nil
}

// Attachment checks declared upload metadata: filename, size and mime type.
func Attachment(filename, mimeType string, size int64, limits Limits) *RequestValidationError {
	if strings.TrimSpace(filename) == "" {
		return newError("filename", "required", filename, "filename cannot be empty")
	}
	if utf8.RuneCountInString(filename) > MaxFilenameLength {
		return newError("filename", "max", filename, "filename too long (max %d characters)", MaxFilenameLength)
	}
	if size <= 0 {
		return newError("data", "required", size, "file is empty")
	}
	if limits.MaxAttachmentSize > 0 && size > limits.MaxAttachmentSize {
		return newError("data", "max", size, "file too large (max %d bytes)", limits.MaxAttachmentSize)
	}

	allowed := limits.AllowedMimeTypes
	if len(allowed) == 0 {
		allowed = DefaultAllowedMimeTypes
	}
	declared := NormalizeMimeType(mimeType)
	for _, a := range allowed {
		if NormalizeMimeType(a) == declared {
			return nil
		}
	}
	return newError("mime_type", "oneof", mimeType, "file type not allowed: %s", mimeType)
}

// FileContent sniffs data and rejects it when the detected type disagrees
// with the declared one. Content the sniffer cannot classify is accepted.
func FileContent(data []byte, declared string) *RequestValidationError {
	detected := mimetype.Detect(data)
	if isExecutable(detected) {
		return newError("data", "executable", declared,
			"file content (%s) is executable and cannot be attached", detected.String())
	}
	if detected.Is("application/octet-stream") {
		return nil
	}

	want := NormalizeMimeType(declared)
	for m := detected; m != nil; m = m.Parent() {
		if NormalizeMimeType(m.String()) == want || m.Is(want) {
			return nil
		}
	}
	return newError("data", "mime_mismatch", declared,
		"file content (%s) does not match declared type %s", detected.String(), declared)
}

// NormalizeMimeType lowercases m, drops parameters and folds image/jpg
// into image/jpeg.
func NormalizeMimeType(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if m == "image/jpg" {
		return "image/jpeg"
	}
	return m
}

// SanitizeFilename strips everything but letters, digits, '.', '_' and '-'
// and trims leading and trailing dots, so the result is a single safe path
// element.
//
//	SanitizeFilename("../../../etc/passwd") == "etcpasswd"
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	safe := strings.Trim(b.String(), ".")
	if safe == "" {
		return "file"
	}
	return safe
}
