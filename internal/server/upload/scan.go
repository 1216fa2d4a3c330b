package upload

import (
	"bytes"
	"regexp"
)

// scanWindow limits the content scan to the head of the file, where
// polyglot and webshell payloads place their markers.
const scanWindow = 8192

var scriptMarkers = [][]byte{
	[]byte("<?php"),
	[]byte("<?="),
	[]byte("<script"),
}

var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)exec\s*\(`),
	regexp.MustCompile(`(?i)system\s*\(`),
	regexp.MustCompile(`(?i)shell_exec\s*\(`),
	regexp.MustCompile(`(?i)passthru\s*\(`),
	regexp.MustCompile(`(?i)base64_decode\s*\(`),
}

// Scan inspects the first 8 KB of content for embedded script markers
// and dangerous call patterns. It returns a short machine-readable
// reason when the content should be quarantined, or "" when clean.
func Scan(content []byte) string {
	window := content
	if len(window) > scanWindow {
		window = window[:scanWindow]
	}
	lowered := bytes.ToLower(window)

	for _, marker := range scriptMarkers {
		if bytes.Contains(lowered, marker) {
			return "malicious_content_detected"
		}
	}
	for _, pattern := range suspiciousPatterns {
		if pattern.Match(window) {
			return "suspicious_pattern_detected"
		}
	}
	return ""
}
