package utils

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from user or provider supplied text.
// Entities produced by the policy are decoded again so "O'Brien" survives.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// SanitizeAvatarURL returns nil unless s is an absolute http(s) URL without markup.
func SanitizeAvatarURL(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "<>\"'` ") {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return nil
	}
	out := u.String()
	return &out
}
