// Package usecases - text.go has the keyword matching and text normalization helpers.
package usecases

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// hasKeyword reports whether keyword occurs in text starting at a word
// boundary. Matching is case-insensitive and prefix-based, so "user"
// matches "users" and "app" matches "application" but "ui" does not
// match "build".
func hasKeyword(text, keyword string) bool {
	lower := strings.ToLower(text)
	kw := strings.ToLower(keyword)
	for offset := 0; ; {
		i := strings.Index(lower[offset:], kw)
		if i < 0 {
			return false
		}
		pos := offset + i
		if pos == 0 || !isWordRune(lastRune(lower[:pos])) {
			return true
		}
		offset = pos + len(kw)
	}
}

// hasAnyKeyword reports whether any keyword matches.
func hasAnyKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if hasKeyword(text, kw) {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// lastRune returns the final rune of s, or a space for an empty s.
func lastRune(s string) rune {
	if s == "" {
		return ' '
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"are": true, "from": true, "need": true, "want": true, "should": true, "will": true,
	"have": true, "has": true, "into": true, "about": true, "what": true, "which": true,
}

// keywordTerms extracts lowercase search terms from a query.
func keywordTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, f := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !isWordRune(r) && r != '-'
	}) {
		f = strings.Trim(f, "-")
		if len([]rune(f)) < 3 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// normalizeContent canonicalizes text before fingerprinting: NFC, LF line
// endings, no trailing whitespace per line, trimmed.
func normalizeContent(content string) string {
	s := norm.NFC.String(content)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Fingerprint is the content hash used for document deduplication.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(normalizeContent(content)))
	return hex.EncodeToString(sum[:])
}

// truncate returns at most n items. A nil input yields an empty slice.
func truncate(items []string, n int) []string {
	if items == nil {
		return []string{}
	}
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}

// preview returns at most n runes of s.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func bulletList(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return sb.String()
}
