package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"mermanager/internal/domain"
)

var reID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ID validates a simple resource identifier (listing/session ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Title trims and enforces presence plus the marketplace 80-char cap.
func Title(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > 80 {
		return "", false
	}
	return s, true
}

// Text trims free text and clamps it to a sane length.
func Text(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 2000 {
		s = string([]rune(s)[:2000])
	}
	return s
}

// Money parses a non-negative integer amount in yen. Empty reads as zero.
func Money(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Status validates the listing status enum.
func Status(s string) (domain.Status, bool) {
	st := domain.Status(strings.TrimSpace(s))
	return st, st.Valid()
}

// Category falls back to the default label when the input is not in the
// fixed set.
func Category(s string) string {
	s = strings.TrimSpace(s)
	if domain.ValidCategory(s) {
		return s
	}
	return domain.Categories[0]
}
