package schema

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// ScanSource searches the raw page source, markup included.
	ScanSource = "source"
	// ScanText searches only the text a user would read.
	ScanText = "text"
)

// Scanner turns page source into something markers can be searched in.
type Scanner struct {
	mode   string
	policy *bluemonday.Policy
}

// NewScanner returns a scanner for mode; anything but ScanText scans the
// raw source.
func NewScanner(mode string) *Scanner {
	s := &Scanner{mode: mode}
	if mode == ScanText {
		s.policy = bluemonday.StrictPolicy()
	}
	return s
}

// Page is a prepared, case-folded page.
type Page struct {
	folded string
}

func (s *Scanner) Prepare(source string) Page {
	text := source
	if s.policy != nil {
		text = html.UnescapeString(s.policy.Sanitize(source))
	}
	return Page{folded: strings.ToLower(text)}
}

// Contains reports a case-insensitive match of marker.
func (p Page) Contains(marker string) bool {
	return strings.Contains(p.folded, strings.ToLower(marker))
}

// Split partitions markers into those found on the page and those missing.
func (p Page) Split(markers []string) (present, absent []string) {
	for _, m := range markers {
		if p.Contains(m) {
			present = append(present, m)
		} else {
			absent = append(absent, m)
		}
	}
	return present, absent
}
