package snapshot

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultSuffix is the file suffix of exported snapshot files.
const DefaultSuffix = ".html"

// YearParser derives a snapshot's year from its file name.
type YearParser struct {
	suffix string
	re     *regexp.Regexp
}

// NewYearParser compiles the year pattern for files ending in suffix.
// A year is a run of exactly four digits not touching other digits; when a
// name holds several, the last one wins.
func NewYearParser(suffix string) *YearParser {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return &YearParser{
		suffix: suffix,
		re:     regexp.MustCompile(`^(?:.*\D)?(\d{4})(?:\D.*)?` + regexp.QuoteMeta(suffix) + `$`),
	}
}

// Suffix returns the snapshot file suffix.
func (p *YearParser) Suffix() string { return p.suffix }

// Match reports whether name has the snapshot suffix.
func (p *YearParser) Match(name string) bool {
	return strings.HasSuffix(name, p.suffix)
}

// Year returns the year embedded in name. ok is false when name lacks the
// suffix or a four-digit year.
func (p *YearParser) Year(name string) (year int, ok bool) {
	m := p.re.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return year, true
}
