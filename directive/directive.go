package directive

import (
	"regexp"
	"strings"
)

// Directive is a search request the model embedded in its answer. Found with
// an empty Query means the marker was present but carried no usable text.
type Directive struct {
	Query string
	Found bool
}

// Extractor pulls a search directive out of free-form model output. The
// model is untrusted, so implementations must fail open: anything that is
// not a well-formed directive is simply not found.
type Extractor interface {
	Extract(text string) Directive
}

var sentinelPattern = regexp.MustCompile(`\[SEARCH:\s*([^\]]*)\]`)

// SentinelExtractor recognizes the [SEARCH: <query>] convention. The label
// is matched case-sensitively and only the first occurrence counts.
type SentinelExtractor struct{}

func (SentinelExtractor) Extract(text string) Directive {
	match := sentinelPattern.FindStringSubmatch(text)
	if match == nil {
		return Directive{}
	}
	return Directive{Query: strings.TrimSpace(match[1]), Found: true}
}
