// Package rewrite merges generated region bodies back into a document and
// writes the result atomically.
//
// The rewriter never reformats anything: literal spans and region markers are
// emitted byte-for-byte from the original source, and only region bodies are
// substituted. A document with no regions round-trips identically.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/polyipseity/pytextgen/internal/document"
)

// Merge assembles the final document text. outputs maps region ordinals (the
// position of each region among the document's regions, in document order) to
// new bodies. Regions without an output keep their prior body, so a failed
// region leaves its bytes untouched while its siblings still regenerate.
func Merge(source string, spans []document.Span, outputs map[int]string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(source))

	ordinal := 0
	for _, span := range spans {
		region, ok := span.(document.Region)
		if !ok {
			sb.WriteString(span.Text())
			continue
		}

		if region.BodyStart < region.Start || region.BodyEnd > region.End || region.BodyStart > region.BodyEnd {
			return "", fmt.Errorf("region %d has invalid body range [%d, %d) within [%d, %d)",
				ordinal, region.BodyStart, region.BodyEnd, region.Start, region.End)
		}

		body, replaced := outputs[ordinal]
		if !replaced {
			body = region.Prior
		}
		// Markers and payload are copied from the source verbatim.
		sb.WriteString(source[region.Start:region.BodyStart])
		sb.WriteString(body)
		sb.WriteString(source[region.BodyEnd:region.End])
		ordinal++
	}
	return sb.String(), nil
}
