package document

import (
	"fmt"
	"regexp"
	"strings"
)

// Marker tokens. The opening marker is an HTML comment so the payload stays
// invisible in rendered markdown; the closing marker is a bare comment.
const (
	openPrefix   = "<!--pytextgen:"
	commentClose = "-->"
	closeMarker  = "<!--/pytextgen-->"
)

// directivePattern constrains directive names to a greppable identifier.
var directivePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// ParseError reports a malformed or unmatched marker. It is scoped to one
// document and never fatal to a run.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at byte %d: %s", e.Offset, e.Message)
}

// Extract scans text and returns the ordered spans plus any parse errors.
//
// Extract is a pure function of its input: no I/O, no shared state. The
// returned spans partition text exactly: malformed regions are reported as
// errors and their bytes fall into the surrounding literal span, so one bad
// region never prevents extraction of its valid siblings.
//
// Nesting is not supported: an opening marker inside a region's body is a
// parse error for that region.
func Extract(text string) ([]Span, []error) {
	var (
		spans    []Span
		errs     []error
		litStart int
		scan     int
	)

	for scan < len(text) {
		openRel := strings.Index(text[scan:], openPrefix)
		closeRel := strings.Index(text[scan:], closeMarker)

		if openRel == -1 && closeRel == -1 {
			break
		}

		// Closing marker with no opening marker before it.
		if closeRel != -1 && (openRel == -1 || closeRel < openRel) {
			at := scan + closeRel
			errs = append(errs, &ParseError{Offset: at, Message: "unmatched closing marker"})
			scan = at + len(closeMarker)
			continue
		}

		openStart := scan + openRel
		headerStart := openStart + len(openPrefix)

		headerRel := strings.Index(text[headerStart:], commentClose)
		if headerRel == -1 {
			errs = append(errs, &ParseError{Offset: openStart, Message: "unterminated opening marker"})
			scan = headerStart
			continue
		}
		header := text[headerStart : headerStart+headerRel]
		bodyStart := headerStart + headerRel + len(commentClose)

		directive, payload := splitHeader(header)
		if !directivePattern.MatchString(directive) {
			errs = append(errs, &ParseError{
				Offset:  openStart,
				Message: fmt.Sprintf("invalid directive %q", directive),
			})
			scan = bodyStart
			continue
		}

		endRel := strings.Index(text[bodyStart:], closeMarker)
		if endRel == -1 {
			errs = append(errs, &ParseError{
				Offset:  openStart,
				Message: fmt.Sprintf("region %q has no closing marker", directive),
			})
			scan = bodyStart
			continue
		}
		nextOpenRel := strings.Index(text[bodyStart:], openPrefix)
		if nextOpenRel != -1 && nextOpenRel < endRel {
			errs = append(errs, &ParseError{
				Offset:  bodyStart + nextOpenRel,
				Message: fmt.Sprintf("nested opening marker inside region %q", directive),
			})
			scan = bodyStart
			continue
		}

		bodyEnd := bodyStart + endRel
		regionEnd := bodyEnd + len(closeMarker)

		if openStart > litStart {
			spans = append(spans, Literal{
				Start: litStart,
				End:   openStart,
				Raw:   text[litStart:openStart],
			})
		}
		spans = append(spans, Region{
			Directive: directive,
			Payload:   payload,
			Start:     openStart,
			End:       regionEnd,
			BodyStart: bodyStart,
			BodyEnd:   bodyEnd,
			Prior:     text[bodyStart:bodyEnd],
			Raw:       text[openStart:regionEnd],
		})
		litStart = regionEnd
		scan = regionEnd
	}

	if litStart < len(text) {
		spans = append(spans, Literal{
			Start: litStart,
			End:   len(text),
			Raw:   text[litStart:],
		})
	}
	return spans, errs
}

// splitHeader separates the directive name from the payload. The directive
// runs to the first whitespace; everything after it, trimmed, is the payload.
func splitHeader(header string) (directive, payload string) {
	header = strings.TrimLeft(header, " \t\r\n")
	cut := strings.IndexAny(header, " \t\r\n")
	if cut == -1 {
		return header, ""
	}
	return header[:cut], strings.TrimSpace(header[cut:])
}
