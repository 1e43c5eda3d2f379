// Package document defines the span model for generated-text documents and
// the extractor that splits raw text into literal spans and regions.
//
// A document is plain text containing zero or more generation regions. A
// region is delimited by an opening marker comment that carries a directive
// name and a source payload, followed by the generated body and a closing
// marker:
//
//	<!--pytextgen:evaluate
//	func Generate(env map[string]string) (string, error) { ... }
//	-->
//	...generated body, replaced on each run...
//	<!--/pytextgen-->
//
// Only the body between the opening comment and the closing marker is ever
// rewritten. Markers and payload are preserved byte-for-byte, which is what
// makes regeneration idempotent.
package document

// Span is one segment of a document. Spans partition the document text with
// no gaps or overlaps: concatenating every span's text reproduces the
// original document exactly.
type Span interface {
	// Bounds returns the half-open byte range [start, end) this span
	// covers in the original document.
	Bounds() (start, end int)

	// Text returns the original bytes of this span.
	Text() string
}

// Literal is hand-written document text outside any region. It is copied
// verbatim by the rewriter.
type Literal struct {
	Start int
	End   int
	Raw   string
}

// Bounds implements Span.
func (l Literal) Bounds() (int, int) { return l.Start, l.End }

// Text implements Span.
func (l Literal) Text() string { return l.Raw }

// Region is a delimited, directive-tagged segment whose body is
// machine-generated.
//
// Start/End cover the whole region including both markers; BodyStart/BodyEnd
// cover only the replaceable body. The bytes in [Start, BodyStart) and
// [BodyEnd, End), the markers plus payload, are never modified.
type Region struct {
	// Directive selects the generation strategy. It must resolve to
	// exactly one registered strategy.
	Directive string

	// Payload is the source text the strategy consumes, as written inside
	// the opening marker (surrounding whitespace trimmed).
	Payload string

	Start     int
	End       int
	BodyStart int
	BodyEnd   int

	// Prior is the current body text, retained for idempotence
	// comparisons: a region whose new output equals Prior is unchanged.
	Prior string

	// Raw is the full original text of the region including markers.
	Raw string
}

// Bounds implements Span.
func (r Region) Bounds() (int, int) { return r.Start, r.End }

// Text implements Span.
func (r Region) Text() string { return r.Raw }

// Document is one input file during a single run. It is owned exclusively by
// one orchestrator task and is immutable from read until rewrite.
type Document struct {
	// Path is the document's stable identity.
	Path string

	// Source is the raw text as read.
	Source string

	// Spans partition Source; see Span.
	Spans []Span
}

// Parse extracts spans from text. Parse errors are returned alongside the
// document: malformed regions degrade to literal text so the remaining
// regions still regenerate.
func Parse(path, text string) (*Document, []error) {
	spans, errs := Extract(text)
	return &Document{Path: path, Source: text, Spans: spans}, errs
}

// Regions returns the document's regions in document order.
func (d *Document) Regions() []Region {
	var regions []Region
	for _, s := range d.Spans {
		if r, ok := s.(Region); ok {
			regions = append(regions, r)
		}
	}
	return regions
}
