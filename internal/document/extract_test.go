package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleDoc = `# Notes

<!--pytextgen:evaluate
func Generate(env map[string]string) (string, error) { return "hi", nil }
-->
old body
<!--/pytextgen-->

trailing prose
`

func TestExtractSimpleRegion(t *testing.T) {
	spans, errs := Extract(simpleDoc)
	require.Empty(t, errs)
	require.Len(t, spans, 3, "literal, region, literal")

	lit, ok := spans[0].(Literal)
	require.True(t, ok)
	assert.Equal(t, "# Notes\n\n", lit.Raw)

	region, ok := spans[1].(Region)
	require.True(t, ok)
	assert.Equal(t, "evaluate", region.Directive)
	assert.Contains(t, region.Payload, "func Generate")
	assert.Equal(t, "\nold body\n", region.Prior)

	tail, ok := spans[2].(Literal)
	require.True(t, ok)
	assert.Equal(t, "\n\ntrailing prose\n", tail.Raw)
}

func TestExtractRoundTrip(t *testing.T) {
	// Concatenating span text must reproduce the input exactly.
	inputs := []string{
		"",
		"no regions at all\n",
		simpleDoc,
		"<!--pytextgen:clear-->\n<!--/pytextgen-->",
		"a<!--pytextgen:x p--> <!--/pytextgen-->b<!--pytextgen:y q-->c<!--/pytextgen-->d",
	}
	for _, input := range inputs {
		spans, errs := Extract(input)
		require.Empty(t, errs, "input %q", input)

		var sb strings.Builder
		prevEnd := 0
		for _, s := range spans {
			start, end := s.Bounds()
			assert.Equal(t, prevEnd, start, "spans must be contiguous")
			prevEnd = end
			sb.WriteString(s.Text())
		}
		assert.Equal(t, input, sb.String(), "round trip must be byte-identical")
	}
}

func TestExtractOffsetsMatchSource(t *testing.T) {
	spans, errs := Extract(simpleDoc)
	require.Empty(t, errs)

	for _, s := range spans {
		start, end := s.Bounds()
		assert.Equal(t, simpleDoc[start:end], s.Text())
	}

	region := spans[1].(Region)
	assert.Equal(t, simpleDoc[region.BodyStart:region.BodyEnd], region.Prior)
	assert.True(t, region.Start < region.BodyStart)
	assert.True(t, region.BodyEnd < region.End)
}

func TestExtractUnmatchedClose(t *testing.T) {
	text := "before <!--/pytextgen--> after"
	spans, errs := Extract(text)

	require.Len(t, errs, 1)
	var pe *ParseError
	require.ErrorAs(t, errs[0], &pe)
	assert.Contains(t, pe.Message, "unmatched closing marker")

	// The malformed marker degrades to literal text.
	require.Len(t, spans, 1)
	assert.Equal(t, text, spans[0].Text())
}

func TestExtractUnmatchedOpen(t *testing.T) {
	text := "before <!--pytextgen:evaluate code--> body without close"
	spans, errs := Extract(text)

	require.Len(t, errs, 1)
	var pe *ParseError
	require.ErrorAs(t, errs[0], &pe)
	assert.Contains(t, pe.Message, "no closing marker")

	require.Len(t, spans, 1)
	assert.Equal(t, text, spans[0].Text())
}

func TestExtractUnterminatedComment(t *testing.T) {
	text := "x <!--pytextgen:evaluate never closed"
	spans, errs := Extract(text)

	require.Len(t, errs, 1)
	require.Len(t, spans, 1)
	assert.Equal(t, text, spans[0].Text())
}

func TestExtractNestedOpenIsError(t *testing.T) {
	text := "<!--pytextgen:a one--> body <!--pytextgen:b two--> inner <!--/pytextgen-->"
	spans, errs := Extract(text)

	// The outer region is rejected; the inner one still parses.
	require.Len(t, errs, 1)
	var pe *ParseError
	require.ErrorAs(t, errs[0], &pe)
	assert.Contains(t, pe.Message, "nested opening marker")

	var regions []Region
	for _, s := range spans {
		if r, ok := s.(Region); ok {
			regions = append(regions, r)
		}
	}
	require.Len(t, regions, 1)
	assert.Equal(t, "b", regions[0].Directive)
}

func TestExtractMalformedPlusValid(t *testing.T) {
	// One bad region and one good region: the good one must survive and
	// exactly one parse error must be reported.
	text := "<!--/pytextgen--> middle <!--pytextgen:evaluate p-->old<!--/pytextgen--> end"
	spans, errs := Extract(text)

	require.Len(t, errs, 1)

	var regions []Region
	for _, s := range spans {
		if r, ok := s.(Region); ok {
			regions = append(regions, r)
		}
	}
	require.Len(t, regions, 1)
	assert.Equal(t, "evaluate", regions[0].Directive)
	assert.Equal(t, "p", regions[0].Payload)
	assert.Equal(t, "old", regions[0].Prior)
}

func TestExtractInvalidDirective(t *testing.T) {
	text := "<!--pytextgen:9bad payload-->body<!--/pytextgen-->"
	spans, errs := Extract(text)

	require.Len(t, errs, 2, "invalid directive, then orphaned closing marker")
	require.Len(t, spans, 1)
	assert.Equal(t, text, spans[0].Text())
}

func TestExtractMultilinePayload(t *testing.T) {
	text := "<!--pytextgen:evaluate\nline one\nline two\n-->\nbody\n<!--/pytextgen-->"
	spans, errs := Extract(text)
	require.Empty(t, errs)

	region := spans[0].(Region)
	assert.Equal(t, "evaluate", region.Directive)
	assert.Equal(t, "line one\nline two", region.Payload)
	assert.Equal(t, "\nbody\n", region.Prior)
}

func TestParseCollectsRegions(t *testing.T) {
	doc, errs := Parse("notes.md", simpleDoc)
	require.Empty(t, errs)
	assert.Equal(t, "notes.md", doc.Path)
	assert.Equal(t, simpleDoc, doc.Source)

	regions := doc.Regions()
	require.Len(t, regions, 1)
	assert.Equal(t, "evaluate", regions[0].Directive)
}

func TestExtractEmptyBody(t *testing.T) {
	text := "<!--pytextgen:clear--><!--/pytextgen-->"
	spans, errs := Extract(text)
	require.Empty(t, errs)
	require.Len(t, spans, 1)

	region := spans[0].(Region)
	assert.Equal(t, "", region.Prior)
	assert.Equal(t, region.BodyStart, region.BodyEnd)
}
