package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colabwize/api/internal/citescan"
	dm "colabwize/api/internal/docmodel"
)

func patternTypes(ps []Pattern) []PatternType {
	var out []PatternType
	for _, p := range ps {
		out = append(out, p.PatternType)
	}
	return out
}

func TestBuildRequest(t *testing.T) {
	doc := dm.Doc(
		dm.Heading(1, dm.Text("Introduction")),
		dm.Paragraph(dm.Text("As shown [1]. Later (Smith, 2020) agreed.")),
		dm.Heading(2, dm.Text("References")),
		dm.OrderedList(dm.ListItem(dm.Paragraph(dm.Text("Smith, J. (2020). Title.")))),
		dm.Paragraph(dm.Text("short")),
		dm.Paragraph(dm.Text("Jones, K. (2019). A long enough entry.")),
	)

	req := BuildRequest(doc, StyleAPA)
	assert.Equal(t, StyleAPA, req.DeclaredStyle)
	assert.Equal(t, DocumentMeta{Language: "en", Editor: "tiptap"}, req.DocumentMeta)

	assert.Equal(t, []Section{
		{Title: "Introduction", Type: citescan.SectionBody, Range: &Span{Start: 0, End: 14}},
		{Title: "References", Type: citescan.SectionReferences, Range: &Span{Start: 57, End: 69}},
	}, req.Sections)

	require.NotNil(t, req.ReferenceList)
	assert.Equal(t, "References", req.ReferenceList.SectionTitle)
	assert.Equal(t, []ReferenceEntry{
		{Index: 0, RawText: "Smith, J. (2020). Title.", Start: 72, End: 96},
		{Index: 1, RawText: "Jones, K. (2019). A long enough entry.", Start: 107, End: 145},
	}, req.ReferenceList.Entries)

	assert.Equal(t, []PatternType{PatternNumericBracket, PatternAuthorYear, PatternAuthorPage}, patternTypes(req.Patterns))
	bracket := req.Patterns[0]
	assert.Equal(t, "[1]", bracket.Text)
	assert.Equal(t, 24, bracket.Start)
	assert.Equal(t, 27, bracket.End)
	assert.Equal(t, "As shown [1].", bracket.Context)
	assert.Equal(t, citescan.SectionBody, bracket.Section)
	assert.Equal(t, "unresolved", bracket.NormalizationStatus)

	authorYear := req.Patterns[1]
	assert.Equal(t, "(Smith, 2020)", authorYear.Text)
	assert.Equal(t, 35, authorYear.Start)
	assert.Equal(t, 48, authorYear.End)
	assert.Equal(t, "Later (Smith, 2020) agreed.", authorYear.Context)
	assert.Equal(t, "(Smith, 2020)", doc.TextBetween(authorYear.Start, authorYear.End, "\n", ""))
}

func TestBuildRequestWithoutReferences(t *testing.T) {
	req := BuildRequest(dm.Doc(dm.Paragraph(dm.Text("Nothing cited here."))), StyleMLA)
	assert.Nil(t, req.ReferenceList)
	assert.Empty(t, req.Sections)
	assert.NotNil(t, req.Patterns)
	assert.Empty(t, req.Patterns)
}

func TestBuildRequestCustomTextblockReference(t *testing.T) {
	doc, err := dm.Parse([]byte(`{
		"type": "doc",
		"content": [
			{"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "References"}]},
			{"type": "bibEntry", "content": [{"type": "text", "text": "Jones, K. (2019). A long enough entry."}]}
		]
	}`))
	require.NoError(t, err)

	req := BuildRequest(doc, StyleAPA)
	require.NotNil(t, req.ReferenceList)
	assert.Equal(t, []ReferenceEntry{
		{Index: 0, RawText: "Jones, K. (2019). A long enough entry.", Start: 13, End: 51},
	}, req.ReferenceList.Entries)
}

func TestBuildRequestNormalizedCitations(t *testing.T) {
	chip := &dm.Node{
		Kind:     dm.KindText,
		TypeName: "text",
		Text:     "(Smith, 2020)",
		Marks:    []dm.Mark{{Type: "citation", Attrs: map[string]any{"citationId": "c1"}}},
	}
	doc := dm.Doc(dm.Paragraph(dm.Text("see "), chip, dm.Text(" and [2]")))

	req := BuildRequest(doc, StyleIEEE)
	require.Len(t, req.Patterns, 2)

	norm := req.Patterns[0]
	assert.Equal(t, PatternNormalized, norm.PatternType)
	assert.Equal(t, 5, norm.Start)
	assert.Equal(t, 18, norm.End)
	assert.Equal(t, "c1", norm.CitationID)
	assert.Equal(t, "resolved", norm.NormalizationStatus)
	assert.Equal(t, 1.0, norm.Confidence)

	bracket := req.Patterns[1]
	assert.Equal(t, PatternNumericBracket, bracket.PatternType)
	assert.Equal(t, 23, bracket.Start)
	assert.Equal(t, 26, bracket.End)
}

func TestDetectEtAlAndConjunctions(t *testing.T) {
	tests := []struct {
		text string
		want []PatternType
	}{
		{"Smith et al found it. Jones et al. agreed.", []PatternType{PatternEtAlNoPeriod, PatternEtAlWithPeriod}},
		{"Shown (Smith & Jones, 2020).", []PatternType{PatternAuthorYear, PatternAmpersandInParen}},
		{"Shown (Smith and Jones, 2020).", []PatternType{PatternAuthorYear, PatternAuthorPage, PatternAndInParen}},
		{"See (Johnson 23).", []PatternType{PatternAuthorPage}},
		{"Numbers [1, 2-4] here.", []PatternType{PatternNumericBracket}},
		{"In (2020) alone.", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var got []PatternType
			for _, m := range detect(tt.text) {
				got = append(got, m.kind)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSentenceAround(t *testing.T) {
	text := "First one. Second (Smith, 2020) here! Third."
	start := 18
	end := start + len("(Smith, 2020)")
	assert.Equal(t, "Second (Smith, 2020) here!", sentenceAround(text, start, end))
	assert.Equal(t, "no terminator [1]", sentenceAround("no terminator [1]", 14, 17))
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle("apa")
	require.NoError(t, err)
	assert.Equal(t, StyleAPA, s)

	s, err = ParseStyle("CHICAGO")
	require.NoError(t, err)
	assert.Equal(t, StyleChicago, s)

	_, err = ParseStyle("harvard")
	assert.Error(t, err)
}

func TestMergeVerificationFlags(t *testing.T) {
	styleFlag := Flag{Type: "INLINE_STYLE", RuleID: "APA.1", Anchor: &Anchor{Start: 5, End: 18}}
	verification := []VerificationResult{
		{Status: VerificationFailed, Message: "styled already", InlineLocation: Anchor{Start: 5, End: 18}},
		{Status: UnmatchedReference, Message: "no reference", InlineLocation: Anchor{Start: 30, End: 40, Text: "(Doe, 2001)"}},
		{Status: "VERIFIED", Message: "ok", InlineLocation: Anchor{Start: 50, End: 60}},
	}

	merged := MergeVerificationFlags([]Flag{styleFlag}, verification)
	require.Len(t, merged, 2)
	assert.Equal(t, styleFlag, merged[0])
	assert.Equal(t, Flag{
		Type:    FlagTypeVerification,
		RuleID:  "VER.UNMATCHED_REFERENCE",
		Message: "no reference",
		Anchor:  &Anchor{Start: 30, End: 40, Text: "(Doe, 2001)"},
	}, merged[1])

	assert.Empty(t, MergeVerificationFlags(nil, nil))
}
