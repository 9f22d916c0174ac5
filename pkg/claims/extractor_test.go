package claims

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/idgate/pkg/observability"
)

func testExtractor() *Extractor {
	return NewExtractor(observability.NewLogger(observability.ErrorLevel, io.Discard))
}

func samplePayload() map[string]any {
	return map[string]any{
		"sub":          "1234",
		"organization": "acme",
		"groups":       []any{"admins", "editors"},
		"groups_json": []any{
			[]any{
				map[string]any{"name": "GDI Planer (extern)", "targetSystem": "gdi"},
				map[string]any{"name": "GDI Editor (extern)", "targetSystem": "gdi"},
			},
		},
		"nested": map[string]any{
			"deep": map[string]any{"name": "bottom"},
		},
	}
}

func TestExtract_SingleScalarIsOneElementSequence(t *testing.T) {
	got, err := testExtractor().Extract(PathSpec{"$.organization"}, samplePayload())
	require.NoError(t, err)
	assert.Equal(t, []string{"acme"}, got)
}

func TestExtract_ListOfStrings(t *testing.T) {
	got, err := testExtractor().Extract(PathSpec{"$.groups"}, samplePayload())
	require.NoError(t, err)
	assert.Equal(t, []string{"admins", "editors"}, got)
}

func TestExtract_IndexedPath(t *testing.T) {
	got, err := testExtractor().Extract(PathSpec{"$.groups_json[0][0].name"}, samplePayload())
	require.NoError(t, err)
	assert.Equal(t, []string{"GDI Planer (extern)"}, got)
}

func TestExtract_RecursiveDescentCollectsAllMatches(t *testing.T) {
	got, err := testExtractor().Extract(PathSpec{"$.groups_json..['name']"}, samplePayload())
	require.NoError(t, err)
	assert.Equal(t, []string{"GDI Planer (extern)", "GDI Editor (extern)"}, got)
}

func TestExtract_RootRecursiveDescent(t *testing.T) {
	got, err := testExtractor().Extract(PathSpec{"$..targetSystem"}, samplePayload())
	require.NoError(t, err)
	assert.Equal(t, []string{"gdi", "gdi"}, got)
}

func TestExtract_ExpressionThenMatchOrder(t *testing.T) {
	got, err := testExtractor().Extract(
		PathSpec{"$.organization", "$.groups", "$.nested.deep.name"},
		samplePayload(),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "admins", "editors", "bottom"}, got)
}

func TestExtract_UnmatchedPathContributesNothing(t *testing.T) {
	got, err := testExtractor().Extract(PathSpec{"$.missing", "$.organization"}, samplePayload())
	require.NoError(t, err)
	assert.Equal(t, []string{"acme"}, got)
}

func TestExtract_UnmatchedIndexContributesNothing(t *testing.T) {
	got, err := testExtractor().Extract(PathSpec{"$.groups[5]"}, samplePayload())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtract_NonStringScalarIsHardError(t *testing.T) {
	payload := map[string]any{"count": float64(3)}

	_, err := testExtractor().Extract(PathSpec{"$.count"}, payload)

	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "$.count", mismatch.Expression)
}

func TestExtract_ListWithNonStringElementIsHardError(t *testing.T) {
	payload := map[string]any{"groups": []any{"ok", float64(1)}}

	_, err := testExtractor().Extract(PathSpec{"$.groups"}, payload)

	var mismatch *TypeMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestExtract_MapMatchIsHardError(t *testing.T) {
	_, err := testExtractor().Extract(PathSpec{"$.nested"}, samplePayload())

	var mismatch *TypeMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestExtract_NullMatchesAreSkipped(t *testing.T) {
	payload := map[string]any{"groups": []any{"a", nil, "b"}}

	got, err := testExtractor().Extract(PathSpec{"$.groups"}, payload)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestExtract_EmptyExpressionIsIgnored(t *testing.T) {
	got, err := testExtractor().Extract(PathSpec{""}, samplePayload())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtract_MalformedExpression(t *testing.T) {
	_, err := testExtractor().Extract(PathSpec{"$.groups["}, samplePayload())

	var invalid *InvalidPathError
	assert.ErrorAs(t, err, &invalid)
}

func TestParsePath_BareNameAndQuotedForms(t *testing.T) {
	for _, expr := range []string{"organization", "$.organization", "$['organization']", `$["organization"]`} {
		steps, err := parsePath(expr)
		require.NoError(t, err, expr)
		require.Len(t, steps, 1, expr)
		assert.Equal(t, "organization", steps[0].key, expr)
	}
}
