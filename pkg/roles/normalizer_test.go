package roles

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/idgate/pkg/claims"
	"github.com/platinummonkey/idgate/pkg/identity"
	"github.com/platinummonkey/idgate/pkg/observability"
)

func TestNormalizeRole_UppercaseAndDiacritics(t *testing.T) {
	got := NormalizeRole("Évry Cédex", Policy{Uppercase: true, Normalize: true})
	assert.Equal(t, "EVRY_CEDEX", got)
}

func TestNormalizeRole_Table(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		policy Policy
		want   string
	}{
		{"plain passthrough", "admin", Policy{}, "admin"},
		{"uppercase only", "admin", Policy{Uppercase: true}, "ADMIN"},
		{"whitespace runs collapse", "GDI  FTTH\tPlaner", Policy{Normalize: true}, "GDI_FTTH_Planer"},
		{"special chars stripped", "GDI Planer (extern)", Policy{Normalize: true}, "GDI_Planer_extern"},
		{"diacritics stripped without uppercase", "café crème", Policy{Normalize: true}, "cafe_creme"},
		{"uppercase without normalize keeps accents", "évry", Policy{Uppercase: true}, "ÉVRY"},
		{"all special chars yields empty", "(,;)", Policy{Normalize: true}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRole(tt.raw, tt.policy))
		})
	}
}

func testMapper(spec claims.PathSpec, policy Policy) *Mapper {
	extractor := claims.NewExtractor(observability.NewLogger(observability.ErrorLevel, io.Discard))
	return NewMapper(extractor, spec, policy)
}

func TestMapperApply_AppendPrependsMappedRoles(t *testing.T) {
	mapper := testMapper(claims.PathSpec{"$.roles"}, Policy{Append: true})
	draft := &identity.UserDraft{Roles: []string{"A", "B"}}

	err := mapper.Apply(map[string]any{"roles": []any{"C", "D"}}, draft)

	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D", "A", "B"}, draft.Roles)
}

func TestMapperApply_ReplaceOverwritesRoleList(t *testing.T) {
	mapper := testMapper(claims.PathSpec{"$.roles"}, Policy{Append: false})
	draft := &identity.UserDraft{Roles: []string{"A", "B"}}

	err := mapper.Apply(map[string]any{"roles": []any{"C", "D"}}, draft)

	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, draft.Roles)
}

func TestMapperApply_NoMatchLeavesRolesUntouched(t *testing.T) {
	mapper := testMapper(claims.PathSpec{"$.missing"}, Policy{Append: false})
	draft := &identity.UserDraft{Roles: []string{"A", "B"}}

	err := mapper.Apply(map[string]any{"roles": []any{"C"}}, draft)

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, draft.Roles)
}

func TestMapperApply_NormalizesBeforeMerging(t *testing.T) {
	mapper := testMapper(claims.PathSpec{"$.roles"}, DefaultPolicy())
	draft := &identity.UserDraft{Roles: []string{"USER"}}

	err := mapper.Apply(map[string]any{"roles": []any{"GDI Planer (extern)"}}, draft)

	require.NoError(t, err)
	assert.Equal(t, []string{"GDI_PLANER_EXTERN", "USER"}, draft.Roles)
}

func TestMapperApply_TypeMismatchPropagates(t *testing.T) {
	mapper := testMapper(claims.PathSpec{"$.roles"}, DefaultPolicy())
	draft := &identity.UserDraft{Roles: []string{"A"}}

	err := mapper.Apply(map[string]any{"roles": float64(42)}, draft)

	var mismatch *claims.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"A"}, draft.Roles)
}
