package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	d, ok := Get("github")
	require.True(t, ok)
	assert.Equal(t, "GitHub", d.DisplayName)
	assert.Equal(t, CategorySourceControl, d.Category)
	assert.Equal(t, AuthBearerToken, d.AuthMethod)
	assert.NotEmpty(t, d.Features)

	_, ok = Get("myspace")
	assert.False(t, ok)
}

func TestAllDescriptorsComplete(t *testing.T) {
	all := All()
	require.Len(t, all, 8)

	seen := make(map[string]bool)
	for _, d := range all {
		assert.False(t, seen[d.ID], "duplicate provider id %q", d.ID)
		seen[d.ID] = true

		assert.NotEmpty(t, d.DisplayName, "%s display name", d.ID)
		assert.NotEmpty(t, d.Category, "%s category", d.ID)
		assert.NotEmpty(t, d.AuthMethod, "%s auth method", d.ID)
		assert.NotEmpty(t, d.CredentialHelpURL, "%s help url", d.ID)
		assert.NotEmpty(t, d.Features, "%s features", d.ID)
	}
}

func TestAllIsSorted(t *testing.T) {
	all := All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestIDsMatchesAll(t *testing.T) {
	ids := IDs()
	all := All()
	require.Len(t, ids, len(all))
	for i, d := range all {
		assert.Equal(t, d.ID, ids[i])
	}
}

func TestByCategory(t *testing.T) {
	groups := ByCategory()
	assert.Len(t, groups[CategoryHosting], 3)
	assert.Len(t, groups[CategorySourceControl], 1)
	assert.Len(t, groups[CategoryDNS], 1)
}

func TestNamecheapUsesCompositeKey(t *testing.T) {
	d, ok := Get("namecheap")
	require.True(t, ok)
	assert.Equal(t, AuthCompositeKey, d.AuthMethod)
}
