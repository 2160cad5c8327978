package file

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

func testKey() string {
	return hex.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.json")
	m, err := New(path, "")
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	rec := connection.Record{
		Provider:   "github",
		Token:      "ghp_plain_token_1",
		TokenLabel: "ghp_...en_1",
		Status:     connection.StatusConnected,
	}
	require.NoError(t, m.Save(ctx, rec))
	require.NoError(t, m.Save(ctx, connection.Record{Provider: "stripe", Token: "sk_x", Status: connection.StatusError}))

	records, err := m.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "github", records[0].Provider)
	assert.Equal(t, "ghp_plain_token_1", records[0].Token)
	assert.Equal(t, "stripe", records[1].Provider)
}

func TestLoadMissingFile(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "nope", "connections.json"), "")
	require.NoError(t, err)

	records, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDelete(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "connections.json"), "")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Save(ctx, connection.Record{Provider: "vercel", Token: "t", Status: connection.StatusConnected}))
	require.NoError(t, m.Delete(ctx, "vercel"))
	require.NoError(t, m.Delete(ctx, "vercel"))

	records, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSealedTokenNotOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.json")
	m, err := New(path, testKey())
	require.NoError(t, err)

	ctx := context.Background()
	secret := "ghp_very_secret_credential_42"
	require.NoError(t, m.Save(ctx, connection.Record{
		Provider: "github",
		Token:    secret,
		Status:   connection.StatusConnected,
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), secret)

	var doc struct {
		Connections map[string]connection.Record `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.True(t, strings.HasPrefix(doc.Connections["github"].Token, "sealed:"))

	records, err := m.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, secret, records[0].Token)
}

func TestSealedFileNeedsKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.json")
	sealed, err := New(path, testKey())
	require.NoError(t, err)
	require.NoError(t, sealed.Save(context.Background(), connection.Record{
		Provider: "github", Token: "ghp_secret", Status: connection.StatusConnected,
	}))

	open, err := New(path, "")
	require.NoError(t, err)
	_, err = open.Load(context.Background())
	assert.ErrorContains(t, err, "no seal key")
}

func TestPlainFileLoadsUnderSealKey(t *testing.T) {
	// Files written before sealing was enabled keep working.
	path := filepath.Join(t.TempDir(), "connections.json")
	open, err := New(path, "")
	require.NoError(t, err)
	require.NoError(t, open.Save(context.Background(), connection.Record{
		Provider: "netlify", Token: "nfp_legacy", Status: connection.StatusConnected,
	}))

	sealed, err := New(path, testKey())
	require.NoError(t, err)
	records, err := sealed.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "nfp_legacy", records[0].Token)
}

func TestBadSealKey(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "c.json"), "not-hex")
	assert.Error(t, err)

	_, err = New(filepath.Join(t.TempDir(), "c.json"), "abcd")
	assert.ErrorContains(t, err, "32")
}
