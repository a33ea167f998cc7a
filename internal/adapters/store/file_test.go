package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	// absent file is empty credentials, not an error
	creds, err := s.Load()
	require.NoError(t, err)
	assert.True(t, creds.Empty())

	require.NoError(t, s.Save("acc-1", "ref-1"))
	creds, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "acc-1", creds.AccessToken)
	assert.Equal(t, "ref-1", creds.RefreshToken)

	require.NoError(t, s.Clear())
	creds, err = s.Load()
	require.NoError(t, err)
	assert.True(t, creds.Empty())

	// clearing twice stays idempotent
	require.NoError(t, s.Clear())
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, credentialsFile), []byte("{oops"), 0o600))

	creds, err := s.Load()
	require.NoError(t, err)
	assert.True(t, creds.Empty())
}
