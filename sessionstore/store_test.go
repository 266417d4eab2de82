package sessionstore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemStoreRoundTrip(t *testing.T) {
	store := NewMemStore()

	_, ok := store.Load()
	require.False(t, ok)

	require.NoError(t, store.Save("0.0.123"))
	account, ok := store.Load()
	require.True(t, ok)
	require.Equal(t, "0.0.123", account)

	require.NoError(t, store.Clear())
	_, ok = store.Load()
	require.False(t, ok)
}

func TestMemStoreRejectsPartialState(t *testing.T) {
	cases := []struct {
		name        string
		accountID   string
		isConnected string
	}{
		{"missing flag", "0.0.123", ""},
		{"missing account", "", "true"},
		{"wrong flag value", "0.0.123", "yes"},
		{"flag not lowercase true", "0.0.123", "TRUE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewMemStore()
			store.SetRaw(tc.accountID, tc.isConnected)
			_, ok := store.Load()
			require.False(t, ok)
		})
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", SessionFile)
	store := NewFileStore(path)

	_, ok := store.Load()
	require.False(t, ok)

	require.NoError(t, store.Save("0.0.456"))
	account, ok := store.Load()
	require.True(t, ok)
	require.Equal(t, "0.0.456", account)

	require.NoError(t, store.Clear())
	_, ok = store.Load()
	require.False(t, ok)
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// clearing an already absent session is not an error
	require.NoError(t, store.Clear())
}

func TestFileStoreRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), SessionFile)
	store := NewFileStore(path)

	require.NoError(t, ioutil.WriteFile(path, []byte("accountId = \"0.0.123\"\n"), 0600))
	_, ok := store.Load()
	require.False(t, ok)

	require.NoError(t, ioutil.WriteFile(path, []byte("isConnected = \"true\"\n"), 0600))
	_, ok = store.Load()
	require.False(t, ok)

	require.NoError(t, ioutil.WriteFile(path, []byte("not toml at all {{{"), 0600))
	_, ok = store.Load()
	require.False(t, ok)
}
