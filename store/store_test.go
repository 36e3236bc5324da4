package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeImpls returns each Store implementation under test.
func storeImpls(t *testing.T) map[string]Store {
	t.Helper()
	bolt, err := OpenBoltStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })

	return map[string]Store{
		"bolt": bolt,
		"mem":  NewMemStore(),
	}
}

func TestStorePutGet(t *testing.T) {
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			_, present, err := s.Get("missing")
			require.NoError(t, err)
			assert.False(t, present)

			require.NoError(t, s.Put("k", []byte("v1")))
			v, present, err := s.Get("k")
			require.NoError(t, err)
			assert.True(t, present)
			assert.Equal(t, []byte("v1"), v)

			// Overwrite is last-writer-wins.
			require.NoError(t, s.Put("k", []byte("v2")))
			v, present, err = s.Get("k")
			require.NoError(t, err)
			assert.True(t, present)
			assert.Equal(t, []byte("v2"), v)

			// The null-submission marker round-trips as a present value.
			require.NoError(t, s.Put("null", []byte(NullSubmission)))
			v, present, err = s.Get("null")
			require.NoError(t, err)
			assert.True(t, present)
			assert.Equal(t, []byte(NullSubmission), v)
		})
	}
}

func TestStoreList(t *testing.T) {
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put("merkle-trees-celo-100", []byte("a")))
			require.NoError(t, s.Put("merkle-trees-celo-200", []byte("b")))
			require.NoError(t, s.Put("merkle-trees-alfajores-100", []byte("c")))
			require.NoError(t, s.Put("proof-tx-celo-100", []byte("d")))

			keys, err := s.List("merkle-trees-celo-")
			require.NoError(t, err)
			assert.Equal(t, []string{"merkle-trees-celo-100", "merkle-trees-celo-200"}, keys)

			keys, err = s.List("nothing-")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "merkle-trees-celo-1700000000", CommitmentKey("celo", 1700000000))
	assert.Equal(t, "proof-tx-celo-1700000000", SubmissionKey("celo", 1700000000))
	assert.Equal(t, "merkle-trees-celo-", CommitmentPrefix("celo"))

	d, err := DeadlineFromKey("merkle-trees-celo-1700000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), d)

	_, err = DeadlineFromKey("merkle-trees-celo-xyz")
	assert.Error(t, err)
}

func TestBoltStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = OpenBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	v, present, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, []byte("v"), v)
}
