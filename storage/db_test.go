package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBPutGet(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	ok, err := db.Has([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemDBGetMissing(t *testing.T) {
	db := NewMemDB()
	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := db.Has([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemDBDelete(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	require.NoError(t, db.Delete([]byte("k")))
	_, err := db.Get([]byte("k"))
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is not an error.
	require.NoError(t, db.Delete([]byte("k")))
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte("original")
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 'X'

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), again)
}

func TestMemDBOverwrite(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("k"), []byte("first")))
	require.NoError(t, db.Put([]byte("k"), []byte("second")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got)
}

func TestLevelDBRoundTrip(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	_, err = db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Delete([]byte("k")))
	ok, err := db.Has([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok)
}
