package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/chinesepoker/internal/chinese"
	"github.com/lox/chinesepoker/internal/randutil"
)

func dealt(t *testing.T) *chinese.Round {
	t.Helper()
	r := chinese.NewRound(randutil.New(9))
	r.SeatPlayer("alice", "Alice")
	r.SeatPlayer("bob", "Bob")
	r.StartRound()
	require.NoError(t, r.Deal())
	return r
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "rooms"))
	r := dealt(t)
	alice := r.Players()[0]
	require.NoError(t, r.PlaceCard("alice", chinese.Bottom, 3, alice.Cards[5].ID()))

	require.NoError(t, s.Save("main", r))
	got, err := s.Load("main", randutil.New(1))
	require.NoError(t, err)

	p, ok := got.Player("alice")
	require.True(t, ok)
	assert.Equal(t, alice.Hand(), p.Hand())
	assert.Equal(t, r.Deck().Len(), got.Deck().Len())
	assert.Equal(t, r.Button(), got.Button())
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	_, err := s.Load("nope", randutil.New(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"deck":[{"suit":"x"}]}`), 0o644))

	_, err := New(dir).Load("bad", randutil.New(1))
	assert.ErrorIs(t, err, chinese.ErrCorruptSnapshot)
}

func TestListAndDelete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(dir)

	ids, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, ids)

	r := dealt(t)
	for _, id := range []string{"zeta", "alpha", "mid-1"} {
		require.NoError(t, s.Save(id, r))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	ids, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid-1", "zeta"}, ids)

	require.NoError(t, s.Delete("alpha"))
	require.NoError(t, s.Delete("alpha"))
	ids, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"mid-1", "zeta"}, ids)
}

func TestListMissingDir(t *testing.T) {
	t.Parallel()

	ids, err := New(filepath.Join(t.TempDir(), "absent")).List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestInvalidRoomIDs(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	for _, id := range []string{"", "../etc", "a/b", ".hidden", "a..b"} {
		assert.ErrorIs(t, s.Save(id, dealt(t)), ErrInvalidRoomID, id)
		_, err := s.Load(id, randutil.New(1))
		assert.ErrorIs(t, err, ErrInvalidRoomID, id)
	}
}
