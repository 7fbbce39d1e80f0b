package storage

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Storage, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := New(fs, "/out")
	require.NoError(t, err)
	return s, fs
}

func TestWriteAndRead(t *testing.T) {
	t.Parallel()

	s, fs := newStore(t)
	require.NoError(t, s.WriteFile("posts/a/index.html", []byte("<p>a</p>")))

	got, err := s.ReadFile("posts/a/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>a</p>", string(got))

	// no temp files left behind
	entries, err := afero.ReadDir(fs, "/out/posts/a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.html", entries[0].Name())
}

func TestPutOverwrites(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	require.NoError(t, s.Put("index.html", strings.NewReader("one")))
	require.NoError(t, s.Put("index.html", strings.NewReader("two")))

	got, err := s.ReadFile("index.html")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestPathEscape(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	for _, p := range []string{"../etc/passwd", "a/../../x"} {
		err := s.WriteFile(p, []byte("x"))
		require.Error(t, err, p)
		assert.Contains(t, err.Error(), "escapes")
	}
}

func TestListFiltersByExtension(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	require.NoError(t, s.WriteFile("b/index.html", []byte("b")))
	require.NoError(t, s.WriteFile("a/index.HTML", []byte("a")))
	require.NoError(t, s.WriteFile("style.css", []byte("css")))

	all, err := s.List()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pages, err := s.List(".html")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "a/index.HTML", pages[0].Path)
	assert.Equal(t, "b/index.html", pages[1].Path)
	assert.Len(t, pages[0].Hash, 64)
	assert.Equal(t, int64(1), pages[0].Size)
}

func TestCleanKeepsRoot(t *testing.T) {
	t.Parallel()

	s, fs := newStore(t)
	require.NoError(t, s.WriteFile("a/index.html", []byte("a")))
	require.NoError(t, s.WriteFile("index.html", []byte("i")))
	require.NoError(t, s.Clean())

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
