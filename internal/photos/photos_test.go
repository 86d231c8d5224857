package photos

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem() Item {
	return Item{
		Seed:    "hello world/!",
		Style:   "Kitten",
		URL:     "https://robohash.org/hello%20world%2F%21?set=set4",
		Format:  "png",
		Data:    []byte("\x89PNG fake"),
		SavedAt: time.Date(2024, 8, 19, 12, 0, 0, 0, time.UTC),
	}
}

func TestDirLibrarySave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "photos")
	lib := NewDirLibrary(dir, nil)
	assert.Equal(t, dir, lib.Dir())

	assert.True(t, lib.QueryWritePermission(context.Background()))

	loc, err := lib.Save(context.Background(), testItem())
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(loc))
	base := filepath.Base(loc)
	assert.True(t, strings.HasPrefix(base, "hello_world___kitten_"), base)
	assert.True(t, strings.HasSuffix(base, ".png"), base)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, testItem().Data, data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "permission probe must not leave files behind")

	loc2, err := lib.Save(context.Background(), testItem())
	require.NoError(t, err)
	assert.NotEqual(t, loc, loc2, "repeated saves never overwrite")
	assert.NoError(t, lib.Close())
}

func TestDirLibraryFailures(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	lib := NewDirLibrary(filepath.Join(blocker, "photos"), nil)
	assert.False(t, lib.QueryWritePermission(context.Background()))

	_, err := lib.Save(context.Background(), testItem())
	assert.ErrorIs(t, err, ErrSaveFailed)

	ok := NewDirLibrary(root, nil)
	empty := testItem()
	empty.Data = nil
	_, err = ok.Save(context.Background(), empty)
	assert.ErrorIs(t, err, ErrSaveFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ok.Save(ctx, testItem())
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.False(t, ok.QueryWritePermission(ctx))
}

func TestBoltLibrary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "photos.db")
	lib, err := OpenBoltLibrary(path, nil)
	require.NoError(t, err)

	assert.True(t, lib.QueryWritePermission(context.Background()))

	loc, err := lib.Save(context.Background(), testItem())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(loc, path+"#"), loc)

	key := strings.TrimPrefix(loc, path+"#")
	got, err := lib.Load(key)
	require.NoError(t, err)
	assert.Equal(t, testItem(), got)

	_, err = lib.Load("missing")
	assert.Error(t, err)

	require.NoError(t, lib.Close())
	assert.False(t, lib.QueryWritePermission(context.Background()))
	_, err = lib.Save(context.Background(), testItem())
	assert.ErrorIs(t, err, ErrSaveFailed)
}

func TestBoltLibraryReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photos.db")
	lib, err := OpenBoltLibrary(path, nil)
	require.NoError(t, err)
	loc, err := lib.Save(context.Background(), testItem())
	require.NoError(t, err)
	require.NoError(t, lib.Close())

	lib, err = OpenBoltLibrary(path, nil)
	require.NoError(t, err)
	defer lib.Close()

	got, err := lib.Load(strings.TrimPrefix(loc, path+"#"))
	require.NoError(t, err)
	assert.Equal(t, "hello world/!", got.Seed)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(KindDir, dir, nil)
	require.NoError(t, err)
	assert.IsType(t, &DirLibrary{}, store)
	require.NoError(t, store.Close())

	store, err = Open(KindBolt, filepath.Join(dir, "p.db"), nil)
	require.NoError(t, err)
	assert.IsType(t, &BoltLibrary{}, store)
	require.NoError(t, store.Close())

	_, err = Open(KindBolt, "", nil)
	assert.Error(t, err)

	_, err = Open("s3", dir, nil)
	assert.Error(t, err)

	assert.True(t, ValidKind("bolt"))
	assert.False(t, ValidKind("s3"))
}

func TestSanitizeSeed(t *testing.T) {
	assert.Equal(t, "abc-def_1", sanitizeSeed("abc-def_1"))
	assert.Equal(t, "a_b_c", sanitizeSeed("a b/c"))
	assert.Equal(t, "héllo", sanitizeSeed("héllo"))
	assert.Equal(t, "robohash", sanitizeSeed(""))
	assert.Len(t, []rune(sanitizeSeed(strings.Repeat("ü", 80))), 50)
}
