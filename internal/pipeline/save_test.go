package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadAvatar(t *testing.T, h *harness, seed string) Creation {
	t.Helper()
	h.request(seed)
	require.Equal(t, Loading, next(t, h.creations).State)
	c := next(t, h.creations)
	require.Equal(t, Loaded, c.State)
	return c
}

func TestSaveStoresLoadedAvatar(t *testing.T) {
	lib := newFakeLibrary()
	h := newHarness(t, newFakeFetcher(), lib)

	loaded := loadAvatar(t, h, "abc")
	h.tapSave()

	outcome := next(t, h.outcomes)
	assert.True(t, outcome.Saved)
	assert.Equal(t, "memory://1", outcome.Location)

	saved := lib.Saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "abc", saved[0].Seed)
	assert.Equal(t, "Robot", saved[0].Style)
	assert.Equal(t, loaded.URL, saved[0].URL)
	assert.Equal(t, "png", saved[0].Format)
	assert.Equal(t, []byte("img:abc"), saved[0].Data)
	assert.False(t, saved[0].SavedAt.IsZero())

	none(t, h.errs, quiet)
}

func TestSaveWithoutImageIsNoop(t *testing.T) {
	lib := newFakeLibrary()
	h := newHarness(t, newFakeFetcher(), lib)

	h.tapSave()
	none(t, h.outcomes, quiet)

	h.request(seedFail)
	next(t, h.creations)
	next(t, h.creations)
	next(t, h.errs)

	h.tapSave()
	none(t, h.outcomes, quiet)
	none(t, h.errs, quiet)
	assert.Empty(t, lib.Saved())
}

func TestSaveFailureRechecksPermission(t *testing.T) {
	lib := newFakeLibrary()
	lib.saveErr = errDiskFull
	lib.hold = make(chan struct{})
	h := newHarness(t, newFakeFetcher(), lib)
	enabled := h.p.Output().SaveEnabled.Subscribe()
	assert.False(t, next(t, enabled))

	loaded := loadAvatar(t, h, "abc")
	assert.True(t, next(t, enabled))

	h.tapSave()

	outcome := next(t, h.outcomes)
	assert.False(t, outcome.Saved)
	assert.Contains(t, outcome.Message, "disk full")
	assert.Contains(t, next(t, h.errs), "disk full")

	assert.False(t, next(t, enabled), "disabled right after a failed save")
	require.Eventually(t, func() bool { return lib.Queries() == 2 }, time.Second, 5*time.Millisecond)
	none(t, enabled, quiet)

	// the loaded image is still current
	none(t, h.creations, 10*time.Millisecond)

	close(lib.hold)
	assert.True(t, next(t, enabled), "re-enabled once permission is confirmed")

	lib.mu.Lock()
	lib.saveErr = nil
	lib.mu.Unlock()
	h.tapSave()
	outcome = next(t, h.outcomes)
	assert.True(t, outcome.Saved)
	assert.Equal(t, loaded.URL, lib.Saved()[0].URL)
}

func TestSaveFailureWithRevokedPermission(t *testing.T) {
	lib := newFakeLibrary()
	lib.saveErr = errDiskFull
	lib.grant = func(n int) bool { return n == 1 }
	h := newHarness(t, newFakeFetcher(), lib)
	enabled := h.p.Output().SaveEnabled.Subscribe()
	next(t, enabled)

	loadAvatar(t, h, "abc")
	assert.True(t, next(t, enabled))

	h.tapSave()
	next(t, h.outcomes)
	assert.False(t, next(t, enabled))

	require.Eventually(t, func() bool { return lib.Queries() == 2 }, time.Second, 5*time.Millisecond)
	none(t, enabled, quiet)

	h.tapSave()
	require.Eventually(t, func() bool { return lib.Queries() == 3 }, time.Second, 5*time.Millisecond,
		"the coordinator still attempts the write when asked and re-checks on failure")
}
