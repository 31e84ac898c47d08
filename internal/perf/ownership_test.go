package perf

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func fakeStat(uid, gid uint32) statFunc {
	return func(path string, st *unix.Stat_t) error {
		st.Uid = uid
		st.Gid = gid
		return nil
	}
}

func TestForceFlagNeeded(t *testing.T) {
	id := Identity{UID: 1000, GID: 1000}

	tests := []struct {
		name      string
		stat      statFunc
		wantForce bool
	}{
		{
			name:      "owner and group match",
			stat:      fakeStat(1000, 1000),
			wantForce: false,
		},
		{
			name:      "foreign owner",
			stat:      fakeStat(1001, 1000),
			wantForce: true,
		},
		{
			name:      "root owner is trusted",
			stat:      fakeStat(0, 1000),
			wantForce: false,
		},
		{
			name:      "root owner and root group",
			stat:      fakeStat(0, 0),
			wantForce: false,
		},
		{
			name:      "root owner, foreign group",
			stat:      fakeStat(0, 4242),
			wantForce: true,
		},
		{
			name:      "matching owner, foreign group",
			stat:      fakeStat(1000, 1001),
			wantForce: true,
		},
		{
			name:      "matching owner, root group",
			stat:      fakeStat(1000, 0),
			wantForce: false,
		},
		{
			name:      "foreign owner and foreign group",
			stat:      fakeStat(4242, 4242),
			wantForce: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			force, err := forceFlagNeeded(tt.stat, "perf.data", id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantForce, force)
		})
	}
}

func TestForceFlagNeeded_InspectionFailure(t *testing.T) {
	// A failed inspection conservatively forces the flag and surfaces the
	// failure for reporting.
	statErr := fmt.Errorf("stat blew up")
	failing := func(path string, st *unix.Stat_t) error {
		return statErr
	}

	force, err := forceFlagNeeded(failing, "perf.data", Identity{UID: 1000, GID: 1000})
	assert.True(t, force)
	assert.ErrorIs(t, err, statErr)
}

func TestForceFlagNeeded_RealStat(t *testing.T) {
	// A file we just created is owned by our own effective identity.
	path := filepath.Join(t.TempDir(), "perf.data")
	require.NoError(t, os.WriteFile(path, []byte("raw"), 0o644))

	force, err := forceFlagNeeded(unix.Stat, path, CurrentIdentity())
	require.NoError(t, err)
	assert.False(t, force)
}

func TestForceFlagNeeded_RealStatMissingFile(t *testing.T) {
	force, err := forceFlagNeeded(unix.Stat, filepath.Join(t.TempDir(), "missing"), CurrentIdentity())
	assert.True(t, force)
	assert.Error(t, err)
}

func TestCurrentIdentity(t *testing.T) {
	id := CurrentIdentity()
	assert.Equal(t, os.Geteuid(), id.UID)
	assert.Equal(t, os.Getegid(), id.GID)
	assert.Equal(t, os.Geteuid() == 0, id.Root())
}
