package caps

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStatus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "status")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadEffective(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantPerfmon  bool
		wantSysAdmin bool
		wantErr      bool
	}{
		{
			name:    "no capabilities",
			content: "Name:\tperfrun\nCapEff:\t0000000000000000\n",
		},
		{
			name:         "full root set",
			content:      "CapEff:\t000001ffffffffff\n",
			wantPerfmon:  true,
			wantSysAdmin: true,
		},
		{
			name:        "perfmon only",
			content:     "CapEff:\t0000004000000000\n", // bit 38
			wantPerfmon: true,
		},
		{
			name:         "sys_admin only",
			content:      "CapEff:\t0000000000200000\n", // bit 21
			wantSysAdmin: true,
		},
		{
			name:    "missing CapEff line",
			content: "Name:\tperfrun\nCapInh:\t0000000000000000\n",
			wantErr: true,
		},
		{
			name:    "malformed bitmask",
			content: "CapEff:\tzzzz\n",
			wantErr: true,
		},
		{
			name:    "truncated line",
			content: "CapEff:\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := readEffective(writeStatus(t, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPerfmon, set.Perfmon())
			assert.Equal(t, tt.wantSysAdmin, set.SysAdmin())
		})
	}
}

func TestReadEffective_MissingFile(t *testing.T) {
	_, err := readEffective(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestEffective(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires /proc")
	}

	// The values depend on how the test process runs; just verify parsing.
	_, err := Effective()
	assert.NoError(t, err)
}
