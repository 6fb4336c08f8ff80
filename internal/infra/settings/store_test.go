package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		expectErr bool
		expected  map[string]any
	}{
		{
			name:     "Missing file uses defaults",
			expected: map[string]any{"videoplayer.seeksteps": 10},
		},
		{
			name:     "File overrides defaults",
			content:  "videoplayer.seeksteps: 30\nvideoplayer.seekdelay: 750\n",
			expected: map[string]any{"videoplayer.seeksteps": 30, "videoplayer.seekdelay": 750},
		},
		{
			name:      "Malformed file",
			content:   "videoplayer.seeksteps: [\n",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			if tt.content != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			}

			s, err := Open(path, map[string]any{"videoplayer.seeksteps": 10})
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for k, v := range tt.expected {
				got, ok := s.Setting(k)
				assert.True(t, ok, k)
				assert.Equal(t, v, got, k)
			}
		})
	}
}

func TestSetSetting_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	s, err := Open(path, nil)
	require.NoError(t, err)

	_, ok := s.Setting("videoplayer.seekdelay")
	assert.False(t, ok)

	require.NoError(t, s.SetSetting("videoplayer.seekdelay", 0))
	require.NoError(t, s.SetSetting("videoplayer.seeksteps", []int{}))

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	v, ok := reopened.Setting("videoplayer.seekdelay")
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	_, ok = reopened.Setting("videoplayer.seeksteps")
	assert.True(t, ok)
}

func TestSetSetting_RollsBackOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	s := &Store{path: filepath.Join(blocker, "settings.yaml"), values: map[string]any{"a": 1}}

	assert.Error(t, s.SetSetting("a", 2))
	assert.Error(t, s.SetSetting("b", 3))

	v, _ := s.Setting("a")
	assert.Equal(t, 1, v)
	_, ok := s.Setting("b")
	assert.False(t, ok)
}
