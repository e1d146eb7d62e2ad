package configure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolset/dcplayer/geo"
)

func missingConfig(t *testing.T) string {
	return "--config_file=" + filepath.Join(t.TempDir(), "missing.yaml")
}

func TestInitDefaults(t *testing.T) {
	require.NoError(t, Init([]string{missingConfig(t)}))

	c := Current()
	assert.Equal(t, "info", c.Action)
	assert.Equal(t, 33, c.TickMs)
	assert.True(t, c.Loop)

	s := PlayerSettings()
	assert.True(t, s.Loop)
	assert.True(t, s.Generation.BuildCloud)
	assert.False(t, s.Generation.DecodeInfra)
	assert.Equal(t, time.Duration(0), s.FrameCacheTTL)

	p, err := MergeSettings()
	require.NoError(t, err)
	assert.Equal(t, float32(0.005), p.VoxelSize)
	assert.Equal(t, geo.Vec3{X: -2, Y: -2, Z: -2}, p.Min)
}

func TestInitFlagsAndFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "dcplayer.yaml")
	require.NoError(t, os.WriteFile(file, []byte("action: merge\nvoxel_size: 0.02\nmin_bound: \"-1, -1, -1\"\n"), 0o644))

	require.NoError(t, Init([]string{
		"--config_file=" + file,
		"--loop=false",
		"--frame_cache_ttl=30",
		"--decode_infra",
	}))

	c := Current()
	assert.Equal(t, "merge", c.Action)
	s := PlayerSettings()
	assert.False(t, s.Loop)
	assert.True(t, s.Generation.DecodeInfra)
	assert.Equal(t, 30*time.Second, s.FrameCacheTTL)

	p, err := MergeSettings()
	require.NoError(t, err)
	assert.Equal(t, float32(0.02), p.VoxelSize)
	assert.Equal(t, geo.Vec3{X: -1, Y: -1, Z: -1}, p.Min)
}

func TestInitRejectsUnknownFlag(t *testing.T) {
	assert.Error(t, Init([]string{"--nope"}))
}

func TestParseVec3(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    geo.Vec3
		wantErr bool
	}{
		{name: "plain", in: "1,2,3", want: geo.Vec3{X: 1, Y: 2, Z: 3}},
		{name: "spaces", in: " -0.5 , 0, 1e1", want: geo.Vec3{X: -0.5, Z: 10}},
		{name: "two_values", in: "1,2", wantErr: true},
		{name: "not_a_number", in: "1,a,3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVec3(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
