package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVoxelGridValidation(t *testing.T) {
	_, err := NewVoxelGrid(0, Vec3{-1, -1, -1}, Vec3{1, 1, 1})
	assert.ErrorIs(t, err, ErrInvalidVoxelSize)

	_, err = NewVoxelGrid(-0.1, Vec3{-1, -1, -1}, Vec3{1, 1, 1})
	assert.ErrorIs(t, err, ErrInvalidVoxelSize)

	_, err = NewVoxelGrid(0.1, Vec3{1, -1, -1}, Vec3{1, 1, 1})
	assert.ErrorIs(t, err, ErrInvalidBounds)

	// more cells per axis than a key can index
	_, err = NewVoxelGrid(1e-9, Vec3{-1, -1, -1}, Vec3{1, 1, 1})
	assert.ErrorIs(t, err, ErrInvalidBounds)
	_, err = NewVoxelGrid(1e-3, Vec3{-1, -1, -1e7}, Vec3{1, 1, 1e7})
	assert.ErrorIs(t, err, ErrInvalidBounds)

	g, err := NewVoxelGrid(1e-3, Vec3{-1000, -1000, -1000}, Vec3{1000, 1000, 1000})
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestVoxelGridAveragesPointsInSameVoxel(t *testing.T) {
	g, err := NewVoxelGrid(1, Vec3{0, 0, 0}, Vec3{4, 4, 4})
	require.NoError(t, err)

	c := ColoredCloud{}
	c.Append(Vec3{0.2, 0.2, 0.2}, Vec3{1, 0, 0})
	c.Append(Vec3{0.4, 0.6, 0.8}, Vec3{0, 1, 0})
	c.Append(Vec3{2.5, 2.5, 2.5}, Vec3{0, 0, 1})
	g.AddCloud(&c, Identity())

	out := g.Cloud()
	require.Equal(t, 2, out.Len())
	assert.Equal(t, 2, g.OccupiedCount())

	assert.InDelta(t, 0.3, out.Vertices[0].X, 1e-6)
	assert.InDelta(t, 0.4, out.Vertices[0].Y, 1e-6)
	assert.InDelta(t, 0.5, out.Vertices[0].Z, 1e-6)
	assert.InDelta(t, 0.5, out.Colors[0].X, 1e-6)
	assert.InDelta(t, 0.5, out.Colors[0].Y, 1e-6)

	assert.Equal(t, Vec3{2.5, 2.5, 2.5}, out.Vertices[1])
}

func TestVoxelGridClipsOutOfBounds(t *testing.T) {
	g, err := NewVoxelGrid(0.5, Vec3{-1, -1, -1}, Vec3{1, 1, 1})
	require.NoError(t, err)

	c := ColoredCloud{}
	c.Append(Vec3{0, 0, 0}, Vec3{})
	c.Append(Vec3{1, 0, 0}, Vec3{})    // on the open max face
	c.Append(Vec3{0, -2, 0}, Vec3{})   // below min
	c.Append(Vec3{-1, -1, -1}, Vec3{}) // on the closed min corner
	g.AddCloud(&c, Identity())

	out := g.Cloud()
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, 2, g.Discarded())
	for _, v := range out.Vertices {
		assert.True(t, v.Within(Vec3{-1, -1, -1}, Vec3{1, 1, 1}))
	}
}

func TestVoxelGridAppliesModel(t *testing.T) {
	g, err := NewVoxelGrid(1, Vec3{0, 0, 0}, Vec3{10, 10, 10})
	require.NoError(t, err)

	c := ColoredCloud{}
	c.Append(Vec3{0.5, 0.5, 0.5}, Vec3{1, 1, 1})
	g.AddCloud(&c, Translation(Vec3{5, 0, 0}))

	out := g.Cloud()
	require.Equal(t, 1, out.Len())
	assert.Equal(t, Vec3{5.5, 0.5, 0.5}, out.Vertices[0])
}

func TestVoxelGridOrderIndependent(t *testing.T) {
	a := ColoredCloud{}
	a.Append(Vec3{0.1, 0.1, 0.1}, Vec3{1, 0, 0})
	a.Append(Vec3{1.1, 0.1, 0.1}, Vec3{0, 1, 0})
	b := ColoredCloud{}
	b.Append(Vec3{0.3, 0.3, 0.3}, Vec3{0, 0, 1})
	b.Append(Vec3{3.7, 0.2, 0.9}, Vec3{1, 1, 0})

	run := func(first, second *ColoredCloud) ColoredCloud {
		g, err := NewVoxelGrid(1, Vec3{0, 0, 0}, Vec3{4, 4, 4})
		require.NoError(t, err)
		g.AddCloud(first, Identity())
		g.AddCloud(second, Identity())
		return g.Cloud()
	}

	ab := run(&a, &b)
	ba := run(&b, &a)
	require.Equal(t, ab.Len(), ba.Len())
	for i := range ab.Vertices {
		assert.InDelta(t, ab.Vertices[i].X, ba.Vertices[i].X, 1e-6)
		assert.InDelta(t, ab.Vertices[i].Y, ba.Vertices[i].Y, 1e-6)
		assert.InDelta(t, ab.Vertices[i].Z, ba.Vertices[i].Z, 1e-6)
		assert.InDelta(t, ab.Colors[i].Z, ba.Colors[i].Z, 1e-6)
	}
}

func TestVoxelGridLargeCloudParallel(t *testing.T) {
	g, err := NewVoxelGrid(0.25, Vec3{0, 0, 0}, Vec3{1, 1, 1})
	require.NoError(t, err)
	g.SetWorkers(4)

	n := chunkSize*3 + 7
	c := NewColoredCloud(n)
	for i := 0; i < n; i++ {
		c.Vertices[i] = Vec3{float32(i%4)*0.25 + 0.1, 0.1, 0.1}
		c.Colors[i] = Vec3{1, 1, 1}
	}
	g.AddCloud(&c, Identity())

	out := g.Cloud()
	assert.Equal(t, 4, out.Len())
	assert.Equal(t, 0, g.Discarded())

	g.Reset()
	assert.Equal(t, 0, g.OccupiedCount())
}
