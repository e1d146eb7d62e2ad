package geo

import (
	"errors"
	"math"
	"sort"

	"github.com/toolset/dcplayer/utils/parallel"
)

var (
	ErrInvalidVoxelSize = errors.New("voxel size must be > 0")
	ErrInvalidBounds    = errors.New("min bound must be < max bound on every axis")
)

// points per transform job when a cloud is added in parallel
const chunkSize = 16 * 1024

// VoxelKey indexes a cell of the grid: floor((p - min) / voxelSize).
type VoxelKey struct {
	X, Y, Z int32
}

func (k VoxelKey) less(o VoxelKey) bool {
	if k.X != o.X {
		return k.X < o.X
	}
	if k.Y != o.Y {
		return k.Y < o.Y
	}
	return k.Z < o.Z
}

// voxel accumulates every point that fell into it. Sums are kept in float64
// so the mean does not depend on insertion order beyond rounding.
type voxel struct {
	count       int
	px, py, pz  float64
	cr, cg, cb  float64
	colorsCount int
}

// VoxelGrid buckets points from any number of clouds into uniform cells in
// [min, max) and emits one averaged point per occupied cell.
type VoxelGrid struct {
	voxelSize float32
	min, max  Vec3
	workers   int
	voxels    map[VoxelKey]*voxel
	discarded int
}

func NewVoxelGrid(voxelSize float32, min, max Vec3) (*VoxelGrid, error) {
	if !(voxelSize > 0) {
		return nil, ErrInvalidVoxelSize
	}
	if !(min.X < max.X && min.Y < max.Y && min.Z < max.Z) {
		return nil, ErrInvalidBounds
	}
	// 키가 int32 이므로 축마다 셀 개수가 int32 범위 안이어야 한다.
	for _, extent := range []float32{max.X - min.X, max.Y - min.Y, max.Z - min.Z} {
		if cells := math.Floor(float64(extent) / float64(voxelSize)); !(cells < math.MaxInt32) {
			return nil, ErrInvalidBounds
		}
	}
	return &VoxelGrid{
		voxelSize: voxelSize,
		min:       min,
		max:       max,
		voxels:    make(map[VoxelKey]*voxel),
	}, nil
}

// SetWorkers bounds the goroutines used to transform large clouds.
func (g *VoxelGrid) SetWorkers(n int) {
	g.workers = n
}

func (g *VoxelGrid) VoxelSize() float32 {
	return g.voxelSize
}

// OccupiedCount returns the number of non-empty voxels.
func (g *VoxelGrid) OccupiedCount() int {
	return len(g.voxels)
}

// Discarded returns how many points were clipped by the bounds so far.
func (g *VoxelGrid) Discarded() int {
	return g.discarded
}

type placed struct {
	in  bool
	key VoxelKey
	pos Vec3
}

// AddCloud transforms every vertex of cloud by model and accumulates it.
// Points outside [min, max) are dropped.
func (g *VoxelGrid) AddCloud(cloud *ColoredCloud, model Mat4) {
	n := cloud.Len()
	if n == 0 {
		return
	}
	hasColors := cloud.HasColors()

	buffer := make([]placed, n)
	chunks := (n + chunkSize - 1) / chunkSize
	parallel.ForEach(chunks, g.workers, func(c int) {
		start := c * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		for i := start; i < end; i++ {
			v := model.MultiplyPoint(cloud.Vertices[i])
			if !v.Within(g.min, g.max) {
				continue
			}
			buffer[i] = placed{in: true, key: g.keyOf(v), pos: v}
		}
	})

	for i := range buffer {
		p := &buffer[i]
		if !p.in {
			g.discarded++
			continue
		}
		vx, ok := g.voxels[p.key]
		if !ok {
			vx = &voxel{}
			g.voxels[p.key] = vx
		}
		vx.count++
		vx.px += float64(p.pos.X)
		vx.py += float64(p.pos.Y)
		vx.pz += float64(p.pos.Z)
		if hasColors {
			c := cloud.Colors[i]
			vx.colorsCount++
			vx.cr += float64(c.X)
			vx.cg += float64(c.Y)
			vx.cb += float64(c.Z)
		}
	}
}

func (g *VoxelGrid) keyOf(v Vec3) VoxelKey {
	rel := v.Sub(g.min)
	return VoxelKey{
		X: int32(math.Floor(float64(rel.X / g.voxelSize))),
		Y: int32(math.Floor(float64(rel.Y / g.voxelSize))),
		Z: int32(math.Floor(float64(rel.Z / g.voxelSize))),
	}
}

// Cloud returns one point per occupied voxel, ordered by voxel key. The
// position is the mean of the points in the voxel, the color the mean of
// their colors.
func (g *VoxelGrid) Cloud() ColoredCloud {
	keys := make([]VoxelKey, 0, len(g.voxels))
	for k := range g.voxels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].less(keys[j])
	})

	out := NewColoredCloud(len(keys))
	for i, k := range keys {
		vx := g.voxels[k]
		n := float64(vx.count)
		out.Vertices[i] = Vec3{float32(vx.px / n), float32(vx.py / n), float32(vx.pz / n)}
		if vx.colorsCount > 0 {
			cn := float64(vx.colorsCount)
			out.Colors[i] = Vec3{float32(vx.cr / cn), float32(vx.cg / cn), float32(vx.cb / cn)}
		}
	}
	return out
}

// Reset empties the grid so it can be reused for the next instant.
func (g *VoxelGrid) Reset() {
	g.voxels = make(map[VoxelKey]*voxel)
	g.discarded = 0
}
