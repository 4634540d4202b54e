package pathfinding

import (
	"testing"

	"voxelnav.ai/internal/voxel"
)

func standing(pos voxel.Vec3i) *Node { return newNode(nil, pos, 0, 0, 0) }

func TestGroundResolver_Level(t *testing.T) {
	g := flatWorld(t)
	r := NewGroundResolver(g, true)
	y, ok := r.Resolve(standing(voxel.Vec3i{}), voxel.Vec3i{X: 1})
	if !ok || y != 0 {
		t.Fatalf("level move: y=%d ok=%v", y, ok)
	}
}

func TestGroundResolver_JumpHeadroom(t *testing.T) {
	g := flatWorld(t)
	g.Set(voxel.Vec3i{X: 1}, "STONE", 0)
	r := NewGroundResolver(g, true)
	parent := standing(voxel.Vec3i{})

	if y, ok := r.Resolve(parent, voxel.Vec3i{X: 1}); !ok || y != 1 {
		t.Fatalf("jump with headroom: y=%d ok=%v", y, ok)
	}

	// One block of clearance above the origin is not enough.
	g.Set(voxel.Vec3i{Y: 2}, "STONE", 0)
	if _, ok := r.Resolve(parent, voxel.Vec3i{X: 1}); ok {
		t.Fatalf("jump accepted with a ceiling above the origin")
	}
	g.SetBlock(voxel.Vec3i{Y: 2}, voxel.Block{})

	g.Set(voxel.Vec3i{X: 1, Y: 2}, "STONE", 0)
	if _, ok := r.Resolve(parent, voxel.Vec3i{X: 1}); ok {
		t.Fatalf("jump accepted with a ceiling above the landing")
	}
	g.SetBlock(voxel.Vec3i{X: 1, Y: 2}, voxel.Block{})

	// Two-block step.
	g.Set(voxel.Vec3i{X: 1, Y: 1}, "STONE", 0)
	if _, ok := r.Resolve(parent, voxel.Vec3i{X: 1}); ok {
		t.Fatalf("two-block step accepted")
	}
}

func TestGroundResolver_NoJumpFromLadderOrWater(t *testing.T) {
	g := flatWorld(t)
	g.Set(voxel.Vec3i{X: 1}, "STONE", 0)
	r := NewGroundResolver(g, true)

	ladder := standing(voxel.Vec3i{})
	ladder.IsLadder = true
	if _, ok := r.Resolve(ladder, voxel.Vec3i{X: 1}); ok {
		t.Fatalf("jump from a ladder accepted")
	}
	swimmer := standing(voxel.Vec3i{})
	swimmer.IsSwimming = true
	if _, ok := r.Resolve(swimmer, voxel.Vec3i{X: 1}); ok {
		t.Fatalf("jump while swimming accepted")
	}
	if _, ok := r.Resolve(nil, voxel.Vec3i{X: 1}); ok {
		t.Fatalf("jump without a parent accepted")
	}
}

func TestGroundResolver_Drop(t *testing.T) {
	g := voxel.NewGrid(nil)
	g.Set(voxel.Vec3i{}, "STONE", 0)
	g.Set(voxel.Vec3i{X: 1, Y: -1}, "STONE", 0)
	r := NewGroundResolver(g, true)
	parent := standing(voxel.Vec3i{Y: 1})

	if y, ok := r.Resolve(parent, voxel.Vec3i{X: 1, Y: 1}); !ok || y != 0 {
		t.Fatalf("one-block drop: y=%d ok=%v", y, ok)
	}

	// Floor two blocks down is too far.
	g.SetBlock(voxel.Vec3i{X: 1, Y: -1}, voxel.Block{})
	g.Set(voxel.Vec3i{X: 1, Y: -2}, "STONE", 0)
	if _, ok := r.Resolve(parent, voxel.Vec3i{X: 1, Y: 1}); ok {
		t.Fatalf("two-block drop accepted")
	}

	ladder := standing(voxel.Vec3i{Y: 1})
	ladder.IsLadder = true
	g.Set(voxel.Vec3i{X: 1, Y: -1}, "STONE", 0)
	if _, ok := r.Resolve(ladder, voxel.Vec3i{X: 1, Y: 1}); ok {
		t.Fatalf("drop from a ladder accepted")
	}
}

func TestGroundResolver_Obstacles(t *testing.T) {
	g := flatWorld(t)
	g.Set(voxel.Vec3i{X: 1, Y: -1}, "FENCE", 0)
	g.Set(voxel.Vec3i{X: 2}, "FENCE", 0)
	g.Set(voxel.Vec3i{X: -1}, "DOOR", 0)
	r := NewGroundResolver(g, true)
	parent := standing(voxel.Vec3i{})

	if _, ok := r.Resolve(parent, voxel.Vec3i{X: 1}); ok {
		t.Fatalf("standing on a fence accepted")
	}
	if _, ok := r.Resolve(standing(voxel.Vec3i{X: 3}), voxel.Vec3i{X: 2}); ok {
		t.Fatalf("jumping onto a fence accepted")
	}
	if y, ok := r.Resolve(parent, voxel.Vec3i{X: -1}); !ok || y != 0 {
		t.Fatalf("walking through a door: y=%d ok=%v", y, ok)
	}
}

func TestGroundResolver_Liquids(t *testing.T) {
	g := flatWorld(t)
	g.Set(voxel.Vec3i{X: 1, Y: -1}, "WATER", 0)
	g.Set(voxel.Vec3i{X: -1, Y: -1}, "LAVA", 0)
	parent := standing(voxel.Vec3i{})

	r := NewGroundResolver(g, true)
	if y, ok := r.Resolve(parent, voxel.Vec3i{X: 1}); !ok || y != 0 {
		t.Fatalf("onto water: y=%d ok=%v", y, ok)
	}
	if _, ok := r.Resolve(parent, voxel.Vec3i{X: -1}); ok {
		t.Fatalf("onto lava accepted")
	}

	// Surfacing into an occupied block is refused even with headroom above.
	g.Set(voxel.Vec3i{Z: 1}, "STONE", 0)
	g.Set(voxel.Vec3i{Y: -1}, "WATER", 0)
	if _, ok := r.Resolve(parent, voxel.Vec3i{Z: 1}); ok {
		t.Fatalf("climbing out of water onto a block accepted")
	}

	dry := NewGroundResolver(g, false)
	if _, ok := dry.Resolve(standing(voxel.Vec3i{X: 2}), voxel.Vec3i{X: 1}); ok {
		t.Fatalf("swimming accepted while disallowed")
	}
	swimmer := standing(voxel.Vec3i{X: 2})
	swimmer.IsSwimming = true
	if _, ok := dry.Resolve(swimmer, voxel.Vec3i{X: 1}); !ok {
		t.Fatalf("a swimmer must stay afloat")
	}
}

func TestGroundResolver_Idempotent(t *testing.T) {
	g := flatWorld(t)
	g.Set(voxel.Vec3i{X: 2}, "STONE", 0)
	g.Set(voxel.Vec3i{X: -2, Y: -1}, "WATER", 0)
	g.Set(voxel.Vec3i{Z: 2}, "LADDER", uint8(voxel.FacingSouth))
	g.Set(voxel.Vec3i{Z: -2, Y: -1}, "FENCE", 0)
	r := NewGroundResolver(g, true)

	for x := -3; x <= 3; x++ {
		for z := -3; z <= 3; z++ {
			for y := -1; y <= 2; y++ {
				parent := standing(voxel.Vec3i{X: x, Y: y, Z: z}.Sub(voxel.East))
				target := voxel.Vec3i{X: x, Y: y, Z: z}
				y1, ok1 := r.Resolve(parent, target)
				y2, ok2 := r.Resolve(parent, target)
				if y1 != y2 || ok1 != ok2 {
					t.Fatalf("resolve %v not stable: (%d,%v) then (%d,%v)", target, y1, ok1, y2, ok2)
				}
			}
		}
	}
}

func TestTerrain_Classification(t *testing.T) {
	cat := voxel.DefaultCatalog()
	state := func(id string) voxel.BlockState {
		return cat.State(voxel.Block{ID: cat.MustLookup(id)})
	}
	cases := []struct {
		id       string
		passable bool
		surface  SurfaceType
	}{
		{"AIR", true, SurfaceDropable},
		{"STONE", false, SurfaceWalkable},
		{"WATER", false, SurfaceDropable},
		{"TALL_GRASS", true, SurfaceDropable},
		{"LADDER", true, SurfaceDropable},
		{"FENCE", false, SurfaceNotPassable},
		{"FENCE_GATE", true, SurfaceNotPassable},
		{"WALL", false, SurfaceNotPassable},
		{"DOOR", true, SurfaceWalkable},
		{"SCARECROW", false, SurfaceNotPassable},
	}
	for _, tc := range cases {
		s := state(tc.id)
		if got := IsPassable(s); got != tc.passable {
			t.Fatalf("%s passable=%v want %v", tc.id, got, tc.passable)
		}
		if got := Surface(s); got != tc.surface {
			t.Fatalf("%s surface=%v want %v", tc.id, got, tc.surface)
		}
	}
}
