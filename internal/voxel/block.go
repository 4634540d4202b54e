package voxel

import (
	"fmt"
	"strings"
)

type Material uint8

const (
	MaterialAir Material = iota
	MaterialSolid
	MaterialWater
	MaterialLava
	MaterialFoliage // grass tufts, flowers, crops: no collision
	MaterialFixture // ladders, vines, torches: attached to other blocks, no collision
)

var materialNames = [...]string{"AIR", "SOLID", "WATER", "LAVA", "FOLIAGE", "FIXTURE"}

func (m Material) String() string {
	if int(m) < len(materialNames) {
		return materialNames[m]
	}
	return fmt.Sprintf("Material(%d)", uint8(m))
}

func (m Material) IsSolid() bool        { return m == MaterialSolid }
func (m Material) IsLiquid() bool       { return m == MaterialWater || m == MaterialLava }
func (m Material) BlocksMovement() bool { return m == MaterialSolid }

func (m Material) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Material) UnmarshalText(b []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	for i, n := range materialNames {
		if n == s {
			*m = Material(i)
			return nil
		}
	}
	return fmt.Errorf("unknown material %q", s)
}

// Kind tags blocks whose shape matters more than their material.
type Kind uint8

const (
	KindPlain Kind = iota
	KindFence
	KindFenceGate
	KindWall
	KindDoor
	KindBarrier // decorative field markers and similar thin obstacles
	KindLadder
	KindVine
)

var kindNames = [...]string{"PLAIN", "FENCE", "FENCE_GATE", "WALL", "DOOR", "BARRIER", "LADDER", "VINE"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	if s == "" {
		*k = KindPlain
		return nil
	}
	for i, n := range kindNames {
		if n == s {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q", s)
}

func (k Kind) IsClimbable() bool { return k == KindLadder || k == KindVine }

// IsObstacle reports the thin-obstacle family nobody may stand on.
func (k Kind) IsObstacle() bool {
	return k == KindFence || k == KindFenceGate || k == KindWall || k == KindBarrier
}

type BlockDef struct {
	ID       string   `json:"id" yaml:"id"`
	Material Material `json:"material" yaml:"material"`
	Kind     Kind     `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Block is one stored cell: a palette id plus a metadata byte.
// For ladder-like blocks Meta holds a Facing, for vines a VineMask.
type Block struct {
	ID   uint16
	Meta uint8
}

// BlockState is a block resolved against its catalog definition.
type BlockState struct {
	Def  *BlockDef
	Meta uint8
}

var airDef = &BlockDef{ID: "AIR", Material: MaterialAir}

// Air is the state returned for unloaded or out-of-range positions.
var Air = BlockState{Def: airDef}

func (s BlockState) ID() string {
	if s.Def == nil {
		return airDef.ID
	}
	return s.Def.ID
}

func (s BlockState) Material() Material {
	if s.Def == nil {
		return MaterialAir
	}
	return s.Def.Material
}

func (s BlockState) Kind() Kind {
	if s.Def == nil {
		return KindPlain
	}
	return s.Def.Kind
}

func (s BlockState) IsAir() bool     { return s.Material() == MaterialAir }
func (s BlockState) IsLiquid() bool  { return s.Material().IsLiquid() }
func (s BlockState) IsWater() bool   { return s.Material() == MaterialWater }
func (s BlockState) IsSolid() bool   { return s.Material().IsSolid() }
func (s BlockState) Climbable() bool { return s.Kind().IsClimbable() }

// Facing returns the stored orientation of ladder-like blocks.
func (s BlockState) Facing() Facing {
	if s.Kind() == KindVine {
		return FacingFromVineMask(s.Meta)
	}
	f := Facing(s.Meta)
	if f > FacingWest {
		return FacingNone
	}
	return f
}

// BlockAccess is the read-only world query used by searches.
type BlockAccess interface {
	BlockState(pos Vec3i) BlockState
}
