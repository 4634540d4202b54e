package voxel

import (
	"fmt"
	"strings"
)

// Facing is a horizontal compass direction. The zero value means "no facing".
type Facing uint8

const (
	FacingNone Facing = iota
	FacingNorth
	FacingEast
	FacingSouth
	FacingWest
)

var facingNames = [...]string{"NONE", "NORTH", "EAST", "SOUTH", "WEST"}

func (f Facing) String() string {
	if int(f) < len(facingNames) {
		return facingNames[f]
	}
	return fmt.Sprintf("Facing(%d)", uint8(f))
}

func (f Facing) Vec() Vec3i {
	switch f {
	case FacingNorth:
		return North
	case FacingEast:
		return East
	case FacingSouth:
		return South
	case FacingWest:
		return West
	}
	return Vec3i{}
}

func ParseFacing(s string) (Facing, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range facingNames {
		if n == s {
			return Facing(i), nil
		}
	}
	return FacingNone, fmt.Errorf("unknown facing %q", s)
}

func (f Facing) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Facing) UnmarshalText(b []byte) error {
	v, err := ParseFacing(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Vine-style attachment masks. Each bit marks one side the block is attached to.
const (
	VineSouth uint8 = 1 << iota
	VineWest
	VineNorth
	VineEast
)

// FacingFromVineMask decodes the first attached side in S, W, N, E order.
func FacingFromVineMask(mask uint8) Facing {
	switch {
	case mask&VineSouth != 0:
		return FacingSouth
	case mask&VineWest != 0:
		return FacingWest
	case mask&VineNorth != 0:
		return FacingNorth
	case mask&VineEast != 0:
		return FacingEast
	}
	return FacingNone
}

func VineMaskFor(faces ...Facing) uint8 {
	var m uint8
	for _, f := range faces {
		switch f {
		case FacingSouth:
			m |= VineSouth
		case FacingWest:
			m |= VineWest
		case FacingNorth:
			m |= VineNorth
		case FacingEast:
			m |= VineEast
		}
	}
	return m
}
