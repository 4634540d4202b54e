package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"voxelnav.ai/internal/pathfinding"
	"voxelnav.ai/internal/pathfinding/goals"
	"voxelnav.ai/internal/voxel"
)

func splitTriple(s string) ([3]string, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return [3]string{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	return [3]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])}, nil
}

func parseVec(s string) (voxel.Vec3i, error) {
	parts, err := splitTriple(s)
	if err != nil {
		return voxel.Vec3i{}, err
	}
	var v [3]int
	for i, p := range parts {
		if v[i], err = strconv.Atoi(p); err != nil {
			return voxel.Vec3i{}, fmt.Errorf("coordinate %q: %w", p, err)
		}
	}
	return voxel.Vec3i{X: v[0], Y: v[1], Z: v[2]}, nil
}

func parseFloatVec(s string) (mgl64.Vec3, error) {
	parts, err := splitTriple(s)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	var v mgl64.Vec3
	for i, p := range parts {
		if v[i], err = strconv.ParseFloat(p, 64); err != nil {
			return mgl64.Vec3{}, fmt.Errorf("coordinate %q: %w", p, err)
		}
	}
	return v, nil
}

// pickPos prefers the flag and falls back to the scene's endpoint.
func pickPos(flagVal string, fallback *voxel.Vec3i, what string) (voxel.Vec3i, error) {
	if strings.TrimSpace(flagVal) != "" {
		v, err := parseVec(flagVal)
		if err != nil {
			return v, fmt.Errorf("-%s: %w", what, err)
		}
		return v, nil
	}
	if fallback == nil {
		return voxel.Vec3i{}, fmt.Errorf("no %s: pass -%s or author it in the scene", what, what)
	}
	return *fallback, nil
}

func buildGoal(kind string, end voxel.Vec3i, radius float64) (pathfinding.Goal, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "move_to":
		return goals.MoveTo{Dest: end, Slack: radius}, nil
	case "move_near":
		if radius <= 0 {
			return nil, fmt.Errorf("move_near needs -radius > 0")
		}
		return goals.MoveNear{Center: end, Radius: radius}, nil
	case "move_away":
		if radius <= 0 {
			return nil, fmt.Errorf("move_away needs -radius > 0")
		}
		// -end names the point to flee from.
		return goals.MoveAway{From: end, Distance: radius}, nil
	}
	return nil, fmt.Errorf("unknown goal %q", kind)
}
