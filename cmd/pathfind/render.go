package main

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"voxelnav.ai/internal/pathfinding"
	"voxelnav.ai/internal/voxel"
)

const (
	ansiReset  = "\x1b[0m"
	ansiPath   = "\x1b[1;33m"
	ansiLadder = "\x1b[1;32m"
	ansiWater  = "\x1b[34m"
)

// renderMap draws the path from above, one cell per column. North is up.
// Terrain is sampled at the start's level.
func renderMap(g *voxel.Grid, start voxel.Vec3i, path *pathfinding.Path, out *os.File) string {
	color := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
	maxCols := 0
	if w, _, err := term.GetSize(int(out.Fd())); err == nil {
		maxCols = w
	}
	return drawMap(g, start, path.Points(), color, maxCols)
}

func drawMap(g *voxel.Grid, start voxel.Vec3i, points []pathfinding.PathPoint, color bool, maxCols int) string {
	lo, hi := start, start
	marks := make(map[[2]int]pathfinding.PathPoint, len(points))
	for _, p := range points {
		lo = voxel.Vec3i{X: voxel.MinInt(lo.X, p.Pos.X), Z: voxel.MinInt(lo.Z, p.Pos.Z)}
		hi = voxel.Vec3i{X: voxel.MaxInt(hi.X, p.Pos.X), Z: voxel.MaxInt(hi.Z, p.Pos.Z)}
		marks[[2]int{p.Pos.X, p.Pos.Z}] = p
	}
	lo.X, lo.Z = lo.X-1, lo.Z-1
	hi.X, hi.Z = hi.X+1, hi.Z+1
	if maxCols > 0 && hi.X-lo.X+1 > maxCols {
		hi.X = lo.X + maxCols - 1
	}

	paint := func(b *strings.Builder, code, s string) {
		if color {
			b.WriteString(code)
			b.WriteString(s)
			b.WriteString(ansiReset)
			return
		}
		b.WriteString(s)
	}

	var b strings.Builder
	for z := lo.Z; z <= hi.Z; z++ {
		for x := lo.X; x <= hi.X; x++ {
			if x == start.X && z == start.Z {
				paint(&b, ansiPath, "S")
				continue
			}
			if p, ok := marks[[2]int{x, z}]; ok {
				switch {
				case p.OnLadder:
					paint(&b, ansiLadder, "H")
				case p.Pos == points[len(points)-1].Pos:
					paint(&b, ansiPath, "E")
				default:
					paint(&b, ansiPath, "*")
				}
				continue
			}
			st := g.BlockState(voxel.Vec3i{X: x, Y: start.Y, Z: z})
			switch {
			case st.IsLiquid():
				paint(&b, ansiWater, "~")
			case st.IsSolid():
				b.WriteByte('#')
			case st.Climbable():
				b.WriteByte('|')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
