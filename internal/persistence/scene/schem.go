package scene

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Tnze/go-mc/nbt"
	"github.com/pkg/errors"

	"voxelnav.ai/internal/voxel"
)

/*
Sponge schematic v2, gzip-compressed NBT:

	TAG_Compound("Schematic", {
	    "Version": TAG_Int(2),
	    "DataVersion": TAG_Int(),
	    "Width": TAG_Short(), "Height": TAG_Short(), "Length": TAG_Short(),
	    "Offset": TAG_Int_Array([x, y, z]),
	    "PaletteMax": TAG_Int(),
	    "Palette": TAG_Compound({"minecraft:stone": TAG_Int(1), ...}),
	    "BlockData": TAG_Byte_Array(varint palette ids, x fastest, then z, then y),
	    "Metadata": TAG_Compound({"Name": TAG_String()})
	})
*/
type spongeSchematic struct {
	Version     int32            `nbt:"Version"`
	DataVersion int32            `nbt:"DataVersion"`
	Width       int16            `nbt:"Width"`
	Height      int16            `nbt:"Height"`
	Length      int16            `nbt:"Length"`
	Offset      []int32          `nbt:"Offset"`
	PaletteMax  int32            `nbt:"PaletteMax"`
	Palette     map[string]int32 `nbt:"Palette"`
	BlockData   []byte           `nbt:"BlockData"`
	Metadata    spongeMetadata   `nbt:"Metadata"`
}

type spongeMetadata struct {
	Name string `nbt:"Name"`
}

const (
	spongeVersion = 2
	// DataVersion of Minecraft 1.16.5; only recorded, never interpreted.
	spongeDataVersion = 2586
	nativeNamespace   = "voxelnav"
)

// ReadSchematic loads a Sponge schematic, gzip-compressed or raw.
func ReadSchematic(r io.Reader, cat *voxel.Catalog) (*Scene, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		defer gz.Close()
		src = gz
	}

	var sch spongeSchematic
	if _, err := nbt.NewDecoder(src).Decode(&sch); err != nil {
		return nil, errors.Wrap(err, "nbt")
	}
	if sch.Width < 0 || sch.Height < 0 || sch.Length < 0 {
		return nil, errors.Errorf("bad dimensions %dx%dx%d", sch.Width, sch.Height, sch.Length)
	}

	g := voxel.NewGrid(cat)
	cat = g.Catalog()

	byIndex := make(map[int32]voxel.Block, len(sch.Palette))
	for state, idx := range sch.Palette {
		byIndex[idx] = blockFromState(state, cat)
	}

	var origin voxel.Vec3i
	if len(sch.Offset) == 3 {
		origin = voxel.Vec3i{X: int(sch.Offset[0]), Y: int(sch.Offset[1]), Z: int(sch.Offset[2])}
	}

	w, h, l := int(sch.Width), int(sch.Height), int(sch.Length)
	total := w * h * l
	data := sch.BlockData
	for i, off := 0, 0; i < total; i++ {
		if off >= len(data) {
			return nil, errors.Errorf("block data ends after %d of %d blocks", i, total)
		}
		idx, n := binary.Uvarint(data[off:])
		if n <= 0 {
			return nil, errors.Errorf("bad varint at %d", off)
		}
		off += n
		b, ok := byIndex[int32(idx)]
		if !ok {
			return nil, errors.Errorf("palette index %d not in palette", idx)
		}
		if b.ID == 0 {
			continue
		}
		x := i % w
		z := (i / w) % l
		y := i / (w * l)
		g.SetBlock(origin.Add(voxel.Vec3i{X: x, Y: y, Z: z}), b)
	}

	return &Scene{Name: sch.Metadata.Name, Grid: g}, nil
}

// WriteSchematic stores the tight box around every non-air block.
// Search endpoints are not part of the format and are dropped.
func WriteSchematic(w io.Writer, s *Scene) error {
	cat := s.Grid.Catalog()
	lo, hi, ok := blockBounds(s.Grid)
	if !ok {
		lo, hi = voxel.Vec3i{}, voxel.Vec3i{}
	}
	size := hi.Sub(lo).Add(voxel.Vec3i{X: 1, Y: 1, Z: 1})
	if size.X > 0x7FFF || size.Y > 0x7FFF || size.Z > 0x7FFF {
		return errors.Errorf("scene too large for a schematic: %v", size)
	}

	palette := map[string]int32{}
	var data []byte
	var tmp [binary.MaxVarintLen32]byte
	for y := lo.Y; y <= hi.Y; y++ {
		for z := lo.Z; z <= hi.Z; z++ {
			for x := lo.X; x <= hi.X; x++ {
				st := stateName(cat.State(s.Grid.Block(voxel.Vec3i{X: x, Y: y, Z: z})))
				idx, seen := palette[st]
				if !seen {
					idx = int32(len(palette))
					palette[st] = idx
				}
				n := binary.PutUvarint(tmp[:], uint64(idx))
				data = append(data, tmp[:n]...)
			}
		}
	}

	sch := spongeSchematic{
		Version:     spongeVersion,
		DataVersion: spongeDataVersion,
		Width:       int16(size.X),
		Height:      int16(size.Y),
		Length:      int16(size.Z),
		Offset:      []int32{int32(lo.X), int32(lo.Y), int32(lo.Z)},
		PaletteMax:  int32(len(palette)),
		Palette:     palette,
		BlockData:   data,
		Metadata:    spongeMetadata{Name: s.Name},
	}

	gz := gzip.NewWriter(w)
	if err := nbt.NewEncoder(gz).Encode(sch, "Schematic"); err != nil {
		return errors.Wrap(err, "nbt")
	}
	return errors.Wrap(gz.Close(), "gzip")
}

func blockBounds(g *voxel.Grid) (voxel.Vec3i, voxel.Vec3i, bool) {
	var lo, hi voxel.Vec3i
	found := false
	for _, k := range g.SectionKeys() {
		sec := g.Section(k)
		if sec == nil {
			continue
		}
		base := voxel.Vec3i{X: k.SX * voxel.SectionSize, Y: k.SY * voxel.SectionSize, Z: k.SZ * voxel.SectionSize}
		for ly := 0; ly < voxel.SectionSize; ly++ {
			for lz := 0; lz < voxel.SectionSize; lz++ {
				for lx := 0; lx < voxel.SectionSize; lx++ {
					if sec.Get(lx, ly, lz).ID == 0 {
						continue
					}
					p := base.Add(voxel.Vec3i{X: lx, Y: ly, Z: lz})
					if !found {
						lo, hi, found = p, p, true
						continue
					}
					lo = voxel.Vec3i{X: voxel.MinInt(lo.X, p.X), Y: voxel.MinInt(lo.Y, p.Y), Z: voxel.MinInt(lo.Z, p.Z)}
					hi = voxel.Vec3i{X: voxel.MaxInt(hi.X, p.X), Y: voxel.MaxInt(hi.Y, p.Y), Z: voxel.MaxInt(hi.Z, p.Z)}
				}
			}
		}
	}
	return lo, hi, found
}

// splitState parses "ns:name[k=v,...]".
func splitState(state string) (ns, name string, props map[string]string) {
	name = state
	if i := strings.IndexByte(name, '['); i >= 0 {
		raw := strings.TrimSuffix(name[i+1:], "]")
		name = name[:i]
		props = map[string]string{}
		for _, kv := range strings.Split(raw, ",") {
			k, v, ok := strings.Cut(kv, "=")
			if ok {
				props[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}
		}
	}
	ns = "minecraft"
	if i := strings.IndexByte(name, ':'); i >= 0 {
		ns, name = name[:i], name[i+1:]
	}
	return ns, name, props
}

var minecraftNames = map[string]string{
	"air":         "AIR",
	"cave_air":    "AIR",
	"void_air":    "AIR",
	"stone":       "STONE",
	"dirt":        "DIRT",
	"grass_block": "GRASS",
	"sand":        "SAND",
	"gravel":      "GRAVEL",
	"glass":       "GLASS",
	"water":       "WATER",
	"lava":        "LAVA",
	"grass":       "TALL_GRASS",
	"tall_grass":  "TALL_GRASS",
	"fern":        "TALL_GRASS",
	"poppy":       "FLOWER",
	"dandelion":   "FLOWER",
	"torch":       "TORCH",
	"wall_torch":  "TORCH",
	"ladder":      "LADDER",
	"vine":        "VINE",
}

var minecraftSuffixes = []struct{ suffix, id string }{
	{"_fence_gate", "FENCE_GATE"},
	{"_fence", "FENCE"},
	{"_wall", "WALL"},
	{"_door", "DOOR"},
	{"_planks", "PLANK"},
	{"_log", "LOG"},
	{"_leaves", "LEAVES"},
	{"_glass", "GLASS"},
}

// blockFromState maps a block state string onto the catalog. Unknown blocks
// become STONE.
func blockFromState(state string, cat *voxel.Catalog) voxel.Block {
	ns, name, props := splitState(state)

	id := ""
	if ns == nativeNamespace {
		id = strings.ToUpper(name)
	} else if v, ok := minecraftNames[name]; ok {
		id = v
	} else {
		for _, s := range minecraftSuffixes {
			if strings.HasSuffix(name, s.suffix) {
				id = s.id
				break
			}
		}
	}
	if id == "" {
		id = strings.ToUpper(name)
	}
	pid, ok := cat.Lookup(id)
	if !ok {
		pid, ok = cat.Lookup("STONE")
		if !ok {
			return voxel.Block{}
		}
	}

	b := voxel.Block{ID: pid}
	switch cat.State(b).Kind() {
	case voxel.KindLadder:
		if f, err := voxel.ParseFacing(props["facing"]); err == nil {
			b.Meta = uint8(f)
		}
	case voxel.KindVine:
		var faces []voxel.Facing
		for _, f := range []voxel.Facing{voxel.FacingNorth, voxel.FacingEast, voxel.FacingSouth, voxel.FacingWest} {
			if props[strings.ToLower(f.String())] == "true" {
				faces = append(faces, f)
			}
		}
		b.Meta = voxel.VineMaskFor(faces...)
	}
	return b
}

var nativeToMinecraft = map[string]string{
	"AIR":        "minecraft:air",
	"STONE":      "minecraft:stone",
	"DIRT":       "minecraft:dirt",
	"GRASS":      "minecraft:grass_block",
	"SAND":       "minecraft:sand",
	"GRAVEL":     "minecraft:gravel",
	"PLANK":      "minecraft:oak_planks",
	"LOG":        "minecraft:oak_log",
	"LEAVES":     "minecraft:oak_leaves",
	"GLASS":      "minecraft:glass",
	"WATER":      "minecraft:water",
	"LAVA":       "minecraft:lava",
	"TALL_GRASS": "minecraft:tall_grass",
	"FLOWER":     "minecraft:poppy",
	"TORCH":      "minecraft:torch",
	"FENCE":      "minecraft:oak_fence",
	"FENCE_GATE": "minecraft:oak_fence_gate",
	"WALL":       "minecraft:cobblestone_wall",
	"DOOR":       "minecraft:oak_door",
}

func stateName(s voxel.BlockState) string {
	switch s.Kind() {
	case voxel.KindLadder:
		f := s.Facing()
		if f == voxel.FacingNone {
			f = voxel.FacingNorth
		}
		return fmt.Sprintf("minecraft:ladder[facing=%s]", strings.ToLower(f.String()))
	case voxel.KindVine:
		sides := map[string]bool{}
		for _, f := range []voxel.Facing{voxel.FacingNorth, voxel.FacingEast, voxel.FacingSouth, voxel.FacingWest} {
			sides[strings.ToLower(f.String())] = s.Meta&voxel.VineMaskFor(f) != 0
		}
		keys := make([]string, 0, len(sides))
		for k := range sides {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%t", k, sides[k])
		}
		return "minecraft:vine[" + strings.Join(parts, ",") + "]"
	}
	if n, ok := nativeToMinecraft[s.ID()]; ok {
		return n
	}
	return nativeNamespace + ":" + strings.ToLower(s.ID())
}
