// Package scene loads and stores voxel worlds used to drive searches:
// hand-written YAML/JSON scenes, zstd-compressed variants, a SQLite section
// store and Sponge schematics.
package scene

import (
	"sort"

	"github.com/pkg/errors"

	"voxelnav.ai/internal/voxel"
)

// Scene is a world plus the search endpoints it was authored for.
type Scene struct {
	Name  string
	Start *voxel.Vec3i
	End   *voxel.Vec3i
	Grid  *voxel.Grid
}

// File is the text form of a scene. Sections are applied first, then fills,
// then single blocks, so hand edits can override saved data.
type File struct {
	Name     string        `json:"name" yaml:"name"`
	Start    *[3]int       `json:"start,omitempty" yaml:"start,omitempty"`
	End      *[3]int       `json:"end,omitempty" yaml:"end,omitempty"`
	Palette  []string      `json:"palette,omitempty" yaml:"palette,omitempty"`
	Sections []SectionData `json:"sections,omitempty" yaml:"sections,omitempty"`
	Fills    []Fill        `json:"fills,omitempty" yaml:"fills,omitempty"`
	Blocks   []Placement   `json:"blocks,omitempty" yaml:"blocks,omitempty"`
}

// SectionData is one 16^3 section; Data is base64(uvarint pairs) over Palette indices.
type SectionData struct {
	Key  [3]int `json:"key" yaml:"key"`
	Data string `json:"data" yaml:"data"`
}

type Fill struct {
	Block string `json:"block" yaml:"block"`
	From  [3]int `json:"from" yaml:"from"`
	To    [3]int `json:"to" yaml:"to"`
}

type Placement struct {
	Block  string `json:"block" yaml:"block"`
	At     [3]int `json:"at" yaml:"at"`
	Facing string `json:"facing,omitempty" yaml:"facing,omitempty"`
	// Vine lists the sides a vine clings to.
	Vine []string `json:"vine,omitempty" yaml:"vine,omitempty"`
}

func vec(a [3]int) voxel.Vec3i { return voxel.Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func optVec(a *[3]int) *voxel.Vec3i {
	if a == nil {
		return nil
	}
	v := vec(*a)
	return &v
}

func optArray(v *voxel.Vec3i) *[3]int {
	if v == nil {
		return nil
	}
	a := v.Array()
	return &a
}

// Build materialises a File against a catalog (nil: the default catalog).
func Build(f File, cat *voxel.Catalog) (*Scene, error) {
	g := voxel.NewGrid(cat)
	cat = g.Catalog()

	if len(f.Sections) > 0 {
		remap, err := paletteRemap(f.Palette, cat)
		if err != nil {
			return nil, err
		}
		for i, sd := range f.Sections {
			sec, err := decodeSectionString(sd.Data)
			if err != nil {
				return nil, errors.Wrapf(err, "sections[%d]", i)
			}
			for j, b := range sec.Blocks {
				if int(b.ID) >= len(remap) {
					return nil, errors.Errorf("sections[%d]: palette index %d out of range", i, b.ID)
				}
				sec.Blocks[j].ID = remap[b.ID]
			}
			g.PutSection(voxel.SectionKey{SX: sd.Key[0], SY: sd.Key[1], SZ: sd.Key[2]}, sec)
		}
	}

	for i, fl := range f.Fills {
		id, ok := cat.Lookup(fl.Block)
		if !ok {
			return nil, errors.Errorf("fills[%d]: unknown block %q", i, fl.Block)
		}
		g.Fill(vec(fl.From), vec(fl.To), voxel.Block{ID: id})
	}

	for i, p := range f.Blocks {
		b, err := placementBlock(p, cat)
		if err != nil {
			return nil, errors.Wrapf(err, "blocks[%d]", i)
		}
		g.SetBlock(vec(p.At), b)
	}

	return &Scene{Name: f.Name, Start: optVec(f.Start), End: optVec(f.End), Grid: g}, nil
}

func placementBlock(p Placement, cat *voxel.Catalog) (voxel.Block, error) {
	id, ok := cat.Lookup(p.Block)
	if !ok {
		return voxel.Block{}, errors.Errorf("unknown block %q", p.Block)
	}
	b := voxel.Block{ID: id}
	if p.Facing != "" {
		f, err := voxel.ParseFacing(p.Facing)
		if err != nil {
			return b, errors.Wrap(err, "facing")
		}
		b.Meta = uint8(f)
	}
	if len(p.Vine) > 0 {
		faces := make([]voxel.Facing, 0, len(p.Vine))
		for _, s := range p.Vine {
			f, err := voxel.ParseFacing(s)
			if err != nil {
				return b, errors.Wrap(err, "vine")
			}
			faces = append(faces, f)
		}
		b.Meta = voxel.VineMaskFor(faces...)
	}
	return b, nil
}

func paletteRemap(names []string, cat *voxel.Catalog) ([]uint16, error) {
	if len(names) == 0 {
		return nil, errors.New("sections need a palette")
	}
	out := make([]uint16, len(names))
	for i, n := range names {
		id, ok := cat.Lookup(n)
		if !ok {
			return nil, errors.Errorf("palette[%d]: unknown block %q", i, n)
		}
		out[i] = id
	}
	return out, nil
}

// ToFile captures a scene in section form using the grid's catalog palette.
func ToFile(s *Scene) File {
	cat := s.Grid.Catalog()
	f := File{
		Name:    s.Name,
		Start:   optArray(s.Start),
		End:     optArray(s.End),
		Palette: append([]string(nil), cat.Palette...),
	}
	for _, k := range s.Grid.SectionKeys() {
		sec := s.Grid.Section(k)
		if sec == nil {
			continue
		}
		f.Sections = append(f.Sections, SectionData{
			Key:  [3]int{k.SX, k.SY, k.SZ},
			Data: encodeSectionString(sec),
		})
	}
	sort.SliceStable(f.Sections, func(i, j int) bool {
		a, b := f.Sections[i].Key, f.Sections[j].Key
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		if a[2] != b[2] {
			return a[2] < b[2]
		}
		return a[0] < b[0]
	})
	return f
}
