package voxel

import (
	"sort"
	"sync"
)

const (
	SectionSize  = 16
	sectionCells = SectionSize * SectionSize * SectionSize
)

type SectionKey struct {
	SX, SY, SZ int
}

// Section is a 16x16x16 cube of blocks. A missing section is all air.
type Section struct {
	Blocks [sectionCells]Block
}

func sectionIndex(lx, ly, lz int) int {
	// x fastest, then z, then y
	return lx + lz*SectionSize + ly*SectionSize*SectionSize
}

func (s *Section) Get(lx, ly, lz int) Block    { return s.Blocks[sectionIndex(lx, ly, lz)] }
func (s *Section) Set(lx, ly, lz int, b Block) { s.Blocks[sectionIndex(lx, ly, lz)] = b }

func (s *Section) IsEmpty() bool {
	for _, b := range s.Blocks {
		if b.ID != 0 {
			return false
		}
	}
	return true
}

func SectionOf(pos Vec3i) (SectionKey, int, int, int) {
	k := SectionKey{
		SX: FloorDiv(pos.X, SectionSize),
		SY: FloorDiv(pos.Y, SectionSize),
		SZ: FloorDiv(pos.Z, SectionSize),
	}
	return k, Mod(pos.X, SectionSize), Mod(pos.Y, SectionSize), Mod(pos.Z, SectionSize)
}

// Grid is the mutable sparse voxel world. Safe for concurrent use.
type Grid struct {
	cat *Catalog

	mu       sync.RWMutex
	sections map[SectionKey]*Section
}

func NewGrid(cat *Catalog) *Grid {
	if cat == nil {
		cat = DefaultCatalog()
	}
	return &Grid{cat: cat, sections: map[SectionKey]*Section{}}
}

func (g *Grid) Catalog() *Catalog { return g.cat }

func (g *Grid) Block(pos Vec3i) Block {
	k, lx, ly, lz := SectionOf(pos)
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.sections[k]
	if s == nil {
		return Block{}
	}
	return s.Get(lx, ly, lz)
}

func (g *Grid) BlockState(pos Vec3i) BlockState {
	return g.cat.State(g.Block(pos))
}

func (g *Grid) SetBlock(pos Vec3i, b Block) {
	k, lx, ly, lz := SectionOf(pos)
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.sections[k]
	if s == nil {
		if b.ID == 0 {
			return
		}
		s = &Section{}
		g.sections[k] = s
	}
	s.Set(lx, ly, lz, b)
}

// Set places a block by catalog id. Unknown ids panic.
func (g *Grid) Set(pos Vec3i, id string, meta uint8) {
	g.SetBlock(pos, Block{ID: g.cat.MustLookup(id), Meta: meta})
}

// Fill sets every block in the inclusive box [a, b].
func (g *Grid) Fill(a, b Vec3i, blk Block) {
	min, max := orderBox(a, b)
	for y := min.Y; y <= max.Y; y++ {
		for z := min.Z; z <= max.Z; z++ {
			for x := min.X; x <= max.X; x++ {
				g.SetBlock(Vec3i{X: x, Y: y, Z: z}, blk)
			}
		}
	}
}

// PutSection installs a whole section, replacing any existing one.
func (g *Grid) PutSection(k SectionKey, s *Section) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s == nil || s.IsEmpty() {
		delete(g.sections, k)
		return
	}
	g.sections[k] = s
}

// Section returns a copy of the stored section, or nil for all-air.
func (g *Grid) Section(k SectionKey) *Section {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.sections[k]
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func (g *Grid) SectionKeys() []SectionKey {
	g.mu.RLock()
	keys := make([]SectionKey, 0, len(g.sections))
	for k := range g.sections {
		keys = append(keys, k)
	}
	g.mu.RUnlock()
	sortSectionKeys(keys)
	return keys
}

// Bounds returns the inclusive box covering every allocated section.
func (g *Grid) Bounds() (Vec3i, Vec3i, bool) {
	keys := g.SectionKeys()
	if len(keys) == 0 {
		return Vec3i{}, Vec3i{}, false
	}
	min := Vec3i{X: keys[0].SX, Y: keys[0].SY, Z: keys[0].SZ}
	max := min
	for _, k := range keys[1:] {
		min = Vec3i{X: MinInt(min.X, k.SX), Y: MinInt(min.Y, k.SY), Z: MinInt(min.Z, k.SZ)}
		max = Vec3i{X: MaxInt(max.X, k.SX), Y: MaxInt(max.Y, k.SY), Z: MaxInt(max.Z, k.SZ)}
	}
	lo := Vec3i{X: min.X * SectionSize, Y: min.Y * SectionSize, Z: min.Z * SectionSize}
	hi := Vec3i{X: (max.X+1)*SectionSize - 1, Y: (max.Y+1)*SectionSize - 1, Z: (max.Z+1)*SectionSize - 1}
	return lo, hi, true
}

// Snapshot copies every section intersecting the inclusive box [a, b].
// Reads outside the box return Air.
func (g *Grid) Snapshot(a, b Vec3i) *Snapshot {
	min, max := orderBox(a, b)
	kmin, _, _, _ := SectionOf(min)
	kmax, _, _, _ := SectionOf(max)

	snap := &Snapshot{
		cat:      g.cat,
		min:      min,
		max:      max,
		sections: map[SectionKey]*Section{},
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	for k, s := range g.sections {
		if k.SX < kmin.SX || k.SX > kmax.SX || k.SY < kmin.SY || k.SY > kmax.SY || k.SZ < kmin.SZ || k.SZ > kmax.SZ {
			continue
		}
		cp := *s
		snap.sections[k] = &cp
	}
	return snap
}

// Snapshot is an immutable point-in-time view of part of a Grid.
type Snapshot struct {
	cat      *Catalog
	min, max Vec3i
	sections map[SectionKey]*Section
}

func (s *Snapshot) Catalog() *Catalog { return s.cat }

func (s *Snapshot) Bounds() (Vec3i, Vec3i) { return s.min, s.max }

func (s *Snapshot) Contains(pos Vec3i) bool {
	return pos.X >= s.min.X && pos.X <= s.max.X &&
		pos.Y >= s.min.Y && pos.Y <= s.max.Y &&
		pos.Z >= s.min.Z && pos.Z <= s.max.Z
}

func (s *Snapshot) Block(pos Vec3i) Block {
	if !s.Contains(pos) {
		return Block{}
	}
	k, lx, ly, lz := SectionOf(pos)
	sec := s.sections[k]
	if sec == nil {
		return Block{}
	}
	return sec.Get(lx, ly, lz)
}

func (s *Snapshot) BlockState(pos Vec3i) BlockState {
	return s.cat.State(s.Block(pos))
}

func orderBox(a, b Vec3i) (Vec3i, Vec3i) {
	return Vec3i{X: MinInt(a.X, b.X), Y: MinInt(a.Y, b.Y), Z: MinInt(a.Z, b.Z)},
		Vec3i{X: MaxInt(a.X, b.X), Y: MaxInt(a.Y, b.Y), Z: MaxInt(a.Z, b.Z)}
}

func sortSectionKeys(keys []SectionKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SY != keys[j].SY {
			return keys[i].SY < keys[j].SY
		}
		if keys[i].SZ != keys[j].SZ {
			return keys[i].SZ < keys[j].SZ
		}
		return keys[i].SX < keys[j].SX
	})
}
