package voxel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Catalog maps block ids to palette indices. Palette index 0 is always AIR.
type Catalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          []*BlockDef // indexed by palette id
	PaletteDigest string
	DefsDigest    string
}

var defaultDefs = []BlockDef{
	{ID: "AIR", Material: MaterialAir},
	{ID: "STONE", Material: MaterialSolid},
	{ID: "DIRT", Material: MaterialSolid},
	{ID: "GRASS", Material: MaterialSolid},
	{ID: "SAND", Material: MaterialSolid},
	{ID: "GRAVEL", Material: MaterialSolid},
	{ID: "PLANK", Material: MaterialSolid},
	{ID: "LOG", Material: MaterialSolid},
	{ID: "LEAVES", Material: MaterialSolid},
	{ID: "GLASS", Material: MaterialSolid},
	{ID: "WATER", Material: MaterialWater},
	{ID: "LAVA", Material: MaterialLava},
	{ID: "TALL_GRASS", Material: MaterialFoliage},
	{ID: "FLOWER", Material: MaterialFoliage},
	{ID: "TORCH", Material: MaterialFixture},
	{ID: "LADDER", Material: MaterialFixture, Kind: KindLadder},
	{ID: "VINE", Material: MaterialFixture, Kind: KindVine},
	{ID: "FENCE", Material: MaterialSolid, Kind: KindFence},
	{ID: "FENCE_GATE", Material: MaterialSolid, Kind: KindFenceGate},
	{ID: "WALL", Material: MaterialSolid, Kind: KindWall},
	{ID: "DOOR", Material: MaterialSolid, Kind: KindDoor},
	{ID: "SCARECROW", Material: MaterialSolid, Kind: KindBarrier},
}

// DefaultCatalog returns the built-in block set.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultDefs)
	if err != nil {
		panic(err)
	}
	return c
}

func NewCatalog(defs []BlockDef) (*Catalog, error) {
	raw, err := json.Marshal(defs)
	if err != nil {
		return nil, err
	}
	return buildCatalog(defs, raw)
}

// LoadCatalog reads a JSON array of block definitions.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	return buildCatalog(defs, raw)
}

func buildCatalog(defs []BlockDef, raw []byte) (*Catalog, error) {
	byID := make(map[string]BlockDef, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("blocks.json: empty id")
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("blocks.json: duplicate id %s", d.ID)
		}
		byID[d.ID] = d
	}
	air, ok := byID["AIR"]
	if !ok {
		return nil, fmt.Errorf("blocks.json: missing AIR")
	}
	if air.Material != MaterialAir {
		return nil, fmt.Errorf("blocks.json: AIR must have material AIR")
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		if id != "AIR" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	// Ensure AIR is palette id 0.
	ids = append([]string{"AIR"}, ids...)
	if len(ids) > 0xFFFF {
		return nil, fmt.Errorf("blocks.json: too many blocks (%d)", len(ids))
	}

	c := &Catalog{
		Palette:    ids,
		Index:      make(map[string]uint16, len(ids)),
		Defs:       make([]*BlockDef, len(ids)),
		DefsDigest: sha256Hex(raw),
	}
	for i, id := range ids {
		d := byID[id]
		c.Index[id] = uint16(i)
		c.Defs[i] = &d
	}
	palJSON, _ := json.Marshal(ids)
	c.PaletteDigest = sha256Hex(palJSON)
	return c, nil
}

func (c *Catalog) Lookup(id string) (uint16, bool) {
	i, ok := c.Index[id]
	return i, ok
}

// MustLookup panics on unknown ids; intended for tests and built-in scenes.
func (c *Catalog) MustLookup(id string) uint16 {
	i, ok := c.Index[id]
	if !ok {
		panic(fmt.Sprintf("unknown block %q", id))
	}
	return i
}

func (c *Catalog) State(b Block) BlockState {
	if int(b.ID) >= len(c.Defs) {
		return Air
	}
	return BlockState{Def: c.Defs[b.ID], Meta: b.Meta}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
