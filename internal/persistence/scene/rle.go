package scene

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"

	"github.com/pkg/errors"

	"voxelnav.ai/internal/voxel"
)

func cellOf(b voxel.Block) uint64 { return uint64(b.ID)<<8 | uint64(b.Meta) }

func blockOf(c uint64) voxel.Block { return voxel.Block{ID: uint16(c >> 8), Meta: uint8(c)} }

// encodeSection writes (cell, run_len) uvarint pairs in section order,
// where cell = id<<8 | meta.
func encodeSection(s *voxel.Section) []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	cells := s.Blocks[:]
	i := 0
	for i < len(cells) {
		b := cells[i]
		run := 1
		for j := i + 1; j < len(cells) && cells[j] == b; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], cellOf(b))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}
	return buf.Bytes()
}

func decodeSection(raw []byte) (*voxel.Section, error) {
	sec := &voxel.Section{}
	pos := 0
	for i := 0; i < len(raw); {
		c, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, errors.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, errors.Errorf("bad varint at %d", i)
		}
		i += n
		if c > 0xFFFFFF {
			return nil, errors.Errorf("cell too large: %d", c)
		}
		if run > uint64(len(sec.Blocks)-pos) {
			return nil, errors.Errorf("run of %d overflows section at %d", run, pos)
		}
		b := blockOf(c)
		for k := 0; k < int(run); k++ {
			sec.Blocks[pos] = b
			pos++
		}
	}
	if pos != len(sec.Blocks) {
		return nil, errors.Errorf("section has %d cells, want %d", pos, len(sec.Blocks))
	}
	return sec, nil
}

func encodeSectionString(s *voxel.Section) string {
	return base64.StdEncoding.EncodeToString(encodeSection(s))
}

func decodeSectionString(b64 string) (*voxel.Section, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, errors.Wrap(err, "base64")
	}
	return decodeSection(raw)
}
