package scene

import (
	"bufio"
	_ "embed"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"voxelnav.ai/internal/voxel"
)

type Format string

const (
	FormatYAML      Format = "yaml"
	FormatJSON      Format = "json"
	FormatSchematic Format = "schem"
)

//go:embed scene.schema.json
var sceneSchemaJSON string

var sceneSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("scene.schema.json", sceneSchemaJSON)
})

// FormatOf derives the format from a file name. A trailing .zst marks
// zstd compression around any format.
func FormatOf(path string) (Format, bool, error) {
	name := strings.ToLower(filepath.Base(path))
	compressed := strings.HasSuffix(name, ".zst")
	name = strings.TrimSuffix(name, ".zst")
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return FormatYAML, compressed, nil
	case ".json":
		return FormatJSON, compressed, nil
	case ".schem":
		return FormatSchematic, compressed, nil
	}
	return "", false, errors.Errorf("unknown scene format: %s", path)
}

// LoadFile reads a scene; cat may be nil for the default catalog.
func LoadFile(path string, cat *voxel.Catalog) (*Scene, error) {
	format, compressed, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReaderSize(f, 64*1024)
	if compressed {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "zstd")
		}
		defer dec.Close()
		r = dec
	}
	s, err := Read(r, format, cat)
	if err != nil {
		return nil, errors.Wrap(err, filepath.Base(path))
	}
	if s.Name == "" {
		s.Name = strings.SplitN(filepath.Base(path), ".", 2)[0]
	}
	return s, nil
}

// SaveFile writes a scene in the format its name implies.
func SaveFile(path string, s *Scene) error {
	format, compressed, err := FormatOf(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 64*1024)
	var w io.Writer = bw
	var enc *zstd.Encoder
	if compressed {
		enc, err = zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return errors.Wrap(err, "zstd")
		}
		w = enc
	}
	if err := Write(w, format, s); err != nil {
		return errors.Wrap(err, filepath.Base(path))
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, "zstd")
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func Read(r io.Reader, format Format, cat *voxel.Catalog) (*Scene, error) {
	switch format {
	case FormatYAML:
		var f File
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "yaml")
		}
		return Build(f, cat)
	case FormatJSON:
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		f, err := decodeJSON(raw)
		if err != nil {
			return nil, err
		}
		return Build(f, cat)
	case FormatSchematic:
		return ReadSchematic(r, cat)
	}
	return nil, errors.Errorf("unsupported format %q", format)
}

func Write(w io.Writer, format Format, s *Scene) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ToFile(s)); err != nil {
			return errors.Wrap(err, "yaml")
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(ToFile(s)), "json")
	case FormatSchematic:
		return WriteSchematic(w, s)
	}
	return errors.Errorf("unsupported format %q", format)
}

func decodeJSON(raw []byte) (File, error) {
	var f File
	schema, err := sceneSchema()
	if err != nil {
		return f, errors.Wrap(err, "scene schema")
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return f, errors.Wrap(err, "json")
	}
	if err := schema.Validate(doc); err != nil {
		return f, errors.Wrap(err, "scene schema")
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return f, errors.Wrap(err, "json")
	}
	return f, nil
}
