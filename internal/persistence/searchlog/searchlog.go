// Package searchlog appends finished searches to hourly zstd-compressed JSONL files.
package searchlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelnav.ai/internal/jobs"
)

// Writer rotates to a new <prefix>-YYYY-MM-DD-HH.jsonl.zst file each UTC hour.
type Writer struct {
	dir    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	hour string
	f    *os.File
	enc  *zstd.Encoder
	w    *bufio.Writer
}

func NewWriter(dir, prefix string) *Writer {
	return &Writer{dir: dir, prefix: prefix, now: time.Now}
}

// Append writes v as one line and flushes it through to the zstd frame.
func (w *Writer) Append(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if hour := hourOf(w.now()); hour != w.hour {
		if err := w.rotate(hour); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(append(b, '\n')); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeFile()
}

func hourOf(t time.Time) string { return t.UTC().Format("2006-01-02-15") }

// Path is the file lines for the given time go to.
func (w *Writer) Path(t time.Time) string { return w.fileFor(hourOf(t)) }

func (w *Writer) fileFor(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

func (w *Writer) rotate(hour string) error {
	if err := w.closeFile(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.fileFor(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc, w.w = f, enc, bufio.NewWriterSize(enc, 64*1024)
	w.hour = hour
	return nil
}

func (w *Writer) closeFile() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
	}
	w.f, w.enc, w.w = nil, nil, nil
	w.hour = ""
	return err
}

// Log is a jobs.Recorder backed by a Writer under <dir>/searches.
type Log struct{ w *Writer }

func NewLog(dir string) *Log {
	return &Log{w: NewWriter(filepath.Join(dir, "searches"), "searches")}
}

func (l *Log) Record(r jobs.Record) error { return l.w.Append(r) }
func (l *Log) Close() error               { return l.w.Close() }

var _ jobs.Recorder = (*Log)(nil)
