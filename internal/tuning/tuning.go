package tuning

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"voxelnav.ai/internal/pathfinding"
)

type Tuning struct {
	Pathfinding Pathfinding `yaml:"pathfinding"`
	Debug       Debug       `yaml:"debug"`
	Executor    Executor    `yaml:"executor"`
}

type Pathfinding struct {
	MaxRange        int  `yaml:"max_range"`
	MinY            int  `yaml:"min_y"`
	WorldHeight     int  `yaml:"world_height"`
	AllowSwimming   bool `yaml:"allow_swimming"`
	PruneReverse    bool `yaml:"prune_reverse"`
	JumpPointSearch bool `yaml:"jump_point_search"`
	JumpPointLimit  int  `yaml:"jump_point_limit"`
}

type Debug struct {
	Draw      bool   `yaml:"draw"`
	SleepMs   int    `yaml:"sleep_ms"`
	Verbosity string `yaml:"verbosity"`
}

type Executor struct {
	Workers int `yaml:"workers"`
	// Queue bounds how many submitted jobs may wait for a worker.
	Queue int `yaml:"queue"`
}

// Defaults mirrors pathfinding.DefaultConfig plus executor sizing.
func Defaults() Tuning {
	pc := pathfinding.DefaultConfig()
	return Tuning{
		Pathfinding: Pathfinding{
			MaxRange:        pc.MaxRange,
			MinY:            pc.MinY,
			WorldHeight:     256,
			AllowSwimming:   pc.AllowSwimming,
			PruneReverse:    pc.PruneReverse,
			JumpPointSearch: pc.JumpPointSearch,
			JumpPointLimit:  pc.JumpPointLimit,
		},
		Debug:    Debug{Verbosity: "none"},
		Executor: Executor{Workers: 2, Queue: 64},
	}
}

// Load reads a tuning file over the defaults. An empty path yields the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		t.Normalize()
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	if t == nil {
		return
	}
	t.Debug.Verbosity = strings.ToLower(strings.TrimSpace(t.Debug.Verbosity))
	if t.Debug.Verbosity == "" {
		t.Debug.Verbosity = "none"
	}
	if t.Pathfinding.JumpPointLimit <= 0 {
		t.Pathfinding.JumpPointLimit = pathfinding.DefaultConfig().JumpPointLimit
	}
	if t.Executor.Workers <= 0 {
		t.Executor.Workers = 1
	}
}

func (t Tuning) Validate() error {
	if t.Pathfinding.MaxRange <= 0 {
		return fmt.Errorf("pathfinding.max_range must be > 0")
	}
	if t.Pathfinding.WorldHeight <= 0 {
		return fmt.Errorf("pathfinding.world_height must be > 0")
	}
	if t.Debug.SleepMs < 0 {
		return fmt.Errorf("debug.sleep_ms must be >= 0")
	}
	if _, err := ParseVerbosity(t.Debug.Verbosity); err != nil {
		return err
	}
	if t.Executor.Queue < 0 {
		return fmt.Errorf("executor.queue must be >= 0")
	}
	return nil
}

func ParseVerbosity(s string) (pathfinding.Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return pathfinding.VerbosityNone, nil
	case "basic":
		return pathfinding.VerbosityBasic, nil
	case "full":
		return pathfinding.VerbosityFull, nil
	}
	return pathfinding.VerbosityNone, fmt.Errorf("debug.verbosity %q: want none, basic or full", s)
}

// PathConfig builds a search config. The observer is only attached when
// debug drawing is on; logger may be nil.
func (t Tuning) PathConfig(logger *log.Logger, obs *pathfinding.DebugObserver) pathfinding.Config {
	v, _ := ParseVerbosity(t.Debug.Verbosity)
	cfg := pathfinding.Config{
		MaxRange:        t.Pathfinding.MaxRange,
		MinY:            t.Pathfinding.MinY,
		AllowSwimming:   t.Pathfinding.AllowSwimming,
		PruneReverse:    t.Pathfinding.PruneReverse,
		JumpPointSearch: t.Pathfinding.JumpPointSearch,
		JumpPointLimit:  t.Pathfinding.JumpPointLimit,
		Verbosity:       v,
		Logger:          logger,
	}
	if t.Debug.Draw && obs != nil {
		cfg.Observer = obs
		cfg.DebugSleep = time.Duration(t.Debug.SleepMs) * time.Millisecond
	}
	return cfg
}
