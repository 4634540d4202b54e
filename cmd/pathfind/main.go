package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"voxelnav.ai/internal/agent"
	"voxelnav.ai/internal/jobs"
	"voxelnav.ai/internal/pathfinding"
	"voxelnav.ai/internal/persistence/scene"
	"voxelnav.ai/internal/persistence/searchlog"
	"voxelnav.ai/internal/transport/observer"
	"voxelnav.ai/internal/tuning"
	"voxelnav.ai/internal/voxel"
)

func main() {
	var (
		scenePath  = flag.String("scene", "", "scene file (.yaml, .json, .schem, optionally .zst)")
		dbPath     = flag.String("db", "", "sqlite scene store; with -name loads from it")
		sceneName  = flag.String("name", "", "scene name inside -db")
		catalog    = flag.String("catalog", "", "block catalog json (default: built-in)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (empty for defaults)")

		startFlag = flag.String("start", "", "start block x,y,z (default: scene start)")
		fromFlag  = flag.String("from", "", "continuous agent position x,y,z; overrides -start")
		inWater   = flag.Bool("in_water", false, "agent at -from is swimming")
		endFlag   = flag.String("end", "", "end block x,y,z (default: scene end)")
		goalFlag  = flag.String("goal", "move_to", "goal: move_to, move_near or move_away")
		radius    = flag.Float64("radius", 0, "slack for move_to, radius for move_near, distance for move_away")
		maxRange  = flag.Int("range", 0, "override pathfinding.max_range")
		timeout   = flag.Duration("timeout", 30*time.Second, "search timeout")

		observeAddr = flag.String("observe", "", "debug observer listen address, e.g. 127.0.0.1:8091")
		metricsAddr = flag.String("metrics", "", "prometheus listen address, e.g. 127.0.0.1:9090")
		auditDir    = flag.String("audit", "", "directory for hourly search records (jsonl.zst)")
		linger      = flag.Bool("linger", false, "keep the observer and metrics servers up after the search")
		render      = flag.Bool("render", true, "print a top-down map of the path")
		importTo    = flag.String("import", "", "save the loaded scene to this file, or into -db when set to \"db\", and exit")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[pathfind] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune, _ = tuning.Load("")
	}
	if *maxRange > 0 {
		tune.Pathfinding.MaxRange = *maxRange
	}
	if strings.TrimSpace(*observeAddr) != "" {
		tune.Debug.Draw = true
	}

	var cat *voxel.Catalog
	if *catalog != "" {
		if cat, err = voxel.LoadCatalog(*catalog); err != nil {
			logger.Fatalf("load catalog: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := loadScene(ctx, *scenePath, *dbPath, *sceneName, cat)
	if err != nil {
		logger.Fatalf("load scene: %v", err)
	}
	lo, hi, _ := sc.Grid.Bounds()
	logger.Printf("scene %q: %d sections, bounds %s..%s",
		sc.Name, len(sc.Grid.SectionKeys()), lo, hi)

	if *importTo != "" {
		if err := importScene(ctx, sc, *importTo, *dbPath); err != nil {
			logger.Fatalf("import: %v", err)
		}
		logger.Printf("scene %q saved to %s", sc.Name, *importTo)
		return
	}

	start, err := pickPos(*startFlag, sc.Start, "start")
	if err != nil {
		logger.Fatal(err)
	}
	if *fromFlag != "" {
		p, err := parseFloatVec(*fromFlag)
		if err != nil {
			logger.Fatalf("-from: %v", err)
		}
		start = agent.PrepareStart(sc.Grid, p, *inWater)
	}
	end, err := pickPos(*endFlag, sc.End, "end")
	if err != nil {
		logger.Fatal(err)
	}
	goal, err := buildGoal(*goalFlag, end, *radius)
	if err != nil {
		logger.Fatal(err)
	}

	obs := pathfinding.NewDebugObserver()
	if tune.Debug.Draw {
		obs.Enable()
	}

	opts := jobs.Options{
		Workers:     tune.Executor.Workers,
		Queue:       tune.Executor.Queue,
		WorldHeight: tune.Pathfinding.WorldHeight,
		Config:      tune.PathConfig(logger, obs),
		Logger:      logger,
	}
	if *auditDir != "" {
		audit := searchlog.NewLog(*auditDir)
		defer audit.Close()
		opts.Recorder = audit
	}
	exec := jobs.NewExecutor(sc.Grid, opts)
	defer exec.Close()

	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()
	g, gctx := errgroup.WithContext(srvCtx)
	if addr := strings.TrimSpace(*observeAddr); addr != "" {
		obsSrv := observer.NewServer(obs, logger)
		g.Go(func() error { return serve(gctx, addr, obsSrv.Handler(), logger) })
	}
	if addr := strings.TrimSpace(*metricsAddr); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		g.Go(func() error { return serve(gctx, addr, mux, logger) })
	}

	began := time.Now()
	ticket, err := exec.Submit(jobs.Request{Start: start, End: end, Goal: goal})
	if err != nil {
		logger.Fatalf("submit: %v", err)
	}
	logger.Printf("job %s: %s -> %s (%s)", ticket.ID, start, end, *goalFlag)

	waitCtx, cancelWait := context.WithTimeout(ctx, *timeout)
	path, err := ticket.Result.Wait(waitCtx)
	cancelWait()
	if err != nil {
		exec.Cancel(ticket.ID)
		logger.Fatalf("wait: %v", err)
	}

	res := ticket.Result
	visited, added := res.Stats()
	logger.Printf("%s in %s: %d points, reaches=%v, visited %s of %s nodes",
		res.Status(), time.Since(began).Round(time.Microsecond), path.Len(),
		res.PathReachesDestination(), humanize.Comma(int64(visited)), humanize.Comma(int64(added)))

	for i, p := range path.Points() {
		line := fmt.Sprintf("%3d %s", i, p.Pos)
		if p.OnLadder {
			line += " ladder"
			if p.LadderFacing != voxel.FacingNone {
				line += " " + strings.ToLower(p.LadderFacing.String())
			}
		}
		fmt.Println(line)
	}
	if *render && path.Len() > 0 {
		fmt.Print(renderMap(sc.Grid, start, path, os.Stdout))
	}

	if *linger {
		logger.Printf("lingering; interrupt to exit")
		<-ctx.Done()
	}
	srvCancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("server: %v", err)
	}
}

func loadScene(ctx context.Context, path, db, name string, cat *voxel.Catalog) (*scene.Scene, error) {
	if path != "" {
		return scene.LoadFile(path, cat)
	}
	if db == "" || name == "" {
		return nil, errors.New("need -scene or -db with -name")
	}
	st, err := scene.OpenStore(db)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Load(ctx, name, cat)
}

func importScene(ctx context.Context, sc *scene.Scene, target, db string) error {
	if target == "db" {
		if db == "" {
			return errors.New("-import db needs -db")
		}
		st, err := scene.OpenStore(db)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.Save(ctx, sc)
	}
	return scene.SaveFile(target, sc)
}

// serve runs an http server until ctx ends.
func serve(ctx context.Context, addr string, h http.Handler, logger *log.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Printf("listening on %s", ln.Addr())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
