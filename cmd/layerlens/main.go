// layerlens - 3D asset name extraction tool
// Extracts material names from glTF-binary (.glb) files and layer names
// from Rhino (.3dm) model files.
//
// Modes:
//
//	layerlens [options] <file.glb|file.3dm>...   Batch extraction
//	layerlens -serve                             Upload web UI
//	layerlens -watch <dir>                       Watch a drop directory
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mkendall/layerlens/pkg/config"
	"github.com/mkendall/layerlens/pkg/extract"
	"github.com/mkendall/layerlens/pkg/watch"
	"github.com/mkendall/layerlens/pkg/web"
)

var (
	configPath = flag.String("config", "", "Path to TOML config file")
	jsonOut    = flag.Bool("json", false, "Emit the report as JSON")
	tuiMode    = flag.Bool("tui", false, "Browse results in an interactive terminal view")
	serveMode  = flag.Bool("serve", false, "Run the upload web UI")
	watchDir   = flag.String("watch", "", "Watch a directory for new files")
	listenAddr = flag.String("listen", "", "Listen address for -serve (overrides config)")
	numWorkers = flag.Int("workers", 0, "Parallel extraction workers (overrides config)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "layerlens - 3D asset name extraction tool\n\n")
		fmt.Fprintf(os.Stderr, "Usage: layerlens [options] <file.glb|file.3dm>...\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  layerlens chair.glb plan.3dm\n")
		fmt.Fprintf(os.Stderr, "  layerlens -json *.glb > report.json\n")
		fmt.Fprintf(os.Stderr, "  layerlens -serve -listen :8374\n")
		fmt.Fprintf(os.Stderr, "  layerlens -watch ./drops\n")
	}
	flag.Parse()

	if !*serveMode && *watchDir == "" && flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}
	if *numWorkers > 0 {
		cfg.Workers = *numWorkers
	}

	switch {
	case *serveMode:
		return web.NewServer(cfg).ListenAndServe()
	case *watchDir != "":
		return runWatch(cfg, *watchDir)
	}

	files := make([]extract.NamedFile, 0, flag.NArg())
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, extract.NamedFile{Name: filepath.Base(path), Data: data})
	}

	rep := extract.Batch(files, cfg.Workers)

	switch {
	case *jsonOut:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	case *tuiMode:
		if err := runTUI(rep); err != nil {
			return err
		}
	default:
		printReport(rep)
	}

	if rep.Failed == rep.Files && rep.Files > 0 {
		return errors.New("all files failed")
	}
	return nil
}

// printReport writes the human-readable per-file listing and summary.
func printReport(rep *extract.Report) {
	for _, r := range rep.Results {
		if !r.OK() {
			fmt.Printf("%s [%s]: ERROR: %s\n", r.Filename, r.Kind, r.ErrorDetail)
			continue
		}
		fmt.Printf("%s [%s]: %d name(s)\n", r.Filename, r.Kind, len(r.Names))
		for _, n := range r.Names {
			fmt.Printf("  - %s\n", n)
		}
	}
	fmt.Printf("\n%d file(s): %d ok, %d failed, %d unique name(s)\n",
		rep.Files, rep.Succeeded, rep.Failed, len(rep.UniqueNames))
	if len(rep.UniqueNames) > 0 {
		fmt.Printf("Unique names: %s\n", strings.Join(rep.UniqueNames, ", "))
	}
}

// runWatch monitors a directory and prints a result line per arriving file.
func runWatch(cfg config.Config, dir string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	w := watch.New(dir, cfg.Debounce())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	fmt.Fprintf(os.Stderr, "Watching %s for .glb and .3dm files (Ctrl-C to stop)\n", dir)
	for {
		select {
		case res := <-w.Results():
			if !res.OK() {
				fmt.Printf("%s [%s]: ERROR: %s\n", res.Filename, res.Kind, res.ErrorDetail)
				continue
			}
			fmt.Printf("%s [%s]: %s\n", res.Filename, res.Kind, strings.Join(res.Names, ", "))
		case err := <-errc:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}
