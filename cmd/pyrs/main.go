package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pyrs-lang/pyrs/internal/cargo"
	"github.com/pyrs-lang/pyrs/internal/config"
	"github.com/pyrs-lang/pyrs/internal/driver"
)

// pyrs transpiles Python source files to Rust.
// Flags:
//
//	-config  path to the policy file (pyrs.yaml); optional.
//	-o       output directory for .rs files (overrides policy).
//	-cargo   also write a Cargo.toml per transpiled file.
//	-stdin   read one module from stdin, write Rust to stdout.
//	-watch   stay running and re-transpile inputs on change.
func main() {
	var (
		configPath string
		outDir     string
		emitCargo  bool
		fromStdin  bool
		watch      bool
	)
	flag.StringVar(&configPath, "config", "", "path to policy file")
	flag.StringVar(&outDir, "o", "", "output directory")
	flag.BoolVar(&emitCargo, "cargo", false, "write Cargo.toml alongside output")
	flag.BoolVar(&fromStdin, "stdin", false, "read from stdin, write to stdout")
	flag.BoolVar(&watch, "watch", false, "re-transpile inputs on change")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if outDir != "" {
		cfg.Project.OutDir = outDir
	}

	d := driver.New(cfg)
	ctx := context.Background()

	if fromStdin {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal(err)
		}
		res, err := d.TranspileFile(ctx, "<stdin>.py", src)
		if err != nil {
			log.Fatal(err)
		}
		reportDiagnostics(res)
		if !res.Published {
			os.Exit(1)
		}
		fmt.Print(res.Rust)
		return
	}

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: pyrs [flags] file.py ...")
		os.Exit(2)
	}

	if ok := transpilePaths(ctx, d, cfg, paths, emitCargo); !ok && !watch {
		os.Exit(1)
	}
	if watch {
		if err := watchLoop(ctx, d, cfg, paths, emitCargo); err != nil {
			log.Fatal(err)
		}
	}
}

// transpilePaths runs one batch and writes published output. It returns
// false when any file failed or was withheld.
func transpilePaths(ctx context.Context, d *driver.Driver, cfg *config.Config, paths []string, emitCargo bool) bool {
	inputs := make([]driver.Input, 0, len(paths))
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return false
		}
		inputs = append(inputs, driver.Input{Path: p, Source: src})
	}

	results, err := d.TranspileAll(ctx, inputs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return false
	}

	ok := true
	for _, res := range results {
		reportDiagnostics(res)
		if !res.Published {
			ok = false
			continue
		}
		rsPath := filepath.Join(cfg.Project.OutDir, res.ModuleName+".rs")
		if err := os.WriteFile(rsPath, []byte(res.Rust), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			ok = false
			continue
		}
		fmt.Printf("%s -> %s\n", res.Path, rsPath)

		if emitCargo {
			pkg := cfg.Cargo.Package
			if pkg == "" {
				pkg = res.ModuleName
			}
			manifest := cargo.Generate(pkg, cfg.Cargo.Edition, res.ModuleName+".rs", res.Needs)
			tomlPath := filepath.Join(cfg.Project.OutDir, "Cargo.toml")
			if err := os.WriteFile(tomlPath, []byte(manifest), 0o644); err != nil {
				fmt.Fprintln(os.Stderr, err)
				ok = false
			}
		}
	}
	return ok
}

func reportDiagnostics(res *driver.Result) {
	for _, dg := range res.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s: %s\n", res.Path, dg.String())
	}
}

// watchLoop re-transpiles whenever a watched file changes. Bursts of
// events within the debounce window collapse into one run.
func watchLoop(ctx context.Context, d *driver.Driver, cfg *config.Config, paths []string, emitCargo bool) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	// Watch directories, not files: editors replace files on save and
	// a file watch dies with the old inode.
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return err
		}
	}

	debounce := time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond
	var timer *time.Timer
	runs := make(chan struct{}, 1)

	log.Printf("watching %d file(s)", len(watched))
	for {
		select {
		case ev, open := <-w.Events:
			if !open {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !watched[abs] {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case runs <- struct{}{}:
				default:
				}
			})
		case <-runs:
			transpilePaths(ctx, d, cfg, paths, emitCargo)
		case err, open := <-w.Errors:
			if !open {
				return nil
			}
			log.Printf("watch error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
