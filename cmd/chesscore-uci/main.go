package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/seekerror/logw"

	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/nnue"
	"github.com/hailam/chesscore/internal/storage"
	"github.com/hailam/chesscore/internal/uci"
)

// Default weights blob name looked up next to the binary and in the data
// directory.
const defaultWeights = "chesscore.nnue"

var (
	weightsPath = flag.String("weights", "", "path to the NNUE weights blob (default: auto-discover)")
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
	noStore     = flag.Bool("nostore", false, "disable persisted options/statistics")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: chesscore-uci [options]

chesscore is a UCI chess engine for standard and Chess960 play.
Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx := context.Background()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			logw.Exitf(ctx, "could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logw.Exitf(ctx, "could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	net := loadNetwork(ctx)

	var store *storage.Store
	if !*noStore {
		if dir, err := storage.DatabaseDir(); err == nil {
			if s, err := storage.Open(dir); err == nil {
				store = s
			} else {
				logw.Errorf(ctx, "persistent store unavailable: %v", err)
			}
		}
	}

	opts := storage.DefaultOptions()
	if store != nil {
		if o, err := store.LoadOptions(); err == nil {
			opts = o
		}
	}

	eng := engine.New(ctx, opts.HashMB, net)
	protocol := uci.New(ctx, eng, store)
	protocol.ApplyOptions(opts)
	protocol.Run(os.Stdin)
}

// loadNetwork finds and loads the weights blob. A missing blob falls back
// to deterministic random weights (legal but weak play); a present but
// malformed blob is fatal.
func loadNetwork(ctx context.Context) *nnue.Network {
	if *weightsPath != "" {
		net, err := nnue.LoadWeights(*weightsPath)
		if err != nil {
			logw.Exitf(ctx, "loading weights: %v", err)
		}
		logw.Infof(ctx, "nnue weights loaded from %s", *weightsPath)
		return net
	}

	for _, dir := range weightsSearchDirs() {
		path := filepath.Join(dir, defaultWeights)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		net, err := nnue.LoadWeights(path)
		if err != nil {
			logw.Exitf(ctx, "loading weights from %s: %v", path, err)
		}
		logw.Infof(ctx, "nnue weights loaded from %s", path)
		return net
	}

	logw.Infof(ctx, "no weights blob found, using built-in random weights")
	net := nnue.NewNetwork()
	net.InitRandom(0x5EED)
	return net
}

func weightsSearchDirs() []string {
	dirs := []string{"."}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if dataDir, err := storage.DataDir(); err == nil {
		dirs = append(dirs, dataDir)
	}
	return dirs
}
