// clodtool builds and inspects continuous level-of-detail meshes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/meshforge/clodmesh/internal/config"
	"github.com/meshforge/clodmesh/internal/logger"
)

func main() {
	// Global flags (-config, -debug) come before the subcommand.
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitWithFileConfig(cfg.Logging.Level, logger.FileConfig{
		Path:       cfg.Logging.LogFile,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}, true); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	rest := args[1:]
	logger.Sugar.Debugf("command %s, config %+v", command, cfg)

	switch command {
	case "info":
		cmdInfo(rest)
	case "gen":
		cmdGen(rest)
	case "simplify":
		cmdSimplify(cfg, rest)
	case "lod":
		cmdLOD(rest)
	case "polyline":
		cmdPolyline(rest)
	case "config":
		cmdConfig(rest)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`clodtool - continuous level-of-detail mesh utility

Usage:
  clodtool [-config path] [-debug] <command> [options]

Commands:
  info <file.obj|file.clod>               Show mesh or LOD set information
  gen -out <mesh.obj> [-width N] [-height M]
                                          Generate a heightfield test mesh
  simplify <in.obj...> [-out-dir dir]     Build .clod LOD sets from meshes
  lod <file.clod> -record K [-out o.obj]  Extract one level of detail
  polyline -n N [-closed] [-lod K]        Polyline reduction demo
  config [-out path]                      Write the default config file

Examples:
  clodtool gen -width 64 -height 64 -out terrain.obj
  clodtool simplify terrain.obj -out-dir ./lod -compression zstd
  clodtool info lod/terrain.clod
  clodtool lod lod/terrain.clod -record 500 -out coarse.obj`)
}
