// drstool is a CLI utility for working with Battleforge DRS model files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/battleforge-drs/internal/config"
	"github.com/Faultbox/battleforge-drs/pkg/encoding"
	"github.com/Faultbox/battleforge-drs/internal/logger"
	"github.com/Faultbox/battleforge-drs/pkg/drs"
	"github.com/Faultbox/battleforge-drs/pkg/obb"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "validate", "check":
		cmdValidate(args)
	case "roundtrip":
		cmdRoundtrip(args)
	case "rebuild-obb":
		cmdRebuildOBB(args)
	case "batch":
		cmdBatch(args)
	case "init-config":
		cmdInitConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`drstool - Battleforge DRS model file utility

Usage:
  drstool <command> [options]

Commands:
  info <file.drs>              Show container structure and block summary
  validate <file.drs>          Run cross-reference validation
  roundtrip <file.drs> [out]   Decode and re-encode, checking byte fidelity
  rebuild-obb <file.drs> <out> Refit the collision OBB tree from the mesh
  batch [dir...]               Validate every model under the given paths
  init-config [-o path]        Write a default config.yaml

Examples:
  drstool info buildings/tower.drs
  drstool validate -strict units/skeleton_horde.drs
  drstool roundtrip units/skeleton_horde.drs /tmp/out.drs
  drstool rebuild-obb -leaf-threshold 16 tower.drs tower_fixed.drs
  drstool batch -workers 8 ./models`)
}

func readFile(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return data
}

func decodeFile(path string, tolerant bool) *drs.File {
	data := readFile(path)
	if tolerant {
		f, warnings, err := drs.DecodeTolerant(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		return f
	}
	f, err := drs.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return f
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	tolerant := fs.Bool("tolerant", false, "Keep malformed blocks as raw payloads")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: drstool info <file.drs>")
		os.Exit(1)
	}

	f := decodeFile(fs.Arg(0), *tolerant)

	fmt.Printf("File:      %s\n", fs.Arg(0))
	fmt.Printf("Models:    %d\n", f.ModelCount)
	fmt.Printf("Blocks:    %d\n", len(f.Infos))
	if f.Archetype != "" {
		fmt.Printf("Archetype: %s\n", f.Archetype)
	} else {
		fmt.Printf("Archetype: (none matched)\n")
	}
	fmt.Println()
	for i := range f.Infos {
		ni := &f.Infos[i]
		fmt.Printf("  %-24s magic %12d  offset %8d  size %8d\n",
			ni.TypeName(), ni.Magic, ni.Offset, ni.Size)
	}

	if mesh := f.GeoMesh(); mesh != nil {
		fmt.Printf("\nGeometry:  %d vertices, %d faces\n", len(mesh.Vertices), len(mesh.Faces))
	}
	if skeleton := f.Skeleton(); skeleton != nil {
		fmt.Printf("Skeleton:  %d bones\n", len(skeleton.Bones))
	}
	if tree := f.OBBTree(); tree != nil {
		leaves := 0
		for i := range tree.Nodes {
			if tree.Nodes[i].IsLeaf() {
				leaves++
			}
		}
		fmt.Printf("OBB tree:  %d nodes (%d leaves), %d faces\n",
			len(tree.Nodes), leaves, len(tree.Faces))
	}
	if list := f.LocatorList(); list != nil {
		fmt.Printf("Locators:  %d\n", len(list.Locators))
	}
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	strict := fs.Bool("strict", false, "Exit non-zero on any finding, not just errors")
	tolerant := fs.Bool("tolerant", false, "Keep malformed blocks as raw payloads")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: drstool validate <file.drs>")
		os.Exit(1)
	}

	f := decodeFile(fs.Arg(0), *tolerant)
	report := drs.Validate(f)

	for _, finding := range report.Findings {
		fmt.Println(finding)
	}
	if len(report.Findings) == 0 {
		fmt.Println("ok: no findings")
		return
	}
	if report.Fatal() || *strict {
		os.Exit(1)
	}
}

func cmdRoundtrip(args []string) {
	fs := flag.NewFlagSet("roundtrip", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: drstool roundtrip <file.drs> [output.drs]")
		os.Exit(1)
	}

	data := readFile(fs.Arg(0))
	f, err := drs.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	encoded, err := f.Encode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding: %v\n", err)
		os.Exit(1)
	}

	if fs.NArg() > 1 {
		if err := os.WriteFile(fs.Arg(1), encoded, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote: %s (%d bytes)\n", fs.Arg(1), len(encoded))
	}

	// Re-encoding may legitimately reorder payloads, so fidelity is judged
	// on the decoded structure, not raw bytes.
	if _, err := drs.Decode(encoded); err != nil {
		fmt.Fprintf(os.Stderr, "Re-decode failed: %v\n", err)
		os.Exit(1)
	}
	if len(encoded) == len(data) {
		fmt.Printf("ok: %d bytes in, %d bytes out\n", len(data), len(encoded))
	} else {
		fmt.Printf("ok: re-encoded %d -> %d bytes (payload order normalized)\n",
			len(data), len(encoded))
	}
}

func cmdRebuildOBB(args []string) {
	fs := flag.NewFlagSet("rebuild-obb", flag.ExitOnError)
	threshold := fs.Int("leaf-threshold", obb.DefaultLeafThreshold, "Max triangles per leaf")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: drstool rebuild-obb <file.drs> <output.drs>")
		os.Exit(1)
	}

	f := decodeFile(fs.Arg(0), false)
	mesh := f.GeoMesh()
	if mesh == nil {
		fmt.Fprintln(os.Stderr, "Error: file has no CGeoMesh block")
		os.Exit(1)
	}

	tree, err := obb.Build(mesh.Vertices, mesh.Faces, obb.Options{LeafThreshold: *threshold})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building OBB tree: %v\n", err)
		os.Exit(1)
	}
	if err := f.SetBlock(tree); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	encoded, err := f.Encode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(fs.Arg(1), encoded, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Rebuilt OBB tree: %d nodes over %d faces -> %s\n",
		len(tree.Nodes), len(tree.Faces), fs.Arg(1))
}

func cmdInitConfig(args []string) {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	out := fs.String("o", "", "Write to this path instead of the user config directory")
	fs.Parse(args)

	cfg := config.Default()
	path := filepath.Join(config.ConfigDir(), "config.yaml")
	var err error
	if *out != "" {
		path = *out
		err = cfg.SaveTo(path)
	} else {
		err = cfg.Save()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote: %s\n", path)
}

// modelExtensions are the container suffixes scanned in batch mode. BMS and
// BMG archives share the DRS node-table layout. Paths are normalized first
// since game data references mix case and slash direction.
var modelExtensions = map[string]bool{
	".drs": true,
	".bms": true,
	".bmg": true,
}

func isModelFile(path string) bool {
	return modelExtensions[filepath.Ext(encoding.NormalizeModelPath(path))]
}

func cmdBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	workers := fs.Int("workers", 0, "Concurrent files (0 = from config)")
	strict := fs.Bool("strict", false, "Exit non-zero when any file has findings")
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	paths := cfg.Batch.Paths
	if fs.NArg() > 0 {
		paths = fs.Args()
	}
	workerCount := cfg.Batch.Workers
	if *workers > 0 {
		workerCount = *workers
	}
	if workerCount < 1 {
		workerCount = 1
	}
	strictMode := *strict || cfg.Validate.Strict

	var files []string
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isModelFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			logger.Error("walking path", zap.String("path", root), zap.Error(err))
		}
	}
	if len(files) == 0 {
		logger.Warn("no model files found", zap.Strings("paths", paths))
		return
	}
	logger.Info("batch start",
		zap.Int("files", len(files)),
		zap.Int("workers", workerCount))

	// Files are independent, so they decode in parallel; each worker owns
	// its file's bytes and only the counters are shared.
	type result struct {
		failed   int
		findings int
	}
	jobs := make(chan string)
	results := make(chan result, workerCount)
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var r result
			for path := range jobs {
				r.findings += checkOne(path, cfg.Validate.Tolerant, &r.failed)
			}
			results <- r
		}()
	}
	for _, path := range files {
		jobs <- path
	}
	close(jobs)
	wg.Wait()
	close(results)

	failed, findings := 0, 0
	for r := range results {
		failed += r.failed
		findings += r.findings
	}
	logger.Info("batch done",
		zap.Int("files", len(files)),
		zap.Int("failed", failed),
		zap.Int("findings", findings))
	if failed > 0 || (strictMode && findings > 0) {
		os.Exit(1)
	}
}

// checkOne decodes and validates one file, returning its finding count and
// incrementing failed on decode failure.
func checkOne(path string, tolerant bool, failed *int) int {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read failed", zap.String("file", path), zap.Error(err))
		*failed++
		return 0
	}

	var f *drs.File
	if tolerant {
		var warnings []drs.DecodeWarning
		f, warnings, err = drs.DecodeTolerant(data)
		for _, w := range warnings {
			logger.Warn("tolerated block",
				zap.String("file", path),
				zap.String("block", w.TypeName),
				zap.Error(w.Err))
		}
	} else {
		f, err = drs.Decode(data)
	}
	if err != nil {
		logger.Error("decode failed", zap.String("file", path), zap.Error(err))
		*failed++
		return 0
	}

	report := drs.Validate(f)
	for _, finding := range report.Findings {
		if finding.Severity == drs.SeverityError {
			logger.Error("validation",
				zap.String("file", path),
				zap.String("block", finding.Block),
				zap.String("finding", finding.Message))
		} else {
			logger.Warn("validation",
				zap.String("file", path),
				zap.String("block", finding.Block),
				zap.String("finding", finding.Message))
		}
	}
	logger.Debug("checked",
		zap.String("file", path),
		zap.Int("blocks", len(f.Infos)),
		zap.Int("findings", len(report.Findings)))
	return len(report.Findings)
}
