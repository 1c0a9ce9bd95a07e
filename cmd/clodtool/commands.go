package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/meshforge/clodmesh/internal/config"
	"github.com/meshforge/clodmesh/internal/logger"
	"github.com/meshforge/clodmesh/pkg/clod"
	"github.com/meshforge/clodmesh/pkg/formats"
	"github.com/meshforge/clodmesh/pkg/polyline"
)

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
)

func fail(format string, args ...any) {
	fmt.Fprintln(os.Stderr, failure(fmt.Sprintf(format, args...)))
	os.Exit(1)
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: clodtool info <file.obj|file.clod>")
		os.Exit(1)
	}

	path := fs.Arg(0)
	if strings.EqualFold(filepath.Ext(path), ".clod") {
		set, err := formats.ReadCLODFile(path)
		if err != nil {
			fail("Error: %v", err)
		}
		printCLODInfo(path, set)
		return
	}

	mesh, err := formats.ParseOBJFile(path)
	if err != nil {
		fail("Error: %v", err)
	}
	printMeshInfo(path, mesh)
}

func printMeshInfo(path string, mesh *formats.Mesh) {
	min, max := mesh.Bounds()
	fmt.Println(heading("Mesh " + path))
	fmt.Printf("Vertices:   %d\n", len(mesh.Positions))
	fmt.Printf("Triangles:  %d\n", mesh.NumTriangles())
	fmt.Printf("Bounds:     (%.3f, %.3f, %.3f) .. (%.3f, %.3f, %.3f)\n",
		min.X, min.Y, min.Z, max.X, max.Y, max.Z)
}

func printCLODInfo(path string, set *formats.CLOD) {
	mesh := set.Mesh()
	min, max := mesh.Bounds()
	fmt.Println(heading("LOD set " + path))
	fmt.Printf("Codec:      %s\n", set.Codec)
	fmt.Printf("Vertices:   %d\n", len(set.Positions))
	fmt.Printf("Triangles:  %d\n", mesh.NumTriangles())
	fmt.Printf("Records:    %d\n", len(set.Records))
	if n := len(set.Records); n > 0 {
		coarsest := set.Records[n-1]
		fmt.Printf("Coarsest:   %d vertices, %d triangles\n",
			coarsest.NumVertices, coarsest.NumTriangles)
	}
	fmt.Printf("Bounds:     (%.3f, %.3f, %.3f) .. (%.3f, %.3f, %.3f)\n",
		min.X, min.Y, min.Z, max.X, max.Y, max.Z)
}

type simplifyResult struct {
	in, out     string
	vertices    int
	triangles   int
	records     int
	coarseVerts int32
	coarseTris  int32
	err         error
}

func cmdSimplify(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("simplify", flag.ExitOnError)
	outDir := fs.String("out-dir", ".", "Output directory for .clod files")
	compression := fs.String("compression", cfg.Output.Compression, "Payload compression: none, lz4 or zstd")
	lengthWeight := fs.Float64("length-weight", cfg.Simplify.LengthWeight, "Edge length cost weight")
	angleWeight := fs.Float64("angle-weight", cfg.Simplify.AngleWeight, "Normal deviation cost weight")
	jobs := fs.Int("jobs", runtime.NumCPU(), "Max meshes simplified concurrently")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: clodtool simplify <in.obj...> [-out-dir dir] [-compression c]")
		os.Exit(1)
	}

	codec, err := formats.ParseCodec(*compression)
	if err != nil {
		fail("Error: %v", err)
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fail("Error: %v", err)
	}

	inputs := fs.Args()
	results := make([]simplifyResult, len(inputs))

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(*jobs)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			results[i] = simplifyOne(in, *outDir, codec, *lengthWeight, *angleWeight)
			return results[i].err
		})
	}
	batchErr := g.Wait()

	for _, res := range results {
		if res.err != nil {
			fmt.Printf("%s  %s: %v\n", failure("FAIL"), res.in, res.err)
			continue
		}
		reduction := 0.0
		if res.triangles > 0 {
			reduction = 100 * (1 - float64(res.coarseTris)/float64(res.triangles))
		}
		fmt.Printf("%s    %s -> %s\n", success("OK"), res.in, res.out)
		fmt.Printf("      %d vertices, %d triangles, %d records (coarsest %d/%d, -%.1f%%)\n",
			res.vertices, res.triangles, res.records, res.coarseVerts, res.coarseTris, reduction)
	}
	if batchErr != nil {
		os.Exit(1)
	}
}

func simplifyOne(in, outDir string, codec formats.Codec, lengthWeight, angleWeight float64) simplifyResult {
	mesh, err := formats.ParseOBJFile(in)
	if err != nil {
		return simplifyResult{in: in, err: err}
	}

	atoms := make([]clod.Point, len(mesh.Positions))
	for i, p := range mesh.Positions {
		atoms[i] = clod.Point(p)
	}

	creator := clod.New[clod.Point](func(o *clod.Options) {
		o.LengthWeight = lengthWeight
		o.AngleWeight = angleWeight
		o.Logger = logger.Log
	})
	res, err := creator.Create(atoms, mesh.Indices)
	if err != nil {
		return simplifyResult{in: in, err: err}
	}

	positions := make([]r3.Vec, len(res.Vertices))
	for i, v := range res.Vertices {
		positions[i] = v.Position()
	}
	set := &formats.CLOD{Positions: positions, Indices: res.Indices, Records: res.Records}

	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	out := filepath.Join(outDir, base+".clod")
	if err := formats.WriteCLODFile(out, set, codec); err != nil {
		return simplifyResult{in: in, err: err}
	}

	sr := simplifyResult{
		in:        in,
		out:       out,
		vertices:  len(positions),
		triangles: len(res.Indices) / 3,
		records:   len(res.Records),
	}
	if n := len(res.Records); n > 0 {
		sr.coarseVerts = res.Records[n-1].NumVertices
		sr.coarseTris = res.Records[n-1].NumTriangles
	} else {
		sr.coarseVerts = int32(sr.vertices)
		sr.coarseTris = int32(sr.triangles)
	}
	return sr
}

func cmdLOD(args []string) {
	fs := flag.NewFlagSet("lod", flag.ExitOnError)
	record := fs.Int("record", -1, "Target collapse record")
	out := fs.String("out", "", "Write the truncated mesh as OBJ")
	fs.Parse(args)

	if fs.NArg() < 1 || *record < 0 {
		fmt.Fprintln(os.Stderr, "Usage: clodtool lod <file.clod> -record K [-out out.obj]")
		os.Exit(1)
	}

	set, err := formats.ReadCLODFile(fs.Arg(0))
	if err != nil {
		fail("Error: %v", err)
	}
	walker, err := set.Walker()
	if err != nil {
		fail("Error: %v", err)
	}
	walker.SetTargetRecord(*record)

	fmt.Println(heading(fmt.Sprintf("Record %d of %d", walker.TargetRecord(), walker.NumRecords()-1)))
	fmt.Printf("Vertices:   %d\n", walker.NumVertices())
	fmt.Printf("Triangles:  %d\n", walker.NumTriangles())

	if *out == "" {
		return
	}

	truncated := &formats.Mesh{
		Positions: set.Positions[:walker.NumVertices()],
		Indices:   walker.LiveIndices(),
	}
	if err := formats.WriteOBJFile(*out, truncated); err != nil {
		fail("Error: %v", err)
	}
	fmt.Println(success("Wrote " + *out))
}

func cmdPolyline(args []string) {
	fs := flag.NewFlagSet("polyline", flag.ExitOnError)
	n := fs.Int("n", 8, "Number of vertices")
	closed := fs.Bool("closed", false, "Wrap the polyline around")
	lod := fs.Int("lod", -1, "Target vertex count (default: walk every level)")
	fs.Parse(args)

	if *n < 2 {
		fail("Error: need at least 2 vertices, got %d", *n)
	}

	pts := make([]r3.Vec, *n)
	if *closed {
		for i := range pts {
			a := 2 * math.Pi * float64(i) / float64(*n)
			r := 1 + 0.2*math.Sin(3*a)
			pts[i] = r3.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
		}
	} else {
		for i := range pts {
			x := float64(i) / float64(*n-1)
			pts[i] = r3.Vec{X: x, Y: math.Sin(2 * math.Pi * x)}
		}
	}

	p, err := polyline.New(pts, *closed)
	if err != nil {
		fail("Error: %v", err)
	}

	if *lod < 0 {
		for k := p.MaxLevelOfDetail(); k >= p.MinLevelOfDetail(); k-- {
			p.SetLevelOfDetail(k)
			fmt.Printf("LOD %3d: %d edges\n", k, p.NumEdges())
		}
	} else {
		p.SetLevelOfDetail(*lod)
	}

	fmt.Println(heading(fmt.Sprintf("Polyline %d -> %d vertices (closed=%t)",
		*n, p.LevelOfDetail(), p.Closed())))
	printChain(p)
}

func printChain(p *polyline.Polyline) {
	edges := p.Edges()
	verts := p.Vertices()
	for i := 0; i+1 < len(edges); i += 2 {
		a, b := edges[i], edges[i+1]
		fmt.Printf("  %3d (%7.3f, %7.3f) -- %3d (%7.3f, %7.3f)\n",
			a, verts[a].X, verts[a].Y, b, verts[b].X, verts[b].Y)
	}
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	out := fs.String("out", "", "Write to this path instead of the user config directory")
	fs.Parse(args)

	cfg := config.Default()
	if *out != "" {
		if err := cfg.SaveTo(*out); err != nil {
			fail("Error: %v", err)
		}
		fmt.Println(success("Wrote " + *out))
		return
	}

	path, err := cfg.Save()
	if err != nil {
		fail("Error: %v", err)
	}
	fmt.Println(success("Wrote " + path))
}
