// niftool is a CLI utility for inspecting and converting NIF models.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dankdonk/openmw-sub003/internal/assets"
	"github.com/dankdonk/openmw-sub003/internal/config"
	"github.com/dankdonk/openmw-sub003/internal/engine/model"
	"github.com/dankdonk/openmw-sub003/internal/engine/physics"
	"github.com/dankdonk/openmw-sub003/internal/export"
	"github.com/dankdonk/openmw-sub003/internal/logger"
	"github.com/dankdonk/openmw-sub003/pkg/bsa"
	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		cmdInfo(cfg, args)
	case "blocks":
		cmdBlocks(cfg, args)
	case "tree":
		cmdTree(cfg, args)
	case "bones":
		cmdBones(cfg, args)
	case "meshes":
		cmdMeshes(cfg, args)
	case "clips":
		cmdClips(cfg, args)
	case "collision":
		cmdCollision(cfg, args)
	case "export":
		cmdExport(cfg, args)
	case "bsa-list":
		cmdBSAList(args)
	case "bsa-extract":
		cmdBSAExtract(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`niftool - NIF model utility

Usage:
  niftool [-config file] [-data dir] [-bsa archive] [-debug] <command> [options]

Commands:
  info <model>                      Show header information
  blocks <model>                    List records with their types and names
  tree <model>                      Print the scene graph
  bones <model>                     Print the skeleton
  meshes <model>                    List meshes, sub-meshes and materials
  clips <model>                     List animation clips
  collision <model>                 List collision bodies and constraints
  export [-morph m] <model> <out>   Convert to .gltf or .glb
  bsa-list <file.bsa> [pattern]     List archive contents
  bsa-extract <file.bsa> <path> [output]
                                    Extract file(s) to directory

Models are looked up in the configured data directories and archives; a
path to an existing file is also accepted.

Examples:
  niftool -data "Data Files" tree meshes/base_anim.nif
  niftool export meshes/c/crate01.nif crate.glb
  niftool bsa-list "Oblivion - Meshes.bsa" "*.nif"`)
}

func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

// newManager builds the file manager from cfg. A name that exists on disk
// adds its directory as the highest priority source.
func newManager(cfg *config.Config, name string) (*assets.Manager, string) {
	m := assets.NewManager(logger.Named("assets"))
	m.SetCaching(cfg.Cache.Enabled)
	for _, path := range cfg.Data.Archives {
		if err := m.AddArchive(path, ""); err != nil {
			logger.Warn("skipping archive", zap.String("path", path), zap.Error(err))
		}
	}
	for _, dir := range cfg.Data.Dirs {
		if _, err := os.Stat(dir); err == nil {
			m.AddDir(dir, "")
		}
	}
	if _, err := os.Stat(name); err == nil {
		m.AddDir(filepath.Dir(name), "")
		name = filepath.Base(name)
	}
	return m, name
}

func modelCache(cfg *config.Config, m *assets.Manager) *assets.ModelCache {
	return assets.NewModelCache(m, assets.ModelOptions{
		SkeletonRoots:        cfg.Model.SkeletonRoots,
		IncludeHidden:        cfg.Model.IncludeHidden,
		IncludeEditorMarkers: cfg.Model.IncludeEditorMarker,
		SkinTexture:          cfg.Model.SkinTexture,
		Log:                  logger.Named("models"),
	})
}

func modelArg(args []string, usage string) string {
	if len(args) < 1 {
		fail("Usage: niftool %s", usage)
	}
	return args[0]
}

// loadFile decodes the raw object graph of name.
func loadFile(cfg *config.Config, name string) *nif.File {
	m, name := newManager(cfg, name)
	defer m.Close()

	data, err := m.Load(name, "")
	if err != nil {
		fail("Error: %v", err)
	}
	d := nif.Decoder{Log: logger.Named("nif"), SkeletonRoots: cfg.Model.SkeletonRoots}
	f, err := d.Load(data)
	if err != nil {
		fail("Error decoding %s: %v", name, err)
	}
	return f
}

func loadModel(cfg *config.Config, name string, morph string) *model.Model {
	m, name := newManager(cfg, name)
	defer m.Close()

	cache := modelCache(cfg, m)
	var (
		mdl *model.Model
		err error
	)
	if morph != "" {
		mdl, err = cache.CreateMorphed(name, "", morph)
	} else {
		mdl, err = cache.GetOrLoad(name, "")
	}
	if err != nil {
		fail("Error: %v", err)
	}
	return mdl
}

func cmdInfo(cfg *config.Config, args []string) {
	name := modelArg(args, "info <model>")
	f := loadFile(cfg, name)
	h := f.Header

	fmt.Printf("File:     %s\n", name)
	fmt.Printf("Header:   %s\n", h.Line)
	fmt.Printf("Version:  %s\n", h.Info)
	if h.BS != nil {
		fmt.Printf("Author:   %s\n", h.BS.Author)
	}
	fmt.Printf("Blocks:   %d\n", f.Len())
	fmt.Printf("Strings:  %d\n", h.Strings.Len())
	fmt.Printf("Roots:    %v\n", f.Roots)
	if flags := f.State.FileBSXFlags(); flags != 0 {
		fmt.Printf("BSX:      %#x\n", flags)
	}
	fmt.Println()
	fmt.Println("Blocks by type:")

	counts := make(map[string]int)
	for _, rec := range f.Records {
		counts[rec.Kind().String()]++
	}
	type kindStat struct {
		kind  string
		count int
	}
	var stats []kindStat
	for k, n := range counts {
		stats = append(stats, kindStat{k, n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].kind < stats[j].kind
	})
	for _, s := range stats {
		fmt.Printf("  %-32s %d\n", s.kind, s.count)
	}
}

func cmdBlocks(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("blocks", flag.ExitOnError)
	kind := fs.String("type", "", "Only list records of this type")
	fs.Parse(args)

	f := loadFile(cfg, modelArg(fs.Args(), "blocks [-type T] <model>"))
	for i, rec := range f.Records {
		typ := rec.Kind().String()
		if *kind != "" && !strings.EqualFold(typ, *kind) {
			continue
		}
		fmt.Printf("%5d  %-32s %s\n", i, typ, f.Name(nif.Ref(i)))
	}
}

func cmdTree(cfg *config.Config, args []string) {
	f := loadFile(cfg, modelArg(args, "tree <model>"))
	seen := make(map[int]bool)
	var walk func(ref nif.Ref, depth int)
	walk = func(ref nif.Ref, depth int) {
		rec := f.Record(ref)
		if rec == nil || seen[ref.Index()] {
			return
		}
		seen[ref.Index()] = true

		line := fmt.Sprintf("%s%s [%d] %q", strings.Repeat("  ", depth), rec.Kind(), ref.Index(), f.Name(ref))
		if av, ok := rec.(nif.AVRecord); ok && av.AV().Hidden() {
			line += " hidden"
		}
		fmt.Println(line)
		if n, ok := rec.(nif.NodeRecord); ok {
			for _, child := range n.AsNode().Children {
				walk(child, depth+1)
			}
		}
	}
	for _, root := range f.Roots {
		walk(root, 0)
	}
}

func cmdBones(cfg *config.Config, args []string) {
	m := loadModel(cfg, modelArg(args, "bones <model>"), "")
	skel := m.Skeleton
	if skel == nil {
		fmt.Println("No skeleton")
		return
	}
	depth := make([]int, skel.Len())
	for i, b := range skel.Bones {
		if b.Parent >= 0 {
			depth[i] = depth[b.Parent] + 1
		}
		t := skel.World(i).Translation
		fmt.Printf("%s%s [%d] (%.2f %.2f %.2f)\n", strings.Repeat("  ", depth[i]), b.Name, b.Node, t[0], t[1], t[2])
	}
}

func cmdMeshes(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("meshes", flag.ExitOnError)
	morph := fs.String("morph", "", "Apply a morph target by name or #n")
	fs.Parse(args)

	m := loadModel(cfg, modelArg(fs.Args(), "meshes [-morph m] <model>"), *morph)
	for _, mesh := range m.Meshes {
		fmt.Printf("%s [%d]\n", mesh.Name, mesh.Node)
		for _, sub := range mesh.SubMeshes {
			skin := ""
			if sub.Skin != nil {
				skin = fmt.Sprintf(" skinned(%d bones)", len(sub.Skin.Bones))
			}
			fmt.Printf("  %s: %d vertices, %d triangles%s\n", sub.Name, len(sub.Positions), sub.Triangles(), skin)
			if tex := sub.Material.Texture(); tex != "" {
				fmt.Printf("    texture %s\n", tex)
			}
		}
	}
	if !m.Bounds.Empty() {
		size := m.Bounds.Size()
		fmt.Printf("\nBounds: %.2f x %.2f x %.2f\n", size[0], size[1], size[2])
	}
}

func cmdClips(cfg *config.Config, args []string) {
	m := loadModel(cfg, modelArg(args, "clips <model>"), "")
	if len(m.Clips) == 0 {
		fmt.Println("No clips")
		return
	}
	for _, c := range m.Clips {
		fmt.Printf("%s: %.2fs..%.2fs, %d transform, %d float, %d visibility, %d morph tracks\n",
			c.Name, c.Start, c.Stop, len(c.Transforms), len(c.Floats), len(c.Visibility), len(c.Morphs))
		for _, k := range c.TextKeys {
			fmt.Printf("  %6.2f %s\n", k.Time, k.Value)
		}
	}
}

func cmdCollision(cfg *config.Config, args []string) {
	name := modelArg(args, "collision <model>")
	if !cfg.Physics.Enabled {
		fail("Collision building is disabled (physics.enabled)")
	}
	m, name := newManager(cfg, name)
	defer m.Close()

	scene, err := modelCache(cfg, m).Collision(name, "")
	if err != nil {
		fail("Error: %v", err)
	}
	if len(scene.Bodies) == 0 {
		fmt.Println("No collision")
		return
	}
	for _, b := range scene.Bodies {
		t := b.Transform.Col(3)
		fmt.Printf("%s [%d] layer %d mass %.2f at (%.2f %.2f %.2f)\n", b.Name, b.Node, b.Layer, b.Mass, t[0], t[1], t[2])
		printShape(b.Shape, 1)
	}
	for _, c := range scene.Constraints {
		var names []string
		for _, b := range c.Bodies {
			names = append(names, b.Name)
		}
		fmt.Printf("%s [%d]: %s\n", c.Kind, c.Record, strings.Join(names, " - "))
	}
}

func printShape(s *physics.Shape, depth int) {
	indent := strings.Repeat("  ", depth)
	switch s.Kind {
	case physics.ShapeBox:
		fmt.Printf("%s%s %v\n", indent, s.Kind, s.HalfExtents)
	case physics.ShapeSphere, physics.ShapeMultiSphere:
		fmt.Printf("%s%s r=%.2f (%d spheres)\n", indent, s.Kind, s.Radius, len(s.Spheres))
	case physics.ShapeCapsule:
		fmt.Printf("%s%s r=%.2f h=%.2f\n", indent, s.Kind, s.Radius, s.Height)
	case physics.ShapeConvexHull:
		fmt.Printf("%s%s %d points\n", indent, s.Kind, len(s.Points))
	case physics.ShapeTriangleMesh:
		fmt.Printf("%s%s %d triangles\n", indent, s.Kind, len(s.Triangles))
	case physics.ShapeCompound:
		fmt.Printf("%s%s\n", indent, s.Kind)
		for _, c := range s.Children {
			printShape(c.Shape, depth+1)
		}
	}
}

func cmdExport(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	morph := fs.String("morph", "", "Apply a morph target by name or #n")
	rate := fs.Float64("rate", export.DefaultSampleRate, "Animation samples per second")
	prefix := fs.String("textures", "", "Prefix for texture URIs")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fail("Usage: niftool export [-morph m] [-rate n] [-textures prefix] <model> <out.gltf|out.glb>")
	}
	m := loadModel(cfg, fs.Arg(0), *morph)
	doc, err := export.ToGLTF(m, export.Options{
		SampleRate:    float32(*rate),
		TexturePrefix: *prefix,
		Log:           logger.Named("export"),
	})
	if err != nil {
		fail("Error converting: %v", err)
	}
	out := fs.Arg(1)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		fail("Error creating directory: %v", err)
	}
	if err := export.Save(doc, out); err != nil {
		fail("Error writing %s: %v", out, err)
	}
	fmt.Printf("Exported: %s (%d meshes, %d animations)\n", out, len(doc.Meshes), len(doc.Animations))
}

func cmdBSAList(args []string) {
	fs := flag.NewFlagSet("bsa-list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("Usage: niftool bsa-list <file.bsa> [pattern]")
	}
	archive, err := bsa.Open(fs.Arg(0))
	if err != nil {
		fail("Error: %v", err)
	}
	defer archive.Close()

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, f := range archive.List() {
		if pattern != "" {
			matched, _ := filepath.Match(pattern, filepath.Base(f))
			if !matched && !strings.Contains(f, pattern) {
				continue
			}
		}
		fmt.Println(f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}
	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d files matched)\n", count)
	}
}

func cmdBSAExtract(args []string) {
	if len(args) < 2 {
		fail("Usage: niftool bsa-extract <file.bsa> <path|pattern> [output_dir]")
	}
	outputDir := "."
	if len(args) > 2 {
		outputDir = args[2]
	}

	archive, err := bsa.Open(args[0])
	if err != nil {
		fail("Error: %v", err)
	}
	defer archive.Close()

	pattern := strings.ToLower(strings.ReplaceAll(args[1], "\\", "/"))
	if !strings.Contains(pattern, "*") {
		if !archive.Contains(pattern) {
			fail("File not found: %s", args[1])
		}
		if err := extract(archive, pattern, filepath.Join(outputDir, filepath.Base(pattern))); err != nil {
			fail("Error: %v", err)
		}
		return
	}

	extracted := 0
	for _, f := range archive.List() {
		if matched, _ := filepath.Match(pattern, filepath.Base(f)); !matched {
			continue
		}
		if err := extract(archive, f, filepath.Join(outputDir, filepath.FromSlash(f))); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		extracted++
	}
	fmt.Fprintf(os.Stderr, "\nExtracted %d files\n", extracted)
}

func extract(archive *bsa.Archive, name, outputPath string) error {
	data, err := archive.Read(name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
	return nil
}
