// Command difc compiles an XML scene of convex brushes into one or more
// DIF-like interior files: geometry canonicalization, convex-hull export,
// parallel BSP splitting, coord-bin indexing, and (optionally) lightmap
// baking, following spec.md's compiler pipeline end to end. Grounded on
// the teacher's cmd-style main (flag parsing, a single top-level error
// return) generalized from a long-running engine entry point to a batch
// CLI.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/diforge/difc/internal/audit"
	"github.com/diforge/difc/internal/builder"
	"github.com/diforge/difc/internal/config"
	"github.com/diforge/difc/internal/dif"
	"github.com/diforge/difc/internal/entityconv"
	"github.com/diforge/difc/internal/geomtypes"
	"github.com/diforge/difc/internal/lightentity"
	"github.com/diforge/difc/internal/lightmap"
	"github.com/diforge/difc/internal/logx"
	"github.com/diforge/difc/internal/pathway"
	"github.com/diforge/difc/internal/progress"
	"github.com/diforge/difc/internal/scenetree"
	"github.com/diforge/difc/internal/workpool"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "difc:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("difc", flag.ExitOnError)
	out := fs.String("out", "", "output file stem (default: input file name without extension)")
	silent := fs.Bool("silent", false, "suppress progress output")
	difVersion := fs.Int("dif-version", 0, "DIF format version to write")
	engineFlag := fs.String("engine-version", "MBG", "target engine: MBG, TGE, TGEA, T3D")
	mbOnly := fs.Bool("mb", false, "skip runtime collision data (materials/rendering only)")
	bspFlag := fs.String("bsp", "exhaustive", "BSP splitter strategy: exhaustive, sampling, none")
	epsPoint := fs.Float64("epsilon-point", float64(config.DefaultPointEpsilon), "point dedup epsilon")
	epsPlane := fs.Float64("epsilon-plane", float64(config.DefaultPlaneEpsilon), "plane dedup epsilon")
	workers := fs.Int("workers", 0, "parallel BSP rating workers (0 = GOMAXPROCS)")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: difc [flags] <scene.xml>")
	}
	inputPath := fs.Arg(0)

	engine, ok := config.ParseEngineVersion(strings.ToUpper(*engineFlag))
	if !ok {
		return fmt.Errorf("unknown --engine-version %q", *engineFlag)
	}
	split, ok := config.ParseSplitMethod(*bspFlag)
	if !ok {
		return fmt.Errorf("unknown --bsp %q", *bspFlag)
	}

	cfg := config.Default()
	cfg.DifVersion = *difVersion
	cfg.EngineVersion = engine
	cfg.MBOnly = *mbOnly
	cfg.SplitMethod = split
	cfg.PointEpsilon = float32(*epsPoint)
	cfg.PlaneEpsilon = float32(*epsPlane)
	cfg.Silent = *silent

	log := logx.New("difc", *debug)

	stem := *out
	if stem == "" {
		stem = strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	scene, err := scenetree.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding scene: %w", err)
	}
	if len(scene.DetailLevels) == 0 {
		return fmt.Errorf("scene has no detail levels")
	}
	detail := scene.DetailLevels[0]

	var cb progress.Callback
	if !cfg.Silent {
		cb = func(current, total int, status string, finish progress.FinishStatus) {
			if total > 0 {
				fmt.Fprintf(os.Stderr, "\r%s: %d/%d", status, current, total)
			}
			if finish == progress.Finished {
				fmt.Fprintln(os.Stderr)
			}
		}
	}
	reporter := progress.New(cb, "building")
	wp := workpool.New(*workers)

	buildID := uuid.NewString()
	log.Infof("build %s: compiling %s (%d brushes, %d entities)", buildID, inputPath, len(detail.Brushes), len(detail.Entities))

	var staticLights []lightentity.Light
	var staticLightPositions []mgl32.Vec3
	for _, e := range detail.Entities {
		if kind, ok := lightentity.Recognize(e.Class); ok {
			staticLights = append(staticLights, lightentity.Decode(kind, e.Properties))
			staticLightPositions = append(staticLightPositions, parseOrigin(e))
		}
	}
	bakeLights := lightmap.CollectStatic(staticLights, staticLightPositions)
	ambient := ambientColorOf(detail)

	newBuilder := func(status string) *builder.Builder {
		bd := builder.New(cfg, wp, reporter.Sub(status))
		bd.SetLights(bakeLights)
		bd.SetAmbient(ambient)
		return bd
	}

	worldBuilder := newBuilder("building BSP")
	ownerBuilders := map[int]*builder.Builder{}
	var ownerOrder []int
	var mainResults []builder.Result

	for _, bx := range detail.Brushes {
		raw, err := geomtypes.FromXML(bx)
		if err != nil {
			return fmt.Errorf("brush %d: %w", bx.ID, err)
		}
		brush := geomtypes.Preprocess(raw, detail.BrushScale)
		if brush.Excluded() {
			continue
		}
		if brush.Owner == 0 {
			if worldBuilder.AddBrush(brush) {
				mainResults = append(mainResults, worldBuilder.Flush())
				worldBuilder.AddBrush(brush)
			}
			continue
		}
		ob, ok := ownerBuilders[brush.Owner]
		if !ok {
			ob = newBuilder("building sub-object BSP")
			ownerBuilders[brush.Owner] = ob
			ownerOrder = append(ownerOrder, brush.Owner)
		}
		ob.AddBrush(brush)
	}

	if !worldBuilder.Empty() {
		mainResults = append(mainResults, worldBuilder.Flush())
	}

	var mainInteriors []dif.Interior
	for _, res := range mainResults {
		mainInteriors = append(mainInteriors, res.Interior)
		logAudit(log, buildID, res.Audit)
	}

	var subObjects []dif.Interior
	for _, owner := range ownerOrder {
		res := ownerBuilders[owner].Flush()
		subObjects = append(subObjects, res.Interior)
		logAudit(log, buildID, res.Audit)
	}

	var gameEntities []entityconv.Source
	var pathNodes []pathway.NodeEntity
	var elevators []pathway.NodeEntity
	for _, e := range detail.Entities {
		origin := parseOrigin(e)
		switch {
		case e.Class == "path_node":
			pathNodes = append(pathNodes, pathway.NodeEntity{Classname: e.Class, Origin: origin, Props: e.Properties})
		case e.Class == "Door_Elevator":
			elevators = append(elevators, pathway.NodeEntity{Classname: e.Class, Origin: origin, Props: e.Properties})
		case isLight(e.Class):
			// Lights are baked by the lightmap stage (run separately,
			// see internal/lightmap), not exported as game entities.
		default:
			gameEntities = append(gameEntities, entityconv.Source{Classname: e.Class, Origin: origin, Props: e.Properties})
		}
	}

	var followers []pathway.Follower
	for _, el := range elevators {
		trigger := pathway.BuildTrigger(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
		followers = append(followers, pathway.BuildFollower(el, pathNodes, trigger))
	}

	outFile := dif.File{
		Interiors:  firstOrEmpty(mainInteriors),
		SubObjects: subObjects,
		Entities:   entityconv.Convert(gameEntities),
		Followers:  followers,
	}

	if err := writeSplit(stem, outFile, mainInteriors); err != nil {
		return err
	}
	if err := writeLightmaps(stem, mainResults); err != nil {
		return err
	}

	log.Infof("wrote %d interior file(s)", len(mainInteriors)+boolToInt(len(mainInteriors) == 0))
	return nil
}

func isLight(classname string) bool {
	_, ok := lightentity.Recognize(classname)
	return ok
}

// ambientColorOf converts a detail level's ambient_color (spec §6) into
// the 8-bit fallback fill bakeLightmaps uses when baking is off or no
// static light was collected.
func ambientColorOf(d scenetree.DetailLevel) color.NRGBA {
	rgb, err := d.AmbientColor()
	if err != nil {
		return color.NRGBA{A: 255}
	}
	clamp := func(v float32) uint8 {
		if v <= 0 {
			return 0
		}
		if v >= 255 {
			return 255
		}
		return uint8(v)
	}
	return color.NRGBA{R: clamp(rgb[0]), G: clamp(rgb[1]), B: clamp(rgb[2]), A: 255}
}

// logAudit reports the raycast coverage auditor's findings for one
// interior (spec §4.7): surfaces the BSP still considers reachable as a
// percentage, plus the tree's front/back balance. buildID ties each
// interior's audit line back to the build that produced it, the way the
// teacher's asset server keys every mesh/material by a minted AssetId.
func logAudit(log logx.Logger, buildID string, rep audit.Report) {
	log.Infof("build %s: bsp audit: %.1f%% surface coverage (%d/%d probes), balance factor %d",
		buildID, rep.HitPercent(), rep.Hit, rep.Total, rep.BalanceFactor)
}

// writeLightmaps PNG-packs and writes each result's lightmap atlas
// pages to a companion file next to its .dif output, following the same
// stem/stem-<n> numbering writeSplit uses for interior fragments.
func writeLightmaps(stem string, results []builder.Result) error {
	for i, res := range results {
		if len(res.LightmapPages) == 0 {
			continue
		}
		path := stem + ".lightmaps"
		if i > 0 {
			path = fmt.Sprintf("%s-%d.lightmaps", stem, i)
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		err = dif.WriteLightmapPages(f, res.LightmapPages)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func parseOrigin(e scenetree.EntityXML) mgl32.Vec3 {
	raw, ok := e.Get("origin")
	if !ok {
		return mgl32.Vec3{}
	}
	fields := strings.Fields(raw)
	if len(fields) != 3 {
		return mgl32.Vec3{}
	}
	var v [3]float32
	for i, f := range fields {
		p, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return mgl32.Vec3{}
		}
		v[i] = float32(p)
	}
	return mgl32.Vec3{v[0], v[1], v[2]}
}

func firstOrEmpty(interiors []dif.Interior) []dif.Interior {
	if len(interiors) == 0 {
		return nil
	}
	return interiors[:1]
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// writeSplit writes the primary DIF (interiors[0] plus sub-objects,
// entities, and path followers) to stem.dif, then every additional
// split interior fragment to stem-<n>.dif, matching spec §6's
// "interior splitting" output naming.
func writeSplit(stem string, primary dif.File, allInteriors []dif.Interior) error {
	primaryPath := stem + ".dif"
	pf, err := os.Create(primaryPath)
	if err != nil {
		return err
	}
	defer pf.Close()
	if err := dif.WriteFile(pf, primary); err != nil {
		return err
	}

	for i, it := range allInteriors[minInt(1, len(allInteriors)):] {
		path := fmt.Sprintf("%s-%d.dif", stem, i+1)
		sf, err := os.Create(path)
		if err != nil {
			return err
		}
		err = dif.WriteFile(sf, dif.File{Interiors: []dif.Interior{it}})
		sf.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
