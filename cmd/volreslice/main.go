// Command volreslice resamples volumes through affine and nonlinear
// transforms, extracts slices from them and compares the results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"gonum.org/v1/gonum/spatial/r3"

	"volreslice/internal/logging"
	"volreslice/pkg/config"
	"volreslice/pkg/metrics"
	"volreslice/pkg/phantom"
	"volreslice/pkg/reslice"
	"volreslice/pkg/stencil"
	"volreslice/pkg/visualization"
	"volreslice/pkg/volio"
	"volreslice/pkg/volume"
)

const version = "0.4.0"

// Globals holds flags shared by every command.
type Globals struct {
	Config    string `name:"config" short:"c" help:"Configuration file" default:"volreslice.yaml" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level" default:"info" enum:"debug,info,warn,error"`
	LogFormat string `name:"log-format" help:"Log format" default:"text" enum:"text,json"`
}

// CLI defines the command-line interface for volreslice.
var CLI struct {
	Globals

	// Command groups (noun-first organization)
	Volume  VolumeGroup `cmd:"" help:"Volume operations (resample, slice, compare, phantom, import)"`
	Cfg     ConfigGroup `cmd:"" name:"config" help:"Configuration file operations"`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

// VolumeGroup contains volume operations.
type VolumeGroup struct {
	Resample ResampleCmd `cmd:"" help:"Resample a volume through the configured transform"`
	Slice    SliceCmd    `cmd:"" help:"Extract axis-aligned slices as images"`
	Oblique  ObliqueCmd  `cmd:"" help:"Extract an oblique plane as an image"`
	Compare  CompareCmd  `cmd:"" help:"Compare a volume against a reference"`
	Phantom  PhantomCmd  `cmd:"" help:"Write a synthetic volume"`
	Import   ImportCmd   `cmd:"" help:"Stack a directory of slice images into a volume"`
	Info     InfoCmd     `cmd:"" help:"Print a volume header"`
}

// ConfigGroup contains configuration file operations.
type ConfigGroup struct {
	Init ConfigInitCmd `cmd:"" help:"Write a default configuration file"`
}

// ResampleCmd resamples a volume onto a new grid.
type ResampleCmd struct {
	Input     string  `arg:"" help:"Input volume header" type:"existingfile"`
	Output    string  `arg:"" help:"Output volume header" type:"path"`
	Mask      string  `help:"Volume whose voxels above --threshold are resampled; others get the background" type:"existingfile"`
	Threshold float64 `help:"Mask threshold" default:"0"`
}

// Run executes the resample command.
func (c *ResampleCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if cfg.Output.Verbose {
		logging.InitLogger(os.Stderr, logging.LevelDebug, formatOf(g))
		reslice.SetLogger(logging.GetLogger())
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	logging.Debug("resample options",
		"interpolation", opts.Interpolation.String(), "boundary", opts.Boundary.String(),
		"background", opts.Background, "workers", opts.NumWorkers)

	in, err := volio.Read(c.Input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if cfg.Output.Kind != "" {
		kind, err := volume.ParseScalarKind(cfg.Output.Kind)
		if err != nil {
			return err
		}
		if in, err = convert(in, kind); err != nil {
			return err
		}
	}

	out, err := outputGrid(in, cfg)
	if err != nil {
		return err
	}
	if c.Mask != "" {
		mask, err := volio.Read(c.Mask)
		if err != nil {
			return fmt.Errorf("failed to read mask: %w", err)
		}
		if mask.Extent != out.Extent {
			return fmt.Errorf("mask extent %v does not match output extent %v", mask.Extent, out.Extent)
		}
		if opts.Stencil, err = stencil.FromMask(mask, c.Threshold); err != nil {
			return err
		}
	}
	opts.Progress = logging.Progress("resample", 0.1)

	r, err := reslice.New(opts)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := r.Run(ctx, in, out); err != nil {
		return fmt.Errorf("resample failed: %w", err)
	}
	logging.Info("resampled volume",
		"output", c.Output, "extent", out.Extent.String(), "seconds", time.Since(start).Seconds())

	return volio.Write(c.Output, out, cfg.Output.Compress)
}

// outputGrid allocates the output volume described by the output section,
// taking unset values from in.
func outputGrid(in *volume.Volume, cfg *config.Config) (*volume.Volume, error) {
	ext := in.Extent
	if cfg.Output.Extent != nil {
		copy(ext[:], cfg.Output.Extent)
	}
	out, err := volume.New(in.Kind(), ext, in.Components)
	if err != nil {
		return nil, err
	}
	out.Origin = in.Origin
	out.Spacing = in.Spacing
	for axis, s := range cfg.Output.Spacing {
		if s > 0 {
			out.Spacing[axis] = s
		}
	}
	return out, nil
}

// convert copies v into a volume of another scalar kind, rounding and
// clamping as the target kind requires.
func convert(v *volume.Volume, kind volume.ScalarKind) (*volume.Volume, error) {
	if v.Kind() == kind {
		return v, nil
	}
	out, err := volume.New(kind, v.Extent, v.Components)
	if err != nil {
		return nil, err
	}
	out.Spacing = v.Spacing
	out.Origin = v.Origin
	out.Fill(v.Value)
	return out, nil
}

// SliceCmd saves axis-aligned slices of a volume.
type SliceCmd struct {
	Input    string    `arg:"" help:"Volume header" type:"existingfile"`
	Out      string    `short:"o" help:"Output image file, or directory with --all" required:"" type:"path"`
	Axis     string    `help:"Slice axis" default:"z" enum:"x,y,z"`
	Position int       `help:"Slice index along the axis"`
	All      bool      `help:"Save every slice along the axis"`
	Window   []float64 `help:"Intensities shown as black and white (lo,hi)"`
}

// Run executes the slice command.
func (c *SliceCmd) Run(ctx context.Context, g *Globals) error {
	cfg, viewer, err := openViewer(g, c.Input, c.Window)
	if err != nil {
		return err
	}
	if c.All {
		if err := viewer.SaveSliceSequence(ctx, c.Axis, c.Out, cfg.Slice.Format); err != nil {
			return err
		}
		logging.Info("saved slice sequence", "axis", c.Axis, "dir", c.Out)
		return nil
	}

	img, err := viewer.ExtractSlice(ctx, c.Axis, c.Position)
	if err != nil {
		return err
	}
	if err := viewer.SaveSlice(img, c.Out); err != nil {
		return err
	}
	logging.Info("saved slice", "axis", c.Axis, "position", c.Position, "file", c.Out)
	return nil
}

// ObliqueCmd saves an arbitrary plane through a volume.
type ObliqueCmd struct {
	Input   string    `arg:"" help:"Volume header" type:"existingfile"`
	Out     string    `short:"o" help:"Output image file" required:"" type:"path"`
	Center  []float64 `help:"World position of the image center (x,y,z)" required:""`
	Normal  []float64 `help:"Plane normal (x,y,z)" default:"0,0,1"`
	Width   int       `help:"Image width in pixels" default:"256"`
	Height  int       `help:"Image height in pixels" default:"256"`
	Spacing float64   `help:"World distance between pixels" default:"1"`
	Window  []float64 `help:"Intensities shown as black and white (lo,hi)"`
}

// Run executes the oblique command.
func (c *ObliqueCmd) Run(ctx context.Context, g *Globals) error {
	center, err := vec3("center", c.Center)
	if err != nil {
		return err
	}
	normal, err := vec3("normal", c.Normal)
	if err != nil {
		return err
	}
	_, viewer, err := openViewer(g, c.Input, c.Window)
	if err != nil {
		return err
	}
	img, err := viewer.ExtractOblique(ctx, visualization.Plane{
		Center:  center,
		Normal:  normal,
		Width:   c.Width,
		Height:  c.Height,
		Spacing: c.Spacing,
	})
	if err != nil {
		return err
	}
	if err := viewer.SaveSlice(img, c.Out); err != nil {
		return err
	}
	logging.Info("saved oblique plane", "file", c.Out)
	return nil
}

func openViewer(g *Globals, input string, window []float64) (*config.Config, *visualization.Viewer, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, nil, err
	}
	vol, err := volio.Read(input)
	if err != nil {
		return nil, nil, err
	}
	viewer, err := visualization.NewViewer(vol, opts)
	if err != nil {
		return nil, nil, err
	}
	viewer.Quality = cfg.Slice.Quality
	switch len(window) {
	case 0:
	case 2:
		viewer.SetWindow(window[0], window[1])
	default:
		return nil, nil, fmt.Errorf("window needs 2 values, got %d", len(window))
	}
	return cfg, viewer, nil
}

// loadConfig loads the configuration file named by the global flags and
// warns when it is missing and the defaults apply.
func loadConfig(g *Globals) (*config.Config, error) {
	if _, err := os.Stat(g.Config); os.IsNotExist(err) {
		logging.Warn("configuration file not found, using defaults", "path", g.Config)
	}
	return config.LoadConfig(g.Config)
}

func vec3(name string, v []float64) (r3.Vec, error) {
	if len(v) != 3 {
		return r3.Vec{}, fmt.Errorf("%s needs 3 values, got %d", name, len(v))
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

// CompareCmd prints quality metrics of a volume against a reference.
type CompareCmd struct {
	Reference string `arg:"" help:"Reference volume header" type:"existingfile"`
	Test      string `arg:"" help:"Volume header to evaluate" type:"existingfile"`
}

// Run executes the compare command.
func (c *CompareCmd) Run() error {
	ref, err := volio.Read(c.Reference)
	if err != nil {
		return err
	}
	test, err := volio.Read(c.Test)
	if err != nil {
		return err
	}
	m, err := metrics.Compare(ref, test)
	if err != nil {
		return err
	}

	fmt.Printf("Mutual Information (MI): %.3f\n", m.MI)
	fmt.Printf("Entropy Difference: %.3f\n", m.EntropyDiff)
	fmt.Printf("Root Mean Square Error (RMSE): %.6f\n", m.RMSE)
	fmt.Printf("Structural Similarity Index (SSIM): %.3f\n", m.SSIM)
	fmt.Printf("Edge Preservation: %.3f\n", m.EdgePreserved)
	fmt.Printf("Overall Accuracy: %.2f%%\n", m.Accuracy)
	return nil
}

// PhantomCmd writes a synthetic volume.
type PhantomCmd struct {
	Output   string `arg:"" help:"Output volume header" type:"path"`
	Shape    string `help:"Phantom shape" default:"sphere" enum:"ramp,sphere"`
	Kind     string `help:"Scalar kind" default:"uint8"`
	Size     []int  `help:"Voxels along x, y and z" default:"64,64,64"`
	Compress bool   `help:"Write the payload xz-compressed"`
}

// Run executes the phantom command.
func (c *PhantomCmd) Run() error {
	kind, err := volume.ParseScalarKind(c.Kind)
	if err != nil {
		return err
	}
	if len(c.Size) != 3 {
		return fmt.Errorf("size needs 3 values, got %d", len(c.Size))
	}
	ext := volume.Extent{0, c.Size[0] - 1, 0, c.Size[1] - 1, 0, c.Size[2] - 1}

	var v *volume.Volume
	switch c.Shape {
	case "ramp":
		v, err = phantom.Ramp(kind, ext)
	default:
		v, err = phantom.Centered(ext, 0.8, 200, 10).Volume(kind, ext)
	}
	if err != nil {
		return err
	}
	if err := volio.Write(c.Output, v, c.Compress); err != nil {
		return err
	}
	logging.Info("wrote phantom", "shape", c.Shape, "kind", kind.String(), "extent", ext.String(), "file", c.Output)
	return nil
}

// ImportCmd stacks slice images into a volume.
type ImportCmd struct {
	Dir      string    `arg:"" help:"Directory of numbered slice images" type:"existingdir"`
	Output   string    `arg:"" help:"Output volume header" type:"path"`
	Spacing  []float64 `help:"Voxel spacing along x, y and z" default:"1,1,1"`
	Compress bool      `help:"Write the payload xz-compressed"`
}

// Run executes the import command.
func (c *ImportCmd) Run() error {
	if len(c.Spacing) != 3 {
		return fmt.Errorf("spacing needs 3 values, got %d", len(c.Spacing))
	}
	v, err := volio.ReadStack(c.Dir, [3]float64(c.Spacing))
	if err != nil {
		return err
	}
	if err := volio.Write(c.Output, v, c.Compress); err != nil {
		return err
	}
	logging.Info("imported slices", "dir", c.Dir, "extent", v.Extent.String(), "file", c.Output)
	return nil
}

// InfoCmd prints a volume header.
type InfoCmd struct {
	Input string `arg:"" help:"Volume header" type:"existingfile"`
}

// Run executes the info command.
func (c *InfoCmd) Run() error {
	h, err := volio.ReadHeader(c.Input)
	if err != nil {
		return err
	}
	ext := volume.Extent(h.Extent)
	fmt.Printf("File:        %s\n", c.Input)
	fmt.Printf("Kind:        %s x %d\n", h.Kind, h.Components)
	fmt.Printf("Extent:      %s (%d voxels)\n", ext, ext.NumVoxels())
	fmt.Printf("Spacing:     %v\n", h.Spacing)
	fmt.Printf("Origin:      %v\n", h.Origin)
	fmt.Printf("Data:        %s (%s)\n", filepath.Join(filepath.Dir(c.Input), h.DataFile), h.Compression)
	fmt.Printf("BLAKE3:      %s\n", h.BLAKE3)
	return nil
}

// ConfigInitCmd writes a default configuration file.
type ConfigInitCmd struct {
	Force bool `help:"Overwrite an existing file"`
}

// Run executes the config init command.
func (c *ConfigInitCmd) Run(g *Globals) error {
	if _, err := os.Stat(g.Config); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", g.Config)
	}
	if err := config.CreateDefaultConfigFile(g.Config); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", g.Config)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run() error {
	fmt.Printf("volreslice version %s\n", version)
	return nil
}

func formatOf(g *Globals) logging.Format {
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return logging.FormatText
	}
	return format
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kctx := kong.Parse(&CLI,
		kong.Name("volreslice"),
		kong.Description("Volume reslicing and slice extraction"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	level, err := logging.ParseLevel(CLI.LogLevel)
	kctx.FatalIfErrorf(err)
	logging.InitLogger(os.Stderr, level, formatOf(&CLI.Globals))
	reslice.SetLogger(logging.GetLogger())

	err = kctx.Run(&CLI.Globals)
	kctx.FatalIfErrorf(err)
}
