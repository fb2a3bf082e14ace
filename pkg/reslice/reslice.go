// Package reslice resamples one volume onto the grid of another through a
// geometric transform. Each call fills one sub-extent of the output, so
// disjoint sub-extents can be filled concurrently.
package reslice

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"volreslice/pkg/interpolation"
	"volreslice/pkg/stencil"
	"volreslice/pkg/transform"
	"volreslice/pkg/volume"
)

var (
	// ErrScalarKindMismatch is returned when the input and output volumes
	// hold different scalar kinds. Nothing is written.
	ErrScalarKindMismatch = errors.New("reslice: input and output scalar kinds differ")

	// ErrComponentMismatch is returned when the input and output volumes
	// hold a different number of components per voxel.
	ErrComponentMismatch = errors.New("reslice: input and output component counts differ")

	// ErrInvalidExtent is returned when the requested sub-extent is not
	// inside the output extent.
	ErrInvalidExtent = errors.New("reslice: sub-extent outside output extent")

	// ErrUnsupportedConfiguration is returned for unknown interpolation
	// modes, boundary modes or scalar kinds.
	ErrUnsupportedConfiguration = errors.New("reslice: unsupported configuration")
)

// MaxBackgroundComponents is the number of background values that are
// honoured; components past it get 0.
const MaxBackgroundComponents = 4

// reachMargin is how far outside the input extent, in voxels, a mapped
// output may land and still be sampled. It covers the outer cubic taps
// and the half-voxel border.
const reachMargin = 2

// progressSteps is roughly how many progress reports one call makes.
const progressSteps = 50

// Options configures a Reslicer.
type Options struct {
	// Interpolation selects the sampling kernel
	Interpolation interpolation.Mode

	// Boundary selects what happens to points outside the input
	Boundary interpolation.BoundaryMode

	// Background holds up to four values, one per component, used for
	// uncovered and out-of-bounds voxels
	Background []float64

	// Matrix is an optional 4x4 homogeneous transform from output world
	// coordinates to input world coordinates
	Matrix mat.Matrix

	// Transform is an optional nonlinear stage applied after Matrix
	Transform transform.Transformer

	// Stencil optionally restricts which output voxels are interpolated
	Stencil stencil.Stencil

	// Progress, if set, receives completion fractions from sub-region 0
	Progress func(fraction float64)

	// NumWorkers is the number of pieces Run splits the output into.
	// Zero means runtime.GOMAXPROCS(0).
	NumWorkers int
}

// Reslicer holds a validated configuration. Its methods only read it, so
// one Reslicer may serve concurrent calls on disjoint output regions.
type Reslicer struct {
	opts Options
}

// New validates opts and returns a Reslicer.
func New(opts Options) (*Reslicer, error) {
	if !opts.Interpolation.Valid() {
		return nil, fmt.Errorf("%w: interpolation %v", ErrUnsupportedConfiguration, opts.Interpolation)
	}
	if !opts.Boundary.Valid() {
		return nil, fmt.Errorf("%w: boundary %v", ErrUnsupportedConfiguration, opts.Boundary)
	}
	if len(opts.Background) > MaxBackgroundComponents {
		return nil, fmt.Errorf("%w: %d background values, at most %d", ErrUnsupportedConfiguration,
			len(opts.Background), MaxBackgroundComponents)
	}
	if opts.Matrix != nil {
		if r, c := opts.Matrix.Dims(); r != 4 || c != 4 {
			return nil, fmt.Errorf("%w: matrix is %dx%d", ErrUnsupportedConfiguration, r, c)
		}
	}
	if opts.NumWorkers < 0 {
		return nil, fmt.Errorf("%w: %d workers", ErrUnsupportedConfiguration, opts.NumWorkers)
	}
	return &Reslicer{opts: opts}, nil
}

// Options returns the configuration of r.
func (r *Reslicer) Options() Options { return r.opts }

// Execute fills the sub-extent sub of out by sampling in. id identifies
// the caller's piece of a larger job; only id 0 reports progress.
func (r *Reslicer) Execute(ctx context.Context, in, out *volume.Volume, sub volume.Extent, id int) error {
	kind := out.Kind()
	if in.Kind() != kind {
		return fmt.Errorf("%w: input %v, output %v", ErrScalarKindMismatch, in.Kind(), kind)
	}
	exec, ok := executors[kind]
	if !ok {
		return fmt.Errorf("%w: scalar kind %v", ErrUnsupportedConfiguration, kind)
	}
	return exec(ctx, r, in, out, sub, id)
}

// Run fills the whole output extent, split into NumWorkers pieces that are
// executed concurrently. Piece 0 reports progress.
func (r *Reslicer) Run(ctx context.Context, in, out *volume.Volume) error {
	workers := r.opts.NumWorkers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	pieces := out.Extent.Pieces(workers)
	Logger().Info("reslice run",
		"input", in.Extent.String(), "output", out.Extent.String(),
		"kind", out.Kind().String(), "pieces", len(pieces),
		"interpolation", r.opts.Interpolation.String(), "boundary", r.opts.Boundary.String())

	g, ctx := errgroup.WithContext(ctx)
	for id, piece := range pieces {
		g.Go(func() error {
			return r.Execute(ctx, in, out, piece, id)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	Logger().Info("reslice run complete", "voxels", out.Extent.NumVoxels())
	return nil
}

// Execute configures a Reslicer from opts and fills sub of out.
func Execute(ctx context.Context, in, out *volume.Volume, sub volume.Extent, id int, opts Options) error {
	r, err := New(opts)
	if err != nil {
		return err
	}
	return r.Execute(ctx, in, out, sub, id)
}

type executor func(ctx context.Context, r *Reslicer, in, out *volume.Volume, sub volume.Extent, id int) error

var executors map[volume.ScalarKind]executor

func init() {
	executors = map[volume.ScalarKind]executor{
		volume.Int8:    execute[int8],
		volume.Uint8:   execute[uint8],
		volume.Int16:   execute[int16],
		volume.Uint16:  execute[uint16],
		volume.Int32:   execute[int32],
		volume.Uint32:  execute[uint32],
		volume.Float32: execute[float32],
		volume.Float64: execute[float64],
	}
}
