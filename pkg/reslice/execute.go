package reslice

import (
	"context"
	"fmt"

	"volreslice/pkg/interpolation"
	"volreslice/pkg/stencil"
	"volreslice/pkg/transform"
	"volreslice/pkg/volume"
)

// progress reports completion every target rows from sub-region 0.
type progress struct {
	report func(float64)
	rows   int
	target int
	count  int
}

func newProgress(r *Reslicer, sub volume.Extent, id int) *progress {
	if id != 0 || r.opts.Progress == nil {
		return &progress{}
	}
	d := sub.Dims()
	rows := d[1] * d[2]
	return &progress{report: r.opts.Progress, rows: rows, target: rows/progressSteps + 1}
}

func (p *progress) row() {
	if p.report == nil {
		return
	}
	if p.count%p.target == 0 {
		p.report(float64(p.count) / float64(p.rows))
	}
	p.count++
}

func (p *progress) done() {
	if p.report != nil {
		p.report(1)
	}
}

func execute[T volume.Scalar](ctx context.Context, r *Reslicer, in, out *volume.Volume, sub volume.Extent, id int) error {
	if err := out.Validate(); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	if in.Components != out.Components {
		return fmt.Errorf("%w: input %d, output %d", ErrComponentMismatch, in.Components, out.Components)
	}
	if sub.Empty() {
		return nil
	}
	if !out.Extent.Contains(sub) {
		return fmt.Errorf("%w: %v not in %v", ErrInvalidExtent, sub, out.Extent)
	}

	dst, err := volume.Scalars[T](out)
	if err != nil {
		return err
	}
	comps := out.Components
	bg := volume.NumericFor[T]().Pixel(r.opts.Background, comps)
	prog := newProgress(r, sub, id)
	log := Logger()

	if in.Extent.Empty() {
		log.Debug("empty input, filling background", "sub", sub.String(), "id", id)
		return fillBackground(ctx, dst, out, sub, bg, prog)
	}

	mapper, err := transform.NewMapper(in, out, r.opts.Matrix, r.opts.Transform)
	if err != nil {
		return err
	}
	if r.clears() && !mapper.Reaches(sub, in.Extent, reachMargin) {
		log.Debug("output does not reach input, filling background", "sub", sub.String(), "id", id)
		return fillBackground(ctx, dst, out, sub, bg, prog)
	}

	view, err := volume.NewView[T](in)
	if err != nil {
		return err
	}
	sampler, err := interpolation.NewSampler(view, r.opts.Interpolation, r.opts.Boundary, bg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedConfiguration, err)
	}
	log.Debug("reslice piece", "sub", sub.String(), "id", id, "kind", out.Kind().String())

	clip := stencil.NewClipper(r.opts.Stencil, sub[0], sub[1])
	cinc := out.ContinuousIncrements(sub)
	p := out.Offset(sub[0], sub[2], sub[4])
	for z := sub[4]; z <= sub[5]; z++ {
		for y := sub[2]; y <= sub[3]; y++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			prog.row()

			clip.Reset(y, z)
			for seg, ok := clip.Next(); ok; seg, ok = clip.Next() {
				if !seg.Covered {
					p = setPixels(dst, p, bg, seg.Len())
					continue
				}
				for x := seg.Start; x <= seg.End; x++ {
					px := dst[p : p+comps]
					if pt, err := mapper.Map(x, y, z); err != nil {
						sampler.Miss(px)
					} else {
						sampler.Sample(px, pt)
					}
					p += comps
				}
			}
			p += cinc[1]
		}
		p += cinc[2]
	}
	prog.done()
	return nil
}

// clears reports whether an output that cannot reach the input may be
// filled with background without sampling. Wrap and Mirror reach every
// point, and Null must leave such voxels untouched.
func (r *Reslicer) clears() bool {
	switch r.opts.Boundary {
	case interpolation.Background, interpolation.Border:
		return true
	}
	return false
}

// fillBackground fills sub with the background pixel.
func fillBackground[T volume.Scalar](ctx context.Context, dst []T, out *volume.Volume, sub volume.Extent, bg []T, prog *progress) error {
	cinc := out.ContinuousIncrements(sub)
	width := sub[1] - sub[0] + 1
	p := out.Offset(sub[0], sub[2], sub[4])
	for z := sub[4]; z <= sub[5]; z++ {
		for y := sub[2]; y <= sub[3]; y++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			prog.row()
			p = setPixels(dst, p, bg, width)
			p += cinc[1]
		}
		p += cinc[2]
	}
	prog.done()
	return nil
}

// setPixels writes n copies of px starting at offset p and returns the
// offset just past them.
func setPixels[T volume.Scalar](dst []T, p int, px []T, n int) int {
	if len(px) == 1 {
		v := px[0]
		run := dst[p : p+n]
		for i := range run {
			run[i] = v
		}
		return p + n
	}
	for i := 0; i < n; i++ {
		p += copy(dst[p:p+len(px)], px)
	}
	return p
}
