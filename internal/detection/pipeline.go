package detection

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/ironsheep/shape-vision/internal/imaging"
)

// Options configures a Pipeline. Zero fields select their defaults in
// NewPipeline.
type Options struct {
	Edges      imaging.EdgeOptions
	Candidates CandidateOptions
	Shapes     ShapeClassifier
	Colors     ColorClassifier
	Palette    Palette

	// Workers bounds the goroutines used per frame for contour features.
	// 1 runs sequentially; 0 means runtime.NumCPU().
	Workers int
}

// DefaultOptions returns the documented defaults with the HSV color strategy.
func DefaultOptions() Options {
	return Options{
		Edges:      imaging.DefaultEdgeOptions(),
		Candidates: DefaultCandidateOptions(),
		Shapes:     DefaultShapeClassifier(),
		Colors:     HSVRanges{Table: DefaultHSVTable()},
		Palette:    DefaultPalette(),
		Workers:    runtime.NumCPU(),
	}
}

// Pipeline turns one frame into identified shapes.
//
// A Pipeline holds only read-only configuration and is safe for concurrent
// use; no state carries over between frames.
type Pipeline struct {
	opts Options
}

// NewPipeline validates opts and fills unset fields with defaults. Each
// zero field takes its own default, except that Edges.Low is defaulted only
// together with an unset Edges.High so a low threshold of 0 can be chosen.
func NewPipeline(opts Options) (*Pipeline, error) {
	def := DefaultOptions()
	if opts.Edges.High == 0 {
		opts.Edges.High = def.Edges.High
		if opts.Edges.Low == 0 {
			opts.Edges.Low = def.Edges.Low
		}
	}
	if opts.Candidates.MinArea == 0 {
		opts.Candidates.MinArea = def.Candidates.MinArea
	}
	if opts.Candidates.ApproxFactor == 0 {
		opts.Candidates.ApproxFactor = def.Candidates.ApproxFactor
	}
	if opts.Shapes.SquareMin == 0 {
		opts.Shapes.SquareMin = def.Shapes.SquareMin
	}
	if opts.Shapes.SquareMax == 0 {
		opts.Shapes.SquareMax = def.Shapes.SquareMax
	}
	if opts.Shapes.CircleMin == 0 {
		opts.Shapes.CircleMin = def.Shapes.CircleMin
	}
	if opts.Colors == nil {
		opts.Colors = def.Colors
	}
	if opts.Palette == nil {
		opts.Palette = def.Palette
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}

	if opts.Edges.Low < 0 || opts.Edges.Low >= opts.Edges.High {
		return nil, fmt.Errorf("invalid edge thresholds: low %d must be >= 0 and below high %d",
			opts.Edges.Low, opts.Edges.High)
	}
	if opts.Candidates.MinArea <= 0 {
		return nil, fmt.Errorf("invalid min shape area %v: must be positive", opts.Candidates.MinArea)
	}
	if opts.Candidates.ApproxFactor <= 0 {
		return nil, fmt.Errorf("invalid approximation factor %v: must be positive", opts.Candidates.ApproxFactor)
	}
	if opts.Shapes.SquareMin > opts.Shapes.SquareMax {
		return nil, fmt.Errorf("invalid square band [%v, %v]", opts.Shapes.SquareMin, opts.Shapes.SquareMax)
	}

	return &Pipeline{opts: opts}, nil
}

// Options returns the effective configuration.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Overrides are per-call changes to a pipeline's options. Nil pointers and
// nil interfaces keep the current value, so any explicit value, zero
// included, can be set.
type Overrides struct {
	EdgeLow      *int
	EdgeHigh     *int
	MinArea      *float64
	ApproxFactor *float64
	SquareMin    *float64
	SquareMax    *float64
	CircleMin    *float64
	Colors       ColorClassifier
	Palette      Palette
	Workers      *int
}

// Empty reports whether o changes nothing.
func (o Overrides) Empty() bool {
	return o.EdgeLow == nil && o.EdgeHigh == nil && o.MinArea == nil &&
		o.ApproxFactor == nil && o.SquareMin == nil && o.SquareMax == nil &&
		o.CircleMin == nil && o.Colors == nil && o.Palette == nil && o.Workers == nil
}

// Override returns a new pipeline whose options are p's with every set field
// of o laid over them. The result is validated like NewPipeline; p is
// unchanged.
func (p *Pipeline) Override(o Overrides) (*Pipeline, error) {
	opts := p.opts
	setInt(&opts.Edges.Low, o.EdgeLow)
	setInt(&opts.Edges.High, o.EdgeHigh)
	setFloat(&opts.Candidates.MinArea, o.MinArea)
	setFloat(&opts.Candidates.ApproxFactor, o.ApproxFactor)
	setFloat(&opts.Shapes.SquareMin, o.SquareMin)
	setFloat(&opts.Shapes.SquareMax, o.SquareMax)
	setFloat(&opts.Shapes.CircleMin, o.CircleMin)
	setInt(&opts.Workers, o.Workers)
	if o.Colors != nil {
		opts.Colors = o.Colors
	}
	if o.Palette != nil {
		opts.Palette = o.Palette
	}

	// Explicit values are validated as given, not defaulted.
	if opts.Edges.High <= 0 {
		return nil, fmt.Errorf("invalid edge thresholds: high %d must be positive", opts.Edges.High)
	}
	if opts.Candidates.MinArea <= 0 || opts.Candidates.ApproxFactor <= 0 {
		return nil, fmt.Errorf("invalid candidate options %+v: values must be positive", opts.Candidates)
	}
	if opts.Shapes.SquareMin <= 0 || opts.Shapes.SquareMax <= 0 || opts.Shapes.CircleMin <= 0 {
		return nil, fmt.Errorf("invalid shape thresholds %+v: values must be positive", opts.Shapes)
	}
	return NewPipeline(opts)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Process runs edge extraction, contour discovery, feature extraction and
// classification on img.
//
// Output order follows contour discovery order. A contour that fails a
// filter is skipped without affecting the others, and a frame with no
// qualifying shapes yields an empty, non-nil slice. img is never modified.
func (p *Pipeline) Process(img image.Image) []IdentifiedShape {
	shapes, _ := p.ProcessWithEdges(img)
	return shapes
}

// ProcessWithEdges is Process that also returns the intermediate edge map.
func (p *Pipeline) ProcessWithEdges(img image.Image) ([]IdentifiedShape, *imaging.EdgeMap) {
	edges := imaging.ExtractEdges(img, p.opts.Edges)
	contours := FindContours(edges)

	width, height := edges.Width, edges.Height
	results := make([]IdentifiedShape, len(contours))
	kept := make([]bool, len(contours))

	p.forEach(len(contours), func(i int) {
		ds, ok := BuildCandidate(contours[i], p.opts.Candidates)
		if !ok {
			return
		}
		name := p.opts.Colors.Classify(img, ds.Centroid)
		results[i] = IdentifiedShape{
			DetectedShape: ds,
			Label:         p.opts.Shapes.Classify(ds),
			Color:         name,
			Swatch:        p.opts.Palette.Swatch(name),
			Coordinates:   MapCoordinates(width, height, ds.Centroid),
		}
		kept[i] = true
	})

	out := make([]IdentifiedShape, 0, len(contours))
	for i, ok := range kept {
		if ok {
			out = append(out, results[i])
		}
	}
	return out, edges
}

// Detect stops after feature extraction and returns the unclassified shapes.
func (p *Pipeline) Detect(img image.Image) []DetectedShape {
	contours := FindContours(imaging.ExtractEdges(img, p.opts.Edges))
	return BuildCandidates(contours, p.opts.Candidates)
}

// forEach calls fn(i) for i in [0, n) on up to Workers goroutines. Each
// index is handled exactly once; fn must write only to index-owned slots.
func (p *Pipeline) forEach(n int, fn func(i int)) {
	workers := p.opts.Workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		next <- i
	}
	close(next)
	wg.Wait()
}
