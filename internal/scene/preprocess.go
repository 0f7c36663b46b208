package scene

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/raster"
)

// Preprocessor builds reflectance composites from an Archive.
type Preprocessor struct {
	archive Archive
	product Product
	log     zerolog.Logger
}

// NewPreprocessor creates a preprocessor for product over archive.
func NewPreprocessor(archive Archive, product Product, log zerolog.Logger) *Preprocessor {
	return &Preprocessor{
		archive: archive,
		product: product,
		log:     log.With().Str("component", "scene").Logger(),
	}
}

// Composite is a median reflectance image and the scenes it was built from.
type Composite struct {
	Image  *raster.Image
	Scenes []Info

	// ValidPixels counts composite pixels with at least one clear observation.
	ValidPixels int
}

// Composite selects, masks, rescales and median-composites the scenes
// matching q.
//
// # Algorithm
//
//  1. List matching scenes. None is ErrNoImagery.
//  2. For each scene, drop pixels whose QA value has the cloud or shadow bit
//     set and convert the remaining digital numbers to reflectance.
//  3. Resample every scene onto the grid of the first one, cropped to the
//     pixel window of the query region.
//  4. Per pixel and band, take the median of the clear observations. Pixels
//     outside the query region, or without any clear observation, are
//     invalid.
//
// If every pixel ends up invalid the result is ErrNoImagery rather than an
// all-masked image.
func (p *Preprocessor) Composite(ctx context.Context, q Query) (*Composite, error) {
	if q.Collection == "" {
		q.Collection = p.product.Collection
	}

	infos, err := p.archive.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: no %s scenes between %s and %s at or below %.0f%% cloud",
			ErrNoImagery, q.Collection, q.Start.Format("2006-01-02"), q.End.Format("2006-01-02"), q.MaxCloudCover)
	}
	p.log.Debug().Int("scenes", len(infos)).Str("collection", q.Collection).Msg("archive query")

	grid := infos[0].Grid.Crop(q.ROI, 0)
	if grid.Len() == 0 {
		return nil, fmt.Errorf("%w: region lies outside scene %s", ErrNoImagery, infos[0].ID)
	}
	stacks := make([][][]float64, len(p.product.Bands))
	for b := range stacks {
		stacks[b] = make([][]float64, grid.Len())
	}

	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := p.archive.Load(ctx, info.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load scene %s: %w", info.ID, err)
		}
		clear, err := p.Prepare(s)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare scene %s: %w", info.ID, err)
		}
		for b, band := range clear.Bands {
			band = band.Resample(grid)
			for i := range band.Data {
				if v, ok := band.Value(i); ok {
					stacks[b][i] = append(stacks[b][i], v)
				}
			}
		}
	}

	bands := make([]*raster.Band, len(p.product.Bands))
	valid := 0
	for b, name := range p.product.Bands {
		band := raster.NewBand(name, grid)
		band.Valid = make([]bool, grid.Len())
		for row := 0; row < grid.Height; row++ {
			for col := 0; col < grid.Width; col++ {
				i := grid.Index(col, row)
				obs := stacks[b][i]
				if len(obs) == 0 {
					continue
				}
				if !q.ROI.IsZero() && !q.ROI.Contains(grid.Center(col, row)) {
					continue
				}
				band.Data[i] = median(obs)
				band.Valid[i] = true
				if b == 0 {
					valid++
				}
			}
		}
		bands[b] = band
	}
	if valid == 0 {
		return nil, fmt.Errorf("%w: all %d scenes masked over region", ErrNoImagery, len(infos))
	}

	img, err := raster.NewImage(grid, bands...)
	if err != nil {
		return nil, err
	}
	p.log.Info().Int("scenes", len(infos)).Int("valid_pixels", valid).Msg("composite built")

	return &Composite{Image: img, Scenes: infos, ValidPixels: valid}, nil
}

// Prepare masks cloud and shadow pixels of s and rescales its reflectance
// bands. The returned image holds the product's bands in order; masked pixels
// are invalid, never zero.
func (p *Preprocessor) Prepare(s *Scene) (*raster.Image, error) {
	qa, err := s.Image.Band(p.product.QABand)
	if err != nil {
		return nil, err
	}

	out := make([]*raster.Band, len(p.product.Bands))
	for b, name := range p.product.Bands {
		src, err := s.Image.Band(name)
		if err != nil {
			return nil, err
		}
		refl, err := raster.Combine(name, func(v []float64) (float64, bool) {
			if p.product.Masked(uint16(v[1])) {
				return 0, false
			}
			return p.product.Reflectance(v[0]), true
		}, src, qa)
		if err != nil {
			return nil, err
		}
		out[b] = refl
	}
	return raster.NewImage(s.Image.Grid, out...)
}

// median returns the middle value of obs, averaging the two middle values for
// even counts. obs is reordered.
func median(obs []float64) float64 {
	sort.Float64s(obs)
	n := len(obs)
	if n%2 == 1 {
		return obs[n/2]
	}
	return (obs[n/2-1] + obs[n/2]) / 2
}
