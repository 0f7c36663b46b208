package raster

import "fmt"

// Image is an ordered set of bands over one grid.
type Image struct {
	Grid  Grid
	Bands []*Band
}

// NewImage groups bands into an image, checking that all share grid.
func NewImage(grid Grid, bands ...*Band) (*Image, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	for _, b := range bands {
		if !b.Grid.Equal(grid) {
			return nil, fmt.Errorf("band %q: %w", b.Name, ErrGridMismatch)
		}
	}
	return &Image{Grid: grid, Bands: bands}, nil
}

// Band returns the band with the given name.
func (im *Image) Band(name string) (*Band, error) {
	for _, b := range im.Bands {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBandNotFound, name)
}

// Select returns a new image holding the named bands in the given order.
func (im *Image) Select(names ...string) (*Image, error) {
	bands := make([]*Band, 0, len(names))
	for _, name := range names {
		b, err := im.Band(name)
		if err != nil {
			return nil, err
		}
		bands = append(bands, b)
	}
	return &Image{Grid: im.Grid, Bands: bands}, nil
}

// BandNames lists the image's bands in order.
func (im *Image) BandNames() []string {
	names := make([]string, len(im.Bands))
	for i, b := range im.Bands {
		names[i] = b.Name
	}
	return names
}
