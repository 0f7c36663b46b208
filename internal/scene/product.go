package scene

// Landsat 8 Collection 2 Level-2 surface reflectance band names.
const (
	BandBlue  = "SR_B2"
	BandGreen = "SR_B3"
	BandRed   = "SR_B4"
	BandNIR   = "SR_B5"
	BandSWIR1 = "SR_B6"
	BandSWIR2 = "SR_B7"
	BandQA    = "QA_PIXEL"
)

// Product describes how a sensor product stores reflectance and quality.
type Product struct {
	// Collection is the archive identifier of the product.
	Collection string `json:"collection"`

	// Bands are the reflectance bands kept in the composite, in order.
	Bands []string `json:"bands"`

	// QABand holds per-pixel quality bit flags.
	QABand string `json:"qa_band"`

	// CloudBit and ShadowBit are the QA bit positions flagging cloud and
	// cloud shadow.
	CloudBit  uint `json:"cloud_bit"`
	ShadowBit uint `json:"shadow_bit"`

	// Reflectance = DN*Scale + Offset.
	Scale  float64 `json:"scale"`
	Offset float64 `json:"offset"`
}

// Landsat8 is the Landsat 8 Collection 2 Tier 1 Level-2 product.
var Landsat8 = Product{
	Collection: "LANDSAT/LC08/C02/T1_L2",
	Bands:      []string{BandBlue, BandGreen, BandRed, BandNIR, BandSWIR1, BandSWIR2},
	QABand:     BandQA,
	CloudBit:   3,
	ShadowBit:  4,
	Scale:      0.0000275,
	Offset:     -0.2,
}

// Masked reports whether a QA value flags cloud or cloud shadow.
func (p Product) Masked(qa uint16) bool {
	return qa&(1<<p.CloudBit) != 0 || qa&(1<<p.ShadowBit) != 0
}

// Reflectance converts a digital number to surface reflectance.
func (p Product) Reflectance(dn float64) float64 {
	return dn*p.Scale + p.Offset
}

// Products maps configuration names to known products.
var Products = map[string]Product{
	"landsat8": Landsat8,
}

// LookupProduct returns the product registered under name.
func LookupProduct(name string) (Product, bool) {
	p, ok := Products[name]
	return p, ok
}
