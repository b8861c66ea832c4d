package detection

import (
	"fmt"
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// BoundsOf converts an image rectangle.
func BoundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Rect converts back to an image rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Blob is one connected region with its shape descriptors.
type Blob struct {
	// ID is the 1-based rank after sorting.
	ID int `json:"id"`

	// Contour is the traced boundary in region coordinates.
	Contour []image.Point `json:"-"`

	// Hole marks an inner boundary (tree retrieval only).
	Hole bool `json:"hole,omitempty"`

	Area      float64    `json:"area"`
	Perimeter float64    `json:"perimeter"`
	Centroid  vimg.Point `json:"centroid"`
	Bounds    Bounds     `json:"bounds"`

	// RotatedRect and Ellipse need at least five contour points.
	RotatedRect *RotatedRect `json:"rotated_rect,omitempty"`
	Ellipse     *Ellipse     `json:"ellipse,omitempty"`

	// Circularity is 4π·area/perimeter², 1 for a perfect circle.
	Circularity float64 `json:"circularity"`
	// AspectRatio is bounding box width over height.
	AspectRatio float64 `json:"aspect_ratio"`
	// Convexity is area over convex hull area.
	Convexity float64 `json:"convexity"`
	// Solidity is the same ratio reported under its own name.
	Solidity float64 `json:"solidity"`
	// Extent is area over bounding box area.
	Extent             float64 `json:"extent"`
	EquivalentDiameter float64 `json:"equivalent_diameter"`
}

// Range is an inclusive interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether Min <= v <= Max.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Unbounded is the upper limit used for open-ended ranges.
const Unbounded = math.MaxFloat64

// BlobFilter discards blobs whose descriptors fall outside its ranges.
type BlobFilter struct {
	Area         Range
	Perimeter    Range
	Circularity  Range
	AspectRatio  Range
	MinConvexity float64
}

// DefaultBlobFilter keeps blobs of at least 100 square pixels.
func DefaultBlobFilter() BlobFilter {
	return BlobFilter{
		Area:        Range{Min: 100, Max: Unbounded},
		Perimeter:   Range{Min: 0, Max: Unbounded},
		Circularity: Range{Min: 0, Max: 1},
		AspectRatio: Range{Min: 0, Max: Unbounded},
	}
}

// Accept reports whether b passes every range.
func (f BlobFilter) Accept(b Blob) bool {
	return f.Area.Contains(b.Area) &&
		f.Perimeter.Contains(b.Perimeter) &&
		f.Circularity.Contains(b.Circularity) &&
		f.AspectRatio.Contains(b.AspectRatio) &&
		b.Convexity >= f.MinConvexity
}

// SortKey selects the blob ordering.
type SortKey string

const (
	SortByArea        SortKey = "area"
	SortByPerimeter   SortKey = "perimeter"
	SortByCenterX     SortKey = "center_x"
	SortByCenterY     SortKey = "center_y"
	SortByCircularity SortKey = "circularity"
	SortByAspectRatio SortKey = "aspect_ratio"
)

// ParseSortKey validates a sort key name.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortByArea, SortByPerimeter, SortByCenterX, SortByCenterY, SortByCircularity, SortByAspectRatio:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

func (k SortKey) value(b Blob) float64 {
	switch k {
	case SortByPerimeter:
		return b.Perimeter
	case SortByCenterX:
		return b.Centroid.X
	case SortByCenterY:
		return b.Centroid.Y
	case SortByCircularity:
		return b.Circularity
	case SortByAspectRatio:
		return b.AspectRatio
	default:
		return b.Area
	}
}

// BlobOptions controls ExtractBlobs.
type BlobOptions struct {
	Filter     BlobFilter
	SortBy     SortKey
	Descending bool
	// MaxCount truncates the sorted list; zero or less keeps everything.
	MaxCount int
	Mode     RetrievalMode
	Approx   Approximation
}

// DefaultBlobOptions returns up to 100 external blobs, largest first.
func DefaultBlobOptions() BlobOptions {
	return BlobOptions{
		Filter:     DefaultBlobFilter(),
		SortBy:     SortByArea,
		Descending: true,
		MaxCount:   100,
		Mode:       RetrieveExternal,
		Approx:     ApproxSimple,
	}
}

// ExtractBlobs traces the contours of m, describes, filters and sorts them.
// IDs are assigned 1..n in the final order.
func ExtractBlobs(m *Mask, opts BlobOptions) []Blob {
	contours := FindContours(m, opts.Mode, opts.Approx)

	blobs := make([]Blob, 0, len(contours))
	for _, c := range contours {
		b := DescribeContour(c.Points)
		b.Hole = c.Hole
		if opts.Filter.Accept(b) {
			blobs = append(blobs, b)
		}
	}

	SortBlobs(blobs, opts.SortBy, opts.Descending)
	if opts.MaxCount > 0 && len(blobs) > opts.MaxCount {
		blobs = blobs[:opts.MaxCount]
	}
	for i := range blobs {
		blobs[i].ID = i + 1
	}
	return blobs
}

// DescribeContour computes every descriptor of a blob from its boundary.
func DescribeContour(pts []image.Point) Blob {
	b := Blob{
		Contour:   pts,
		Area:      ContourArea(pts),
		Perimeter: ArcLength(pts, true),
		Centroid:  ContourCentroid(pts),
	}
	box := BoundingRect(pts)
	b.Bounds = BoundsOf(box)

	if b.Perimeter > 0 {
		b.Circularity = 4 * math.Pi * b.Area / (b.Perimeter * b.Perimeter)
	}
	if box.Dy() > 0 {
		b.AspectRatio = float64(box.Dx()) / float64(box.Dy())
	}
	if boxArea := float64(box.Dx() * box.Dy()); boxArea > 0 {
		b.Extent = b.Area / boxArea
	}
	b.EquivalentDiameter = math.Sqrt(4 * b.Area / math.Pi)

	fpts := ToPoints(pts)
	b.Convexity = 1
	if hullArea := PolygonArea(ConvexHull(fpts)); hullArea > 0 {
		b.Convexity = b.Area / hullArea
	}
	b.Solidity = b.Convexity

	if len(pts) >= 5 {
		rr := MinAreaRect(fpts)
		b.RotatedRect = &rr
		if e, ok := FitEllipse(fpts); ok {
			b.Ellipse = &e
		}
	}
	return b
}

// SortBlobs orders blobs in place by key. Equal keys keep their trace order.
func SortBlobs(blobs []Blob, key SortKey, descending bool) {
	sort.SliceStable(blobs, func(i, j int) bool {
		a, b := key.value(blobs[i]), key.value(blobs[j])
		if descending {
			return a > b
		}
		return a < b
	})
}

// BlobStats summarises the areas of a blob list.
type BlobStats struct {
	Count       int     `json:"count"`
	TotalArea   float64 `json:"total_area"`
	AverageArea float64 `json:"average_area"`
	Largest     float64 `json:"largest_area"`
	Smallest    float64 `json:"smallest_area"`
}

// SummarizeBlobs computes area statistics. An empty list gives zeros.
func SummarizeBlobs(blobs []Blob) BlobStats {
	if len(blobs) == 0 {
		return BlobStats{}
	}
	areas := make([]float64, len(blobs))
	for i, b := range blobs {
		areas[i] = b.Area
	}
	return BlobStats{
		Count:       len(blobs),
		TotalArea:   floats.Sum(areas),
		AverageArea: stat.Mean(areas, nil),
		Largest:     floats.Max(areas),
		Smallest:    floats.Min(areas),
	}
}
