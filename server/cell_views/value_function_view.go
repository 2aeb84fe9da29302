package cell_views

import (
	"fmt"
	"html/template"
	"math"

	"gridmdp/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// ValueFunction shows the value function as an isometric projection of the surface
// (col, row, value), one polygon per square of four adjacent cells.
type ValueFunction struct {
	id      string
	updates <-chan []fastview.EleUpdate
	// canvas size in pixels
	width, height float64
	// pixels per row or col unit, and per unit of normalized value
	xyscale, zscale float64
}

const (
	cellDim = 60
	// angle of the x and y axes, e.g. 30°
	viewAngle = math.Pi / 6
)

var sinAng, cosAng = math.Sin(viewAngle), math.Cos(viewAngle)

// NewValueFunction returns the view for a board of size x size cells.
func NewValueFunction(
	done <-chan struct{},
	size int,
	cells <-chan [][]Cell,
) (vf *ValueFunction) {
	vf = &ValueFunction{
		id:      "valuefunction",
		width:   float64(size) * cellDim * 2,
		height:  float64(size) * cellDim * 2,
		xyscale: cellDim,
		zscale:  float64(size) * cellDim * 0.5,
	}
	vf.updates = channerics.Convert(done, cells, vf.onUpdate)
	return
}

func (vf *ValueFunction) Updates() <-chan []fastview.EleUpdate {
	return vf.updates
}

// project applies an isometric projection, z being a value normalized to [0,1].
func (vf *ValueFunction) project(x, y, z float64) (float64, float64) {
	sx := (x - y) * cosAng * vf.xyscale
	sy := (x+y)*sinAng*vf.xyscale - z*vf.zscale
	return sx, sy
}

type funcPolygon struct {
	Id     string
	Fill   string
	ax, ay float64
	bx, by float64
	cx, cy float64
	dx, dy float64
}

// Points returns a string suitable for the svg-polygon 'points' attribute.
func (fp *funcPolygon) Points() string {
	return fmt.Sprintf("%d,%d %d,%d %d,%d %d,%d",
		int(fp.ax), int(fp.ay),
		int(fp.bx), int(fp.by),
		int(fp.cx), int(fp.cy),
		int(fp.dx), int(fp.dy),
	)
}

func polygonId(cell Cell) string {
	return fmt.Sprintf("%d-%d-value-polygon", cell.X, cell.Y)
}

// surface is the projected value function and its bounding box in svg coordinates.
type surface struct {
	polygons   []*funcPolygon
	xmin, ymin float64
	xmax, ymax float64
}

func (s *surface) Polygons() []*funcPolygon {
	return s.polygons
}

// transform fits the surface into the canvas, scaling down only when needed.
func (vf *ValueFunction) transform(s *surface) string {
	scaler := math.Min(
		math.Min(
			math.Abs(vf.width/(s.xmax-s.xmin)),
			math.Abs(vf.height/(s.ymax-s.ymin)),
		),
		1.0,
	)
	return fmt.Sprintf("scale(%f) translate(%d %d)", scaler, int(-s.xmin), int(-s.ymin))
}

// buildSurface projects the polygon of every cell and its right, lower and lower-right neighbors.
// Cells are visited back to front, so nearer polygons obscure farther ones.
func (vf *ValueFunction) buildSurface(cells [][]Cell) *surface {
	s := &surface{
		xmin: math.MaxFloat64, ymin: math.MaxFloat64,
		xmax: -math.MaxFloat64, ymax: -math.MaxFloat64,
	}

	minVal, maxVal := math.MaxFloat64, -math.MaxFloat64
	for _, row := range cells {
		for _, cell := range row {
			minVal = math.Min(minVal, cell.Value)
			maxVal = math.Max(maxVal, cell.Value)
		}
	}
	normalize := func(v float64) float64 {
		if maxVal <= minVal {
			return 0
		}
		return (v - minVal) / (maxVal - minVal)
	}
	vertex := func(cell Cell) (float64, float64) {
		return vf.project(float64(cell.X), float64(cell.Y), normalize(cell.Value))
	}

	for ri := 0; ri < len(cells)-1; ri++ {
		for ci := 0; ci < len(cells[ri])-1; ci++ {
			cellA := cells[ri+1][ci]
			cellB := cells[ri][ci]
			cellC := cells[ri][ci+1]
			cellD := cells[ri+1][ci+1]

			fp := &funcPolygon{
				Id:   polygonId(cellB),
				Fill: getRGBFill(normalize(avg(cellA.Value, cellB.Value, cellC.Value, cellD.Value))),
			}
			fp.ax, fp.ay = vertex(cellA)
			fp.bx, fp.by = vertex(cellB)
			fp.cx, fp.cy = vertex(cellC)
			fp.dx, fp.dy = vertex(cellD)

			s.xmin = math.Min(s.xmin, minFour(fp.ax, fp.bx, fp.cx, fp.dx))
			s.xmax = math.Max(s.xmax, maxFour(fp.ax, fp.bx, fp.cx, fp.dx))
			s.ymin = math.Min(s.ymin, minFour(fp.ay, fp.by, fp.cy, fp.dy))
			s.ymax = math.Max(s.ymax, maxFour(fp.ay, fp.by, fp.cy, fp.dy))
			s.polygons = append(s.polygons, fp)
		}
	}
	return s
}

func minFour(f1, f2, f3, f4 float64) float64 {
	return math.Min(math.Min(f1, f2), math.Min(f3, f4))
}

func maxFour(f1, f2, f3, f4 float64) float64 {
	return math.Max(math.Max(f1, f2), math.Max(f3, f4))
}

func avg(f ...float64) float64 {
	sum := 0.0
	for _, fn := range f {
		sum += fn
	}
	return sum / float64(len(f))
}

// getRGBFill shades from blue at the lowest value to red at the highest.
func getRGBFill(normalized float64) string {
	redPct := int(100.0 * normalized)
	return fmt.Sprintf("rgb(%d%%,0%%,%d%%)", redPct, 100-redPct)
}

// Returns the set of view updates needed for the view to reflect current values.
func (vf *ValueFunction) onUpdate(
	cells [][]Cell,
) (ops []fastview.EleUpdate) {
	s := vf.buildSurface(cells)
	for _, fp := range s.polygons {
		ops = append(ops, fastview.EleUpdate{
			EleId: fp.Id,
			Ops: []fastview.Op{
				{Key: "points", Value: fp.Points()},
				{Key: "fill", Value: fp.Fill},
			},
		})
	}
	if len(s.polygons) > 0 {
		ops = append(ops, fastview.EleUpdate{
			EleId: vf.id + "-group",
			Ops: []fastview.Op{
				{Key: "transform", Value: vf.transform(s)},
			},
		})
	}
	return
}

// Parse returns an svg of polygons plotting the value function surface as a 2D projection.
// A board smaller than 2x2 has no polygons and renders an empty svg.
func (vf *ValueFunction) Parse(
	t *template.Template,
) (name string, err error) {
	name = vf.id
	_, err = t.Funcs(template.FuncMap{
		"valueSurface": vf.buildSurface,
		"surfaceTransform": func(s *surface) string {
			if len(s.polygons) == 0 {
				return "translate(0 0)"
			}
			return vf.transform(s)
		},
	}).Parse(
		`{{ define "` + name + `" }}
		<div style="padding:20px;">
			{{ $surface := valueSurface . }}
			<svg id="` + vf.id + `" xmlns='http://www.w3.org/2000/svg'
				width="` + fmt.Sprintf("%d", int(vf.width)) + `px"
				height="` + fmt.Sprintf("%d", int(vf.height)) + `px"
				style="shape-rendering: crispEdges; stroke: lightgrey; stroke-opacity: 1.0; stroke-width: 1;">
				<g id="` + vf.id + `-group" transform="{{ surfaceTransform $surface }}">
				{{ range $surface.Polygons }}
					<polygon id="{{ .Id }}" fill="{{ .Fill }}" fill-opacity="1.0" points="{{ .Points }}" />
				{{ end }}
				</g>
			</svg>
		</div>
		{{ end }}`)
	return
}
