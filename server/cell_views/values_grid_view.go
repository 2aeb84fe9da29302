package cell_views

import (
	"fmt"
	"html/template"

	"gridmdp/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// ValuesGrid shows each cell's current value and its policy arrow.
type ValuesGrid struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewValuesGrid(
	done <-chan struct{},
	cells <-chan [][]Cell,
) (vg *ValuesGrid) {
	vg = &ValuesGrid{id: "valuesgrid"}
	vg.updates = channerics.Convert(done, cells, vg.onUpdate)
	return
}

func (vg *ValuesGrid) Updates() <-chan []fastview.EleUpdate {
	return vg.updates
}

func valueTextId(cell Cell) string {
	return fmt.Sprintf("%d-%d-value-text", cell.X, cell.Y)
}

func policyArrowId(cell Cell) string {
	return fmt.Sprintf("%d-%d-policy-arrow", cell.X, cell.Y)
}

// Returns the set of view updates needed for the view to reflect the current values.
func (vg *ValuesGrid) onUpdate(cells [][]Cell) (ops []fastview.EleUpdate) {
	for _, row := range cells {
		for _, cell := range row {
			ops = append(ops, fastview.EleUpdate{
				EleId: valueTextId(cell),
				Ops: []fastview.Op{
					{Key: "textContent", Value: fmt.Sprintf("%.2f", cell.Value)},
				},
			})
			if cell.Terminal {
				continue
			}
			ops = append(ops, fastview.EleUpdate{
				EleId: policyArrowId(cell),
				Ops: []fastview.Op{
					{Key: "transform", Value: fmt.Sprintf("rotate(%d)", cell.PolicyArrowRotation)},
					{Key: "opacity", Value: fmt.Sprintf("%.1f", cell.PolicyArrowOpacity)},
				},
			})
		}
	}
	return
}

// Parse defines the grid's svg: one square per cell, holding its value text and policy arrow.
func (vg *ValuesGrid) Parse(
	t *template.Template,
) (name string, err error) {
	name = vg.id
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<div id="state_values" style="padding:20px;">
			{{ $rows := len . }}
			{{ $cell_width := 80 }}
			{{ $cell_height := $cell_width }}
			{{ $width := mult $cell_width $rows }}
			{{ $height := mult $cell_height $rows }}
			{{ $half_height := div $cell_height 2 }}
			{{ $half_width := div $cell_width 2 }}
			<svg id="` + vg.id + `"
				width="{{ add $width 1 }}px"
				height="{{ add $height 1 }}px"
				style="shape-rendering: crispEdges;">
				{{ range $row := . }}
					{{ range $cell := $row }}
					<g>
						<rect
							x="{{ mult $cell.X $cell_width }}"
							y="{{ mult $cell.Y $cell_height }}"
							width="{{ $cell_width }}"
							height="{{ $cell_height }}"
							fill="{{ $cell.Fill }}"
							stroke="black"
							stroke-width="1"/>
						<text id="{{$cell.X}}-{{$cell.Y}}-value-text"
							x="{{ add (mult $cell.X $cell_width) $half_width }}"
							y="{{ add (mult $cell.Y $cell_height) (sub $half_height 10) }}"
							stroke="blue"
							dominant-baseline="text-top" text-anchor="middle"
							>{{ printf "%.2f" $cell.Value }}</text>
						{{ if not $cell.Terminal }}
						<g transform="translate({{ add (mult $cell.X $cell_width) $half_width }}, {{ add (mult $cell.Y $cell_height) (add $half_height 15) }})">
							<text id="{{$cell.X}}-{{$cell.Y}}-policy-arrow"
							stroke="blue" stroke-width="1"
							dominant-baseline="central" text-anchor="middle"
							opacity="{{ $cell.PolicyArrowOpacity }}"
							transform="rotate({{ $cell.PolicyArrowRotation }})"
							>&uarr;</text>
						</g>
						{{ end }}
					</g>
					{{ end }}
				{{ end }}
			</svg>
		</div>
		{{ end }}`)
	return
}
