package root_view

import (
	"context"
	"html/template"
	"time"

	"gridmdp/grid_world"
	"gridmdp/planning"
	"gridmdp/server/cell_views"
	"gridmdp/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// RootView is the main page's index.html: the container for all the view components
// and the wiring of their channels.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView builds the views of board, fed by solver snapshots.
func NewRootView(
	ctx context.Context,
	board *grid_world.Board,
	tieEpsilon float64,
	snapshots <-chan planning.Snapshot,
) (*RootView, error) {
	views, err := fastview.NewViewBuilder[planning.Snapshot, [][]cell_views.Cell]().
		WithContext(ctx).
		WithModel(snapshots, cell_views.NewConverter(board, tieEpsilon)).
		WithView(func(
			done <-chan struct{},
			cellUpdates <-chan [][]cell_views.Cell) fastview.ViewComponent {
			return cell_views.NewValuesGrid(done, cellUpdates)
		}).
		WithView(func(
			done <-chan struct{},
			cellUpdates <-chan [][]cell_views.Cell) fastview.ViewComponent {
			return cell_views.NewValueFunction(done, board.Size, cellUpdates)
		}).
		Build()
	if err != nil {
		return nil, err
	}

	return &RootView{
		views:   views,
		updates: fanIn(ctx.Done(), views),
	}, nil
}

// Updates returns the ele-update channel aggregating all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Parse builds the main page's template, with the websocket bootstrap code, and returns its name.
// It also defines the func-map the child components depend on.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	rt := parent.Funcs(
		template.FuncMap{
			"add":  func(i, j int) int { return i + j },
			"sub":  func(i, j int) int { return i - j },
			"mult": func(i, j int) int { return i * j },
			"div":  func(i, j int) int { return i / j },
		})

	var bodySpec string
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(rt)
		if parseErr != nil {
			err = parseErr
			return
		}
		bodySpec += `{{ template "` + tname + `" . }}`
	}

	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<link rel="icon" href="data:,">
			<script>
				// Element updates pushed by the server: set textContent or an attribute by element id.
				function apply(update) {
					const ele = document.getElementById(update.EleId);
					if (!ele) {
						return;
					}
					update.Ops.forEach(op => op.Key === "textContent"
						? ele.textContent = op.Value
						: ele.setAttribute(op.Key, op.Value));
				}

				const ws = new WebSocket("ws://" + location.host + "/ws");
				ws.onmessage = event => JSON.parse(event.data).forEach(apply);
				ws.onclose = () => console.log("solver view disconnected");

				// The solver's progress, polled from the status endpoint.
				setInterval(() => fetch("/status")
					.then(resp => resp.json())
					.then(st => {
						document.getElementById("progress").textContent =
							st.phase + "  round " + st.round + "  sweep " + st.sweep +
							"  delta " + st.delta.toPrecision(4);
					})
					.catch(() => {}), 500);
			</script>
		</head>
		<body>
			<pre id="progress">waiting for the solver</pre>
			<div style="display:flex; flex-wrap:wrap;">
			` + bodySpec + `
			</div>
		</body>
	</html>
	{{ end }}
	`

	_, err = rt.Parse(indexTemplate)
	return
}

// fanIn aggregates the views' ele-update channels into a single batched channel.
func fanIn(
	done <-chan struct{},
	views []fastview.ViewComponent,
) <-chan []fastview.EleUpdate {
	inputs := make([]<-chan []fastview.EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batchify(
		done,
		channerics.Merge(done, inputs...),
		time.Millisecond*20)
}

// batchify collects updates for the passed period before sending, keeping only the latest
// update per ele-id. A pending batch is flushed on the next tick even if the source goes quiet.
func batchify(
	done <-chan struct{},
	source <-chan []fastview.EleUpdate,
	rate time.Duration,
) <-chan []fastview.EleUpdate {
	output := make(chan []fastview.EleUpdate)

	go func() {
		defer close(output)

		data := map[string]fastview.EleUpdate{}
		ticker := channerics.NewTicker(done, rate)
		for {
			select {
			case <-done:
				return
			case updates, ok := <-source:
				if !ok {
					if len(data) > 0 {
						select {
						case output <- slicedVals(data):
						case <-done:
						}
					}
					return
				}
				for _, update := range updates {
					data[update.EleId] = update
				}
			case <-ticker:
				if len(data) == 0 {
					continue
				}
				select {
				case output <- slicedVals(data):
					data = map[string]fastview.EleUpdate{}
				case <-done:
					return
				}
			}
		}
	}()

	return output
}

// returns the values of a map as a slice
func slicedVals[T1 comparable, T2 any](mp map[T1]T2) (sliced []T2) {
	for _, v := range mp {
		sliced = append(sliced, v)
	}
	return
}
