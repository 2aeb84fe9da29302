package fastview

import (
	"context"
	"errors"

	channerics "github.com/niceyeti/channerics/channels"
)

// ViewBuilder constructs one or more views sharing a common view-model.
// Build wires the source chan through the model conversion and out to every view.
type ViewBuilder[DataModel any, ViewModel any] struct {
	source   <-chan DataModel             // e.g. solver snapshots
	convert  func(DataModel) ViewModel    // data model to view model
	builders []ViewBuilderFunc[ViewModel] // in the order views are returned
	done     <-chan struct{}              // okay if nil
}

// NewViewBuilder returns a builder for a given data-model and view-model.
func NewViewBuilder[DataModel any, ViewModel any]() *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{}
}

// WithModel sets the source of data models and the function converting each to a view-model.
func (vb *ViewBuilder[DataModel, ViewModel]) WithModel(
	input <-chan DataModel,
	convert func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	vb.source = input
	vb.convert = convert
	return vb
}

// ViewBuilderFunc builds a view from a 'done' channel for cleanup and its view-model channel.
type ViewBuilderFunc[ViewModel any] func(<-chan struct{}, <-chan ViewModel) ViewComponent

// WithView adds a view to build.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(
	build ViewBuilderFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.builders = append(vb.builders, build)
	return vb
}

// WithContext closes all downstream channels when ctx is cancelled.
func (vb *ViewBuilder[DataModel, ViewModel]) WithContext(
	ctx context.Context,
) *ViewBuilder[DataModel, ViewModel] {
	vb.done = ctx.Done()
	return vb
}

// ErrNoViews is returned when Build() is called before any views were added.
var ErrNoViews error = errors.New("no views to build: WithView must be called")

// ErrNoModel is returned when Build() is called before WithModel().
var ErrNoModel error = errors.New("no model specified: WithModel must be called")

// Build converts the source to view-models, broadcasts them to every view, and returns
// the views in the order they were added.
func (vb *ViewBuilder[DataModel, ViewModel]) Build() (views []ViewComponent, err error) {
	if len(vb.builders) == 0 {
		return nil, ErrNoViews
	}
	if vb.convert == nil || vb.source == nil {
		return nil, ErrNoModel
	}

	models := channerics.Convert(vb.done, vb.source, vb.convert)
	fanout := channerics.Broadcast(vb.done, models, len(vb.builders))
	for i, build := range vb.builders {
		views = append(views, build(vb.done, fanout[i]))
	}
	return
}
