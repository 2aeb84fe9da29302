// fastview implements server side views pushed to the browser over websocket:
// an input data model is converted to a view-model, which is multiplexed to one
// or more views, each emitting element updates for the client to apply.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	// The id by which the client finds the element.
	EleId string
	// Op keys are attribute keys or 'textContent'. For example ('fill','red') sets
	// the fill attribute, and ('textContent','1.23') sets the element's text.
	Ops []Op
}

// Op is a key and value, e.g. an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// ViewComponent is a server side view: Parse adds its initial form to a parent template,
// and Updates is the chan by which its ele-updates are published.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse defines the component within the parent template, inheriting its func-map,
	// and returns the name of the defined template.
	Parse(*template.Template) (string, error)
}
