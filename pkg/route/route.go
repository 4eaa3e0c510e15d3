// Package route defines the closed set of execution routes and the routing
// decision that flows through the request pipeline.
package route

import "fmt"

// Route identifies which execution pipeline handles a request.
type Route string

// The four routes. The set is closed: the classifier always resolves to
// exactly one of these, and dispatch is exhaustive over them.
const (
	DirectEdit   Route = "direct_edit"
	FeatureBuild Route = "feature_build"
	MetaChat     Route = "meta_chat"
	Refactor     Route = "refactor"
)

// All lists every route in dispatch order.
func All() []Route {
	return []Route{DirectEdit, FeatureBuild, MetaChat, Refactor}
}

// Parse converts a stored route string back into a Route.
func Parse(s string) (Route, error) {
	switch Route(s) {
	case DirectEdit, FeatureBuild, MetaChat, Refactor:
		return Route(s), nil
	}
	return "", fmt.Errorf("unknown route %q", s)
}

// Valid reports whether r is one of the four known routes.
func (r Route) Valid() bool {
	switch r {
	case DirectEdit, FeatureBuild, MetaChat, Refactor:
		return true
	}
	return false
}

func (r Route) String() string {
	return string(r)
}
