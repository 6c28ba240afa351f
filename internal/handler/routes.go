package handler

import (
	"sort"

	"github.com/S2-group/swim-HTTP/internal/domain"
)

// Route identifies one supported control operation. Dispatch switches over
// these tags, so adding a route means adding a tag, a table entry and a case.
type Route int

const (
	RouteNone Route = iota
	RouteMonitor
	RouteMonitorSchema
	RouteExecuteSchema
	RouteAdaptationOptions
	RouteAdaptationOptionsSchema
	RouteExecute
)

// routeTable is built once and never mutated. The outer key is the method,
// so an unknown method and an unknown path are told apart.
var routeTable = map[string]map[string]Route{
	domain.MethodGet: {
		domain.PathMonitor:                 RouteMonitor,
		domain.PathMonitorSchema:           RouteMonitorSchema,
		domain.PathExecuteSchema:           RouteExecuteSchema,
		domain.PathAdaptationOptions:       RouteAdaptationOptions,
		domain.PathAdaptationOptionsSchema: RouteAdaptationOptionsSchema,
	},
	domain.MethodPut: {
		domain.PathExecute: RouteExecute,
	},
}

// Resolve maps (method, path) to a route. It returns ErrMethodNotAllowed
// when the method has no routes and ErrRouteNotFound when only the path is
// unknown.
func Resolve(method, path string) (Route, error) {
	paths, ok := routeTable[method]
	if !ok {
		return RouteNone, &domain.ErrMethodNotAllowed{Method: method}
	}
	route, ok := paths[path]
	if !ok {
		return RouteNone, &domain.ErrRouteNotFound{Method: method, Path: path}
	}
	return route, nil
}

// RouteEntry describes one registered route.
type RouteEntry struct {
	Method string
	Path   string
	Route  Route
}

// Routes lists every registered route in a stable order.
func Routes() []RouteEntry {
	var out []RouteEntry
	for _, method := range []string{domain.MethodGet, domain.MethodPut} {
		for path, route := range routeTable[method] {
			out = append(out, RouteEntry{Method: method, Path: path, Route: route})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return out
}

// String returns the metric/log label of the route.
func (r Route) String() string {
	switch r {
	case RouteMonitor:
		return "GET " + domain.PathMonitor
	case RouteMonitorSchema:
		return "GET " + domain.PathMonitorSchema
	case RouteExecuteSchema:
		return "GET " + domain.PathExecuteSchema
	case RouteAdaptationOptions:
		return "GET " + domain.PathAdaptationOptions
	case RouteAdaptationOptionsSchema:
		return "GET " + domain.PathAdaptationOptionsSchema
	case RouteExecute:
		return "PUT " + domain.PathExecute
	default:
		return "unmatched"
	}
}
