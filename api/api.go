// Package api provides HTTP handlers for the Accord access control
// engine and its issue tracker sync coordinator.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/grcware/accord"
	"github.com/grcware/accord/bulksync"
)

// API wires all Accord HTTP handlers together. The coordinator is
// optional; sync routes are only registered when one is configured.
type API struct {
	eng    *accord.Engine
	coord  *bulksync.Coordinator
	router forge.Router
}

// New creates an API from an Engine, an optional sync Coordinator, and
// a Forge router.
func New(eng *accord.Engine, coord *bulksync.Coordinator, router forge.Router) *API {
	return &API{eng: eng, coord: coord, router: router}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	if err := a.RegisterRoutes(a.router); err != nil {
		panic("accord: register routes: " + err.Error())
	}
	return a.router.Handler()
}

// RegisterRoutes registers all API routes into the given Forge router.
func (a *API) RegisterRoutes(router forge.Router) error {
	registerers := []func(forge.Router) error{
		a.registerCheckRoutes,
		a.registerRoleRoutes,
		a.registerGrantRoutes,
		a.registerPersonRoutes,
		a.registerRelationshipRoutes,
	}
	if a.coord != nil {
		registerers = append(registerers, a.registerSyncRoutes)
	}
	for _, fn := range registerers {
		if err := fn(router); err != nil {
			return err
		}
	}
	return nil
}
