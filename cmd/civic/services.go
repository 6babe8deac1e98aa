// ABOUTME: Builds the services shared by the commands
// ABOUTME: Wires config, cache, location sensor, backend client and app shell

package main

import (
	"context"
	"fmt"

	"github.com/harper/civic/internal/api"
	"github.com/harper/civic/internal/app"
	"github.com/harper/civic/internal/geocode"
	"github.com/harper/civic/internal/location"
	"github.com/harper/civic/internal/mapview"
	"github.com/harper/civic/internal/storage"
	"github.com/harper/civic/internal/ui"
)

// Map grid size for the terminal view.
const (
	mapCols = 64
	mapRows = 20
)

// issueService is swapped out in tests.
var issueService = func() api.IssueService {
	return api.NewClientFromConfig(cfg, logger)
}

// newLocator reads the user position from the recorded fix log.
func newLocator() *location.Adapter {
	sensor := location.StoreSensor{Source: store, IsNotFound: storage.IsNotFound}
	return location.NewAdapter(sensor, cfg.GetFallback(), logger)
}

func newPlaceSearch() (*geocode.PlaceSearch, error) {
	provider, err := geocode.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up place search: %w", err)
	}
	return geocode.NewPlaceSearch(provider, logger), nil
}

// startShell mounts the app shell on a terminal-sized viewport. The caller
// must Close the shell.
func startShell(ctx context.Context) (*app.Shell, *mapview.Viewport, error) {
	vp := mapview.NewViewport(cfg.GetFallback(), mapview.MapZoom, ui.GridSize(mapCols, mapRows))
	shell := app.New(newLocator(), issueService(), vp, app.Options{
		Cache:  store,
		Logger: logger,
	})
	if err := shell.Start(ctx); err != nil {
		shell.Close()
		return nil, nil, err
	}
	return shell, vp, nil
}
