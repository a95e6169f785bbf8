// README: Navigator combines geocoding and routing for the courier "Navigate" button.
package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"
)

// Directions is what the courier sees: a link plus an optional estimate.
type Directions struct {
	Link     string
	Duration time.Duration
	Distance string
}

type Navigator struct {
	places *PlacesService
	routes *RouteService
}

func NewNavigator(apiKey string, opts ...maps.ClientOption) (*Navigator, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Navigator{places: NewPlacesService(client), routes: NewRouteService(client)}, nil
}

// Navigate resolves the destination; when origin is known it also estimates the ride.
// A failed estimate still returns the link.
func (n *Navigator) Navigate(ctx context.Context, origin, destination string) (Directions, error) {
	place, err := n.places.Resolve(ctx, destination)
	if err != nil {
		return Directions{}, err
	}
	d := Directions{Link: DirectionsLink(place)}
	if origin == "" {
		return d, nil
	}
	if dur, dist, err := n.routes.TravelEstimate(ctx, origin, place.Address); err == nil {
		d.Duration, d.Distance = dur, dist
	}
	return d, nil
}
