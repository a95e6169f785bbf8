// README: Travel estimate from the restaurant to the customer via the Directions API.
package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"
)

type RouteService struct {
	client *maps.Client
}

func NewRouteService(client *maps.Client) *RouteService {
	return &RouteService{client: client}
}

// TravelEstimate returns the bicycling duration and readable distance from origin to destination.
func (s *RouteService) TravelEstimate(ctx context.Context, origin, destination string) (time.Duration, string, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeBicycling,
		Language:    "de",
		Region:      "de",
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return 0, "", fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, "", fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	return leg.Duration, leg.Distance.HumanReadable, nil
}
