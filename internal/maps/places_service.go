// README: Address resolution for courier navigation via the Geocoding API.
package maps

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"googlemaps.github.io/maps"
)

// Place is a resolved customer address.
type Place struct {
	Address string
	Lat     float64
	Lng     float64
	PlaceID string
}

type PlacesService struct {
	client *maps.Client
}

func NewPlacesService(client *maps.Client) *PlacesService {
	return &PlacesService{client: client}
}

// Resolve geocodes a free-form address, biased to Germany.
func (s *PlacesService) Resolve(ctx context.Context, address string) (Place, error) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Region:   "de",
		Language: "de",
	})
	if err != nil {
		return Place{}, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return Place{}, fmt.Errorf("address not found: %q", address)
	}
	r := results[0]
	return Place{
		Address: r.FormattedAddress,
		Lat:     r.Geometry.Location.Lat,
		Lng:     r.Geometry.Location.Lng,
		PlaceID: r.PlaceID,
	}, nil
}

// DirectionsLink opens turn-by-turn navigation to the place.
func DirectionsLink(p Place) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("destination", strconv.FormatFloat(p.Lat, 'f', 6, 64)+","+strconv.FormatFloat(p.Lng, 'f', 6, 64))
	if p.PlaceID != "" {
		q.Set("destination_place_id", p.PlaceID)
	}
	q.Set("travelmode", "bicycling")
	return "https://www.google.com/maps/dir/?" + q.Encode()
}
