package places

import (
	"context"

	"github.com/dad1755/ktransport/config"
	"github.com/dad1755/ktransport/internal/domain"
)

type PlaceUseCase interface {
	List(ctx context.Context) (domain.Places, error)
}

// Catalog is where suggestions come from.
type Catalog interface {
	List(ctx context.Context) (domain.Places, error)
}

type PlacesCache interface {
	GetPlaces(ctx context.Context) (*domain.Places, error)
	SetPlaces(ctx context.Context, places domain.Places) error
}

type PlaceService struct {
	catalog Catalog
	cache   PlacesCache
}

func NewPlaceService(catalog Catalog, cache PlacesCache) *PlaceService {
	return &PlaceService{catalog: catalog, cache: cache}
}

// List serves from the cache when it can; a cache error falls through to the catalog.
func (s *PlaceService) List(ctx context.Context) (domain.Places, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetPlaces(ctx); err == nil && cached != nil {
			return *cached, nil
		}
	}

	places, err := s.catalog.List(ctx)
	if err != nil {
		return domain.Places{}, err
	}
	if s.cache != nil {
		_ = s.cache.SetPlaces(ctx, places)
	}
	return places, nil
}

// StaticCatalog serves the lists from the places section of the config.
type StaticCatalog struct {
	places domain.Places
}

func NewStaticCatalog(cfg config.PlacesConfig) *StaticCatalog {
	return &StaticCatalog{places: domain.Places{
		Destinations:    append([]string(nil), cfg.Destinations...),
		PickupLocations: append([]string(nil), cfg.PickupLocations...),
	}}
}

func (c *StaticCatalog) List(_ context.Context) (domain.Places, error) {
	return domain.Places{
		Destinations:    append([]string(nil), c.places.Destinations...),
		PickupLocations: append([]string(nil), c.places.PickupLocations...),
	}, nil
}

var _ PlaceUseCase = (*PlaceService)(nil)
