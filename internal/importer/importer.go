// Package importer loads a listing feed file into the database. Feeds are
// JSON documents with a neighborhoods array and a listings array; repeated
// imports upsert, so re-running a feed is safe.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/homematch/homematch/internal/model"
	"github.com/homematch/homematch/internal/store"
)

type feed struct {
	Neighborhoods []feedNeighborhood `json:"neighborhoods"`
	Listings      []feedListing      `json:"listings"`
}

type feedNeighborhood struct {
	Name         string  `json:"name"`
	City         string  `json:"city"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	WalkScore    int     `json:"walk_score"`
	TransitScore int     `json:"transit_score"`
	Vibe         string  `json:"vibe"`
}

type feedListing struct {
	ExternalID   string  `json:"external_id"`
	Neighborhood string  `json:"neighborhood"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	ZipCode      string  `json:"zip_code"`
	Price        int64   `json:"price"`
	Beds         int     `json:"beds"`
	Baths        float64 `json:"baths"`
	Sqft         int     `json:"sqft"`
	YearBuilt    int     `json:"year_built"`
	PropertyType string  `json:"property_type"`
	PhotoURL     string  `json:"photo_url"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// Result counts what an import touched.
type Result struct {
	Neighborhoods int
	Properties    int
	Skipped       int
}

type Importer struct {
	properties    *store.PropertyStore
	neighborhoods *store.NeighborhoodStore
	logger        *slog.Logger
}

func New(ps *store.PropertyStore, ns *store.NeighborhoodStore, logger *slog.Logger) *Importer {
	return &Importer{properties: ps, neighborhoods: ns, logger: logger}
}

// Run reads a feed and upserts its neighborhoods and listings. Listings
// missing an external id get a generated one, so a listing without a stable
// feed id is imported once rather than deduplicated across runs.
func (im *Importer) Run(r io.Reader) (Result, error) {
	var result Result

	var f feed
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return result, fmt.Errorf("decode feed: %w", err)
	}

	// Neighborhoods first so listings can reference them by name.
	byKey := make(map[string]int64)
	for _, fn := range f.Neighborhoods {
		if fn.Name == "" || fn.City == "" {
			result.Skipped++
			continue
		}
		n, err := im.neighborhoods.Upsert(&model.Neighborhood{
			Name:         fn.Name,
			City:         fn.City,
			Latitude:     fn.Latitude,
			Longitude:    fn.Longitude,
			WalkScore:    fn.WalkScore,
			TransitScore: fn.TransitScore,
			Vibe:         fn.Vibe,
		})
		if err != nil {
			return result, fmt.Errorf("upsert neighborhood %q: %w", fn.Name, err)
		}
		byKey[neighborhoodKey(fn.Name, fn.City)] = n.ID
		result.Neighborhoods++
	}

	for _, fl := range f.Listings {
		if fl.Address == "" {
			result.Skipped++
			continue
		}

		externalID := fl.ExternalID
		if externalID == "" {
			externalID = uuid.NewString()
		}
		status := fl.Status
		if status == "" {
			status = model.PropertyStatusActive
		}

		p := &model.Property{
			ExternalID:   externalID,
			Address:      fl.Address,
			City:         fl.City,
			State:        fl.State,
			ZipCode:      fl.ZipCode,
			Price:        fl.Price,
			Beds:         fl.Beds,
			Baths:        fl.Baths,
			Sqft:         fl.Sqft,
			YearBuilt:    fl.YearBuilt,
			PropertyType: fl.PropertyType,
			PhotoURL:     fl.PhotoURL,
			Description:  fl.Description,
			Status:       status,
			Latitude:     fl.Latitude,
			Longitude:    fl.Longitude,
		}

		if fl.Neighborhood != "" {
			if id, ok := byKey[neighborhoodKey(fl.Neighborhood, fl.City)]; ok {
				p.NeighborhoodID = &id
			} else if existing, err := im.neighborhoods.GetByName(fl.Neighborhood, fl.City); err == nil && existing != nil {
				p.NeighborhoodID = &existing.ID
			} else {
				im.logger.Warn("unknown neighborhood", "name", fl.Neighborhood, "city", fl.City)
			}
		}

		if _, err := im.properties.Upsert(p); err != nil {
			return result, fmt.Errorf("upsert listing %q: %w", fl.Address, err)
		}
		result.Properties++
	}

	return result, nil
}

func neighborhoodKey(name, city string) string {
	return strings.ToLower(name) + "|" + strings.ToLower(city)
}
