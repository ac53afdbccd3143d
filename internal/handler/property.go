package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/homematch/homematch/internal/auth"
	"github.com/homematch/homematch/internal/model"
	"github.com/homematch/homematch/internal/store"
	"github.com/homematch/homematch/internal/story"
)

type PropertyHandler struct {
	propertyStore     *store.PropertyStore
	neighborhoodStore *store.NeighborhoodStore
	interactionStore  *store.InteractionStore
	logger            *slog.Logger
}

func NewPropertyHandler(
	ps *store.PropertyStore,
	ns *store.NeighborhoodStore,
	is *store.InteractionStore,
	logger *slog.Logger,
) *PropertyHandler {
	return &PropertyHandler{
		propertyStore:     ps,
		neighborhoodStore: ns,
		interactionStore:  is,
		logger:            logger,
	}
}

// List returns the browse feed, filtered by query params. By default only
// active listings show, and listings the caller already swiped on are skipped.
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	q := r.URL.Query()

	filter := store.PropertyFilter{
		Status:           model.PropertyStatusActive,
		ExcludeDecidedBy: userID,
	}
	if s := q.Get("status"); s != "" {
		filter.Status = s
	}
	if q.Get("include_decided") == "true" {
		filter.ExcludeDecidedBy = 0
	}
	if v := q.Get("neighborhood_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid neighborhood_id")
			return
		}
		filter.NeighborhoodID = id
	}
	if v := q.Get("min_price"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_price")
			return
		}
		filter.MinPrice = n
	}
	if v := q.Get("max_price"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid max_price")
			return
		}
		filter.MaxPrice = n
	}
	if v := q.Get("min_beds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_beds")
			return
		}
		filter.MinBeds = n
	}
	if v := q.Get("property_type"); v != "" {
		filter.PropertyType = v
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	properties, err := h.propertyStore.List(filter)
	if err != nil {
		h.logger.Error("list properties", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list properties")
		return
	}
	if properties == nil {
		properties = []model.Property{}
	}
	writeJSON(w, http.StatusOK, properties)
}

// Get returns a single property with its neighborhood and every household
// member's interaction on it.
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}

	property, err := h.propertyStore.GetByID(id)
	if err != nil {
		h.logger.Error("get property", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if property == nil {
		writeError(w, http.StatusNotFound, "property not found")
		return
	}

	var neighborhood *model.Neighborhood
	if property.NeighborhoodID != nil {
		neighborhood, err = h.neighborhoodStore.GetByID(*property.NeighborhoodID)
		if err != nil {
			h.logger.Error("get property neighborhood", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	interactions, err := h.interactionStore.ListForProperty(householdID, id)
	if err != nil {
		h.logger.Error("list property interactions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if interactions == nil {
		interactions = []model.Interaction{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"property":     property,
		"neighborhood": neighborhood,
		"interactions": interactions,
	})
}

// Story returns a generated prose description for a property.
func (h *PropertyHandler) Story(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}

	property, err := h.propertyStore.GetByID(id)
	if err != nil {
		h.logger.Error("get property for story", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if property == nil {
		writeError(w, http.StatusNotFound, "property not found")
		return
	}

	input := story.Input{Property: *property}
	if property.NeighborhoodID != nil {
		neighborhood, err := h.neighborhoodStore.GetByID(*property.NeighborhoodID)
		if err != nil {
			h.logger.Error("get neighborhood for story", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if neighborhood != nil {
			input.Neighborhood = neighborhood
			median, err := h.neighborhoodStore.MedianPrice(neighborhood.ID)
			if err != nil {
				h.logger.Error("median price for story", "error", err)
			} else {
				input.MedianPrice = median
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"property_id": property.ID,
		"story":       story.Generate(input),
	})
}

// Neighborhoods lists every neighborhood.
func (h *PropertyHandler) Neighborhoods(w http.ResponseWriter, r *http.Request) {
	neighborhoods, err := h.neighborhoodStore.List()
	if err != nil {
		h.logger.Error("list neighborhoods", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list neighborhoods")
		return
	}
	if neighborhoods == nil {
		neighborhoods = []model.Neighborhood{}
	}
	writeJSON(w, http.StatusOK, neighborhoods)
}
