package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/schools"
	"STUDYHUB_BACK-END/internal/utils"
)

const (
	defaultRadiusKm = 3.0
	maxRadiusKm     = 50.0
)

// MapHandler serves the study map over the in-memory school index
type MapHandler struct {
	index *schools.Index
}

// NewMapHandler creates a new MapHandler instance
func NewMapHandler(index *schools.Index) *MapHandler {
	return &MapHandler{index: index}
}

// ListSchools searches schools near a point, inside a box, or by name
// @Summary Search schools
// @Description With lat/lng: sorted by distance. With bbox: schools inside the box. Otherwise: name search.
// @Tags map
// @Produce json
// @Param lat query number false "latitude"
// @Param lng query number false "longitude"
// @Param radius_km query number false "default 3 (max 50)"
// @Param bbox query string false "minLng,minLat,maxLng,maxLat"
// @Param q query string false "name contains"
// @Param kind query string false "school kind, e.g. 고등학교"
// @Param limit query int false "default 50 (max 500)"
// @Success 200 {object} dto.SchoolListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/map/schools [get]
func (h *MapHandler) ListSchools(w http.ResponseWriter, r *http.Request) {
	limit, _, ok := pagination(w, r, 50, 500)
	if !ok {
		return
	}
	q := r.URL.Query()
	kind := strings.TrimSpace(q.Get("kind"))
	query := strings.TrimSpace(q.Get("q"))

	var results []schools.Result
	switch {
	case q.Get("lat") != "" || q.Get("lng") != "":
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
		if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid coordinates", "lat and lng must both be valid coordinates")
			return
		}
		radius := defaultRadiusKm
		if v := q.Get("radius_km"); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil || n <= 0 {
				utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid radius", "radius_km must be a positive number")
				return
			}
			radius = min(n, maxRadiusKm)
		}
		results = h.index.Near(schools.NearQuery{
			Lat: lat, Lng: lng, RadiusKm: radius, Kind: kind, Query: query, Limit: limit,
		})
	case q.Get("bbox") != "":
		box, ok := parseBBox(q.Get("bbox"))
		if !ok {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid bbox", "bbox must be minLng,minLat,maxLng,maxLat")
			return
		}
		results = h.index.Within(box, kind, query, limit)
	default:
		results = h.index.Search(kind, query, limit)
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.SchoolListResponse{Schools: results, Count: len(results)})
}

// GetSchool returns one school by its NEIS code
// @Summary Get a school
// @Tags map
// @Produce json
// @Param code path string true "NEIS school code"
// @Success 200 {object} schools.School
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/map/schools/{code} [get]
func (h *MapHandler) GetSchool(w http.ResponseWriter, r *http.Request) {
	s, ok := h.index.Get(chi.URLParam(r, "code"))
	if !ok {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Not Found", "school not found")
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, s)
}

func parseBBox(raw string) (schools.BBox, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return schools.BBox{}, false
	}
	var v [4]float64
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return schools.BBox{}, false
		}
		v[i] = n
	}
	box := schools.BBox{MinLng: v[0], MinLat: v[1], MaxLng: v[2], MaxLat: v[3]}
	return box, box.Valid()
}
