// Package schools serves the study map: a static dataset of schools with
// coordinates, searchable by distance, bounding box or name.
package schools

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const earthRadiusKm = 6371.0

// School is one entry of the dataset
type School struct {
	Code    string  `yaml:"code" json:"code"`
	Name    string  `yaml:"name" json:"name"`
	Kind    string  `yaml:"kind" json:"kind"`
	Region  string  `yaml:"region" json:"region"`
	Address string  `yaml:"address" json:"address"`
	Lat     float64 `yaml:"lat" json:"lat"`
	Lng     float64 `yaml:"lng" json:"lng"`
}

// Result is a school with its distance from the query point, when one was given
type Result struct {
	School
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// NearQuery searches around a point
type NearQuery struct {
	Lat, Lng float64
	RadiusKm float64
	Kind     string
	Query    string
	Limit    int
}

// BBox is a lng/lat rectangle
type BBox struct {
	MinLng, MinLat, MaxLng, MaxLat float64
}

// Contains reports whether the point lies inside the box
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Valid reports whether the corners are ordered and in range
func (b BBox) Valid() bool {
	return b.MinLat <= b.MaxLat && b.MinLng <= b.MaxLng &&
		b.MinLat >= -90 && b.MaxLat <= 90 && b.MinLng >= -180 && b.MaxLng <= 180
}

// Index is an immutable in-memory dataset
type Index struct {
	schools []School
	byCode  map[string]int
}

// NewIndex builds an index, dropping entries without a code or coordinates
func NewIndex(list []School) *Index {
	idx := &Index{byCode: make(map[string]int, len(list))}
	for _, s := range list {
		if s.Code == "" || (s.Lat == 0 && s.Lng == 0) {
			continue
		}
		if _, dup := idx.byCode[s.Code]; dup {
			continue
		}
		idx.byCode[s.Code] = len(idx.schools)
		idx.schools = append(idx.schools, s)
	}
	return idx
}

// Load reads the YAML dataset at path. A missing file yields an empty index.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("path", path).Warn("schools dataset not found, study map is empty")
		return NewIndex(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open schools dataset: %w", err)
	}
	defer f.Close()

	idx, err := Decode(f)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"path": path, "schools": idx.Len()}).Info("schools dataset loaded")
	return idx, nil
}

// Decode parses a YAML list of schools
func Decode(r io.Reader) (*Index, error) {
	var list []School
	if err := yaml.NewDecoder(r).Decode(&list); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode schools dataset: %w", err)
	}
	return NewIndex(list), nil
}

// Encode writes schools as the YAML dataset
func Encode(w io.Writer, list []School) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(list); err != nil {
		return fmt.Errorf("encode schools dataset: %w", err)
	}
	return enc.Close()
}

// Len returns the number of schools
func (idx *Index) Len() int { return len(idx.schools) }

// Get returns the school with code
func (idx *Index) Get(code string) (School, bool) {
	i, ok := idx.byCode[code]
	if !ok {
		return School{}, false
	}
	return idx.schools[i], true
}

// Near returns schools within q.RadiusKm of the point, closest first
func (idx *Index) Near(q NearQuery) []Result {
	out := []Result{}
	for _, s := range idx.schools {
		if !matches(s, q.Kind, q.Query) {
			continue
		}
		d := Haversine(q.Lat, q.Lng, s.Lat, s.Lng)
		if d > q.RadiusKm {
			continue
		}
		d = math.Round(d*1000) / 1000
		out = append(out, Result{School: s, DistanceKm: &d})
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].DistanceKm < *out[j].DistanceKm })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Within returns the schools inside box
func (idx *Index) Within(box BBox, kind, query string, limit int) []Result {
	out := []Result{}
	for _, s := range idx.schools {
		if !box.Contains(s.Lat, s.Lng) || !matches(s, kind, query) {
			continue
		}
		out = append(out, Result{School: s})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Search filters by name substring and kind, in dataset order
func (idx *Index) Search(kind, query string, limit int) []Result {
	out := []Result{}
	for _, s := range idx.schools {
		if !matches(s, kind, query) {
			continue
		}
		out = append(out, Result{School: s})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func matches(s School, kind, query string) bool {
	if kind != "" && s.Kind != kind {
		return false
	}
	if query != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(query)) {
		return false
	}
	return true
}

// Haversine returns the great-circle distance in kilometres
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
