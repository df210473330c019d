package schools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	neisBaseURL     = "https://open.neis.go.kr"
	kakaoLocalURL   = "https://dapi.kakao.com"
	neisPageSize    = 1000
	neisNoDataCode  = "INFO-200"
	neisSuccessCode = "INFO-000"
)

// ErrNoCoordinates is returned when an address cannot be geocoded
var ErrNoCoordinates = errors.New("schools: address not found")

// NEISClient pages through the NEIS schoolInfo open API
type NEISClient struct {
	baseURL string
	key     string
	http    *http.Client
}

// NewNEISClient creates a client; baseURL may be empty for the public endpoint
func NewNEISClient(baseURL, key string) *NEISClient {
	if baseURL == "" {
		baseURL = neisBaseURL
	}
	return &NEISClient{baseURL: baseURL, key: key, http: &http.Client{Timeout: 30 * time.Second}}
}

// Page fetches one page of schools (1-based) and the total row count
func (c *NEISClient) Page(ctx context.Context, region string, page int) ([]School, int, error) {
	q := url.Values{}
	q.Set("Type", "json")
	q.Set("pIndex", strconv.Itoa(page))
	q.Set("pSize", strconv.Itoa(neisPageSize))
	if c.key != "" {
		q.Set("KEY", c.key)
	}
	if region != "" {
		q.Set("ATPT_OFCDC_SC_CODE", region)
	}

	body, err := getJSON(ctx, c.http, c.baseURL+"/hub/schoolInfo?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("neis page %d: %w", page, err)
	}

	res := gjson.ParseBytes(body)
	// an empty result is reported at the top level instead of inside schoolInfo
	if code := res.Get("RESULT.CODE").String(); code != "" {
		if code == neisNoDataCode {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("neis page %d: %s %s", page, code, res.Get("RESULT.MESSAGE").String())
	}
	if code := res.Get("schoolInfo.0.head.1.RESULT.CODE").String(); code != neisSuccessCode {
		return nil, 0, fmt.Errorf("neis page %d: unexpected result %q", page, code)
	}

	total := int(res.Get("schoolInfo.0.head.0.list_total_count").Int())
	var list []School
	res.Get("schoolInfo.1.row").ForEach(func(_, row gjson.Result) bool {
		list = append(list, School{
			Code:    row.Get("SD_SCHUL_CODE").String(),
			Name:    row.Get("SCHUL_NM").String(),
			Kind:    row.Get("SCHUL_KND_SC_NM").String(),
			Region:  row.Get("LCTN_SC_NM").String(),
			Address: row.Get("ORG_RDNMA").String(),
		})
		return true
	})
	return list, total, nil
}

// Geocoder resolves an address to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

// KakaoGeocoder uses the Kakao Local address search
type KakaoGeocoder struct {
	baseURL string
	key     string
	http    *http.Client
}

// NewKakaoGeocoder creates a geocoder; baseURL may be empty for the public endpoint
func NewKakaoGeocoder(baseURL, restKey string) *KakaoGeocoder {
	if baseURL == "" {
		baseURL = kakaoLocalURL
	}
	return &KakaoGeocoder{baseURL: baseURL, key: restKey, http: &http.Client{Timeout: 10 * time.Second}}
}

// Geocode implements Geocoder
func (g *KakaoGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	if address == "" {
		return 0, 0, ErrNoCoordinates
	}
	headers := http.Header{}
	headers.Set("Authorization", "KakaoAK "+g.key)

	body, err := getJSON(ctx, g.http, g.baseURL+"/v2/local/search/address.json?query="+url.QueryEscape(address), headers)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode %q: %w", address, err)
	}
	doc := gjson.GetBytes(body, "documents.0")
	if !doc.Exists() {
		return 0, 0, ErrNoCoordinates
	}
	// x is longitude, y is latitude
	return doc.Get("y").Float(), doc.Get("x").Float(), nil
}

// Stats summarizes a sync run
type Stats struct {
	Fetched  int
	Geocoded int
	Skipped  int
}

// Syncer builds the dataset from NEIS and Kakao Local
type Syncer struct {
	neis    *NEISClient
	geo     Geocoder
	limiter *rate.Limiter
}

// NewSyncer creates a syncer issuing at most perSecond geocoding requests
func NewSyncer(neis *NEISClient, geo Geocoder, perSecond float64) *Syncer {
	return &Syncer{neis: neis, geo: geo, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Run fetches every school of region (all regions when empty) and geocodes it.
// Schools that fail geocoding are skipped and counted.
func (s *Syncer) Run(ctx context.Context, region string) ([]School, Stats, error) {
	var (
		out   []School
		stats Stats
	)
	for page := 1; ; page++ {
		list, total, err := s.neis.Page(ctx, region, page)
		if err != nil {
			return out, stats, err
		}
		stats.Fetched += len(list)

		for _, school := range list {
			if err := s.limiter.Wait(ctx); err != nil {
				return out, stats, err
			}
			lat, lng, err := s.geo.Geocode(ctx, school.Address)
			if err != nil {
				stats.Skipped++
				log.WithFields(log.Fields{"code": school.Code, "name": school.Name}).WithError(err).Debug("school skipped")
				continue
			}
			school.Lat, school.Lng = lat, lng
			out = append(out, school)
			stats.Geocoded++
		}

		log.WithFields(log.Fields{"page": page, "fetched": stats.Fetched, "total": total}).Info("neis page synced")
		if len(list) < neisPageSize || stats.Fetched >= total {
			return out, stats, nil
		}
	}
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, headers http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("malformed JSON response")
	}
	return body, nil
}
