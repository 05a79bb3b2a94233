// Package geocode resolves Dutch addresses to WGS84 coordinates via the
// PDOK Locatieserver (primary) and Nominatim (fallback).
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client resolves addresses to coordinates.
type Client interface {
	// Geocode resolves a single address. An unresolvable address is not an
	// error: the returned Result has Matched=false.
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
}

// AddressInput represents a Dutch address to resolve. All fields are
// optional; the geocoder works with whatever is present.
type AddressInput struct {
	Street      string
	HouseNumber string
	PostalCode  string
	City        string
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "pdok" or "nominatim"
	Matched   bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client for both providers.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent to both providers.
// Nominatim rejects requests without an identifying agent.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second limit shared by both providers.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithPDOKBaseURL overrides the PDOK Locatieserver base URL.
func WithPDOKBaseURL(u string) Option {
	return func(g *geocoder) {
		g.pdokBaseURL = strings.TrimRight(u, "/")
	}
}

// WithNominatimBaseURL overrides the Nominatim base URL.
func WithNominatimBaseURL(u string) Option {
	return func(g *geocoder) {
		g.nominatimBaseURL = strings.TrimRight(u, "/")
	}
}

type geocoder struct {
	httpClient       *http.Client
	userAgent        string
	limiter          *rate.Limiter
	pdokBaseURL      string
	nominatimBaseURL string
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient:       &http.Client{Timeout: 10 * time.Second},
		userAgent:        defaultUserAgent,
		limiter:          rate.NewLimiter(1, 1), // Nominatim usage policy: 1 req/s
		pdokBaseURL:      defaultPDOKBaseURL,
		nominatimBaseURL: defaultNominatimBaseURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// provider is a single geocoding backend tried by the cascade.
type provider struct {
	name   string
	lookup func(ctx context.Context, query string) (*Result, error)
}

// Geocode resolves an address by trying PDOK first and Nominatim second,
// each against the same ordered list of query candidates. When the address
// has a city but no postal code, a representative postal code is inferred
// first to sharpen the most specific candidate.
func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	postal := strings.TrimSpace(addr.PostalCode)
	if postal == "" && strings.TrimSpace(addr.City) != "" {
		postal = g.inferPostalCode(ctx, addr.City)
	}

	queries := buildQueries(addr, postal)
	if len(queries) == 0 {
		return &Result{Matched: false}, nil
	}

	providers := []provider{
		{name: "pdok", lookup: g.geocodePDOK},
		{name: "nominatim", lookup: g.geocodeNominatim},
	}

	for _, p := range providers {
		for _, q := range queries {
			result, err := p.lookup(ctx, q)
			if err != nil {
				zap.L().Debug("geocode: provider error, trying next",
					zap.String("provider", p.name),
					zap.String("query", q),
					zap.Error(err),
				)
				continue
			}
			if result != nil && result.Matched {
				return result, nil
			}
		}
	}

	// No provider matched any candidate: not an error, just unmatched.
	return &Result{Matched: false}, nil
}

// buildQueries assembles address-string candidates, most specific first:
// postal code + city, city alone, then the full street address.
func buildQueries(addr AddressInput, postal string) []string {
	city := strings.TrimSpace(addr.City)
	street := strings.TrimSpace(addr.Street)
	houseNumber := strings.TrimSpace(addr.HouseNumber)

	var queries []string
	if postal != "" && city != "" {
		queries = append(queries, postal+" "+city)
	}
	if city != "" {
		queries = append(queries, city)
	}
	if street != "" {
		full := street
		if houseNumber != "" {
			full += " " + houseNumber
		}
		if locality := strings.TrimSpace(postal + " " + city); locality != "" {
			full += ", " + locality
		}
		queries = append(queries, full)
	}

	return dedupeQueries(queries)
}

func dedupeQueries(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	out := queries[:0]
	for _, q := range queries {
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}
