package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/platewise/platewise-backend/internal/fetch"
	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/utils"
)

const LieferandoKey = "lieferando"

// Lieferando serves server-rendered HTML with the restaurant payload
// embedded as a JSON blob in a script tag; both page types are parsed by
// extracting that blob rather than walking the markup.
var lieferandoStateRe = regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.*?\});?\s*</script>`)

type LieferandoConnector struct {
	cache      *fetch.Cache
	ttl        time.Duration
	listingURL string
	log        *logger.Logger
}

func NewLieferandoConnector(cache *fetch.Cache, ttl time.Duration, baseLog *logger.Logger) *LieferandoConnector {
	listing := utils.GetEnv("LIEFERANDO_LISTING_URL", "https://www.lieferando.de/lieferservice/essen/berlin", nil)
	return &LieferandoConnector{
		cache:      cache,
		ttl:        ttl,
		listingURL: listing,
		log:        baseLog.With("connector", LieferandoKey),
	}
}

func (c *LieferandoConnector) Key() string        { return LieferandoKey }
func (c *LieferandoConnector) ListingURL() string { return c.listingURL }

type lieferandoState struct {
	Restaurants []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"restaurants"`
	Restaurant *struct {
		Name    string   `json:"name"`
		Street  string   `json:"street"`
		City    string   `json:"city"`
		Zipcode string   `json:"zipcode"`
		Country string   `json:"country"`
		Opening string   `json:"openingHours"`
		Kitchen []string `json:"kitchenTypes"`
		Menu    struct {
			Categories []struct {
				Name     string `json:"name"`
				Products []struct {
					Name        string `json:"name"`
					Description string `json:"description"`
					Price       string `json:"price"`
					Allergens   string `json:"allergens"`
				} `json:"products"`
			} `json:"categories"`
		} `json:"menu"`
	} `json:"restaurant"`
}

func extractState(body []byte) (*lieferandoState, error) {
	m := lieferandoStateRe.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("no embedded state blob")
	}
	var state lieferandoState
	if err := json.Unmarshal(m[1], &state); err != nil {
		return nil, fmt.Errorf("state blob parse: %w", err)
	}
	return &state, nil
}

func (c *LieferandoConnector) ListRestaurants(ctx context.Context, listingURL string) ([]ExternalRef, error) {
	if listingURL == "" {
		listingURL = c.listingURL
	}
	resp, err := c.cache.GetOrFetch(ctx, nil, LieferandoKey, listingURL, c.ttl)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.StatusCode >= 300 {
		return nil, ErrNoData
	}

	state, err := extractState(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}

	var refs []ExternalRef
	for _, r := range state.Restaurants {
		if r.Name == "" || r.URL == "" {
			continue
		}
		refs = append(refs, ExternalRef{ExternalID: r.ID, Name: r.Name, URL: absoluteURL(r.URL)})
	}
	return refs, nil
}

func (c *LieferandoConnector) FetchMenu(ctx context.Context, ref ExternalRef) (*Snapshot, error) {
	if ref.URL == "" {
		return nil, fmt.Errorf("%w: ref %q has no url", ErrNoData, ref.Name)
	}
	resp, err := c.cache.GetOrFetch(ctx, nil, LieferandoKey, ref.URL, c.ttl)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.StatusCode >= 300 {
		return nil, ErrNoData
	}

	state, err := extractState(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: menu page for %q: %v", ErrNoData, ref.Name, err)
	}
	if state.Restaurant == nil {
		return nil, fmt.Errorf("%w: menu page for %q has no restaurant payload", ErrNoData, ref.Name)
	}

	r := state.Restaurant
	snap := &Snapshot{
		Name:         firstNonEmpty(r.Name, ref.Name),
		AddressLine1: r.Street,
		City:         r.City,
		PostalCode:   r.Zipcode,
		Country:      r.Country,
		OpeningHours: r.Opening,
		Cuisines:     r.Kitchen,
	}

	for ci, cat := range r.Menu.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("category %d has no name, skipped", ci))
			continue
		}
		out := SnapshotCategory{Name: cat.Name, SortOrder: ci}
		for ii, p := range cat.Products {
			if strings.TrimSpace(p.Name) == "" {
				snap.Warnings = append(snap.Warnings, fmt.Sprintf("product %d in %q has no name, skipped", ii, cat.Name))
				continue
			}
			si := SnapshotItem{
				Name:        p.Name,
				Description: p.Description,
				Allergens:   p.Allergens,
				SortOrder:   ii,
			}
			if price, ok := parseEuroPrice(p.Price); ok {
				si.Price = &price
				si.Currency = "EUR"
			} else if strings.TrimSpace(p.Price) != "" {
				snap.Warnings = append(snap.Warnings, fmt.Sprintf("unparsable price %q for %q", p.Price, p.Name))
			}
			out.Items = append(out.Items, si)
		}
		snap.Categories = append(snap.Categories, out)
	}
	return snap, nil
}

// parseEuroPrice handles "8,50 €", "8.50" and plain "8".
func parseEuroPrice(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func absoluteURL(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://www.lieferando.de" + u
}
