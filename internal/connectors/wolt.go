package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/platewise/platewise-backend/internal/fetch"
	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/utils"
)

const WoltKey = "wolt"

// WoltConnector reads wolt's public JSON endpoints: a city listing of venues
// and one menu document per venue.
type WoltConnector struct {
	cache      *fetch.Cache
	ttl        time.Duration
	listingURL string
	log        *logger.Logger
}

func NewWoltConnector(cache *fetch.Cache, ttl time.Duration, baseLog *logger.Logger) *WoltConnector {
	listing := utils.GetEnv("WOLT_LISTING_URL", "https://restaurant-api.wolt.com/v1/pages/restaurants?city=berlin", nil)
	return &WoltConnector{
		cache:      cache,
		ttl:        ttl,
		listingURL: listing,
		log:        baseLog.With("connector", WoltKey),
	}
}

func (c *WoltConnector) Key() string        { return WoltKey }
func (c *WoltConnector) ListingURL() string { return c.listingURL }

type woltListing struct {
	Sections []struct {
		Items []struct {
			Venue struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				Slug string `json:"slug"`
			} `json:"venue"`
			Link struct {
				Target string `json:"target"`
			} `json:"link"`
		} `json:"items"`
	} `json:"sections"`
}

func (c *WoltConnector) ListRestaurants(ctx context.Context, listingURL string) ([]ExternalRef, error) {
	if listingURL == "" {
		listingURL = c.listingURL
	}
	resp, err := c.cache.GetOrFetch(ctx, nil, WoltKey, listingURL, c.ttl)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.StatusCode >= 300 {
		return nil, ErrNoData
	}

	var listing woltListing
	if err := json.Unmarshal(resp.Body, &listing); err != nil {
		return nil, fmt.Errorf("%w: listing parse: %v", ErrNoData, err)
	}

	var refs []ExternalRef
	seen := map[string]bool{}
	for _, section := range listing.Sections {
		for _, item := range section.Items {
			v := item.Venue
			if v.ID == "" || v.Name == "" || seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			url := item.Link.Target
			if url == "" && v.Slug != "" {
				url = "https://restaurant-api.wolt.com/v3/venues/slug/" + v.Slug
			}
			refs = append(refs, ExternalRef{ExternalID: v.ID, Name: v.Name, URL: url})
		}
	}
	return refs, nil
}

type woltMenu struct {
	Venue struct {
		Name    string   `json:"name"`
		Address string   `json:"address"`
		City    string   `json:"city"`
		Post    string   `json:"post_code"`
		Country string   `json:"country"`
		Tags    []string `json:"tags"`
		Opening string   `json:"opening_hours_text"`
	} `json:"venue"`
	Categories []struct {
		Name  string `json:"name"`
		Items []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			// baseprice arrives in minor units (cents).
			BasePrice json.RawMessage `json:"baseprice"`
			Currency  string          `json:"currency"`
			Allergens []string        `json:"allergens"`
		} `json:"items"`
	} `json:"categories"`
}

func (c *WoltConnector) FetchMenu(ctx context.Context, ref ExternalRef) (*Snapshot, error) {
	if ref.URL == "" {
		return nil, fmt.Errorf("%w: ref %q has no url", ErrNoData, ref.ExternalID)
	}
	resp, err := c.cache.GetOrFetch(ctx, nil, WoltKey, ref.URL, c.ttl)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.StatusCode >= 300 {
		return nil, ErrNoData
	}

	var menu woltMenu
	if err := json.Unmarshal(resp.Body, &menu); err != nil {
		return nil, fmt.Errorf("%w: menu parse for %q: %v", ErrNoData, ref.Name, err)
	}

	snap := &Snapshot{
		Name:         firstNonEmpty(menu.Venue.Name, ref.Name),
		AddressLine1: menu.Venue.Address,
		City:         menu.Venue.City,
		PostalCode:   menu.Venue.Post,
		Country:      menu.Venue.Country,
		OpeningHours: menu.Venue.Opening,
		Cuisines:     menu.Venue.Tags,
	}

	for ci, cat := range menu.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("category %d has no name, skipped", ci))
			continue
		}
		out := SnapshotCategory{Name: cat.Name, SortOrder: ci}
		for ii, item := range cat.Items {
			if strings.TrimSpace(item.Name) == "" {
				snap.Warnings = append(snap.Warnings, fmt.Sprintf("item %d in %q has no name, skipped", ii, cat.Name))
				continue
			}
			si := SnapshotItem{
				Name:        item.Name,
				Description: item.Description,
				Currency:    item.Currency,
				Allergens:   strings.Join(item.Allergens, ", "),
				SortOrder:   ii,
			}
			if price, ok := parseMinorUnits(item.BasePrice); ok {
				si.Price = &price
			} else if len(item.BasePrice) > 0 {
				snap.Warnings = append(snap.Warnings, fmt.Sprintf("unparsable price for %q", item.Name))
			}
			out.Items = append(out.Items, si)
		}
		snap.Categories = append(snap.Categories, out)
	}
	return snap, nil
}

// parseMinorUnits accepts either a bare integer of cents or a decimal, both
// of which wolt has shipped over time.
func parseMinorUnits(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var cents int64
	if err := json.Unmarshal(raw, &cents); err == nil {
		return float64(cents) / 100, true
	}
	var dec float64
	if err := json.Unmarshal(raw, &dec); err == nil {
		return dec, true
	}
	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
