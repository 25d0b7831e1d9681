package connectors

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNoData means the provider could not be reached (or returned nothing
// usable) this cycle. Callers skip the affected scope instead of failing.
var ErrNoData = errors.New("connector: no data")

// ExternalRef is one provider listing entry, before any menu fetch.
type ExternalRef struct {
	ExternalID string `json:"external_id,omitempty"`
	Name       string `json:"name"`
	URL        string `json:"url"`
}

type SnapshotItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Allergens   string   `json:"allergens,omitempty"`
	SortOrder   int      `json:"sort_order"`
}

type SnapshotCategory struct {
	Name      string         `json:"name"`
	SortOrder int            `json:"sort_order"`
	Items     []SnapshotItem `json:"items"`
}

// Snapshot is the normalized restaurant+menu representation every connector
// produces; best-effort on malformed input, with warnings instead of errors.
type Snapshot struct {
	Name         string             `json:"name"`
	AddressLine1 string             `json:"address_line1"`
	AddressLine2 string             `json:"address_line2,omitempty"`
	City         string             `json:"city"`
	PostalCode   string             `json:"postal_code"`
	Country      string             `json:"country,omitempty"`
	OpeningHours string             `json:"opening_hours,omitempty"`
	Cuisines     []string           `json:"cuisines,omitempty"`
	Categories   []SnapshotCategory `json:"categories"`
	Warnings     []string           `json:"warnings,omitempty"`
}

type Connector interface {
	Key() string
	// ListingURL is the provider's default city listing page.
	ListingURL() string
	ListRestaurants(ctx context.Context, listingURL string) ([]ExternalRef, error)
	FetchMenu(ctx context.Context, ref ExternalRef) (*Snapshot, error)
}

// Registry resolves connectors by provider key; populated once at startup.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Connector
}

func NewRegistry() *Registry {
	return &Registry{m: map[string]Connector{}}
}

func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[c.Key()] = c
}

func (r *Registry) Get(key string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.m[key]
	return c, ok
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.m))
	for k := range r.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
