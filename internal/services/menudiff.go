package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/repos"
)

// Price deltas below this are treated as float noise, not a change.
const priceEpsilon = 0.005

type menuItemState struct {
	Price    *float64
	Currency string
}

// MenuState is the active menu keyed by lowercased item name, captured
// before and after an upsert to decide whether the change was material.
type MenuState map[string]menuItemState

func CaptureMenuState(ctx context.Context, tx *gorm.DB, menuRepo repos.MenuRepo, restaurantID uuid.UUID) (MenuState, error) {
	cats, err := menuRepo.ListCategoriesWithItems(ctx, tx, restaurantID)
	if err != nil {
		return nil, err
	}
	state := MenuState{}
	for _, c := range cats {
		if !c.IsActive {
			continue
		}
		for _, i := range c.Items {
			if !i.IsActive {
				continue
			}
			state[strings.ToLower(i.Name)] = menuItemState{Price: i.Price, Currency: i.Currency}
		}
	}
	return state, nil
}

type MenuDiff struct {
	AddedItems   []string
	RemovedItems []string
	PriceChanged []string
}

// Material reports whether the diff crosses the alert threshold: an item
// appeared or disappeared, or a price moved by more than the epsilon.
func (d MenuDiff) Material() bool {
	return len(d.AddedItems) > 0 || len(d.RemovedItems) > 0 || len(d.PriceChanged) > 0
}

func (d MenuDiff) Summary() string {
	var parts []string
	if n := len(d.AddedItems); n > 0 {
		parts = append(parts, fmt.Sprintf("%d item(s) added", n))
	}
	if n := len(d.RemovedItems); n > 0 {
		parts = append(parts, fmt.Sprintf("%d item(s) removed", n))
	}
	if n := len(d.PriceChanged); n > 0 {
		parts = append(parts, fmt.Sprintf("%d price change(s)", n))
	}
	if len(parts) == 0 {
		return "no material change"
	}
	return strings.Join(parts, ", ")
}

// DiffMenuStates compares two captures. Cosmetic edits (descriptions, sort
// order, casing) never show up here because the state only carries name,
// price and currency.
func DiffMenuStates(before, after MenuState) MenuDiff {
	var diff MenuDiff
	for name, b := range before {
		a, ok := after[name]
		if !ok {
			diff.RemovedItems = append(diff.RemovedItems, name)
			continue
		}
		if priceChanged(b, a) {
			diff.PriceChanged = append(diff.PriceChanged, name)
		}
	}
	for name := range after {
		if _, ok := before[name]; !ok {
			diff.AddedItems = append(diff.AddedItems, name)
		}
	}
	sort.Strings(diff.AddedItems)
	sort.Strings(diff.RemovedItems)
	sort.Strings(diff.PriceChanged)
	return diff
}

func priceChanged(before, after menuItemState) bool {
	switch {
	case before.Price == nil && after.Price == nil:
		return false
	case before.Price == nil || after.Price == nil:
		return true
	case math.Abs(*before.Price-*after.Price) > priceEpsilon:
		return true
	case before.Currency != after.Currency && before.Currency != "" && after.Currency != "":
		return true
	default:
		return false
	}
}
