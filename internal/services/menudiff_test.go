package services

import "testing"

func price(v float64) *float64 { return &v }

func TestDiffMenuStates_CosmeticChangesAreNotMaterial(t *testing.T) {
	before := MenuState{
		"margherita": {Price: price(8.5), Currency: "EUR"},
		"focaccia":   {Price: price(3.0), Currency: "EUR"},
	}
	after := MenuState{
		"margherita": {Price: price(8.5), Currency: "EUR"},
		"focaccia":   {Price: price(3.0), Currency: "EUR"},
	}
	if diff := DiffMenuStates(before, after); diff.Material() {
		t.Fatalf("identical states flagged material: %+v", diff)
	}

	// Sub-epsilon float wobble stays quiet too.
	after["margherita"] = menuItemState{Price: price(8.5001), Currency: "EUR"}
	if diff := DiffMenuStates(before, after); diff.Material() {
		t.Fatalf("sub-epsilon price delta flagged material: %+v", diff)
	}
}

func TestDiffMenuStates_AddRemoveAndPriceAreMaterial(t *testing.T) {
	before := MenuState{
		"margherita": {Price: price(8.5), Currency: "EUR"},
		"focaccia":   {Price: price(3.0), Currency: "EUR"},
	}
	after := MenuState{
		"margherita": {Price: price(9.5), Currency: "EUR"},
		"tiramisu":   {Price: price(5.0), Currency: "EUR"},
	}
	diff := DiffMenuStates(before, after)
	if !diff.Material() {
		t.Fatalf("expected material diff")
	}
	if len(diff.AddedItems) != 1 || diff.AddedItems[0] != "tiramisu" {
		t.Fatalf("unexpected added: %v", diff.AddedItems)
	}
	if len(diff.RemovedItems) != 1 || diff.RemovedItems[0] != "focaccia" {
		t.Fatalf("unexpected removed: %v", diff.RemovedItems)
	}
	if len(diff.PriceChanged) != 1 || diff.PriceChanged[0] != "margherita" {
		t.Fatalf("unexpected price changes: %v", diff.PriceChanged)
	}
}

func TestDiffMenuStates_PriceAppearingOrVanishingIsMaterial(t *testing.T) {
	before := MenuState{"margherita": {Price: nil}}
	after := MenuState{"margherita": {Price: price(8.5), Currency: "EUR"}}
	if diff := DiffMenuStates(before, after); !diff.Material() {
		t.Fatalf("price appearing should be material")
	}
	if diff := DiffMenuStates(after, before); !diff.Material() {
		t.Fatalf("price vanishing should be material")
	}
	if diff := DiffMenuStates(before, before); diff.Material() {
		t.Fatalf("both nil prices should not be material")
	}
}
