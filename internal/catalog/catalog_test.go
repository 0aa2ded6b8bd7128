package catalog

import (
	"errors"
	"testing"
)

func TestLookupKnownSKU(t *testing.T) {
	p, err := Lookup("NT-02")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if p.SKU != "NT-02" || p.UnitPrice != 149 {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestLookupUnknownSKU(t *testing.T) {
	_, err := Lookup("XX-99")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddonsTable(t *testing.T) {
	got := Addons("NT-02")
	if len(got) != 1 || got[0] != "NT-03" {
		t.Fatalf("addons for NT-02 = %v, want [NT-03]", got)
	}

	if got := Addons("MT-01"); len(got) != 0 {
		t.Fatalf("addons for MT-01 = %v, want empty", got)
	}
}

func TestAddonsReturnsCopy(t *testing.T) {
	a := Addons("NT-02")
	a[0] = "mutated"

	if got := Addons("NT-02"); got[0] != "NT-03" {
		t.Fatalf("addons table mutated through returned slice: %v", got)
	}
}

func TestListEveryProductResolvable(t *testing.T) {
	list := List()
	if len(list) != 5 {
		t.Fatalf("catalog size = %d, want 5", len(list))
	}

	for _, p := range list {
		got, err := Lookup(p.SKU)
		if err != nil {
			t.Fatalf("Lookup(%s) error: %v", p.SKU, err)
		}
		if got != p {
			t.Fatalf("Lookup(%s) = %+v, want %+v", p.SKU, got, p)
		}
		for _, addon := range Addons(p.SKU) {
			if _, err := Lookup(addon); err != nil {
				t.Fatalf("addon %s of %s is not in catalog", addon, p.SKU)
			}
		}
	}
}
