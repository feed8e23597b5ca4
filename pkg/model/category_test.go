package model

import (
	"reflect"
	"testing"
)

func TestCategoryRoundTrip(t *testing.T) {
	for _, c := range Categories() {
		if got := CategoryFromCapability(c.CapabilityName()); got != c {
			t.Errorf("CategoryFromCapability(%q) = %v, want %v", c.CapabilityName(), got, c)
		}
		for _, name := range c.ExternalNames() {
			if got := CategoryOf(name); got != c {
				t.Errorf("CategoryOf(%q) = %v, want %v", name, got, c)
			}
		}
		parsed, err := ParseCategory(c.String())
		if err != nil || parsed != c {
			t.Errorf("ParseCategory(%q) = %v, %v", c.String(), parsed, err)
		}
	}
}

func TestCategoryTable(t *testing.T) {
	tests := []struct {
		c          Category
		capability string
		names      []string
	}{
		{CategoryFax, "faxSend", []string{"faxSend"}},
		{CategoryCopier, "copy", []string{"copyMono", "copyBlack", "copyTwin", "copyFull"}},
		{CategoryPrinter, "printer", []string{"printerBlack", "printerFull"}},
		{CategoryScanner, "scanner", []string{"scannerBlack", "scannerFull"}},
		{CategoryDocumentServer, "localStorage", []string{"localStorage"}},
	}
	for _, tt := range tests {
		if tt.c.CapabilityName() != tt.capability {
			t.Errorf("%v capability = %q", tt.c, tt.c.CapabilityName())
		}
		if !reflect.DeepEqual(tt.c.ExternalNames(), tt.names) {
			t.Errorf("%v names = %v", tt.c, tt.c.ExternalNames())
		}
	}
}

func TestCategoryAll(t *testing.T) {
	if len(CategoryAll.ExternalNames()) != 10 {
		t.Errorf("All names = %v", CategoryAll.ExternalNames())
	}
	if len(CategoryAll.Split()) != 5 {
		t.Errorf("All split = %v", CategoryAll.Split())
	}
	if CategoryAll.CapabilityName() != "" || CategoryNone.ExternalNames() != nil {
		t.Error("composite categories have no capability name")
	}
	if !CategoryAll.Has(CategoryCopier | CategoryFax) {
		t.Error("All should contain every category")
	}
	if CategoryAll.String() != "All" || CategoryNone.String() != "None" {
		t.Errorf("names = %s/%s", CategoryAll, CategoryNone)
	}
}

func TestCategoryLookupMisses(t *testing.T) {
	if CategoryOf("copyBlackA3Over") != CategoryNone {
		t.Error("unrelated field matched")
	}
	if CategoryFromCapability("stapler") != CategoryNone {
		t.Error("unknown capability matched")
	}
	if CategoryOf("COPYFULL") != CategoryCopier {
		t.Error("lookup should ignore case")
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("copier|printer")
	if err != nil || c != CategoryCopier|CategoryPrinter {
		t.Errorf("got %v, %v", c, err)
	}
	if c.String() != "Copier|Printer" {
		t.Errorf("String() = %q", c.String())
	}
	c, err = ParseCategory("localStorage, faxSend")
	if err != nil || c != CategoryDocumentServer|CategoryFax {
		t.Errorf("got %v, %v", c, err)
	}
	if c, _ := ParseCategory("all"); c != CategoryAll {
		t.Errorf("all = %v", c)
	}
	if _, err := ParseCategory("stapler"); err == nil {
		t.Error("expected error")
	}
}
