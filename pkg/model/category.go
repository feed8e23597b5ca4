package model

import (
	"fmt"
	"strings"
)

// Category is a bit set of device functions that can be restricted.
type Category uint32

const (
	CategoryNone           Category = 0
	CategoryFax            Category = 1
	CategoryCopier         Category = 2
	CategoryPrinter        Category = 4
	CategoryScanner        Category = 8
	CategoryDocumentServer Category = 16
	CategoryAll            Category = 2147483647
)

type categoryInfo struct {
	category   Category
	name       string
	capability string
	fields     []string
}

// categories is ordered by bit.
var categories = []categoryInfo{
	{CategoryFax, "Fax", "faxSend", []string{"faxSend"}},
	{CategoryCopier, "Copier", "copy", []string{"copyMono", "copyBlack", "copyTwin", "copyFull"}},
	{CategoryPrinter, "Printer", "printer", []string{"printerBlack", "printerFull"}},
	{CategoryScanner, "Scanner", "scanner", []string{"scannerBlack", "scannerFull"}},
	{CategoryDocumentServer, "DocumentServer", "localStorage", []string{"localStorage"}},
}

// Categories returns the single-bit categories in bit order.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		out[i] = c.category
	}
	return out
}

// Has returns true if every bit of other is set.
func (c Category) Has(other Category) bool {
	return c&other == other
}

// Split returns the single-bit categories contained in c.
func (c Category) Split() []Category {
	var out []Category
	for _, info := range categories {
		if c&info.category != 0 {
			out = append(out, info.category)
		}
	}
	return out
}

// ExternalNames returns the access-control field names of every category
// in c.
func (c Category) ExternalNames() []string {
	var names []string
	for _, info := range categories {
		if c&info.category != 0 {
			names = append(names, info.fields...)
		}
	}
	return names
}

// CapabilityName returns the device restriction object name of a
// single-bit category, or "".
func (c Category) CapabilityName() string {
	for _, info := range categories {
		if info.category == c {
			return info.capability
		}
	}
	return ""
}

// String returns the category names joined by "|".
func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "None"
	case CategoryAll:
		return "All"
	}
	var parts []string
	for _, info := range categories {
		if c&info.category != 0 {
			parts = append(parts, info.name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Category(%d)", uint32(c))
	}
	return strings.Join(parts, "|")
}

// CategoryOf returns the category controlled by the named field, or
// CategoryNone.
func CategoryOf(fieldName string) Category {
	for _, info := range categories {
		for _, f := range info.fields {
			if strings.EqualFold(f, fieldName) {
				return info.category
			}
		}
	}
	return CategoryNone
}

// CategoryFromCapability returns the category of a device restriction
// object name, or CategoryNone.
func CategoryFromCapability(name string) Category {
	for _, info := range categories {
		if strings.EqualFold(info.capability, name) {
			return info.category
		}
	}
	return CategoryNone
}

// ParseCategory parses names separated by "|" or ",". Category names and
// capability names are accepted case-insensitively.
func ParseCategory(s string) (Category, error) {
	var c Category
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		part = strings.TrimSpace(part)
		switch {
		case strings.EqualFold(part, "none"):
			continue
		case strings.EqualFold(part, "all"):
			c |= CategoryAll
			continue
		}
		found := CategoryFromCapability(part)
		if found == CategoryNone {
			for _, info := range categories {
				if strings.EqualFold(info.name, part) {
					found = info.category
					break
				}
			}
		}
		if found == CategoryNone {
			return CategoryNone, fmt.Errorf("unknown category %q", part)
		}
		c |= found
	}
	return c, nil
}
