package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Document is the finished nested export. Built exactly once per run, after
// the streaming pass completes; its top-level key order is part of the output
// contract.
type Document struct {
	ExportedAt      time.Time
	MultiCurrency   bool
	EntryCustom     []string
	ProductCustom   []string
	Pricebooks      []*Pricebook
	TotalEntryCount int
}

func (d *Document) MarshalJSON() ([]byte, error) {
	entryCustom := d.EntryCustom
	if entryCustom == nil {
		entryCustom = []string{}
	}
	productCustom := d.ProductCustom
	if productCustom == nil {
		productCustom = []string{}
	}
	pbs := d.Pricebooks
	if pbs == nil {
		pbs = []*Pricebook{}
	}

	o := &jsonObject{}
	o.field("exported_at", d.ExportedAt.UTC().Format(time.RFC3339))
	o.field("pricebook_count", len(pbs))
	o.field("total_entry_count", d.TotalEntryCount)
	o.field("multi_currency", d.MultiCurrency)
	o.field("included_custom_fields", map[string]json.RawMessage{
		"PricebookEntry": mustMarshal(entryCustom),
		"Product2":       mustMarshal(productCustom),
	})
	o.field("pricebooks", pbs)
	return o.bytes()
}

// mustMarshal is for values that cannot fail to marshal (string slices).
func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// included_custom_fields has exactly two fixed keys, which json map
// marshaling emits in sorted order: "PricebookEntry" then "Product2". That
// matches the contract, so no ordered builder is needed for it.

// FinalizeDocument assembles the Document from the populated index.
//
// Ordering: standard price books first, then the rest by case-insensitive
// name; a missing name sorts as the empty string. The sort is stable so
// price books that tie keep their insertion order. Entry lists are already
// in stream order and are not touched.
func FinalizeDocument(index map[string]*Pricebook, s Schema, entryCount int, now time.Time) *Document {
	pbs := make([]*Pricebook, 0, len(index))
	for _, pb := range index {
		pbs = append(pbs, pb)
	}
	// Map iteration order is random; establish a deterministic base order
	// before the stable sort.
	sort.Slice(pbs, func(i, j int) bool { return pbs[i].ID < pbs[j].ID })
	sort.SliceStable(pbs, func(i, j int) bool {
		ki, kj := sortKey(pbs[i]), sortKey(pbs[j])
		if ki.standardRank != kj.standardRank {
			return ki.standardRank < kj.standardRank
		}
		return ki.name < kj.name
	})

	return &Document{
		ExportedAt:      now,
		MultiCurrency:   s.MultiCurrency,
		EntryCustom:     s.EntryCustomFields,
		ProductCustom:   s.ProductCustomFields,
		Pricebooks:      pbs,
		TotalEntryCount: entryCount,
	}
}

type pricebookKey struct {
	standardRank int
	name         string
}

func sortKey(pb *Pricebook) pricebookKey {
	k := pricebookKey{standardRank: 1}
	if pb.IsStandard != nil && *pb.IsStandard {
		k.standardRank = 0
	}
	if pb.Name != nil {
		k.name = strings.ToLower(*pb.Name)
	}
	return k
}

// WriteDocument writes the document as 2-space-indented JSON.
func WriteDocument(path string, d *Document) error {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	b = append(b, '\n')
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
