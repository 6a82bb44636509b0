package remap

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const fixtureDoc = `{
  "exported_at": "2026-03-01T12:00:00Z",
  "pricebook_count": 2,
  "total_entry_count": 3,
  "multi_currency": false,
  "pricebooks": [
    {
      "Id": "01sSTD",
      "Name": "Standard Price Book",
      "IsActive": true,
      "IsStandard": true,
      "Description": null,
      "CreatedDate": "2020-01-01T00:00:00.000+0000",
      "LastModifiedDate": "2025-06-01T00:00:00.000+0000",
      "Entries": [
        {
          "Id": "01uA",
          "Pricebook2Id": "01sSTD",
          "Product2Id": "01tW",
          "UnitPrice": 10.5,
          "IsActive": true,
          "UseStandardPrice": false,
          "CreatedDate": "2021-01-01T00:00:00.000+0000",
          "LastModifiedDate": null,
          "Mark_Up__c": 1.2,
          "Product": {
            "Id": "01tW",
            "Name": "Widget",
            "ProductCode": "W-1",
            "Family": "Hardware",
            "IsActive": true,
            "Description": null
          }
        },
        {
          "Id": "01uB",
          "Pricebook2Id": "01sSTD",
          "Product2Id": "01tW",
          "UnitPrice": 3,
          "Product": {
            "Id": "01tW",
            "Name": "Widget Again",
            "ProductCode": "W-1-DUP"
          }
        }
      ]
    },
    {
      "Id": "01sEMPTY",
      "Name": "Empty Book",
      "Entries": []
    }
  ]
}`

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestRemapperRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(input, []byte(fixtureDoc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	outDir := filepath.Join(dir, "out")

	m := &Remapper{now: func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}}
	sum, err := m.Run(Options{InputJSON: input, OutputDir: outDir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Two entries, two pricebooks, and one product: the duplicate product id
	// collapses to its first occurrence.
	if sum.Entries != 2 || sum.Pricebooks != 2 || sum.Products != 1 {
		t.Fatalf("summary: %+v", sum)
	}

	entries := readCSV(t, filepath.Join(outDir, "pricebookEntries.csv"))
	if len(entries) != 3 {
		t.Fatalf("entry rows: %d", len(entries))
	}
	if len(entries[0]) != len(EntryHeaders) {
		t.Fatalf("entry header width: %d, want %d", len(entries[0]), len(EntryHeaders))
	}

	col := func(headers []string, name string) int {
		for i, h := range headers {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}

	first := entries[1]
	if first[col(EntryHeaders, "CreatedById")] != DefaultFixedUserID {
		t.Fatalf("CreatedById: %q", first[col(EntryHeaders, "CreatedById")])
	}
	if first[col(EntryHeaders, "LastModifiedById")] != DefaultFixedUserID {
		t.Fatal("LastModifiedById")
	}
	if first[col(EntryHeaders, "IsArchived")] != "FALSE" || first[col(EntryHeaders, "IsDeleted")] != "FALSE" {
		t.Fatal("fixed FALSE columns")
	}
	if first[col(EntryHeaders, "SystemModstamp")] != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("SystemModstamp: %q", first[col(EntryHeaders, "SystemModstamp")])
	}
	// Entries carry no name; the product name fills in.
	if first[col(EntryHeaders, "Name")] != "Widget" {
		t.Fatalf("Name fallback: %q", first[col(EntryHeaders, "Name")])
	}
	if first[col(EntryHeaders, "ProductCode")] != "W-1" {
		t.Fatal("ProductCode from product")
	}
	if first[col(EntryHeaders, "UnitPrice")] != "10.5" {
		t.Fatalf("UnitPrice: %q", first[col(EntryHeaders, "UnitPrice")])
	}
	if first[col(EntryHeaders, "Mark_Up__c")] != "1.2" {
		t.Fatal("custom column")
	}
	// Null and absent document values both land as blank cells.
	if first[col(EntryHeaders, "LastModifiedDate")] != "" {
		t.Fatal("null should be blank")
	}
	if first[col(EntryHeaders, "Onemedia_discount__c")] != "" {
		t.Fatal("absent should be blank")
	}

	pricebooks := readCSV(t, filepath.Join(outDir, "pricebooks.csv"))
	if len(pricebooks) != 3 {
		t.Fatalf("pricebook rows: %d", len(pricebooks))
	}
	if pricebooks[1][col(PricebookHeaders, "IsStandard")] != "true" {
		t.Fatalf("IsStandard: %q", pricebooks[1][col(PricebookHeaders, "IsStandard")])
	}
	if pricebooks[2][col(PricebookHeaders, "Name")] != "Empty Book" {
		t.Fatal("empty pricebook still remapped")
	}

	products := readCSV(t, filepath.Join(outDir, "products.csv"))
	if len(products) != 2 {
		t.Fatalf("product rows: %d", len(products))
	}
	if len(products[0]) != len(ProductHeaders) {
		t.Fatalf("product header width: %d, want %d", len(products[0]), len(ProductHeaders))
	}
	// First occurrence wins the dedupe.
	if products[1][col(ProductHeaders, "Name")] != "Widget" {
		t.Fatalf("product dedupe: %q", products[1][col(ProductHeaders, "Name")])
	}
}

func TestRemapperFixedUserOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(input, []byte(`{"pricebooks":[{"Id":"01s1","Entries":[{"Id":"01u1"}]}]}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	m := &Remapper{}
	_, err := m.Run(Options{InputJSON: input, OutputDir: dir, FixedUserID: "005CUSTOM000000000"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "pricebookEntries.csv"))
	if rows[1][0] != "005CUSTOM000000000" {
		t.Fatalf("CreatedById override: %q", rows[1][0])
	}
}

func TestHeaderWidths(t *testing.T) {
	t.Parallel()

	if len(EntryHeaders) != 23 {
		t.Fatalf("EntryHeaders: %d", len(EntryHeaders))
	}
	if len(PricebookHeaders) != 14 {
		t.Fatalf("PricebookHeaders: %d", len(PricebookHeaders))
	}
	if len(ProductHeaders) != 49 {
		t.Fatalf("ProductHeaders: %d", len(ProductHeaders))
	}
}
