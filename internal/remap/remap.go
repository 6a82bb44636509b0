// Package remap reshapes a finished export document into the three
// loader-ready CSV files (entries, price books, products) whose column sets
// are fixed contracts with the downstream import tooling.
//
// The input is decoded generically, not through the export model: the fixed
// header lists reference custom columns by name, and a document produced
// against a different org schema must still remap cleanly with blanks in the
// columns it lacks.
package remap

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultFixedUserID is stamped into CreatedById and LastModifiedById of
// every output row; the loader requires a valid user reference and the
// export document does not carry one.
const DefaultFixedUserID = "005N1000006UI0rIAG"

const (
	falseCell      = "FALSE"
	modstampLayout = "2006-01-02T15:04:05.000Z"
)

// EntryHeaders is the fixed entry-file column contract.
var EntryHeaders = []string{
	"CreatedById", "CreatedDate", "Id", "IsActive", "IsArchived", "IsDeleted",
	"LastModifiedById", "LastModifiedDate", "Mark_Up__c", "Name", "Onemedia_discount__c",
	"Onemedia_unit_cost__c", "Pricebook2Id", "Product2Id", "ProductCode", "SystemModstamp",
	"Trade_Unit_Price__c", "Trade_discount__c", "Tripleplay_Unit_Price__c", "Tripleplay_discount__c",
	"UnitPrice", "UseStandardPrice", "X1_years_apps_discount__c",
}

// PricebookHeaders is the fixed price-book-file column contract.
var PricebookHeaders = []string{
	"CreatedById", "CreatedDate", "Description", "Id", "IsActive", "IsArchived", "IsDeleted",
	"IsStandard", "LastModifiedById", "LastModifiedDate", "LastReferencedDate", "LastViewedDate",
	"Name", "SystemModstamp",
}

// ProductHeaders is the fixed product-file column contract.
var ProductHeaders = []string{
	"Automated__c", "CASESAFE__c", "Contract_Renewal__c", "CreatedById", "CreatedDate", "DP_ASO__c",
	"DP_Ext_War__c", "DP_Prem_1Yr__c", "DP_Prem_3Yr__c", "DP_Prem_5Yr_Plus__c", "DP_Prem_5Yr__c",
	"Description", "DisplayUrl", "ExternalDataSourceId", "External_Key__c", "Family", "Id", "IsActive",
	"IsArchived", "IsDeleted", "LastModifiedById", "LastModifiedDate", "LastReferencedDate",
	"LastViewedDate", "MDS_304_3S_1YR__c", "MDS_304_3S_3YR__c", "MDS_304_3S_5YR__c",
	"MDS_304_FSC_1YR__c", "MDS_304_FSC_3YR__c", "MDS_304_FSC_5YR__c", "Manufacturer__c",
	"Manufacturer_search__c", "Mark_Up__c", "Name", "OL_Support_Premium__c", "OL_Suppt_Stan__c",
	"P_SUPPT_STAN__c", "ProductCode", "Product_Category__c", "QuantityUnitOfMeasure",
	"Quantity_is_term__c", "StockKeepingUnit", "Support__c", "SystemModstamp", "Term__c",
	"WMS_Support__c", "X1YR_OM_SO_WARRANTY__c", "X2YR_OM_SO_WARRANTY__c", "X3YR_OM_SO_WARRANTY__c",
}

// Options configures one remap run.
type Options struct {
	// InputJSON is the export document path.
	InputJSON string

	// OutputDir receives pricebookEntries.csv, pricebooks.csv and
	// products.csv.
	OutputDir string

	// FixedUserID overrides DefaultFixedUserID when non-empty.
	FixedUserID string
}

// Summary reports row counts per output file.
type Summary struct {
	Entries    int
	Pricebooks int
	Products   int
}

// Remapper runs the reshape. The zero value plus Options is usable.
type Remapper struct {
	Logger *log.Logger

	// now is a test seam for the SystemModstamp value.
	now func() time.Time
}

func (m *Remapper) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

func (m *Remapper) logf(format string, v ...any) {
	l := m.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf(format, v...)
}

// Run reads the document and writes the three output files. Every row in a
// file has exactly its header's column count; columns the document does not
// carry stay blank.
func (m *Remapper) Run(opt Options) (Summary, error) {
	raw, err := os.ReadFile(opt.InputJSON)
	if err != nil {
		return Summary{}, fmt.Errorf("read document: %w", err)
	}

	var doc struct {
		Pricebooks []map[string]any `json:"pricebooks"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Summary{}, fmt.Errorf("parse document: %w", err)
	}

	if err := os.MkdirAll(opt.OutputDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create output dir: %w", err)
	}

	userID := opt.FixedUserID
	if userID == "" {
		userID = DefaultFixedUserID
	}
	nowStamp := m.clock().UTC().Format(modstampLayout)

	var entryRows [][]string
	var productRows [][]string
	seenProducts := map[string]bool{}

	for _, pb := range doc.Pricebooks {
		for _, e := range objList(pb["Entries"]) {
			entryRows = append(entryRows, entryRow(e, userID, nowStamp))

			prod, ok := e["Product"].(map[string]any)
			if !ok {
				continue
			}
			pid, _ := prod["Id"].(string)
			if pid == "" || seenProducts[pid] {
				continue
			}
			seenProducts[pid] = true
			productRows = append(productRows, productRow(prod, userID, nowStamp))
		}
	}

	pricebookRows := make([][]string, 0, len(doc.Pricebooks))
	for _, pb := range doc.Pricebooks {
		pricebookRows = append(pricebookRows, pricebookRow(pb, userID, nowStamp))
	}

	sum := Summary{
		Entries:    len(entryRows),
		Pricebooks: len(pricebookRows),
		Products:   len(productRows),
	}

	outputs := []struct {
		name    string
		headers []string
		rows    [][]string
	}{
		{"pricebookEntries.csv", EntryHeaders, entryRows},
		{"pricebooks.csv", PricebookHeaders, pricebookRows},
		{"products.csv", ProductHeaders, productRows},
	}
	for _, o := range outputs {
		path := filepath.Join(opt.OutputDir, o.name)
		if err := writeCSV(path, o.headers, o.rows); err != nil {
			return sum, err
		}
		m.logf("stage=remap file=%s rows=%d", path, len(o.rows))
	}
	return sum, nil
}

func objList(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if obj, ok := it.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// cell renders a decoded JSON scalar as its output cell. Absent and null
// both become the empty cell.
func cell(obj map[string]any, key string) string {
	switch t := obj[key].(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func entryRow(e map[string]any, userID, nowStamp string) []string {
	prod, _ := e["Product"].(map[string]any)
	if prod == nil {
		prod = map[string]any{}
	}

	// Entries carry no Name of their own; the loader column falls back to
	// the product name.
	name := cell(e, "Name")
	if name == "" {
		name = cell(prod, "Name")
	}

	row := make([]string, 0, len(EntryHeaders))
	for _, h := range EntryHeaders {
		switch h {
		case "CreatedById", "LastModifiedById":
			row = append(row, userID)
		case "IsArchived", "IsDeleted":
			row = append(row, falseCell)
		case "SystemModstamp":
			row = append(row, nowStamp)
		case "Name":
			row = append(row, name)
		case "ProductCode":
			row = append(row, cell(prod, "ProductCode"))
		default:
			row = append(row, cell(e, h))
		}
	}
	return row
}

func pricebookRow(pb map[string]any, userID, nowStamp string) []string {
	row := make([]string, 0, len(PricebookHeaders))
	for _, h := range PricebookHeaders {
		switch h {
		case "CreatedById", "LastModifiedById":
			row = append(row, userID)
		case "IsArchived", "IsDeleted":
			row = append(row, falseCell)
		case "SystemModstamp":
			row = append(row, nowStamp)
		default:
			row = append(row, cell(pb, h))
		}
	}
	return row
}

func productRow(prod map[string]any, userID, nowStamp string) []string {
	row := make([]string, 0, len(ProductHeaders))
	for _, h := range ProductHeaders {
		switch h {
		case "CreatedById", "LastModifiedById":
			row = append(row, userID)
		case "IsArchived", "IsDeleted":
			row = append(row, falseCell)
		case "SystemModstamp":
			row = append(row, nowStamp)
		default:
			row = append(row, cell(prod, h))
		}
	}
	return row
}

func writeCSV(path string, headers []string, rows [][]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}
