package export

import (
	"context"
	"fmt"

	"github.com/Smart-Speaker/sf-data-service/internal/salesforce"
)

// HeaderColumns returns the flat-file column set for a resolved Schema: the
// fixed core columns, the currency column when the capability probe confirmed
// it (inserted between Entry.IsActive and Entry.UseStandardPrice), and the
// discovered custom columns appended in discovery order, each dot-qualified
// under its owning entity.
func HeaderColumns(s Schema) []string {
	cols := []string{
		"Pricebook.Id", "Pricebook.Name",
		"Entry.Id", "Entry.Pricebook2Id", "Entry.Product2Id",
		"Entry.UnitPrice", "Entry.IsActive",
	}
	if s.MultiCurrency {
		cols = append(cols, "Entry.CurrencyIsoCode")
	}
	cols = append(cols,
		"Entry.UseStandardPrice", "Entry.CreatedDate", "Entry.LastModifiedDate",
		"Product.Id", "Product.Name", "Product.ProductCode",
		"Product.Family", "Product.IsActive", "Product.Description",
	)
	for _, f := range s.EntryCustomFields {
		cols = append(cols, "Entry."+f)
	}
	for _, f := range s.ProductCustomFields {
		cols = append(cols, "Product."+f)
	}
	return cols
}

// entryFromRecord builds the immutable Entry for one joined record,
// embedding a denormalized copy of the referenced product's core and custom
// attributes. Missing fields stay nil (null in the document, empty cell in
// the flat file).
func entryFromRecord(r salesforce.Record, s Schema) *Entry {
	e := &Entry{
		ID:               optString(r["Id"]),
		Pricebook2ID:     optString(r["Pricebook2Id"]),
		Product2ID:       optString(r["Product2Id"]),
		UnitPrice:        optFloat(r["UnitPrice"]),
		IsActive:         optBool(r["IsActive"]),
		UseStandardPrice: optBool(r["UseStandardPrice"]),
		CreatedDate:      optString(r["CreatedDate"]),
		LastModifiedDate: optString(r["LastModifiedDate"]),
		HasCurrency:      s.MultiCurrency,
	}
	if s.MultiCurrency {
		e.Currency = optString(r["CurrencyIsoCode"])
	}
	for _, f := range s.EntryCustomFields {
		e.Custom = append(e.Custom, CustomValue{Name: f, Value: r[f]})
	}

	e.Product = Product{
		ID:          optString(r["Product2Id"]),
		Name:        optString(r.SubVal("Product2", "Name")),
		ProductCode: optString(r.SubVal("Product2", "ProductCode")),
		Family:      optString(r.SubVal("Product2", "Family")),
		IsActive:    optBool(r.SubVal("Product2", "IsActive")),
		Description: optString(r.SubVal("Product2", "Description")),
	}
	for _, f := range s.ProductCustomFields {
		e.Product.Custom = append(e.Product.Custom, CustomValue{Name: f, Value: r.SubVal("Product2", f)})
	}
	return e
}

// pricebookFromListing builds a Pricebook from the full catalog listing.
func pricebookFromListing(r salesforce.Record) *Pricebook {
	return &Pricebook{
		ID:               r.Str("Id"),
		Name:             optString(r["Name"]),
		IsActive:         optBool(r["IsActive"]),
		IsStandard:       optBool(r["IsStandard"]),
		Description:      optString(r["Description"]),
		CreatedDate:      optString(r["CreatedDate"]),
		LastModifiedDate: optString(r["LastModifiedDate"]),
	}
}

// pricebookFromEntryRecord materializes a Pricebook from whatever parent
// attributes one entry record embeds. The parent sub-object may be entirely
// missing (the parent record can be inaccessible to the running user); that
// yields a degraded Pricebook with only the id set, which is a data-quality
// condition, not an error.
func pricebookFromEntryRecord(id string, r salesforce.Record) *Pricebook {
	return &Pricebook{
		ID:               id,
		Name:             optString(r.SubVal("Pricebook2", "Name")),
		IsActive:         optBool(r.SubVal("Pricebook2", "IsActive")),
		IsStandard:       optBool(r.SubVal("Pricebook2", "IsStandard")),
		Description:      optString(r.SubVal("Pricebook2", "Description")),
		CreatedDate:      optString(r.SubVal("Pricebook2", "CreatedDate")),
		LastModifiedDate: optString(r.SubVal("Pricebook2", "LastModifiedDate")),
	}
}

// flatRow renders one entry as the tabular cell set matching HeaderColumns.
// pbName is the parent name as embedded in this record (nil when the parent
// sub-object is absent), matching the degraded-metadata policy.
func flatRow(pbID string, pbName *string, e *Entry, s Schema) []string {
	row := []string{
		pbID, formatCell(pbName),
		formatCell(e.ID), formatCell(e.Pricebook2ID), formatCell(e.Product2ID),
		formatCell(e.UnitPrice), formatCell(e.IsActive),
	}
	if s.MultiCurrency {
		row = append(row, formatCell(e.Currency))
	}
	row = append(row,
		formatCell(e.UseStandardPrice), formatCell(e.CreatedDate), formatCell(e.LastModifiedDate),
		formatCell(e.Product.ID), formatCell(e.Product.Name), formatCell(e.Product.ProductCode),
		formatCell(e.Product.Family), formatCell(e.Product.IsActive), formatCell(e.Product.Description),
	)
	for _, c := range e.Custom {
		row = append(row, formatCell(c.Value))
	}
	for _, c := range e.Product.Custom {
		row = append(row, formatCell(c.Value))
	}
	return row
}

// resolveParentID resolves the parent pricebook identity for one record:
// the embedded parent sub-object's Id when present, else the flat
// Pricebook2Id foreign key.
func resolveParentID(r salesforce.Record) string {
	if id, ok := r.SubVal("Pricebook2", "Id").(string); ok && id != "" {
		return id
	}
	return r.Str("Pricebook2Id")
}

// rowSinkFlusher batches flat rows for the optional relational mirror sink.
type rowSinkFlusher struct {
	sink    RowSink
	table   string
	columns []string
	batch   [][]string
	size    int
}

func (f *rowSinkFlusher) add(ctx context.Context, row []string) error {
	if f == nil || f.sink == nil {
		return nil
	}
	f.batch = append(f.batch, row)
	if len(f.batch) >= f.size {
		return f.flush(ctx)
	}
	return nil
}

func (f *rowSinkFlusher) flush(ctx context.Context) error {
	if f == nil || f.sink == nil || len(f.batch) == 0 {
		return nil
	}
	out := f.batch
	f.batch = f.batch[:0]
	if err := f.sink.InsertRows(ctx, f.table, f.columns, out); err != nil {
		return fmt.Errorf("sink insert: %w", err)
	}
	return nil
}

// streamEntries is the single pass over the joined record stream. For each
// record it (a) resolves or materializes the parent Pricebook in the index,
// (b) appends the typed Entry in stream order, and (c) emits one flat row.
// The returned count equals both the rows written and the total entries
// appended; there is no path that grows one side without the other.
func streamEntries(
	ctx context.Context,
	it salesforce.RecordIterator,
	index map[string]*Pricebook,
	s Schema,
	qw *quoteAllWriter,
	sink *rowSinkFlusher,
) (int, error) {
	rows := 0
	for it.Next(ctx) {
		r := it.Record()
		rows++

		pbID := resolveParentID(r)
		pb, ok := index[pbID]
		if !ok {
			pb = pricebookFromEntryRecord(pbID, r)
			index[pbID] = pb
		}

		entry := entryFromRecord(r, s)
		pb.Entries = append(pb.Entries, entry)

		pbName := optString(r.SubVal("Pricebook2", "Name"))
		row := flatRow(pbID, pbName, entry, s)
		if err := qw.WriteRow(row); err != nil {
			return rows, fmt.Errorf("write row: %w", err)
		}
		if err := sink.add(ctx, row); err != nil {
			return rows, err
		}
	}
	if err := it.Err(); err != nil {
		// A mid-stream fault abandons the partially written flat file;
		// there is no partial-success mode for the tabular output.
		return rows, err
	}
	if err := sink.flush(ctx); err != nil {
		return rows, err
	}
	return rows, nil
}
