package export

import "strings"

// The SOQL builders are pure functions of the resolved Schema. They carry no
// pagination parameters: page following is the record source's job.

// PricebookSOQL returns the full price book listing query. Fixed field list,
// no filter, so price books with zero entries are still represented.
func PricebookSOQL() string {
	fields := []string{
		"Id", "Name", "IsActive", "IsStandard", "Description",
		"CreatedDate", "LastModifiedDate",
	}
	return "SELECT " + strings.Join(fields, ", ") + " FROM Pricebook2"
}

// EntrySOQL returns the denormalized entry+pricebook+product join query.
//
// Field order is load-bearing for nothing (rows come back keyed by name) but
// is kept stable: core entry fields, parent fields, product fields, then the
// conditional currency column, then discovered custom fields (entry customs
// bare, product customs dot-qualified under Product2).
//
// pricebookID, when non-empty, is interpolated verbatim into the WHERE
// clause. Callers must pass a validated salesforce id (config.Load enforces
// the 15/18-char alphanumeric format), never free text.
func EntrySOQL(s Schema, pricebookID string) string {
	fields := []string{
		"Id", "Pricebook2Id", "Product2Id", "UnitPrice", "IsActive",
		"UseStandardPrice", "CreatedDate", "LastModifiedDate",
		"Pricebook2.Id", "Pricebook2.Name", "Pricebook2.IsActive",
		"Pricebook2.IsStandard", "Pricebook2.Description",
		"Pricebook2.CreatedDate", "Pricebook2.LastModifiedDate",
		"Product2.Name", "Product2.ProductCode", "Product2.Family",
		"Product2.IsActive", "Product2.Description",
	}
	if s.MultiCurrency {
		fields = append(fields, "CurrencyIsoCode")
	}
	fields = append(fields, s.EntryCustomFields...)
	for _, f := range s.ProductCustomFields {
		fields = append(fields, "Product2."+f)
	}

	soql := "SELECT " + strings.Join(fields, ", ") + " FROM PricebookEntry"
	if pricebookID != "" {
		soql += " WHERE Pricebook2Id = '" + pricebookID + "'"
	}
	return soql
}
