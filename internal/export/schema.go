package export

import (
	"context"
	"errors"
	"strings"

	"github.com/Smart-Speaker/sf-data-service/internal/salesforce"
)

// Schema is the per-run resolved output shape: the custom columns discovered
// for each entity type plus the currency-capability flag. It is computed once
// before any file is opened and threaded unchanged into the query builder,
// the streaming pass, and the document finalizer, so the flat file and the
// document can never disagree on shape.
type Schema struct {
	EntryCustomFields   []string
	ProductCustomFields []string
	MultiCurrency       bool
}

// RecordSource is the exporter's view of the remote service.
// *salesforce.Client satisfies it.
type RecordSource interface {
	Describe(ctx context.Context, sobject string) (*salesforce.SObjectDescribe, error)
	Query(ctx context.Context, soql string) (salesforce.RecordIterator, error)
}

// DiscoverCustomFields returns the queryable custom field names of one
// sobject, in describe order.
//
// A field qualifies when all of:
//   - the name carries the runtime-extension suffix "__c"
//   - it is not deprecatedAndHidden
//   - the queryable flag is true or absent (absent means queryable)
//
// Errors: any describe failure propagates. Discovery failure is fatal to the
// run because every downstream column set depends on it.
func DiscoverCustomFields(ctx context.Context, src RecordSource, sobject string) ([]string, error) {
	desc, err := src.Describe(ctx, sobject)
	if err != nil {
		return nil, err
	}

	var fields []string
	for _, f := range desc.Fields {
		if f.Name == "" || !strings.HasSuffix(f.Name, "__c") {
			continue
		}
		if f.DeprecatedAndHidden {
			continue
		}
		if f.Queryable != nil && !*f.Queryable {
			continue
		}
		fields = append(fields, f.Name)
	}
	return fields, nil
}

// multi-currency orgs expose CurrencyIsoCode on PricebookEntry; single
// currency orgs reject any query naming it with exactly this message.
const noCurrencyColumnMsg = "No such column 'CurrencyIsoCode' on entity 'PricebookEntry'"

const currencyProbeSOQL = "SELECT Id, CurrencyIsoCode FROM PricebookEntry LIMIT 1"

// DetectMultiCurrency probes whether the deployment supports per-entry
// currency tagging.
//
// Only a malformed-query fault whose message carries the known
// "column absent" signature means false. Every other failure (authentication,
// transport, a malformed query for a different reason) is re-raised: this
// probe must never swallow unrelated errors as "capability absent".
func DetectMultiCurrency(ctx context.Context, src RecordSource) (bool, error) {
	it, err := src.Query(ctx, currencyProbeSOQL)
	if err != nil {
		var mq *salesforce.MalformedQueryError
		if errors.As(err, &mq) && strings.Contains(mq.Message, noCurrencyColumnMsg) {
			return false, nil
		}
		return false, err
	}

	// Drain the single probe row; a fault surfacing here gets the same
	// treatment as one surfacing at query time.
	for it.Next(ctx) {
	}
	if err := it.Err(); err != nil {
		var mq *salesforce.MalformedQueryError
		if errors.As(err, &mq) && strings.Contains(mq.Message, noCurrencyColumnMsg) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DiscoverSchema resolves the full Schema for this run: entry custom fields,
// product custom fields (when enabled), and the currency capability.
func DiscoverSchema(ctx context.Context, src RecordSource, includeProductFields bool) (Schema, error) {
	var s Schema

	entryFields, err := DiscoverCustomFields(ctx, src, "PricebookEntry")
	if err != nil {
		return Schema{}, err
	}
	s.EntryCustomFields = entryFields

	if includeProductFields {
		productFields, err := DiscoverCustomFields(ctx, src, "Product2")
		if err != nil {
			return Schema{}, err
		}
		s.ProductCustomFields = productFields
	}

	mc, err := DetectMultiCurrency(ctx, src)
	if err != nil {
		return Schema{}, err
	}
	s.MultiCurrency = mc

	return s, nil
}
