package export

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Smart-Speaker/sf-data-service/internal/salesforce"
)

func TestDiscoverCustomFields(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		describes: map[string]*salesforce.SObjectDescribe{
			"PricebookEntry": {
				Name: "PricebookEntry",
				Fields: []salesforce.FieldDescribe{
					{Name: "Id"},
					{Name: "Margin__c"},
					{Name: "Hidden__c", DeprecatedAndHidden: true},
					{Name: "Blocked__c", Queryable: boolPtr(false)},
					{Name: "Open__c", Queryable: boolPtr(true)},
					{Name: "UnitPrice"},
					{Name: ""},
				},
			},
		},
	}

	got, err := DiscoverCustomFields(context.Background(), src, "PricebookEntry")
	if err != nil {
		t.Fatalf("DiscoverCustomFields: %v", err)
	}

	// Qualifying fields in describe order: a "__c" suffix, not hidden, and
	// queryable true or absent.
	want := []string{"Margin__c", "Open__c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestDetectMultiCurrency(t *testing.T) {
	t.Parallel()

	noColumn := &salesforce.MalformedQueryError{APIError: salesforce.APIError{
		StatusCode: 400,
		ErrorCode:  "INVALID_FIELD",
		Message:    "\nSELECT Id, CurrencyIsoCode FROM PricebookEntry\n           ^\nERROR at Row:1:Column:12\nNo such column 'CurrencyIsoCode' on entity 'PricebookEntry'.",
	}}
	otherMalformed := &salesforce.MalformedQueryError{APIError: salesforce.APIError{
		StatusCode: 400,
		ErrorCode:  "MALFORMED_QUERY",
		Message:    "unexpected token: LIMIT",
	}}
	authErr := &salesforce.AuthError{APIError: salesforce.APIError{
		StatusCode: 401,
		ErrorCode:  "INVALID_SESSION_ID",
		Message:    "Session expired or invalid",
	}}

	tests := []struct {
		name     string
		queryErr error
		drainErr error
		want     bool
		wantErr  error
	}{
		{name: "column exists", want: true},
		{name: "column absent", queryErr: noColumn, want: false},
		{name: "column absent at drain", drainErr: noColumn, want: false},
		{name: "unrelated malformed query", queryErr: otherMalformed, wantErr: otherMalformed},
		{name: "auth failure passes through", queryErr: authErr, wantErr: authErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := &fakeSource{query: func(soql string) (salesforce.RecordIterator, error) {
				if !strings.Contains(soql, "CurrencyIsoCode") {
					t.Fatalf("probe query missing currency column: %q", soql)
				}
				if tt.queryErr != nil {
					return nil, tt.queryErr
				}
				return &sliceIter{
					recs: []salesforce.Record{{"Id": "01u000000000001AAA"}},
					err:  tt.drainErr,
				}, nil
			}}

			got, err := DetectMultiCurrency(context.Background(), src)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectMultiCurrency: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %t, want %t", got, tt.want)
			}
		})
	}
}
