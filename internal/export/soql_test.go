package export

import "testing"

func TestPricebookSOQL(t *testing.T) {
	t.Parallel()

	want := "SELECT Id, Name, IsActive, IsStandard, Description, CreatedDate, LastModifiedDate FROM Pricebook2"
	if got := PricebookSOQL(); got != want {
		t.Fatalf("PricebookSOQL:\n got  %q\n want %q", got, want)
	}
}

func TestEntrySOQL(t *testing.T) {
	t.Parallel()

	base := "SELECT Id, Pricebook2Id, Product2Id, UnitPrice, IsActive, UseStandardPrice, " +
		"CreatedDate, LastModifiedDate, Pricebook2.Id, Pricebook2.Name, Pricebook2.IsActive, " +
		"Pricebook2.IsStandard, Pricebook2.Description, Pricebook2.CreatedDate, " +
		"Pricebook2.LastModifiedDate, Product2.Name, Product2.ProductCode, Product2.Family, " +
		"Product2.IsActive, Product2.Description"

	tests := []struct {
		name        string
		schema      Schema
		pricebookID string
		want        string
	}{
		{
			name:   "minimal",
			schema: Schema{},
			want:   base + " FROM PricebookEntry",
		},
		{
			name:   "multi currency",
			schema: Schema{MultiCurrency: true},
			want:   base + ", CurrencyIsoCode FROM PricebookEntry",
		},
		{
			name: "custom fields after currency",
			schema: Schema{
				MultiCurrency:       true,
				EntryCustomFields:   []string{"Margin__c"},
				ProductCustomFields: []string{"Sku__c", "Weight__c"},
			},
			want: base + ", CurrencyIsoCode, Margin__c, Product2.Sku__c, Product2.Weight__c FROM PricebookEntry",
		},
		{
			name: "custom fields without currency",
			schema: Schema{
				EntryCustomFields: []string{"Margin__c"},
			},
			want: base + ", Margin__c FROM PricebookEntry",
		},
		{
			name:        "pricebook filter",
			schema:      Schema{},
			pricebookID: "01s000000000001AAA",
			want:        base + " FROM PricebookEntry WHERE Pricebook2Id = '01s000000000001AAA'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EntrySOQL(tt.schema, tt.pricebookID); got != tt.want {
				t.Fatalf("EntrySOQL:\n got  %q\n want %q", got, tt.want)
			}
		})
	}
}
