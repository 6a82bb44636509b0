package export

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// The in-memory model mirrors the two output shapes at once: each Entry is
// serialized nested under its Pricebook in the JSON document and flattened to
// one tabular row. Fields that the remote service may return as null are
// pointers so that null survives into the document; custom attributes are an
// ordered slice (discovery order), never a bare map, so both outputs render
// them identically.

// Pricebook is the parent catalog entity. Created on first sight (either in
// the full listing preload or inferred from an entry's parent reference),
// never deleted within a run, mutated only by appending entries.
type Pricebook struct {
	ID               string
	Name             *string
	IsActive         *bool
	IsStandard       *bool
	Description      *string
	CreatedDate      *string
	LastModifiedDate *string
	Entries          []*Entry
}

// Entry is one price book line item. Immutable once constructed; owned by
// exactly one Pricebook in the nested representation and independently
// emitted as one flat row.
type Entry struct {
	ID               *string
	Pricebook2ID     *string
	Product2ID       *string
	UnitPrice        *float64
	IsActive         *bool
	UseStandardPrice *bool
	CreatedDate      *string
	LastModifiedDate *string

	// HasCurrency mirrors Schema.MultiCurrency: when false the currency
	// key is absent from every representation, when true it is always
	// present (possibly null).
	HasCurrency bool
	Currency    *string

	Custom  []CustomValue
	Product Product
}

// Product carries the denormalized copy of the referenced product. Every
// entry owns its own copy; there is no shared product instance.
type Product struct {
	ID          *string
	Name        *string
	ProductCode *string
	Family      *string
	IsActive    *bool
	Description *string
	Custom      []CustomValue
}

// CustomValue is one discovered custom attribute. Values keep the raw JSON
// scalar type (string, number, bool or nil) for document fidelity.
type CustomValue struct {
	Name  string
	Value any
}

// jsonObject builds a JSON object with caller-controlled key order.
// encoding/json map marshaling sorts keys; output shape here is a contract,
// so objects are assembled by hand.
type jsonObject struct {
	buf bytes.Buffer
	err error
	n   int
}

func (o *jsonObject) field(name string, v any) {
	if o.err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		o.err = err
		return
	}
	if o.n == 0 {
		o.buf.WriteByte('{')
	} else {
		o.buf.WriteByte(',')
	}
	k, _ := json.Marshal(name)
	o.buf.Write(k)
	o.buf.WriteByte(':')
	o.buf.Write(b)
	o.n++
}

func (o *jsonObject) bytes() ([]byte, error) {
	if o.err != nil {
		return nil, o.err
	}
	if o.n == 0 {
		return []byte("{}"), nil
	}
	o.buf.WriteByte('}')
	return o.buf.Bytes(), nil
}

func (p *Pricebook) MarshalJSON() ([]byte, error) {
	o := &jsonObject{}
	o.field("Id", p.ID)
	o.field("Name", p.Name)
	o.field("IsActive", p.IsActive)
	o.field("IsStandard", p.IsStandard)
	o.field("Description", p.Description)
	o.field("CreatedDate", p.CreatedDate)
	o.field("LastModifiedDate", p.LastModifiedDate)
	if p.Entries == nil {
		o.field("Entries", []*Entry{})
	} else {
		o.field("Entries", p.Entries)
	}
	return o.bytes()
}

func (e *Entry) MarshalJSON() ([]byte, error) {
	o := &jsonObject{}
	o.field("Id", e.ID)
	o.field("Pricebook2Id", e.Pricebook2ID)
	o.field("Product2Id", e.Product2ID)
	o.field("UnitPrice", e.UnitPrice)
	o.field("IsActive", e.IsActive)
	o.field("UseStandardPrice", e.UseStandardPrice)
	o.field("CreatedDate", e.CreatedDate)
	o.field("LastModifiedDate", e.LastModifiedDate)
	o.field("Product", &e.Product)
	if e.HasCurrency {
		o.field("CurrencyIsoCode", e.Currency)
	}
	for _, c := range e.Custom {
		o.field(c.Name, c.Value)
	}
	return o.bytes()
}

func (p *Product) MarshalJSON() ([]byte, error) {
	o := &jsonObject{}
	o.field("Id", p.ID)
	o.field("Name", p.Name)
	o.field("ProductCode", p.ProductCode)
	o.field("Family", p.Family)
	o.field("IsActive", p.IsActive)
	o.field("Description", p.Description)
	for _, c := range p.Custom {
		o.field(c.Name, c.Value)
	}
	return o.bytes()
}

// ---- cell formatting ----

// formatCell renders any scalar the remote service can return into its
// tabular cell form. nil (and nil-pointer) values become the empty cell.
func formatCell(v any) string {
	switch t := v.(type) {
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
	case json.Number:
		return t.String()
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case *bool:
		if t == nil {
			return ""
		}
		return formatCell(*t)
	case *float64:
		if t == nil {
			return ""
		}
		return formatCell(*t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// ---- scalar coercion from raw records ----

func optString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func optBool(v any) *bool {
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

func optFloat(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}
