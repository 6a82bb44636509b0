package export

import (
	"context"
	"fmt"

	"github.com/Smart-Speaker/sf-data-service/internal/salesforce"
)

// sliceIter replays a fixed record slice, optionally surfacing an error after
// the last record (the shape a mid-stream page fault takes).
type sliceIter struct {
	recs []salesforce.Record
	i    int
	err  error
}

func (it *sliceIter) Next(context.Context) bool {
	if it.i >= len(it.recs) {
		return false
	}
	it.i++
	return true
}

func (it *sliceIter) Record() salesforce.Record { return it.recs[it.i-1] }
func (it *sliceIter) Err() error                { return it.err }

// fakeSource routes Describe by sobject name and Query by a caller-provided
// function.
type fakeSource struct {
	describes map[string]*salesforce.SObjectDescribe
	query     func(soql string) (salesforce.RecordIterator, error)
}

func (f *fakeSource) Describe(_ context.Context, sobject string) (*salesforce.SObjectDescribe, error) {
	d, ok := f.describes[sobject]
	if !ok {
		return nil, fmt.Errorf("no describe fixture for %s", sobject)
	}
	return d, nil
}

func (f *fakeSource) Query(_ context.Context, soql string) (salesforce.RecordIterator, error) {
	return f.query(soql)
}

func boolPtr(b bool) *bool { return &b }
