package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"valuation-form-go/pkg/events"
)

type recordingCache struct {
	calls []string
	err   error
}

func (r *recordingCache) InvalidateBank(_ context.Context, bankCode string) error {
	r.calls = append(r.calls, "bank:"+bankCode)
	return r.err
}

func (r *recordingCache) InvalidateTemplate(_ context.Context, bankCode, propertyType string) error {
	r.calls = append(r.calls, "template:"+bankCode+"/"+propertyType)
	return r.err
}

func (r *recordingCache) InvalidateCommonFields(context.Context) error {
	r.calls = append(r.calls, "common")
	return r.err
}

func (r *recordingCache) InvalidateDocumentTypes(context.Context) error {
	r.calls = append(r.calls, "doctypes")
	return r.err
}

func (r *recordingCache) InvalidateAll(context.Context) error {
	r.calls = append(r.calls, "all")
	return r.err
}

func TestProcessDispatchesByKind(t *testing.T) {
	cache := &recordingCache{}
	p := NewProcessor(cache)
	ctx := context.Background()

	for _, ev := range []events.CatalogChangeEvent{
		{Kind: events.CatalogKindBank, BankCode: " sbi "},
		{Kind: events.CatalogKindTemplate, BankCode: "hdfc", PropertyType: "land"},
		{Kind: events.CatalogKindCommonFields},
		{Kind: events.CatalogKindDocumentTypes},
		{Kind: events.CatalogKindAll},
		{Kind: events.CatalogKindBank},
		{Kind: events.CatalogKindTemplate, BankCode: "SBI"},
		{Kind: "mystery"},
	} {
		require.NoError(t, p.Process(ctx, ev))
	}

	want := []string{"bank:SBI", "template:HDFC/land", "common", "doctypes", "all"}
	if diff := cmp.Diff(want, cache.calls); diff != "" {
		t.Errorf("invalidations mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessSurfacesCacheErrors(t *testing.T) {
	cache := &recordingCache{err: errors.New("redis down")}
	err := NewProcessor(cache).Process(context.Background(), events.CatalogChangeEvent{Kind: events.CatalogKindAll})
	require.ErrorContains(t, err, "redis down")
}
