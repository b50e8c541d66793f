package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"valuation-form-go/internal/model"
	"valuation-form-go/internal/repository/memrepo"
	"valuation-form-go/internal/service"
)

const (
	commonFieldsJSON = `[
		{"fieldId":"ref","technicalName":"report_reference_number","displayName":"Report Reference","isReadonly":false},
		{"fieldId":"owner_name","technicalName":"owner_name","displayName":"Owner","isCustomizable":true},
		{"fieldId":"inspection_date","technicalName":"inspection_date","fieldType":"date"}
	]`
	sbiLandTabsJSON = `[
		{"tabId":"property","tabName":"Property","sortOrder":1,"sections":[
			{"sectionId":"docs","sectionName":"Documents","sortOrder":2,"useDocumentCollection":true,"originalFields":["doc1"],
			 "fields":[{"fieldId":"static"}]},
			{"sectionId":"site","sectionName":"Site","sortOrder":1,"fields":[
				{"fieldId":"road_width","fieldType":"number","isCustomizable":true},
				{"fieldId":"boundaries","fieldType":"group","isCustomizable":true,"subFields":[
					{"fieldId":"north","isCustomizable":true},
					{"fieldId":"south"}
				]}
			]}
		]},
		{"tabId":"valuation","tabName":"Valuation","sortOrder":2,"fields":[{"fieldId":"rate","fieldType":"number"}]}
	]`
)

type fixture struct {
	catalog   *memrepo.CatalogStore
	custom    *memrepo.CustomTemplateStore
	legacy    *memrepo.LegacyDefaultStore
	templates service.TemplateService
	customs   service.CustomTemplateService
	legacies  service.LegacyDefaultService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		catalog: memrepo.NewCatalogStore(),
		custom:  memrepo.NewCustomTemplateStore(),
		legacy:  memrepo.NewLegacyDefaultStore(),
	}
	require.NoError(t, f.catalog.UpsertBank(ctx, &model.Bank{BankCode: "SBI", BankName: "State Bank of India", IsActive: true}))
	require.NoError(t, f.catalog.UpsertStructuralTemplate(ctx, &model.StructuralTemplate{
		BankCode: "SBI", PropertyType: "land", TemplateID: "sbi-land", TemplateName: "SBI Land", Version: "3",
		Tabs: datatypes.JSON(sbiLandTabsJSON),
	}))
	require.NoError(t, f.catalog.UpsertCommonFields(ctx, &model.CommonFieldsCatalog{Fields: datatypes.JSON(commonFieldsJSON)}))
	require.NoError(t, f.catalog.UpsertDocumentType(ctx, &model.DocumentType{
		DocumentID: "doc1", DocumentName: "Sale Deed", IsActive: true, SortOrder: 1,
		ApplicableBanks: datatypes.JSONSlice[string]{"SBI"}, ApplicablePropertyTypes: datatypes.JSONSlice[string]{"Land"},
	}))
	require.NoError(t, f.catalog.UpsertDocumentType(ctx, &model.DocumentType{
		DocumentID: "doc2", DocumentName: "Other Bank Deed", IsActive: true,
		ApplicableBanks: datatypes.JSONSlice[string]{"HDFC"}, ApplicablePropertyTypes: datatypes.JSONSlice[string]{"land"},
	}))

	f.templates = service.NewTemplateService(f.catalog, f.custom)
	f.customs = service.NewCustomTemplateService(f.custom, nil, service.DefaultMaxCustomTemplatesPerScope)
	f.legacies = service.NewLegacyDefaultService(f.legacy, f.templates, f.customs)
	return f
}

var actor = service.Actor{ID: "u-1", Name: "Asha"}

func createInput(name string) service.CreateCustomTemplateInput {
	return service.CreateCustomTemplateInput{
		BankCode:     "SBI",
		PropertyType: "land",
		TemplateName: name,
		FieldValues:  map[string]any{"owner_name": "Acme Valuers"},
	}
}

func TestAggregateTemplateScenario(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	agg, err := f.templates.AggregateTemplate(context.Background(), "sbi", "land")
	require.NoError(err)
	require.Equal("sbi-land", agg.TemplateID)
	require.Equal("State Bank of India", agg.BankName)
	require.Equal("land", agg.PropertyType)
	require.False(agg.AggregatedAt.IsZero())

	require.Len(agg.CommonFields, 3)
	require.Equal("ref", agg.CommonFields[0].FieldID)
	require.True(agg.CommonFields[0].IsReadonly)

	require.Len(agg.BankSpecificTabs, 2)
	property := agg.BankSpecificTabs[0]
	require.Equal("property", property.TabID)
	require.Equal("site", property.Sections[0].SectionID)
	docs := property.Sections[1]
	require.Equal("docs", docs.SectionID)
	require.Len(docs.Fields, 1)
	require.Equal("doc1", docs.Fields[0].FieldID)
	require.Equal(model.FieldTypeTextarea, docs.Fields[0].FieldType)

	boundaries := property.Sections[0].Fields[1]
	require.Equal(3, boundaries.GridSize)
	require.Equal(12, boundaries.SubFields[0].GridSize)

	require.Len(agg.DocumentTypes, 1)
	require.Equal("doc1", agg.DocumentTypes[0].DocumentID)
}

func TestAggregateTemplateErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.templates.AggregateTemplate(ctx, "NOPE", "land")
	require.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.templates.AggregateTemplate(ctx, "SBI", "apartment")
	require.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.templates.AggregateTemplate(ctx, " ", "land")
	require.ErrorIs(t, err, service.ErrInvalidArgument)

	_, err = f.templates.GetAggregatedTemplate(ctx, "SBI", "commercial-property")
	require.ErrorIs(t, err, service.ErrInvalidArgument)

	agg, err := f.templates.GetAggregatedTemplate(ctx, "SBI", "Land-Property")
	require.NoError(t, err)
	require.Equal(t, "land", agg.PropertyType)
}

func TestAggregateWithoutCommonFieldsCatalog(t *testing.T) {
	ctx := context.Background()
	catalog := memrepo.NewCatalogStore()
	require.NoError(t, catalog.UpsertBank(ctx, &model.Bank{BankCode: "SBI", BankName: "SBI", IsActive: true}))
	require.NoError(t, catalog.UpsertStructuralTemplate(ctx, &model.StructuralTemplate{BankCode: "SBI", PropertyType: "land", Tabs: datatypes.JSON(`[]`)}))

	agg, err := service.NewTemplateService(catalog, memrepo.NewCustomTemplateStore()).AggregateTemplate(ctx, "SBI", "land")
	require.NoError(t, err)
	require.Empty(t, agg.CommonFields)
	require.Equal(t, "sbi_land_property_details", agg.TemplateID)
}

func TestResolvePropertyType(t *testing.T) {
	tests := []struct {
		code    string
		want    string
		wantErr error
	}{
		{"land", "land", nil},
		{"land-property", "land", nil},
		{"APARTMENT", "apartment", nil},
		{"flat-apartment-v2", "apartment", nil},
		{"villa", "", service.ErrInvalidArgument},
		{"", "", service.ErrInvalidArgument},
	}
	for _, tt := range tests {
		got, err := service.ResolvePropertyType(tt.code)
		if !errors.Is(err, tt.wantErr) || got != tt.want {
			t.Errorf("ResolvePropertyType(%q) = %q, %v; want %q, %v", tt.code, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestGetCustomizableFields(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	fields, err := f.templates.GetCustomizableFields(context.Background(), "SBI", "land")
	require.NoError(err)
	require.Equal("sbi-land", fields.TemplateInfo.TemplateID)
	require.Len(fields.CommonFields, 1)
	require.Equal("owner_name", fields.CommonFields[0].FieldID)

	require.Len(fields.BankSpecificTabs, 1)
	tab := fields.BankSpecificTabs[0]
	require.Equal("property", tab.TabID)
	require.Len(tab.Sections, 1)
	site := tab.Sections[0]
	require.Len(site.Fields, 2)
	require.Equal("boundaries", site.Fields[1].FieldID)
	require.Len(site.Fields[1].SubFields, 1)
	require.Equal("north", site.Fields[1].SubFields[0].FieldID)
	for _, field := range site.Fields {
		require.True(field.IsActive)
		require.False(field.IsReadonly)
	}

	composite, err := f.templates.GetCustomizableFields(context.Background(), "sbi", "land-property")
	require.NoError(err)
	if diff := cmp.Diff(fields, composite); diff != "" {
		t.Errorf("composite code diverges from property type (-land +land-property):\n%s", diff)
	}

	_, err = f.templates.GetCustomizableFields(context.Background(), "SBI", "commercial")
	require.ErrorIs(err, service.ErrInvalidArgument)
}

func TestCustomTemplateCapScenario(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.customs.Create(ctx, "ORG1", actor, createInput("first"))
	require.NoError(err)
	require.Equal(1, first.Version)
	require.Equal("Asha", first.CreatedByName)
	_, err = f.customs.Create(ctx, "ORG1", actor, createInput("second"))
	require.NoError(err)

	_, err = f.customs.Create(ctx, "ORG1", actor, createInput("third"))
	require.ErrorIs(err, service.ErrLimitExceeded)

	// 大小写不同的写法属于同一作用域
	variant := createInput("variant")
	variant.BankCode = " sbi "
	variant.PropertyType = "LAND"
	_, err = f.customs.Create(ctx, "ORG1", actor, variant)
	require.ErrorIs(err, service.ErrLimitExceeded)

	_, err = f.customs.Clone(ctx, "ORG1", actor, first.ID, service.CloneCustomTemplateInput{TemplateName: "copy"})
	require.ErrorIs(err, service.ErrLimitExceeded)

	deleted, err := f.customs.Delete(ctx, "ORG1", first.ID)
	require.NoError(err)
	require.True(deleted)

	third, err := f.customs.Create(ctx, "ORG1", actor, createInput("third"))
	require.NoError(err)
	require.Equal("SBI", third.BankCode)
	require.Equal("land", third.PropertyType)

	// 其他组织不受影响
	_, err = f.customs.Create(ctx, "ORG2", actor, createInput("org2"))
	require.NoError(err)
}

func TestCustomTemplateCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, in := range []service.CreateCustomTemplateInput{
		{BankCode: "SBI", PropertyType: "land", TemplateName: "  "},
		{BankCode: "", PropertyType: "land", TemplateName: "x"},
		{BankCode: "SBI", PropertyType: " ", TemplateName: "x"},
	} {
		_, err := f.customs.Create(ctx, "ORG1", actor, in)
		require.ErrorIs(t, err, service.ErrInvalidArgument)
	}
	_, err := f.customs.Create(ctx, "", actor, createInput("x"))
	require.ErrorIs(t, err, service.ErrInvalidArgument)

	// 存储不校验字段是否可定制
	in := createInput("permissive")
	in.FieldValues = map[string]any{"not_in_catalog": 1}
	tpl, err := f.customs.Create(ctx, "ORG1", actor, in)
	require.NoError(t, err)
	require.Equal(t, 1, tpl.FieldValues["not_in_catalog"])
}

func TestCustomTemplateConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		limited int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.customs.Create(ctx, "ORG1", actor, createInput("concurrent"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if errors.Is(err, service.ErrLimitExceeded) {
				limited++
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 2, created)
	require.Equal(t, 8, limited)
}

func TestCustomTemplateSoftDeleteExclusion(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.customs.Create(ctx, "ORG1", actor, createInput("a"))
	require.NoError(err)
	b, err := f.customs.Create(ctx, "ORG1", actor, createInput("b"))
	require.NoError(err)

	deleted, err := f.customs.Delete(ctx, "ORG2", a.ID)
	require.NoError(err)
	require.False(deleted)

	deleted, err = f.customs.Delete(ctx, "ORG1", a.ID)
	require.NoError(err)
	require.True(deleted)
	deleted, err = f.customs.Delete(ctx, "ORG1", a.ID)
	require.NoError(err)
	require.False(deleted)
	deleted, err = f.customs.Delete(ctx, "ORG1", "missing")
	require.NoError(err)
	require.False(deleted)

	list, err := f.customs.List(ctx, "ORG1", "", "")
	require.NoError(err)
	require.Len(list, 1)
	require.Equal(b.ID, list[0].ID)
	require.Equal(1, list[0].FieldCount)

	list, err = f.customs.List(ctx, "ORG1", "sbi", "Land")
	require.NoError(err)
	require.Len(list, 1)

	list, err = f.customs.List(ctx, "ORG1", "HDFC", "")
	require.NoError(err)
	require.Empty(list)

	_, err = f.customs.Get(ctx, "ORG1", a.ID)
	require.ErrorIs(err, service.ErrNotFound)
	_, err = f.customs.Get(ctx, "ORG2", b.ID)
	require.ErrorIs(err, service.ErrNotFound)
}

func TestCustomTemplateUpdate(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	tpl, err := f.customs.Create(ctx, "ORG1", actor, service.CreateCustomTemplateInput{
		BankCode: "SBI", PropertyType: "land", TemplateName: "draft", Description: "first cut",
		FieldValues: map[string]any{"owner_name": "A"},
	})
	require.NoError(err)
	time.Sleep(time.Millisecond)

	name := "final"
	updated, err := f.customs.Update(ctx, "ORG1", tpl.ID, service.UpdateCustomTemplateInput{TemplateName: &name})
	require.NoError(err)
	require.Equal("final", updated.TemplateName)
	require.Equal("first cut", updated.Description)
	require.Equal("A", updated.FieldValues["owner_name"])
	require.Equal(2, updated.Version)
	require.True(updated.UpdatedAt.After(tpl.UpdatedAt))

	updated, err = f.customs.Update(ctx, "ORG1", tpl.ID, service.UpdateCustomTemplateInput{FieldValues: map[string]any{"road_width": 30}})
	require.NoError(err)
	require.Equal(3, updated.Version)
	require.Equal(datatypes.JSONMap{"road_width": 30}, updated.FieldValues)

	blank := " "
	_, err = f.customs.Update(ctx, "ORG1", tpl.ID, service.UpdateCustomTemplateInput{TemplateName: &blank})
	require.ErrorIs(err, service.ErrInvalidArgument)

	_, err = f.customs.Update(ctx, "ORG2", tpl.ID, service.UpdateCustomTemplateInput{TemplateName: &name})
	require.ErrorIs(err, service.ErrNotFound)
}

func TestCustomTemplateClone(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	src, err := f.customs.Create(ctx, "ORG1", actor, service.CreateCustomTemplateInput{
		BankCode: "SBI", PropertyType: "land", TemplateName: "source", Description: "src",
		FieldValues: map[string]any{"owner_name": "A", "north": "river"},
	})
	require.NoError(err)

	clone, err := f.customs.Clone(ctx, "ORG1", service.Actor{ID: "u-2", Name: "Ravi"}, src.ID, service.CloneCustomTemplateInput{TemplateName: "copy"})
	require.NoError(err)
	require.NotEqual(src.ID, clone.ID)
	require.Equal("copy", clone.TemplateName)
	require.Equal("src", clone.Description)
	require.Equal(1, clone.Version)
	require.Equal("Ravi", clone.CreatedByName)
	require.Equal(src.FieldValues, clone.FieldValues)

	_, err = f.customs.Clone(ctx, "ORG2", actor, src.ID, service.CloneCustomTemplateInput{TemplateName: "steal"})
	require.ErrorIs(err, service.ErrNotFound)
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed map[string]model.CustomTemplateDocument
	results []string
	err     error
}

func (f *fakeIndexer) IndexCustomTemplate(_ context.Context, doc model.CustomTemplateDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[doc.ID] = doc
	return nil
}

func (f *fakeIndexer) DeleteCustomTemplate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, id)
	return nil
}

func (f *fakeIndexer) SearchCustomTemplates(context.Context, string, string, string, string, int) ([]string, error) {
	return f.results, f.err
}

func TestCustomTemplateSearch(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	store := memrepo.NewCustomTemplateStore()
	indexer := &fakeIndexer{indexed: make(map[string]model.CustomTemplateDocument)}
	svc := service.NewCustomTemplateService(store, indexer, 2)

	a, err := svc.Create(ctx, "ORG1", actor, createInput("Riverside plots"))
	require.NoError(err)
	b, err := svc.Create(ctx, "ORG1", actor, createInput("Highway plots"))
	require.NoError(err)
	require.Len(indexer.indexed, 2)

	_, err = svc.Delete(ctx, "ORG1", b.ID)
	require.NoError(err)
	require.Len(indexer.indexed, 1)

	// 索引中残留的已删除记录在回读时被过滤掉
	indexer.results = []string{b.ID, a.ID}
	items, err := svc.Search(ctx, "ORG1", "plots", "", "")
	require.NoError(err)
	require.Len(items, 1)
	require.Equal(a.ID, items[0].ID)

	// 索引不可用时退化为存储检索
	indexer.err = errors.New("es down")
	items, err = svc.Search(ctx, "ORG1", "river", "SBI", "land")
	require.NoError(err)
	require.Len(items, 1)

	plain := service.NewCustomTemplateService(store, nil, 0)
	items, err = plain.Search(ctx, "ORG1", "HIGHWAY", "", "")
	require.NoError(err)
	require.Empty(items)
}

func TestApplyCustomTemplate(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	tpl, err := f.customs.Create(ctx, "ORG1", actor, service.CreateCustomTemplateInput{
		BankCode: "SBI", PropertyType: "land", TemplateName: "defaults",
		FieldValues: map[string]any{"owner_name": "Acme", "north": "River", "rate": 100, "ghost": true},
	})
	require.NoError(err)

	agg, err := f.templates.ApplyCustomTemplate(ctx, "ORG1", "SBI", "land-property", tpl.ID)
	require.NoError(err)
	require.NotNil(agg.AppliedCustomTemplate)
	require.Equal([]string{"north", "owner_name"}, agg.AppliedCustomTemplate.AppliedFieldIDs)
	require.Equal([]string{"ghost", "rate"}, agg.AppliedCustomTemplate.IgnoredFieldIDs)
	require.Equal("Acme", agg.CommonFields[1].DefaultValue)
	require.Equal("River", agg.BankSpecificTabs[0].Sections[0].Fields[1].SubFields[0].DefaultValue)
	require.Nil(agg.BankSpecificTabs[1].Fields[0].DefaultValue)

	_, err = f.templates.ApplyCustomTemplate(ctx, "ORG2", "SBI", "land", tpl.ID)
	require.ErrorIs(err, service.ErrNotFound)

	// 作用域不匹配
	require.NoError(f.catalog.UpsertStructuralTemplate(ctx, &model.StructuralTemplate{BankCode: "SBI", PropertyType: "apartment", Tabs: datatypes.JSON(`[]`)}))
	_, err = f.templates.ApplyCustomTemplate(ctx, "ORG1", "SBI", "apartment", tpl.ID)
	require.ErrorIs(err, service.ErrInvalidArgument)

	// 渲染结果不会回写目录
	plain, err := f.templates.AggregateTemplate(ctx, "SBI", "land")
	require.NoError(err)
	require.Nil(plain.CommonFields[1].DefaultValue)
}

func TestLegacyDefaults(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.legacies.Get(ctx, "ORG1", "SBI", "land")
	require.ErrorIs(err, service.ErrNotFound)

	agg, applied, err := f.legacies.Apply(ctx, "ORG1", "SBI", "land")
	require.NoError(err)
	require.Zero(applied)
	require.NotNil(agg)

	now := time.Now()
	require.NoError(f.legacy.Upsert(ctx, &model.LegacyFieldDefault{
		OrganizationID: "ORG1", BankCode: "SBI", PropertyType: "land",
		Defaults: datatypes.JSONSlice[model.CustomFieldDefault]{
			{FieldID: "owner_name", Value: "new", UpdatedAt: now},
			{FieldID: "owner_name", Value: "old", UpdatedAt: now.Add(-time.Hour)},
			{FieldID: "doc1", DocumentID: "doc1", SectionID: "docs", Value: "registered", UpdatedAt: now},
		},
	}))

	record, err := f.legacies.Get(ctx, "ORG1", "sbi", "LAND")
	require.NoError(err)
	require.Len(record.Defaults, 3)

	agg, applied, err = f.legacies.Apply(ctx, "ORG1", "SBI", "land")
	require.NoError(err)
	require.Equal(3, applied)
	require.Equal("new", agg.CommonFields[1].DefaultValue)
	require.Equal("registered", agg.BankSpecificTabs[0].Sections[1].Fields[0].DefaultValue)

	migrated, err := f.legacies.Migrate(ctx, "ORG1", actor, "SBI", "land", "")
	require.NoError(err)
	require.Equal("new", migrated.FieldValues["owner_name"])
	require.Equal("registered", migrated.FieldValues["doc1"])

	_, err = f.legacies.Migrate(ctx, "ORG1", actor, "SBI", "land", "again")
	require.NoError(err)
	_, err = f.legacies.Migrate(ctx, "ORG1", actor, "SBI", "land", "over cap")
	require.ErrorIs(err, service.ErrLimitExceeded)
}
