package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"valuation-form-go/internal/model"
	"valuation-form-go/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库只存在于单个连接上
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.AutoMigrate(db))
	return db
}

func newTemplate(org, bank, propertyType, name string) *model.CustomTemplate {
	return &model.CustomTemplate{
		ID:             uuid.New().String(),
		OrganizationID: org,
		BankCode:       bank,
		PropertyType:   propertyType,
		TemplateName:   name,
		FieldValues:    datatypes.JSONMap{"owner_name": "ACME"},
		Version:        1,
		IsActive:       true,
	}
}

func TestCustomTemplateCreateWithinLimit(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	repo := repository.NewCustomTemplateRepository(newTestDB(t))

	first := newTemplate("ORG1", "SBI", "land", "first")
	require.NoError(repo.CreateWithinLimit(ctx, first, 2))
	require.NoError(repo.CreateWithinLimit(ctx, newTemplate("ORG1", "SBI", "land", "second"), 2))

	err := repo.CreateWithinLimit(ctx, newTemplate("ORG1", "SBI", "land", "third"), 2)
	require.ErrorIs(err, repository.ErrScopeLimitReached)

	// 其他作用域不受影响
	require.NoError(repo.CreateWithinLimit(ctx, newTemplate("ORG1", "SBI", "apartment", "other"), 2))
	require.NoError(repo.CreateWithinLimit(ctx, newTemplate("ORG2", "SBI", "land", "other org"), 2))

	deleted, err := repo.SoftDelete(ctx, first.ID)
	require.NoError(err)
	require.True(deleted)

	count, err := repo.CountActive(ctx, "ORG1", "SBI", "land")
	require.NoError(err)
	require.EqualValues(1, count)

	require.NoError(repo.CreateWithinLimit(ctx, newTemplate("ORG1", "SBI", "land", "third"), 2))
}

func TestCustomTemplateConcurrentCreatesRespectLimit(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCustomTemplateRepository(newTestDB(t))

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		limited   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.CreateWithinLimit(ctx, newTemplate("ORG1", "SBI", "land", "concurrent"), 2)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, repository.ErrScopeLimitReached):
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 2, succeeded)
	require.Equal(t, workers-2, limited)
	count, err := repo.CountActive(ctx, "ORG1", "SBI", "land")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestCustomTemplateUpdateAndSoftDelete(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	repo := repository.NewCustomTemplateRepository(newTestDB(t))

	tpl := newTemplate("ORG1", "SBI", "land", "original")
	tpl.Description = "keep me"
	require.NoError(repo.CreateWithinLimit(ctx, tpl, 2))

	updated, err := repo.Update(ctx, tpl.ID, map[string]interface{}{"template_name": "renamed"})
	require.NoError(err)
	require.Equal("renamed", updated.TemplateName)
	require.Equal("keep me", updated.Description)
	require.Equal(2, updated.Version)
	require.Equal("ACME", updated.FieldValues["owner_name"])

	updated, err = repo.Update(ctx, tpl.ID, map[string]interface{}{"field_values": datatypes.JSONMap{"owner_name": "Other"}})
	require.NoError(err)
	require.Equal(3, updated.Version)
	require.Equal("Other", updated.FieldValues["owner_name"])

	deleted, err := repo.SoftDelete(ctx, tpl.ID)
	require.NoError(err)
	require.True(deleted)

	deleted, err = repo.SoftDelete(ctx, tpl.ID)
	require.NoError(err)
	require.False(deleted)

	deleted, err = repo.SoftDelete(ctx, "missing")
	require.NoError(err)
	require.False(deleted)

	_, err = repo.Update(ctx, tpl.ID, map[string]interface{}{"template_name": "ghost"})
	require.ErrorIs(err, gorm.ErrRecordNotFound)

	found, err := repo.FindByID(ctx, tpl.ID)
	require.NoError(err)
	require.False(found.IsActive)
}

func TestCustomTemplateList(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	repo := repository.NewCustomTemplateRepository(newTestDB(t))

	a := newTemplate("ORG1", "SBI", "land", "a")
	b := newTemplate("ORG1", "HDFC", "land", "b")
	c := newTemplate("ORG2", "SBI", "land", "c")
	for _, tpl := range []*model.CustomTemplate{a, b, c} {
		require.NoError(repo.CreateWithinLimit(ctx, tpl, 2))
	}
	_, err := repo.SoftDelete(ctx, b.ID)
	require.NoError(err)

	list, err := repo.List(ctx, repository.CustomTemplateFilter{OrganizationID: "ORG1"})
	require.NoError(err)
	require.Len(list, 1)
	require.Equal(a.ID, list[0].ID)

	list, err = repo.List(ctx, repository.CustomTemplateFilter{BankCode: "SBI", PropertyType: "land"})
	require.NoError(err)
	require.Len(list, 2)

	list, err = repo.List(ctx, repository.CustomTemplateFilter{OrganizationID: "ORG1", IncludeInactive: true})
	require.NoError(err)
	require.Len(list, 2)

	byIDs, err := repo.FindActiveByIDs(ctx, "ORG1", []string{b.ID, a.ID, c.ID})
	require.NoError(err)
	require.Len(byIDs, 1)
	require.Equal(a.ID, byIDs[0].ID)
}

func TestCatalogRepository(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	repo := repository.NewCatalogRepository(newTestDB(t))

	require.NoError(repo.UpsertBank(ctx, &model.Bank{BankCode: "SBI", BankName: "State Bank", IsActive: true}))
	require.NoError(repo.UpsertBank(ctx, &model.Bank{BankCode: "SBI", BankName: "State Bank of India", IsActive: true}))
	require.NoError(repo.UpsertBank(ctx, &model.Bank{BankCode: "OLD", BankName: "Closed", IsActive: false}))

	bank, err := repo.GetBank(ctx, "SBI")
	require.NoError(err)
	require.Equal("State Bank of India", bank.BankName)

	_, err = repo.GetBank(ctx, "OLD")
	require.ErrorIs(err, gorm.ErrRecordNotFound)

	require.NoError(repo.UpsertStructuralTemplate(ctx, &model.StructuralTemplate{
		BankCode: "SBI", PropertyType: "land", TemplateID: "sbi-land", Tabs: datatypes.JSON(`[]`),
	}))
	tpl, err := repo.GetStructuralTemplate(ctx, "SBI", "land")
	require.NoError(err)
	require.Equal("sbi_land_property_details", tpl.CollectionName)
	require.Equal("sbi-land", tpl.TemplateID)

	_, err = repo.GetStructuralTemplate(ctx, "SBI", "apartment")
	require.ErrorIs(err, gorm.ErrRecordNotFound)

	_, err = repo.GetCommonFields(ctx)
	require.ErrorIs(err, gorm.ErrRecordNotFound)
	require.NoError(repo.UpsertCommonFields(ctx, &model.CommonFieldsCatalog{Fields: datatypes.JSON(`[{"fieldId":"a"}]`)}))
	common, err := repo.GetCommonFields(ctx)
	require.NoError(err)
	require.JSONEq(`[{"fieldId":"a"}]`, string(common.Fields))

	docs := []*model.DocumentType{
		{DocumentID: "deed", DocumentName: "Deed", SortOrder: 2, IsActive: true,
			ApplicableBanks: datatypes.JSONSlice[string]{"SBI"}, ApplicablePropertyTypes: datatypes.JSONSlice[string]{"Land"}},
		{DocumentID: "tax", DocumentName: "Tax", SortOrder: 1, IsActive: true,
			ApplicableBanks: datatypes.JSONSlice[string]{"*"}, ApplicablePropertyTypes: datatypes.JSONSlice[string]{"LAND"}},
		{DocumentID: "flat", DocumentName: "Flat", IsActive: true,
			ApplicableBanks: datatypes.JSONSlice[string]{"SBI"}, ApplicablePropertyTypes: datatypes.JSONSlice[string]{"apartment"}},
		{DocumentID: "off", DocumentName: "Off", IsActive: false,
			ApplicableBanks: datatypes.JSONSlice[string]{"SBI"}, ApplicablePropertyTypes: datatypes.JSONSlice[string]{"land"}},
	}
	for _, d := range docs {
		require.NoError(repo.UpsertDocumentType(ctx, d))
	}
	matched, err := repo.GetDocumentTypes(ctx, "SBI", "land")
	require.NoError(err)
	require.Len(matched, 2)
	require.Equal("tax", matched[0].DocumentID)
	require.Equal("deed", matched[1].DocumentID)
}

func TestDirectoryRepositories(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)

	orgs := repository.NewOrganizationRepository(db)
	require.NoError(orgs.Upsert(ctx, &model.Organization{ID: "org-1", ShortName: "acme", Name: "Acme", IsActive: true}))
	org, err := orgs.GetByShortName(ctx, "acme")
	require.NoError(err)
	require.Equal("org-1", org.ID)
	_, err = orgs.GetByShortName(ctx, "nobody")
	require.ErrorIs(err, gorm.ErrRecordNotFound)

	perms := repository.NewPermissionRepository(db)
	require.NoError(perms.Upsert(ctx, &model.RolePermission{
		Role:         "valuer",
		Capabilities: datatypes.JSONMap{model.CapabilityManageCustomTemplates: true, model.CapabilityImportCatalog: "yes"},
	}))
	perm, err := perms.GetByRole(ctx, "valuer")
	require.NoError(err)
	require.True(perm.Allows(model.CapabilityManageCustomTemplates))
	require.False(perm.Allows(model.CapabilityImportCatalog))
	require.False(perm.Allows(model.CapabilityViewCustomTemplates))

	legacy := repository.NewLegacyDefaultRepository(db)
	record := &model.LegacyFieldDefault{
		OrganizationID: "org-1", BankCode: "SBI", PropertyType: "land",
		Defaults: datatypes.JSONSlice[model.CustomFieldDefault]{{FieldID: "owner", Value: "Acme"}},
	}
	require.NoError(legacy.Upsert(ctx, record))
	record.Defaults = append(record.Defaults, model.CustomFieldDefault{FieldID: "deed", DocumentID: "deed", SectionID: "docs", Value: "yes"})
	record.ID = 0
	require.NoError(legacy.Upsert(ctx, record))

	got, err := legacy.Get(ctx, "org-1", "SBI", "land")
	require.NoError(err)
	require.Len(got.Defaults, 2)
	require.Equal("deed", got.Defaults[1].DocumentID)
}
