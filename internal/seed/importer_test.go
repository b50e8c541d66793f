package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"valuation-form-go/internal/repository/memrepo"
	"valuation-form-go/internal/service"
)

type countingCache struct {
	all int
}

func (c *countingCache) InvalidateBank(context.Context, string) error           { return nil }
func (c *countingCache) InvalidateTemplate(context.Context, string, string) error { return nil }
func (c *countingCache) InvalidateCommonFields(context.Context) error            { return nil }
func (c *countingCache) InvalidateDocumentTypes(context.Context) error           { return nil }
func (c *countingCache) InvalidateAll(context.Context) error {
	c.all++
	return nil
}

type stores struct {
	catalog *memrepo.CatalogStore
	orgs    *memrepo.OrganizationStore
	perms   *memrepo.PermissionStore
	legacy  *memrepo.LegacyDefaultStore
	cache   *countingCache
}

func newImporter() (*Importer, stores) {
	s := stores{
		catalog: memrepo.NewCatalogStore(),
		orgs:    memrepo.NewOrganizationStore(),
		perms:   memrepo.NewPermissionStore(),
		legacy:  memrepo.NewLegacyDefaultStore(),
		cache:   &countingCache{},
	}
	return &Importer{
		Catalog:       s.catalog,
		Organizations: s.orgs,
		Permissions:   s.perms,
		Legacy:        s.legacy,
		Cache:         s.cache,
	}, s
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestParseBundleFormats(t *testing.T) {
	yamlBundle, err := ParseBundle("a.yml", []byte("banks:\n  - bankCode: sbi\n    isActive: false\n"))
	require.NoError(t, err)
	require.Len(t, yamlBundle.Banks, 1)
	require.False(t, activeOrDefault(yamlBundle.Banks[0].IsActive))

	jsonBundle, err := ParseBundle("b.JSON", []byte(`{"banks":[{"bankCode":"HDFC"}]}`))
	require.NoError(t, err)
	require.True(t, activeOrDefault(jsonBundle.Banks[0].IsActive))

	empty, err := ParseBundle("empty.yaml", nil)
	require.NoError(t, err)
	require.Empty(t, empty.Banks)

	_, err = ParseBundle("c.toml", []byte("x=1"))
	require.Error(t, err)
	_, err = ParseBundle("d.json", []byte("{"))
	require.Error(t, err)
}

func TestDirSourceListsBundlesRecursively(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", "{}")
	writeFile(t, dir, "nested/a.yaml", "")
	writeFile(t, dir, "README.md", "ignored")

	names, err := DirSource{Dir: dir}.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"b.json", "nested/a.yaml"}, names)
}

func TestImportNormalizesAndDefaults(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "01.yaml", `
banks:
  - { bankCode: " sbi ", bankName: State Bank }
  - { bankCode: uco, isActive: false }
templates:
  - bankCode: sbi
    propertyType: " LAND "
    tabs: []
documentTypes:
  - { documentId: deed, documentName: Deed, applicableBanks: ["*", " hdfc ", ""], applicablePropertyTypes: [Land] }
organizations:
  - { id: org-1, shortName: one }
rolePermissions:
  - role: ORG_ADMIN
    capabilities: { customTemplates.manage: true }
`)
	writeFile(t, dir, "02.json", `{"legacyDefaults":[{"organizationId":"org-1","bankCode":"sbi","propertyType":"LAND","defaults":[{"fieldId":"x","value":1}]}]}`)

	im, s := newImporter()
	sum, err := im.Import(ctx, DirSource{Dir: dir})
	require.NoError(err)
	require.Equal(Summary{Files: 2, Banks: 2, Templates: 1, DocumentTypes: 1, LegacyDefaults: 1, Organizations: 1, RolePermissions: 1}, sum)
	require.Equal(1, s.cache.all)

	bank, err := s.catalog.GetBank(ctx, "SBI")
	require.NoError(err)
	require.Equal("State Bank", bank.BankName)
	_, err = s.catalog.GetBank(ctx, "UCO")
	require.Error(err)

	tpl, err := s.catalog.GetStructuralTemplate(ctx, "SBI", "land")
	require.NoError(err)
	require.Equal("sbi_land_property_details", tpl.CollectionName)
	require.Equal("land", tpl.PropertyType)

	docs, err := s.catalog.GetDocumentTypes(ctx, "HDFC", "land")
	require.NoError(err)
	require.Len(docs, 1)
	require.Equal([]string{"*", "HDFC"}, []string(docs[0].ApplicableBanks))

	org, err := s.orgs.GetByShortName(ctx, "one")
	require.NoError(err)
	require.True(org.IsActive)

	perm, err := s.perms.GetByRole(ctx, "ORG_ADMIN")
	require.NoError(err)
	require.True(perm.Allows("customTemplates.manage"))

	legacy, err := s.legacy.Get(ctx, "org-1", "SBI", "land")
	require.NoError(err)
	require.Len(legacy.Defaults, 1)
}

func TestImportStopsOnInvalidEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", `{"templates":[{"bankCode":"SBI"}]}`)

	im, s := newImporter()
	_, err := im.Import(context.Background(), DirSource{Dir: dir})
	require.ErrorContains(t, err, "bad.json")
	require.Zero(t, s.cache.all)
}

func TestSampleCatalogAggregates(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	im, s := newImporter()
	_, err := im.Import(ctx, DirSource{Dir: filepath.Join("..", "..", "configs", "seed")})
	require.NoError(err)

	templates := service.NewTemplateService(s.catalog, memrepo.NewCustomTemplateStore())
	agg, err := templates.GetAggregatedTemplate(ctx, "sbi", "land-property")
	require.NoError(err)
	require.Equal("sbi-land-v3", agg.TemplateID)
	require.True(agg.CommonFields[0].IsReadonly)

	docs := agg.BankSpecificTabs[0].Sections[1]
	require.Equal("documents", docs.SectionID)
	require.Len(docs.Fields, 2)
	require.Equal("sale_deed", docs.Fields[0].FieldID)
	require.Equal("encumbrance_certificate", docs.Fields[1].FieldID)

	fields, err := templates.GetCustomizableFields(ctx, "SBI", "land")
	require.NoError(err)
	require.NotEmpty(fields.BankSpecificTabs)
}
