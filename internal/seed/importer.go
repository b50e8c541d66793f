package seed

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"valuation-form-go/internal/model"
	"valuation-form-go/internal/repository"
	"valuation-form-go/internal/service"
	"valuation-form-go/pkg/log"
)

var importLog = log.For("Importer")

// Summary 统计一次导入写入的条目数。
type Summary struct {
	Files           int
	Banks           int
	Templates       int
	CommonFields    int
	DocumentTypes   int
	LegacyDefaults  int
	Organizations   int
	RolePermissions int
}

// Importer 把目录包写入各个存储。组织、角色权限和旧版默认值存储可以为 nil，对应部分会被跳过。
type Importer struct {
	Catalog       repository.CatalogRepository
	Organizations repository.OrganizationRepository
	Permissions   repository.PermissionRepository
	Legacy        repository.LegacyDefaultRepository
	// Cache 非空时，导入完成后清空全部目录缓存。
	Cache repository.CatalogCache
}

// Import 按文件名顺序导入 src 中的全部目录包，遇到第一个错误即停止。
func (im *Importer) Import(ctx context.Context, src Source) (Summary, error) {
	var sum Summary
	names, err := src.List(ctx)
	if err != nil {
		return sum, fmt.Errorf("list bundles: %w", err)
	}

	for _, name := range names {
		data, err := src.Read(ctx, name)
		if err != nil {
			return sum, fmt.Errorf("read bundle %s: %w", name, err)
		}
		bundle, err := ParseBundle(name, data)
		if err != nil {
			return sum, err
		}
		if err := im.importBundle(ctx, bundle, &sum); err != nil {
			return sum, fmt.Errorf("import bundle %s: %w", name, err)
		}
		sum.Files++
		importLog.Infof("已导入目录包 %s", name)
	}

	if im.Cache != nil {
		if err := im.Cache.InvalidateAll(ctx); err != nil {
			importLog.Warnf("清空目录缓存失败: %v", err)
		}
	}
	importLog.Infow("目录导入完成",
		"files", sum.Files, "banks", sum.Banks, "templates", sum.Templates,
		"documentTypes", sum.DocumentTypes, "legacyDefaults", sum.LegacyDefaults)
	return sum, nil
}

func (im *Importer) importBundle(ctx context.Context, b *Bundle, sum *Summary) error {
	for _, e := range b.Banks {
		code := service.NormalizeBankCode(e.BankCode)
		if code == "" {
			return fmt.Errorf("bank entry without bankCode")
		}
		bank := &model.Bank{BankCode: code, BankName: strings.TrimSpace(e.BankName), IsActive: activeOrDefault(e.IsActive)}
		if bank.BankName == "" {
			bank.BankName = code
		}
		if err := im.Catalog.UpsertBank(ctx, bank); err != nil {
			return err
		}
		sum.Banks++
	}

	if len(b.CommonFields) > 0 && string(b.CommonFields) != "null" {
		if err := im.Catalog.UpsertCommonFields(ctx, &model.CommonFieldsCatalog{
			Name:   model.CommonFieldsCatalogName,
			Fields: datatypes.JSON(b.CommonFields),
		}); err != nil {
			return err
		}
		sum.CommonFields++
	}

	for _, e := range b.DocumentTypes {
		id := strings.TrimSpace(e.DocumentID)
		if id == "" {
			return fmt.Errorf("document type entry without documentId")
		}
		dt := &model.DocumentType{
			DocumentID:              id,
			DocumentName:            e.DocumentName,
			FieldType:               e.FieldType,
			Placeholder:             e.Placeholder,
			IsRequired:              e.IsRequired,
			SortOrder:               e.SortOrder,
			GridSize:                e.GridSize,
			ApplicableBanks:         normalizeBankTags(e.ApplicableBanks),
			ApplicablePropertyTypes: datatypes.JSONSlice[string](e.ApplicablePropertyTypes),
			IsCustomizable:          e.IsCustomizable,
			IsActive:                activeOrDefault(e.IsActive),
			Description:             e.Description,
		}
		if err := im.Catalog.UpsertDocumentType(ctx, dt); err != nil {
			return err
		}
		sum.DocumentTypes++
	}

	for _, e := range b.Templates {
		bankCode, propertyType := service.NormalizeScope(e.BankCode, e.PropertyType)
		if bankCode == "" || propertyType == "" {
			return fmt.Errorf("template entry without bankCode or propertyType")
		}
		tabs := datatypes.JSON(e.Tabs)
		if len(tabs) == 0 || string(tabs) == "null" {
			tabs = datatypes.JSON("[]")
		}
		tpl := &model.StructuralTemplate{
			CollectionName: model.TemplateCollectionName(bankCode, propertyType),
			BankCode:       bankCode,
			PropertyType:   propertyType,
			TemplateID:     e.TemplateID,
			TemplateName:   e.TemplateName,
			Version:        e.Version,
			Tabs:           tabs,
		}
		if err := im.Catalog.UpsertStructuralTemplate(ctx, tpl); err != nil {
			return err
		}
		sum.Templates++
	}

	if im.Organizations != nil {
		for _, e := range b.Organizations {
			if strings.TrimSpace(e.ID) == "" || strings.TrimSpace(e.ShortName) == "" {
				return fmt.Errorf("organization entry without id or shortName")
			}
			org := &model.Organization{ID: e.ID, ShortName: e.ShortName, Name: e.Name, IsActive: activeOrDefault(e.IsActive)}
			if err := im.Organizations.Upsert(ctx, org); err != nil {
				return err
			}
			sum.Organizations++
		}
	}

	if im.Permissions != nil {
		for _, e := range b.RolePermissions {
			caps := make(datatypes.JSONMap, len(e.Capabilities))
			for k, v := range e.Capabilities {
				caps[k] = v
			}
			if err := im.Permissions.Upsert(ctx, &model.RolePermission{Role: e.Role, Capabilities: caps}); err != nil {
				return err
			}
			sum.RolePermissions++
		}
	}

	if im.Legacy != nil {
		for _, e := range b.LegacyDefaults {
			bankCode, propertyType := service.NormalizeScope(e.BankCode, e.PropertyType)
			record := &model.LegacyFieldDefault{
				OrganizationID: e.OrganizationID,
				BankCode:       bankCode,
				PropertyType:   propertyType,
				Defaults:       datatypes.JSONSlice[model.CustomFieldDefault](e.Defaults),
			}
			if record.OrganizationID == "" || record.BankCode == "" || record.PropertyType == "" {
				return fmt.Errorf("legacy defaults entry without organizationId, bankCode or propertyType")
			}
			if err := im.Legacy.Upsert(ctx, record); err != nil {
				return err
			}
			sum.LegacyDefaults++
		}
	}
	return nil
}

// normalizeBankTags 把适用银行标签统一为与银行代码相同的写法（去空白、全大写），空标签丢弃。
func normalizeBankTags(tags []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(tags))
	for _, tag := range tags {
		if tag = service.NormalizeBankCode(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
