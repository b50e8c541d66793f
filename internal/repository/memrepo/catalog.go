// Package memrepo 提供 repository 包中各接口的内存实现，用于测试和演示模式，不需要数据库。
// 未找到记录时与 GORM 实现一致，返回 gorm.ErrRecordNotFound。
package memrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"

	"valuation-form-go/internal/model"
)

// CatalogStore 是 repository.CatalogRepository 的内存实现。
type CatalogStore struct {
	mu            sync.RWMutex
	banks         map[string]model.Bank
	templates     map[string]model.StructuralTemplate
	common        *model.CommonFieldsCatalog
	documentTypes []model.DocumentType
}

// NewCatalogStore 创建一个空的 CatalogStore。
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		banks:     make(map[string]model.Bank),
		templates: make(map[string]model.StructuralTemplate),
	}
}

func (s *CatalogStore) GetBank(_ context.Context, bankCode string) (*model.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bank, ok := s.banks[bankCode]
	if !ok || !bank.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return &bank, nil
}

func (s *CatalogStore) GetStructuralTemplate(_ context.Context, bankCode, propertyType string) (*model.StructuralTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[model.TemplateCollectionName(bankCode, propertyType)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &tpl, nil
}

func (s *CatalogStore) GetCommonFields(_ context.Context) (*model.CommonFieldsCatalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.common == nil {
		return nil, gorm.ErrRecordNotFound
	}
	c := *s.common
	return &c, nil
}

func (s *CatalogStore) GetDocumentTypes(_ context.Context, bankCode, propertyType string) ([]model.DocumentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]model.DocumentType, 0, len(s.documentTypes))
	for _, dt := range s.documentTypes {
		if dt.IsActive && dt.AppliesTo(bankCode, propertyType) {
			matched = append(matched, dt)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].SortOrder < matched[j].SortOrder })
	return matched, nil
}

func (s *CatalogStore) UpsertBank(_ context.Context, bank *model.Bank) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks[bank.BankCode] = *bank
	return nil
}

func (s *CatalogStore) UpsertStructuralTemplate(_ context.Context, tpl *model.StructuralTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tpl.CollectionName == "" {
		tpl.CollectionName = model.TemplateCollectionName(tpl.BankCode, tpl.PropertyType)
	}
	s.templates[strings.ToLower(tpl.CollectionName)] = *tpl
	return nil
}

func (s *CatalogStore) UpsertCommonFields(_ context.Context, catalog *model.CommonFieldsCatalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if catalog.Name == "" {
		catalog.Name = model.CommonFieldsCatalogName
	}
	c := *catalog
	s.common = &c
	return nil
}

func (s *CatalogStore) UpsertDocumentType(_ context.Context, dt *model.DocumentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.documentTypes {
		if s.documentTypes[i].DocumentID == dt.DocumentID {
			s.documentTypes[i] = *dt
			return nil
		}
	}
	s.documentTypes = append(s.documentTypes, *dt)
	return nil
}
