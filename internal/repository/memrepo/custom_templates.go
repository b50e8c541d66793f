package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"valuation-form-go/internal/model"
	"valuation-form-go/internal/repository"
)

var (
	_ repository.CatalogRepository        = (*CatalogStore)(nil)
	_ repository.CustomTemplateRepository = (*CustomTemplateStore)(nil)
	_ repository.OrganizationRepository   = (*OrganizationStore)(nil)
	_ repository.PermissionRepository     = (*PermissionStore)(nil)
	_ repository.LegacyDefaultRepository  = (*LegacyDefaultStore)(nil)
)

// CustomTemplateStore 是 repository.CustomTemplateRepository 的内存实现。
// 所有写操作在同一把锁内完成，数量检查与插入天然是原子的。
type CustomTemplateStore struct {
	mu        sync.RWMutex
	templates []model.CustomTemplate
}

// NewCustomTemplateStore 创建一个空的 CustomTemplateStore。
func NewCustomTemplateStore() *CustomTemplateStore {
	return &CustomTemplateStore{}
}

func cloneTemplate(t model.CustomTemplate) model.CustomTemplate {
	if t.FieldValues != nil {
		values := make(datatypes.JSONMap, len(t.FieldValues))
		for k, v := range t.FieldValues {
			values[k] = v
		}
		t.FieldValues = values
	}
	return t
}

func (s *CustomTemplateStore) CreateWithinLimit(_ context.Context, tpl *model.CustomTemplate, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, t := range s.templates {
		if t.IsActive && t.OrganizationID == tpl.OrganizationID && t.BankCode == tpl.BankCode && t.PropertyType == tpl.PropertyType {
			count++
		}
	}
	if count >= limit {
		return repository.ErrScopeLimitReached
	}
	now := time.Now()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now
	if tpl.Version == 0 {
		tpl.Version = 1
	}
	tpl.IsActive = true
	s.templates = append(s.templates, cloneTemplate(*tpl))
	return nil
}

func (s *CustomTemplateStore) FindByID(_ context.Context, id string) (*model.CustomTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.templates {
		if t.ID == id {
			found := cloneTemplate(t)
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *CustomTemplateStore) FindActiveByIDs(_ context.Context, organizationID string, ids []string) ([]model.CustomTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CustomTemplate, 0, len(ids))
	for _, id := range ids {
		for _, t := range s.templates {
			if t.ID == id && t.IsActive && t.OrganizationID == organizationID {
				out = append(out, cloneTemplate(t))
			}
		}
	}
	return out, nil
}

func (s *CustomTemplateStore) Update(_ context.Context, id string, updates map[string]interface{}) (*model.CustomTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.templates {
		t := &s.templates[i]
		if t.ID != id || !t.IsActive {
			continue
		}
		if v, ok := updates["template_name"].(string); ok {
			t.TemplateName = v
		}
		if v, ok := updates["description"].(string); ok {
			t.Description = v
		}
		if v, ok := updates["field_values"].(datatypes.JSONMap); ok {
			t.FieldValues = v
		}
		t.Version++
		t.UpdatedAt = time.Now()
		updated := cloneTemplate(*t)
		return &updated, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *CustomTemplateStore) SoftDelete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.templates {
		if s.templates[i].ID == id && s.templates[i].IsActive {
			s.templates[i].IsActive = false
			s.templates[i].UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (s *CustomTemplateStore) List(_ context.Context, filter repository.CustomTemplateFilter) ([]model.CustomTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []model.CustomTemplate
	for _, t := range s.templates {
		if filter.OrganizationID != "" && t.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.BankCode != "" && t.BankCode != filter.BankCode {
			continue
		}
		if filter.PropertyType != "" && t.PropertyType != filter.PropertyType {
			continue
		}
		if !filter.IncludeInactive && !t.IsActive {
			continue
		}
		matched = append(matched, cloneTemplate(t))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}

func (s *CustomTemplateStore) CountActive(_ context.Context, organizationID, bankCode, propertyType string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, t := range s.templates {
		if t.IsActive && t.OrganizationID == organizationID && t.BankCode == bankCode && t.PropertyType == propertyType {
			count++
		}
	}
	return count, nil
}
