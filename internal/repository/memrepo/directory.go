package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"valuation-form-go/internal/model"
)

// OrganizationStore 是 repository.OrganizationRepository 的内存实现。
type OrganizationStore struct {
	mu   sync.RWMutex
	orgs map[string]model.Organization
}

// NewOrganizationStore 创建一个空的 OrganizationStore。
func NewOrganizationStore() *OrganizationStore {
	return &OrganizationStore{orgs: make(map[string]model.Organization)}
}

func (s *OrganizationStore) Upsert(_ context.Context, org *model.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[org.ID] = *org
	return nil
}

func (s *OrganizationStore) FindByID(_ context.Context, id string) (*model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &org, nil
}

func (s *OrganizationStore) GetByShortName(_ context.Context, shortName string) (*model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, org := range s.orgs {
		if org.ShortName == shortName {
			found := org
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *OrganizationStore) FindAll(_ context.Context) ([]model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		out = append(out, org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortName < out[j].ShortName })
	return out, nil
}

// PermissionStore 是 repository.PermissionRepository 的内存实现。
type PermissionStore struct {
	mu    sync.RWMutex
	roles map[string]model.RolePermission
}

// NewPermissionStore 创建一个空的 PermissionStore。
func NewPermissionStore() *PermissionStore {
	return &PermissionStore{roles: make(map[string]model.RolePermission)}
}

func (s *PermissionStore) GetByRole(_ context.Context, role string) (*model.RolePermission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perm, ok := s.roles[role]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &perm, nil
}

func (s *PermissionStore) Upsert(_ context.Context, perm *model.RolePermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[perm.Role] = *perm
	return nil
}

// LegacyDefaultStore 是 repository.LegacyDefaultRepository 的内存实现。
type LegacyDefaultStore struct {
	mu      sync.RWMutex
	records map[[3]string]model.LegacyFieldDefault
}

// NewLegacyDefaultStore 创建一个空的 LegacyDefaultStore。
func NewLegacyDefaultStore() *LegacyDefaultStore {
	return &LegacyDefaultStore{records: make(map[[3]string]model.LegacyFieldDefault)}
}

func (s *LegacyDefaultStore) Get(_ context.Context, organizationID, bankCode, propertyType string) (*model.LegacyFieldDefault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[[3]string{organizationID, bankCode, propertyType}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &record, nil
}

func (s *LegacyDefaultStore) Upsert(_ context.Context, record *model.LegacyFieldDefault) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.UpdatedAt = time.Now()
	s.records[[3]string{record.OrganizationID, record.BankCode, record.PropertyType}] = *record
	return nil
}
