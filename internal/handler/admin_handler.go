package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"valuation-form-go/internal/repository"
	"valuation-form-go/internal/seed"
	"valuation-form-go/pkg/log"
)

// AdminHandler 负责目录运维相关的 API：导入目录包、清空目录缓存、查看组织目录。
type AdminHandler struct {
	importer *seed.Importer
	source   seed.Source
	cache    repository.CatalogCache
	orgRepo  repository.OrganizationRepository
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。source 为 nil 时导入接口不可用。
func NewAdminHandler(importer *seed.Importer, source seed.Source, cache repository.CatalogCache, orgRepo repository.OrganizationRepository) *AdminHandler {
	return &AdminHandler{
		importer: importer,
		source:   source,
		cache:    cache,
		orgRepo:  orgRepo,
	}
}

// ImportCatalog 从配置的目录包来源重新导入目录，完成后清空目录缓存。
func (h *AdminHandler) ImportCatalog(c *gin.Context) {
	if h.importer == nil || h.source == nil {
		fail(c, http.StatusServiceUnavailable, "未配置目录包来源")
		return
	}
	summary, err := h.importer.Import(c.Request.Context(), h.source)
	if err != nil {
		log.Error("ImportCatalog: Failed to import catalog bundles", err)
		fail(c, http.StatusInternalServerError, "导入目录失败: "+err.Error())
		return
	}

	actor := currentActor(c)
	log.Infof("User '%s' imported %d catalog bundle files", actor.Name, summary.Files)
	ok(c, summary)
}

// InvalidateCatalogCache 清空全部目录缓存。
func (h *AdminHandler) InvalidateCatalogCache(c *gin.Context) {
	if h.cache == nil {
		ok(c, gin.H{"invalidated": false})
		return
	}
	if err := h.cache.InvalidateAll(c.Request.Context()); err != nil {
		log.Error("InvalidateCatalogCache: Failed to invalidate catalog cache", err)
		fail(c, http.StatusInternalServerError, "清空目录缓存失败")
		return
	}
	ok(c, gin.H{"invalidated": true})
}

// ListOrganizations 返回组织目录。
func (h *AdminHandler) ListOrganizations(c *gin.Context) {
	orgs, err := h.orgRepo.FindAll(c.Request.Context())
	if err != nil {
		log.Error("ListOrganizations: Failed to list organizations", err)
		fail(c, http.StatusInternalServerError, "获取组织列表失败")
		return
	}
	ok(c, orgs)
}
