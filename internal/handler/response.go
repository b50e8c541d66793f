// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"valuation-form-go/internal/middleware"
	"valuation-form-go/internal/model"
	"valuation-form-go/internal/service"
	"valuation-form-go/pkg/events"
	"valuation-form-go/pkg/log"
)

// ActivityPublisher 把写操作发往活动日志，由 pkg/kafka.ActivityPublisher 实现。
type ActivityPublisher interface {
	Publish(ctx context.Context, event events.ActivityEvent) error
}

const activityPublishTimeout = 5 * time.Second

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message, "data": nil})
}

// writeServiceError 把业务错误映射为 HTTP 状态码。业务错误带上具体原因；
// 存储层的技术错误只记录日志，对外返回统一的重试提示。
func writeServiceError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidArgument):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrLimitExceeded):
		fail(c, http.StatusConflict, err.Error())
	default:
		log.Errorf("%s: %v", op, err)
		fail(c, http.StatusInternalServerError, "服务暂时不可用，请稍后重试")
	}
}

// currentActor 从 token claims 中取出操作人。
func currentActor(c *gin.Context) service.Actor {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return service.Actor{}
	}
	return service.Actor{ID: claims.UserID, Name: claims.Username}
}

// requireOrganization 取出 OrganizationContext 写入的组织，缺失时直接写 403 响应。
func requireOrganization(c *gin.Context) (*model.Organization, bool) {
	org, ok := middleware.OrganizationFrom(c)
	if !ok {
		fail(c, http.StatusForbidden, "当前用户没有可用的组织")
		return nil, false
	}
	return org, true
}

// publishActivity 异步发送活动事件，发送失败只记录日志。
func publishActivity(p ActivityPublisher, event events.ActivityEvent) {
	if p == nil {
		return
	}
	event.EventID = uuid.New().String()
	event.OccurredAt = time.Now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), activityPublishTimeout)
		defer cancel()
		if err := p.Publish(ctx, event); err != nil {
			log.Warnf("[Activity] 发送活动事件 %s 失败: %v", event.Action, err)
		}
	}()
}

func templateActivity(action string, org *model.Organization, actor service.Actor, tpl *model.CustomTemplate) events.ActivityEvent {
	return events.ActivityEvent{
		Action:         action,
		OrganizationID: org.ID,
		ActorID:        actor.ID,
		ActorName:      actor.Name,
		ResourceID:     tpl.ID,
		BankCode:       tpl.BankCode,
		PropertyType:   tpl.PropertyType,
		Details:        map[string]any{"templateName": tpl.TemplateName, "version": tpl.Version},
	}
}
