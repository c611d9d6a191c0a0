package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/validation"
	"github.com/gin-gonic/gin"
)

// UserResource is the service contract this handler consumes.
type UserResource interface {
	Create(ctx context.Context, req user.CreateUserRequest) (user.User, error)
	FindAll(ctx context.Context, p user.ListParams) (user.Page, error)
	FindByID(ctx context.Context, id int64) (*user.User, error)
	Update(ctx context.Context, id int64, req user.UpdateUserRequest) (user.User, error)
	UpdateStatus(ctx context.Context, id int64, req user.UpdateStatusRequest) (user.User, error)
	ChangePassword(ctx context.Context, id int64, req user.ChangePasswordRequest) error
	Delete(ctx context.Context, id int64) error
}

// UserCache is the read-cache capability the handler consumes. A nil
// *cache.Cache satisfies it as a no-op.
type UserCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

type UsersHandler struct {
	svc   UserResource
	cache UserCache
	prom  *observability.Prom
}

func NewUsersHandler(svc UserResource) *UsersHandler {
	return &UsersHandler{svc: svc, cache: (*cache.Cache)(nil)}
}

func NewUsersHandlerWithCache(svc UserResource, c UserCache, prom *observability.Prom) *UsersHandler {
	return &UsersHandler{svc: svc, cache: c, prom: prom}
}

func (h *UsersHandler) cacheHit() {
	if h.prom != nil {
		h.prom.CacheHits.WithLabelValues("user").Inc()
	}
}

func (h *UsersHandler) cacheMiss() {
	if h.prom != nil {
		h.prom.CacheMisses.WithLabelValues("user").Inc()
	}
}

func userCacheKey(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

func (h *UsersHandler) invalidate(ctx context.Context, id int64) {
	_ = h.cache.Delete(ctx, userCacheKey(id))
}

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	created, err := h.svc.Create(cctx, req)

	if err != nil {
		RespondFault(ctx, err)
		return
	}

	RespondCreated(ctx, "User created successfully", created)
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	var raw validation.ListQueryRaw

	if err := ctx.ShouldBindQuery(&raw); err != nil {
		RespondBadRequest(ctx, "Invalid query parameters", nil)
		return
	}

	params, violations := validation.NormalizeListQuery(raw)

	if violations != nil {
		RespondBadRequest(ctx, "Invalid query parameters", gin.H{"fields": violations})
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	page, err := h.svc.FindAll(cctx, params)

	if err != nil {
		RespondFault(ctx, err)
		return
	}

	RespondOK(ctx, "Users retrieved successfully", page)
}

func (h *UsersHandler) GetUserByID(ctx *gin.Context) {
	id, violations := validation.ParseID(ctx.Param("id"))

	if violations != nil {
		RespondBadRequest(ctx, "Invalid user id", gin.H{"fields": violations})
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	var cached user.User

	if err := h.cache.GetJSON(cctx, userCacheKey(id), &cached); err == nil {
		h.cacheHit()
		RespondJSONWithETag(ctx, 200, APIResponse{Success: true, Message: "User retrieved successfully", Data: cached})
		return
	}

	h.cacheMiss()

	u, err := h.svc.FindByID(cctx, id)

	if err != nil {
		RespondFault(ctx, err)
		return
	}

	if u == nil {
		RespondNotFound(ctx, "User not found")
		return
	}

	_ = h.cache.SetJSON(cctx, userCacheKey(id), u)

	RespondJSONWithETag(ctx, 200, APIResponse{Success: true, Message: "User retrieved successfully", Data: u})
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id, violations := validation.ParseID(ctx.Param("id"))

	if violations != nil {
		RespondBadRequest(ctx, "Invalid user id", gin.H{"fields": violations})
		return
	}

	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	updated, err := h.svc.Update(cctx, id, req)

	if err != nil {
		RespondFault(ctx, err)
		return
	}

	h.invalidate(cctx, id)

	RespondOK(ctx, "User updated successfully", updated)
}

func (h *UsersHandler) UpdateUserStatus(ctx *gin.Context) {
	id, violations := validation.ParseID(ctx.Param("id"))

	if violations != nil {
		RespondBadRequest(ctx, "Invalid user id", gin.H{"fields": violations})
		return
	}

	var req user.UpdateStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	updated, err := h.svc.UpdateStatus(cctx, id, req)

	if err != nil {
		RespondFault(ctx, err)
		return
	}

	h.invalidate(cctx, id)

	message := "User deactivated successfully"

	if updated.IsActive {
		message = "User activated successfully"
	}

	RespondOK(ctx, message, updated)
}

func (h *UsersHandler) ChangePassword(ctx *gin.Context) {
	id, violations := validation.ParseID(ctx.Param("id"))

	if violations != nil {
		RespondBadRequest(ctx, "Invalid user id", gin.H{"fields": violations})
		return
	}

	var req user.ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// bcrypt at cost 12 takes a while on its own
	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	err := h.svc.ChangePassword(cctx, id, req)

	if err != nil {
		RespondFault(ctx, err)
		return
	}

	// the write refreshed updated_at, so the cached record is stale
	h.invalidate(cctx, id)

	RespondOK(ctx, "Password changed successfully", nil)
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id, violations := validation.ParseID(ctx.Param("id"))

	if violations != nil {
		RespondBadRequest(ctx, "Invalid user id", gin.H{"fields": violations})
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err := h.svc.Delete(cctx, id)

	if err != nil {
		RespondFault(ctx, err)
		return
	}

	h.invalidate(cctx, id)

	RespondOK(ctx, "User deleted successfully", nil)
}
