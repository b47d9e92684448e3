package handler

import (
	"context"

	crmsyncapp "github.com/fintrack/backend/internal/application/crmsync"
	"github.com/fintrack/backend/internal/domain/shared"
	"github.com/fintrack/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncRetrier re-runs reconciliation for one user
type SyncRetrier interface {
	RetrySyncForUser(ctx context.Context, userID uuid.UUID) (*crmsyncapp.ReconcileResult, error)
}

// BulkSyncer backfills users without a CRM contact
type BulkSyncer interface {
	BulkBackfill(ctx context.Context, limit int) (*crmsyncapp.BulkSyncSummary, error)
}

// SyncStatusReader exposes linkage state and the audit trail
type SyncStatusReader interface {
	GetUserSyncStatus(ctx context.Context, userID uuid.UUID) (*crmsyncapp.UserSyncStatus, error)
	ListSyncLogs(ctx context.Context, userID uuid.UUID, filter shared.Filter) (*crmsyncapp.SyncLogList, error)
	GetStats(ctx context.Context) (*crmsyncapp.SyncStats, error)
	ListPendingUsers(ctx context.Context, limit, offset int) (*crmsyncapp.PendingUsersPage, error)
}

// SyncHandler serves the CRM sync operator API
type SyncHandler struct {
	BaseHandler
	retrier  SyncRetrier
	backfill BulkSyncer
	status   SyncStatusReader
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(retrier SyncRetrier, backfill BulkSyncer, status SyncStatusReader) *SyncHandler {
	return &SyncHandler{
		retrier:  retrier,
		backfill: backfill,
		status:   status,
	}
}

// resolveUserID returns the :userId path parameter, or the caller's own ID
// on routes without one
func (h *SyncHandler) resolveUserID(c *gin.Context) (uuid.UUID, bool) {
	if c.Param("userId") != "" {
		var req dto.UserIDRequest
		if err := c.ShouldBindUri(&req); err != nil {
			h.ValidationError(c, err)
			return uuid.Nil, false
		}
		return uuid.MustParse(req.UserID), true
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Caller identity is required")
		return uuid.Nil, false
	}
	return userID, true
}

// GetStatus godoc
//
//	@Summary	Get CRM sync status
//	@Tags		sync
//	@Produce	json
//	@Param		userId	path		string	false	"User ID (privileged)"
//	@Success	200		{object}	dto.Response{data=crmsyncapp.UserSyncStatus}
//	@Failure	404		{object}	dto.Response
//	@Router		/sync/status/{userId} [get]
func (h *SyncHandler) GetStatus(c *gin.Context) {
	userID, ok := h.resolveUserID(c)
	if !ok {
		return
	}
	status, err := h.status.GetUserSyncStatus(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// RetrySync godoc
//
//	@Summary		Retry CRM sync
//	@Description	Reconcile the user with the CRM now. Remote failures return 502 with the CRM's message.
//	@Tags			sync
//	@Produce		json
//	@Param			userId	path		string	false	"User ID (privileged)"
//	@Success		200		{object}	dto.Response{data=crmsyncapp.ReconcileResult}
//	@Failure		404		{object}	dto.Response
//	@Failure		409		{object}	dto.Response	"Sync already running"
//	@Failure		502		{object}	dto.Response	"CRM call failed"
//	@Router			/sync/{userId} [post]
func (h *SyncHandler) RetrySync(c *gin.Context) {
	userID, ok := h.resolveUserID(c)
	if !ok {
		return
	}
	result, err := h.retrier.RetrySyncForUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// BulkSync godoc
//
//	@Summary	Backfill CRM contacts
//	@Tags		sync
//	@Produce	json
//	@Param		limit	query		int	false	"Users to process (1-100, default 50)"
//	@Success	200		{object}	dto.Response{data=crmsyncapp.BulkSyncSummary}
//	@Failure	400		{object}	dto.Response
//	@Router		/sync/bulk [post]
func (h *SyncHandler) BulkSync(c *gin.Context) {
	var req dto.BulkSyncRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	summary, err := h.backfill.BulkBackfill(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// ListLogs godoc
//
//	@Summary	List CRM sync audit entries
//	@Tags		sync
//	@Produce	json
//	@Param		userId		path		string	false	"User ID (privileged)"
//	@Param		page		query		int		false	"Page (default 1)"
//	@Param		page_size	query		int		false	"Page size (default 20, max 100)"
//	@Success	200			{object}	dto.Response{data=crmsyncapp.SyncLogList}
//	@Router		/sync/logs/{userId} [get]
func (h *SyncHandler) ListLogs(c *gin.Context) {
	userID, ok := h.resolveUserID(c)
	if !ok {
		return
	}
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	list, err := h.status.ListSyncLogs(c.Request.Context(), userID, shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, list, list.Total, list.Page, list.PageSize)
}

// GetStats godoc
//
//	@Summary	CRM sync statistics
//	@Tags		sync
//	@Produce	json
//	@Success	200	{object}	dto.Response{data=crmsyncapp.SyncStats}
//	@Router		/sync/stats [get]
func (h *SyncHandler) GetStats(c *gin.Context) {
	stats, err := h.status.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// ListPendingUsers godoc
//
//	@Summary	Users without a CRM contact
//	@Tags		sync
//	@Produce	json
//	@Param		limit	query		int	false	"Page size (default 50, max 100)"
//	@Param		offset	query		int	false	"Offset"
//	@Success	200		{object}	dto.Response{data=crmsyncapp.PendingUsersPage}
//	@Router		/sync/users/pending [get]
func (h *SyncHandler) ListPendingUsers(c *gin.Context) {
	var req dto.PendingUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	page, err := h.status.ListPendingUsers(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}
