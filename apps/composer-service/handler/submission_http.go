package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"crosspost/apps/composer-service/model"
	tracecontext "crosspost/pkg/context"
	"crosspost/pkg/httpx"
	"crosspost/pkg/logger"
)

// GetOptions 获取平台选项及完整性
func (h *HTTPHandler) GetOptions(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		DraftID   int64  `json:"draft_id"`
		Platform  string `json:"platform"`
		AccountID string `json:"account_id"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildOptionsResponse(false, "Invalid request format", nil, nil), err)
		return
	}

	options, completeness, err := h.svc.GetOptions(ctx, req.DraftID, req.Platform, req.AccountID)

	var message string
	if err != nil {
		message = err.Error()
	}
	httpx.WriteObject(c, h.converter.BuildOptionsResponse(err == nil, message, options, completeness), err)
}

// UpdateOptions 保存平台选项并返回最新完整性
func (h *HTTPHandler) UpdateOptions(c *gin.Context) {
	ctx := c.Request.Context()
	var req model.ShortVideoOptions
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildOptionsResponse(false, "Invalid request format", nil, nil), err)
		return
	}

	completeness, err := h.svc.UpdateOptions(ctx, &req)

	var message string
	if err != nil {
		message = err.Error()
	} else {
		message = "保存成功"
	}
	httpx.WriteObject(c, h.converter.BuildOptionsResponse(err == nil, message, &req, completeness), err)
}

// Submit 发起投递
func (h *HTTPHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		DraftID          int64                   `json:"draft_id"`
		Accounts         []model.SelectedAccount `json:"accounts"`
		CaptionOverrides map[string]string       `json:"caption_overrides"`
		ScheduledAt      string                  `json:"scheduled_at"`
		Timezone         string                  `json:"timezone"`
	}
	if err := c.Bind(&req); err != nil {
		h.logger.Error(ctx, "Invalid submit request", logger.F("error", err.Error()))
		httpx.WriteObject(c, h.converter.BuildSubmitResponse(false, "Invalid request format", nil), err)
		return
	}

	ctx = tracecontext.WithDraftID(ctx, req.DraftID)

	submitReq := &model.SubmitRequest{
		DraftID:          req.DraftID,
		Accounts:         req.Accounts,
		CaptionOverrides: req.CaptionOverrides,
	}
	if req.ScheduledAt != "" {
		at, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			httpx.WriteObject(c, h.converter.BuildSubmitResponse(false, "定时时间格式无效,需要RFC3339", nil), err)
			return
		}
		submitReq.Schedule = &model.ScheduleIntent{At: at, Timezone: req.Timezone}
	}

	summary, err := h.svc.Submit(ctx, submitReq)

	var message string
	if err != nil {
		message = err.Error()
		h.logger.Error(ctx, "Submit failed",
			logger.F("draftID", req.DraftID),
			logger.F("error", err.Error()))
	} else {
		h.logger.Info(ctx, "Submit finished",
			logger.F("draftID", req.DraftID),
			logger.F("submissionID", summary.SubmissionID),
			logger.F("status", summary.Status))
	}
	httpx.WriteObject(c, h.converter.BuildSubmitResponse(err == nil, message, summary), err)
}

// GetSubmission 查询投递结果
func (h *HTTPHandler) GetSubmission(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		SubmissionID int64 `json:"submission_id"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildSubmissionDetailResponse(false, "Invalid request format", nil, nil), err)
		return
	}

	record, dispatches, err := h.svc.GetSubmission(ctx, req.SubmissionID)

	var message string
	if err != nil {
		message = err.Error()
	}
	httpx.WriteObject(c, h.converter.BuildSubmissionDetailResponse(err == nil, message, record, dispatches), err)
}
