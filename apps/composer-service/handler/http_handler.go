package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"crosspost/apps/composer-service/converter"
	"crosspost/apps/composer-service/model"
	"crosspost/apps/composer-service/service"
	tracecontext "crosspost/pkg/context"
	"crosspost/pkg/httpx"
	"crosspost/pkg/logger"
)

// HTTPHandler HTTP处理器
type HTTPHandler struct {
	svc       *service.Service
	converter *converter.Converter
	logger    logger.Logger
}

// NewHTTPHandler 创建HTTP处理器
func NewHTTPHandler(svc *service.Service, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:       svc,
		converter: converter.NewConverter(),
		logger:    log,
	}
}

// RegisterRoutes 注册HTTP路由
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1/composer")
	{
		// 草稿管理
		api.POST("/draft/create", h.CreateDraft)                       // 创建草稿
		api.POST("/draft/get", h.GetDraft)                             // 获取草稿详情
		api.POST("/draft/update_caption", h.UpdateCaption)             // 更新文案
		api.POST("/draft/update_platforms", h.UpdatePlatforms)         // 更新目标平台
		api.POST("/draft/delete", h.DeleteDraft)                       // 删除草稿
		api.POST("/draft/list", h.GetUserDrafts)                       // 获取用户草稿列表
		api.POST("/draft/constraints", h.GetEffectiveConstraints)      // 草稿当前合并约束
		api.POST("/constraints/combine", h.CombinePlatformConstraints) // 任意平台组合的合并约束

		// 媒体管理
		api.POST("/media/add", h.AddMedia)            // 批量上传媒体
		api.POST("/media/remove", h.RemoveMedia)      // 移除媒体
		api.POST("/media/reorder", h.ReorderMedia)    // 调整顺序
		api.POST("/media/cover_time", h.SetCoverTime) // 设置视频封面时间
		api.POST("/media/list", h.GetMediaItems)      // 获取媒体列表

		// 平台选项
		api.POST("/options/get", h.GetOptions)       // 获取选项及完整性
		api.POST("/options/update", h.UpdateOptions) // 保存选项

		// 投递
		api.POST("/submission/create", h.Submit)     // 发起投递
		api.POST("/submission/get", h.GetSubmission) // 查询投递结果
	}
}

// CreateDraft 创建草稿
func (h *HTTPHandler) CreateDraft(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		UserID    int64    `json:"user_id"`
		Caption   string   `json:"caption"`
		Platforms []string `json:"platforms"`
	}
	if err := c.Bind(&req); err != nil {
		h.logger.Error(ctx, "Invalid create draft request", logger.F("error", err.Error()))
		httpx.WriteObject(c, h.converter.BuildDraftResponse(false, "Invalid request format", nil, nil, nil), err)
		return
	}

	ctx = tracecontext.WithUserID(ctx, req.UserID)

	draft, err := h.svc.CreateDraft(ctx, req.UserID, req.Caption, req.Platforms)

	var message string
	if err != nil {
		message = err.Error()
	} else {
		message = "创建成功"
	}
	httpx.WriteObject(c, h.converter.BuildDraftResponse(err == nil, message, draft, nil, nil), err)
}

// GetDraft 获取草稿及其媒体列表
func (h *HTTPHandler) GetDraft(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		DraftID int64 `json:"draft_id"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildDraftResponse(false, "Invalid request format", nil, nil, nil), err)
		return
	}

	ctx = tracecontext.WithDraftID(ctx, req.DraftID)

	draft, err := h.svc.GetDraft(ctx, req.DraftID)
	if err != nil {
		httpx.WriteObject(c, h.converter.BuildDraftResponse(false, err.Error(), nil, nil, nil), err)
		return
	}
	media, err := h.svc.GetMediaItems(ctx, req.DraftID)
	if err != nil {
		httpx.WriteObject(c, h.converter.BuildDraftResponse(false, err.Error(), nil, nil, nil), err)
		return
	}
	httpx.WriteObject(c, h.converter.BuildDraftResponse(true, "", draft, media, nil), nil)
}

// UpdateCaption 更新草稿文案
func (h *HTTPHandler) UpdateCaption(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		DraftID int64  `json:"draft_id"`
		Caption string `json:"caption"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildDraftResponse(false, "Invalid request format", nil, nil, nil), err)
		return
	}

	draft, err := h.svc.UpdateCaption(ctx, req.DraftID, req.Caption)

	var message string
	if err != nil {
		message = err.Error()
	} else {
		message = "更新成功"
	}
	httpx.WriteObject(c, h.converter.BuildDraftResponse(err == nil, message, draft, nil, nil), err)
}

// UpdatePlatforms 更新目标平台,返回不再满足新规则的媒体提醒
func (h *HTTPHandler) UpdatePlatforms(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		DraftID   int64    `json:"draft_id"`
		Platforms []string `json:"platforms"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildDraftResponse(false, "Invalid request format", nil, nil, nil), err)
		return
	}

	draft, notices, err := h.svc.UpdatePlatforms(ctx, req.DraftID, req.Platforms)

	var message string
	if err != nil {
		message = err.Error()
	} else {
		message = "更新成功"
	}
	httpx.WriteObject(c, h.converter.BuildDraftResponse(err == nil, message, draft, nil, notices), err)
}

// DeleteDraft 删除草稿
func (h *HTTPHandler) DeleteDraft(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		DraftID int64 `json:"draft_id"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildBaseResponse(false, "Invalid request format"), err)
		return
	}

	err := h.svc.DeleteDraft(ctx, req.DraftID)

	var message string
	if err != nil {
		message = err.Error()
	} else {
		message = "删除成功"
	}
	httpx.WriteObject(c, h.converter.BuildBaseResponse(err == nil, message), err)
}

// GetUserDrafts 获取用户草稿列表
func (h *HTTPHandler) GetUserDrafts(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		UserID   int64 `json:"user_id"`
		Page     int32 `json:"page"`
		PageSize int32 `json:"page_size"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildDraftListResponse(false, "Invalid request format", nil, 0), err)
		return
	}

	ctx = tracecontext.WithUserID(ctx, req.UserID)

	drafts, total, err := h.svc.GetUserDrafts(ctx, req.UserID, req.Page, req.PageSize)

	var message string
	if err != nil {
		message = err.Error()
	}
	httpx.WriteObject(c, h.converter.BuildDraftListResponse(err == nil, message, drafts, total), err)
}

// GetEffectiveConstraints 获取草稿当前目标平台的合并约束
func (h *HTTPHandler) GetEffectiveConstraints(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		DraftID int64 `json:"draft_id"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildConstraintsResponse(false, "Invalid request format", nil), err)
		return
	}

	eff, err := h.svc.GetEffectiveConstraints(ctx, req.DraftID)

	var message string
	if err != nil {
		message = err.Error()
	}
	httpx.WriteObject(c, h.converter.BuildConstraintsResponse(err == nil, message, eff), err)
}

// CombinePlatformConstraints 计算任意平台组合的合并约束
func (h *HTTPHandler) CombinePlatformConstraints(c *gin.Context) {
	var req struct {
		Platforms []string `json:"platforms"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildConstraintsResponse(false, "Invalid request format", nil), err)
		return
	}

	eff := service.CombineConstraints(req.Platforms)
	httpx.WriteObject(c, h.converter.BuildConstraintsResponse(true, "", eff), nil)
}

// AddMedia 批量上传媒体
// multipart表单:draft_id字段 + 若干files文件
func (h *HTTPHandler) AddMedia(c *gin.Context) {
	ctx := c.Request.Context()

	draftID, err := strconv.ParseInt(c.PostForm("draft_id"), 10, 64)
	if err != nil {
		httpx.WriteObject(c, h.converter.BuildAddMediaResponse(false, "无效的草稿ID", nil), err)
		return
	}
	ctx = tracecontext.WithDraftID(ctx, draftID)

	form, err := c.MultipartForm()
	if err != nil {
		h.logger.Error(ctx, "Invalid multipart form", logger.F("error", err.Error()))
		httpx.WriteObject(c, h.converter.BuildAddMediaResponse(false, "Invalid request format", nil), err)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		err := fmt.Errorf("请选择要上传的文件")
		httpx.WriteObject(c, h.converter.BuildAddMediaResponse(false, err.Error(), nil), err)
		return
	}

	// 文件先落到临时目录,响应后清理
	uploads := make([]model.FileUpload, 0, len(files))
	var tempPaths []string
	defer func() {
		for _, p := range tempPaths {
			os.Remove(p)
		}
	}()

	for _, fh := range files {
		path, err := saveToTemp(fh)
		if err != nil {
			h.logger.Error(ctx, "Failed to buffer upload",
				logger.F("filename", fh.Filename),
				logger.F("error", err.Error()))
			httpx.WriteObject(c, h.converter.BuildAddMediaResponse(false, "上传文件暂存失败", nil), err)
			return
		}
		tempPaths = append(tempPaths, path)
		uploads = append(uploads, model.FileUpload{
			Filename: fh.Filename,
			Size:     fh.Size,
			Path:     path,
		})
	}

	result, err := h.svc.AddMedia(ctx, draftID, uploads)

	var message string
	if err != nil {
		message = err.Error()
	}
	httpx.WriteObject(c, h.converter.BuildAddMediaResponse(err == nil, message, result), err)
}

// RemoveMedia 移除媒体项
func (h *HTTPHandler) RemoveMedia(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		DraftID int64 `json:"draft_id"`
		ItemID  int64 `json:"item_id"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildBaseResponse(false, "Invalid request format"), err)
		return
	}

	err := h.svc.RemoveMedia(ctx, req.DraftID, req.ItemID)

	var message string
	if err != nil {
		message = err.Error()
	} else {
		message = "移除成功"
	}
	httpx.WriteObject(c, h.converter.BuildBaseResponse(err == nil, message), err)
}

// ReorderMedia 调整媒体顺序
func (h *HTTPHandler) ReorderMedia(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		DraftID  int64 `json:"draft_id"`
		ItemID   int64 `json:"item_id"`
		NewIndex int   `json:"new_index"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildMediaListResponse(false, "Invalid request format", nil), err)
		return
	}

	media, err := h.svc.ReorderMedia(ctx, req.DraftID, req.ItemID, req.NewIndex)

	var message string
	if err != nil {
		message = err.Error()
	}
	httpx.WriteObject(c, h.converter.BuildMediaListResponse(err == nil, message, media), err)
}

// SetCoverTime 设置视频封面时间
func (h *HTTPHandler) SetCoverTime(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		DraftID int64   `json:"draft_id"`
		ItemID  int64   `json:"item_id"`
		Seconds float64 `json:"seconds"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildMediaItemResponse(false, "Invalid request format", nil), err)
		return
	}

	item, err := h.svc.SetCoverTime(ctx, req.DraftID, req.ItemID, req.Seconds)

	var message string
	if err != nil {
		message = err.Error()
	} else {
		message = "封面已更新"
	}
	httpx.WriteObject(c, h.converter.BuildMediaItemResponse(err == nil, message, item), err)
}

// GetMediaItems 获取草稿媒体列表
func (h *HTTPHandler) GetMediaItems(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		DraftID int64 `json:"draft_id"`
	}
	if err := c.Bind(&req); err != nil {
		httpx.WriteObject(c, h.converter.BuildMediaListResponse(false, "Invalid request format", nil), err)
		return
	}

	media, err := h.svc.GetMediaItems(ctx, req.DraftID)

	var message string
	if err != nil {
		message = err.Error()
	}
	httpx.WriteObject(c, h.converter.BuildMediaListResponse(err == nil, message, media), err)
}

// saveToTemp 把上传文件写入临时文件
func saveToTemp(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "composer-upload-*")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
