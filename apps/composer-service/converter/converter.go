package converter

import (
	"crosspost/apps/composer-service/model"
)

// Converter 转换器,把服务层结果组装成HTTP响应
type Converter struct{}

// NewConverter 创建转换器实例
func NewConverter() *Converter {
	return &Converter{}
}

// BaseResponse 通用响应头
type BaseResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// DraftResponse 草稿响应
type DraftResponse struct {
	BaseResponse
	Draft   *model.PostDraft   `json:"draft,omitempty"`
	Media   []*model.MediaItem `json:"media,omitempty"`
	Notices []string           `json:"notices,omitempty"`
}

// DraftListResponse 草稿列表响应
type DraftListResponse struct {
	BaseResponse
	Drafts []*model.PostDraft `json:"drafts"`
	Total  int64              `json:"total"`
}

// ConstraintsResponse 有效约束响应
type ConstraintsResponse struct {
	BaseResponse
	Constraints *model.EffectiveConstraints `json:"constraints,omitempty"`
}

// AddMediaResponse 批量添加媒体响应
type AddMediaResponse struct {
	BaseResponse
	Accepted []*model.MediaItem    `json:"accepted"`
	Rejected []*model.RejectedFile `json:"rejected"`
	Advisory string                `json:"advisory,omitempty"`
}

// MediaListResponse 媒体列表响应
type MediaListResponse struct {
	BaseResponse
	Media []*model.MediaItem `json:"media"`
}

// MediaItemResponse 单个媒体项响应
type MediaItemResponse struct {
	BaseResponse
	Item *model.MediaItem `json:"item,omitempty"`
}

// OptionsResponse 平台选项响应
type OptionsResponse struct {
	BaseResponse
	Options      *model.ShortVideoOptions  `json:"options,omitempty"`
	Completeness *model.OptionCompleteness `json:"completeness,omitempty"`
}

// SubmitResponse 投递响应
type SubmitResponse struct {
	BaseResponse
	Summary *model.SubmissionSummary `json:"summary,omitempty"`
}

// SubmissionDetailResponse 投递详情响应
type SubmissionDetailResponse struct {
	BaseResponse
	Submission *model.SubmissionRecord `json:"submission,omitempty"`
	Dispatches []*model.DispatchRecord `json:"dispatches,omitempty"`
}

// BuildBaseResponse 构建通用响应
func (c *Converter) BuildBaseResponse(success bool, message string) *BaseResponse {
	return &BaseResponse{Success: success, Message: message}
}

// BuildDraftResponse 构建草稿响应
func (c *Converter) BuildDraftResponse(success bool, message string, draft *model.PostDraft, media []*model.MediaItem, notices []string) *DraftResponse {
	return &DraftResponse{
		BaseResponse: BaseResponse{Success: success, Message: message},
		Draft:        draft,
		Media:        media,
		Notices:      notices,
	}
}

// BuildDraftListResponse 构建草稿列表响应
func (c *Converter) BuildDraftListResponse(success bool, message string, drafts []*model.PostDraft, total int64) *DraftListResponse {
	return &DraftListResponse{
		BaseResponse: BaseResponse{Success: success, Message: message},
		Drafts:       drafts,
		Total:        total,
	}
}

// BuildConstraintsResponse 构建有效约束响应
func (c *Converter) BuildConstraintsResponse(success bool, message string, eff *model.EffectiveConstraints) *ConstraintsResponse {
	return &ConstraintsResponse{
		BaseResponse: BaseResponse{Success: success, Message: message},
		Constraints:  eff,
	}
}

// BuildAddMediaResponse 构建批量添加媒体响应
func (c *Converter) BuildAddMediaResponse(success bool, message string, result *model.AddMediaResult) *AddMediaResponse {
	res := &AddMediaResponse{
		BaseResponse: BaseResponse{Success: success, Message: message},
	}
	if result != nil {
		res.Accepted = result.Accepted
		res.Rejected = result.Rejected
		res.Advisory = result.Advisory
	}
	return res
}

// BuildMediaListResponse 构建媒体列表响应
func (c *Converter) BuildMediaListResponse(success bool, message string, media []*model.MediaItem) *MediaListResponse {
	return &MediaListResponse{
		BaseResponse: BaseResponse{Success: success, Message: message},
		Media:        media,
	}
}

// BuildMediaItemResponse 构建单个媒体项响应
func (c *Converter) BuildMediaItemResponse(success bool, message string, item *model.MediaItem) *MediaItemResponse {
	return &MediaItemResponse{
		BaseResponse: BaseResponse{Success: success, Message: message},
		Item:         item,
	}
}

// BuildOptionsResponse 构建平台选项响应
func (c *Converter) BuildOptionsResponse(success bool, message string, options *model.ShortVideoOptions, completeness *model.OptionCompleteness) *OptionsResponse {
	return &OptionsResponse{
		BaseResponse: BaseResponse{Success: success, Message: message},
		Options:      options,
		Completeness: completeness,
	}
}

// BuildSubmitResponse 构建投递响应
func (c *Converter) BuildSubmitResponse(success bool, message string, summary *model.SubmissionSummary) *SubmitResponse {
	return &SubmitResponse{
		BaseResponse: BaseResponse{Success: success, Message: message},
		Summary:      summary,
	}
}

// BuildSubmissionDetailResponse 构建投递详情响应
func (c *Converter) BuildSubmissionDetailResponse(success bool, message string, record *model.SubmissionRecord, dispatches []*model.DispatchRecord) *SubmissionDetailResponse {
	return &SubmissionDetailResponse{
		BaseResponse: BaseResponse{Success: success, Message: message},
		Submission:   record,
		Dispatches:   dispatches,
	}
}
