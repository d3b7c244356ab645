package model

import (
	"time"
)

// Dimensions 像素尺寸
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AspectRatio 宽高比,如 9:16
type AspectRatio struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Value 宽高比的数值形式
func (r AspectRatio) Value() float64 {
	if r.H == 0 {
		return 0
	}
	return float64(r.W) / float64(r.H)
}

// ImageRule 图片约束规则
type ImageRule struct {
	MinDimensions *Dimensions   `json:"min_dimensions,omitempty"`
	MaxDimensions *Dimensions   `json:"max_dimensions,omitempty"`
	AspectRatios  []AspectRatio `json:"aspect_ratios,omitempty"`
}

// VideoRule 视频约束规则
type VideoRule struct {
	MinDimensions      *Dimensions   `json:"min_dimensions,omitempty"`
	MaxDimensions      *Dimensions   `json:"max_dimensions,omitempty"`
	MinDurationSeconds *float64      `json:"min_duration_seconds,omitempty"`
	MaxDurationSeconds *float64      `json:"max_duration_seconds,omitempty"`
	MaxBitrateKbps     *int64        `json:"max_bitrate_kbps,omitempty"`
	AspectRatios       []AspectRatio `json:"aspect_ratios,omitempty"`
}

// PlatformConstraint 单个平台的媒体约束
// 空指针或空切片表示该维度不做限制
type PlatformConstraint struct {
	Platform          string     `json:"platform"`
	MaxFileSizeMB     *float64   `json:"max_file_size_mb,omitempty"`
	AllowedMediaTypes []string   `json:"allowed_media_types,omitempty"`
	Image             *ImageRule `json:"image,omitempty"`
	Video             *VideoRule `json:"video,omitempty"`
}

// EffectiveConstraints 多平台合并后的有效约束
type EffectiveConstraints struct {
	Platforms         []string   `json:"platforms"`
	MaxFileSizeMB     *float64   `json:"max_file_size_mb,omitempty"`
	AllowedMediaTypes []string   `json:"allowed_media_types,omitempty"`
	Image             *ImageRule `json:"image,omitempty"`
	Video             *VideoRule `json:"video,omitempty"`
}

// FileMeta 从文件内容提取的元数据,提取失败时各字段保持零值
type FileMeta struct {
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// HasDimensions 是否成功提取到尺寸
func (m FileMeta) HasDimensions() bool {
	return m.Width > 0 && m.Height > 0
}

// HasDuration 是否成功提取到时长
func (m FileMeta) HasDuration() bool {
	return m.DurationSeconds > 0
}

// FileUpload 一个待校验的上传文件,内容已落到本地临时路径
type FileUpload struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Path     string `json:"-"`
}

// ValidationVerdict 单文件校验结论
// 硬性错误导致拒收,软性提醒随文件一起保留
type ValidationVerdict struct {
	Valid        bool     `json:"valid"`
	MediaType    string   `json:"media_type"`
	MimeType     string   `json:"mime_type"`
	HardErrors   []string `json:"hard_errors,omitempty"`
	SoftWarnings []string `json:"soft_warnings,omitempty"`
	Message      string   `json:"message,omitempty"`
	Meta         FileMeta `json:"meta"`
}

// RejectedFile 被拒收的文件及原因
type RejectedFile struct {
	Filename string   `json:"filename"`
	Reasons  []string `json:"reasons"`
}

// AddMediaResult 批量添加媒体的结果
type AddMediaResult struct {
	Accepted []*MediaItem    `json:"accepted"`
	Rejected []*RejectedFile `json:"rejected"`
	// Advisory 多平台合并规则的提示,每批至多一条
	Advisory string `json:"advisory,omitempty"`
}

// PostDraft 帖子草稿
type PostDraft struct {
	ID        int64     `json:"id" gorm:"primaryKey;column:id"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;not null;index"`
	Caption   string    `json:"caption" gorm:"column:caption;type:text"`
	Platforms []string  `json:"platforms" gorm:"column:platforms;serializer:json"`
	Status    string    `json:"status" gorm:"column:status;size:32;not null;default:composing"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName 表名
func (PostDraft) TableName() string {
	return "post_drafts"
}

// MediaItem 草稿中的一个媒体项
type MediaItem struct {
	ID               int64     `json:"id" gorm:"primaryKey;column:id"`
	DraftID          int64     `json:"draft_id" gorm:"column:draft_id;not null;index"`
	MediaType        string    `json:"media_type" gorm:"column:media_type;size:16;not null"`
	Filename         string    `json:"filename" gorm:"column:filename;size:255;not null"`
	MimeType         string    `json:"mime_type" gorm:"column:mime_type;size:64"`
	Size             int64     `json:"size" gorm:"column:size"`
	Width            int       `json:"width" gorm:"column:width"`
	Height           int       `json:"height" gorm:"column:height"`
	DurationSeconds  float64   `json:"duration_seconds" gorm:"column:duration_seconds"`
	AssetKey         string    `json:"-" gorm:"column:asset_key;size:255;not null"`
	DisplayURL       string    `json:"display_url" gorm:"column:display_url;size:512"`
	ThumbnailKey     string    `json:"-" gorm:"column:thumbnail_key;size:255"`
	ThumbnailURL     string    `json:"thumbnail_url" gorm:"column:thumbnail_url;size:512"`
	ThumbTimeSeconds float64   `json:"thumb_time_seconds" gorm:"column:thumb_time_seconds"`
	SortOrder        int       `json:"sort_order" gorm:"column:sort_order;not null"`
	SoftWarnings     []string  `json:"soft_warnings,omitempty" gorm:"column:soft_warnings;serializer:json"`
	CreatedAt        time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName 表名
func (MediaItem) TableName() string {
	return "draft_media_items"
}

// ShortVideoOptions 短视频平台的发布选项,按 草稿+平台+账号 一条记录
type ShortVideoOptions struct {
	ID             int64     `json:"id" gorm:"primaryKey;column:id"`
	DraftID        int64     `json:"draft_id" gorm:"column:draft_id;not null;uniqueIndex:idx_draft_platform_account"`
	Platform       string    `json:"platform" gorm:"column:platform;size:32;not null;uniqueIndex:idx_draft_platform_account"`
	AccountID      string    `json:"account_id" gorm:"column:account_id;size:64;not null;uniqueIndex:idx_draft_platform_account"`
	Title          string    `json:"title" gorm:"column:title;size:255"`
	Visibility     string    `json:"visibility" gorm:"column:visibility;size:32"`
	AllowComment   *bool     `json:"allow_comment,omitempty" gorm:"column:allow_comment"`
	AllowDuet      *bool     `json:"allow_duet,omitempty" gorm:"column:allow_duet"`
	AllowStitch    *bool     `json:"allow_stitch,omitempty" gorm:"column:allow_stitch"`
	IsCommercial   bool      `json:"is_commercial" gorm:"column:is_commercial"`
	BrandType      string    `json:"brand_type" gorm:"column:brand_type;size:32"`
	AgreedToPolicy bool      `json:"agreed_to_policy" gorm:"column:agreed_to_policy"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName 表名
func (ShortVideoOptions) TableName() string {
	return "draft_platform_options"
}

// AccountCapabilities 从账号服务查询到的账号能力
type AccountCapabilities struct {
	Platform             string   `json:"platform"`
	AccountID            string   `json:"account_id"`
	DisplayName          string   `json:"display_name"`
	VisibilityOptions    []string `json:"visibility_options"`
	CommentToggleable    bool     `json:"comment_toggleable"`
	DuetToggleable       bool     `json:"duet_toggleable"`
	StitchToggleable     bool     `json:"stitch_toggleable"`
	MonetizationEligible bool     `json:"monetization_eligible"`
	MaxVideoDuration     float64  `json:"max_video_duration"`
}

// OptionCompleteness 选项完整性检查结果
type OptionCompleteness struct {
	Complete      bool     `json:"complete"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// SelectedAccount 用户为本次投递勾选的账号
type SelectedAccount struct {
	Platform  string `json:"platform"`
	AccountID string `json:"account_id"`
}

// ScheduleIntent 定时发布意图
type ScheduleIntent struct {
	At       time.Time `json:"at"`
	Timezone string    `json:"timezone"`
}

// SubmitRequest 发起投递的请求
// CaptionOverrides 按平台覆盖全局文案,未覆盖的平台使用草稿文案
type SubmitRequest struct {
	DraftID          int64             `json:"draft_id"`
	Accounts         []SelectedAccount `json:"accounts"`
	CaptionOverrides map[string]string `json:"caption_overrides,omitempty"`
	Schedule         *ScheduleIntent   `json:"schedule,omitempty"`
}

// SubmissionRecord 一次投递的总记录
type SubmissionRecord struct {
	ID           int64      `json:"id" gorm:"primaryKey;column:id"`
	DraftID      int64      `json:"draft_id" gorm:"column:draft_id;not null;index"`
	UserID       int64      `json:"user_id" gorm:"column:user_id;not null;index"`
	Status       string     `json:"status" gorm:"column:status;size:32;not null"`
	TotalCount   int        `json:"total_count" gorm:"column:total_count"`
	SuccessCount int        `json:"success_count" gorm:"column:success_count"`
	FailureCount int        `json:"failure_count" gorm:"column:failure_count"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty" gorm:"column:scheduled_at"`
	Timezone     string     `json:"timezone,omitempty" gorm:"column:timezone;size:64"`
	CreatedAt    time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName 表名
func (SubmissionRecord) TableName() string {
	return "submission_records"
}

// DispatchRecord 单个目标账号的投递记录
type DispatchRecord struct {
	ID           int64     `json:"id" gorm:"primaryKey;column:id"`
	SubmissionID int64     `json:"submission_id" gorm:"column:submission_id;not null;index"`
	Platform     string    `json:"platform" gorm:"column:platform;size:32;not null"`
	AccountID    string    `json:"account_id" gorm:"column:account_id;size:64;not null"`
	Status       string    `json:"status" gorm:"column:status;size:32;not null"`
	Error        string    `json:"error,omitempty" gorm:"column:error;type:text"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// TableName 表名
func (DispatchRecord) TableName() string {
	return "dispatch_records"
}

// PostSubmissionRequest 发给单个平台适配端点的投递载荷
type PostSubmissionRequest struct {
	SubmissionID int64              `json:"submission_id"`
	DraftID      int64              `json:"draft_id"`
	Platform     string             `json:"platform"`
	AccountID    string             `json:"account_id"`
	Caption      string             `json:"content"`
	MediaType    string             `json:"media_type"`
	Media        []*MediaItem       `json:"-"`
	Options      *ShortVideoOptions `json:"-"`
	ScheduledAt  string             `json:"scheduled_at,omitempty"`
	Timezone     string             `json:"timezone,omitempty"`
}

// DispatchOutcome 单账号投递结果
type DispatchOutcome struct {
	Platform  string `json:"platform"`
	AccountID string `json:"account_id"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// SubmissionSummary 投递完成后的汇总,部分失败时逐账号给出结果
type SubmissionSummary struct {
	SubmissionID int64              `json:"submission_id"`
	Status       string             `json:"status"`
	Outcomes     []*DispatchOutcome `json:"outcomes"`
}

// SubmissionEvent 投递进度事件,写入Kafka并通过Redis推送给前端
type SubmissionEvent struct {
	SubmissionID int64     `json:"submission_id"`
	DraftID      int64     `json:"draft_id"`
	Stage        string    `json:"stage"`
	Platform     string    `json:"platform,omitempty"`
	AccountID    string    `json:"account_id,omitempty"`
	Message      string    `json:"message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// DispatchArchive 投递归档文档,落在MongoDB
type DispatchArchive struct {
	SubmissionID int64              `bson:"submission_id" json:"submission_id"`
	DraftID      int64              `bson:"draft_id" json:"draft_id"`
	UserID       int64              `bson:"user_id" json:"user_id"`
	Caption      string             `bson:"caption" json:"caption"`
	Platforms    []string           `bson:"platforms" json:"platforms"`
	Status       string             `bson:"status" json:"status"`
	Outcomes     []*DispatchOutcome `bson:"outcomes" json:"outcomes"`
	ArchivedAt   time.Time          `bson:"archived_at" json:"archived_at"`
}
