package model

// 平台标识
const (
	PlatformGeneral   = "general"
	PlatformTikTok    = "tiktok"
	PlatformInstagram = "instagram"
	PlatformYouTube   = "youtube"
	PlatformX         = "x"
	PlatformFacebook  = "facebook"
	PlatformLinkedIn  = "linkedin"
)

// 媒体类型
const (
	MediaTypeText  = "text"
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// 草稿状态
const (
	DraftStatusComposing = "composing"
	DraftStatusSubmitted = "submitted"
)

// 投递状态
const (
	SubmissionStatusRunning   = "running"
	SubmissionStatusSucceeded = "succeeded"
	SubmissionStatusPartial   = "partial"
	SubmissionStatusFailed    = "failed"

	DispatchStatusSucceeded = "succeeded"
	DispatchStatusFailed    = "failed"
)

// 投递进度阶段
const (
	StagePreparing       = "preparing"
	StageProcessingMedia = "processing_media"
	StageQueuing         = "queuing"
	StageDispatched      = "dispatched"
	StageCompleted       = "completed"
)

// 可见性级别
const (
	VisibilityPublic      = "public"
	VisibilityFriends     = "friends"
	VisibilitySelfOnly    = "self_only"
	VisibilityUnspecified = ""
)

// 商业内容品牌类型
const (
	BrandTypeSelf   = "your_brand"
	BrandTypeOthers = "branded_content"
)

// 合集与校验约束
const (
	// MaxMediaItems 一条帖子的媒体上限
	MaxMediaItems = 10

	// AspectRatioTolerance 宽高比匹配的绝对容差
	AspectRatioTolerance = 0.05

	// DefaultCoverTimeSeconds 视频封面默认取第1秒
	DefaultCoverTimeSeconds = 1.0

	// CoverTimeEpsilonSeconds 封面时间距离片尾的最小间隔
	CoverTimeEpsilonSeconds = 0.1
)

// Kafka主题
const (
	TopicSubmissionEvents = "composer.submission.events"
)

// Redis键前缀
const (
	RedisKeyCapabilities       = "composer:capabilities:"        // + platform:accountID
	RedisKeySubmissionProgress = "composer:submission:progress:" // + submissionID
	RedisChanSubmission        = "composer:submission:events:"   // + submissionID
)

// OptionRequiredPlatforms 需要补充平台选项的平台集合
// 目前只有短视频平台要求补充发布选项
var OptionRequiredPlatforms = map[string]bool{
	PlatformTikTok: true,
}

// ValidateMediaType 验证媒体类型
func ValidateMediaType(mediaType string) bool {
	switch mediaType {
	case MediaTypeText, MediaTypeImage, MediaTypeVideo:
		return true
	}
	return false
}

// ValidateVisibility 验证可见性级别
func ValidateVisibility(visibility string) bool {
	switch visibility {
	case VisibilityPublic, VisibilityFriends, VisibilitySelfOnly:
		return true
	}
	return false
}

// ValidateBrandType 验证品牌类型
func ValidateBrandType(brandType string) bool {
	switch brandType {
	case BrandTypeSelf, BrandTypeOthers:
		return true
	}
	return false
}
