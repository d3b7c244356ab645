package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"crosspost/apps/composer-service/dao"
	"crosspost/apps/composer-service/model"
	tracecontext "crosspost/pkg/context"
	"crosspost/pkg/kafka"
	"crosspost/pkg/logger"
	"crosspost/pkg/redis"
	"crosspost/pkg/snowflake"
	"crosspost/pkg/storage"
	"crosspost/pkg/telemetry"
)

// CapabilityProvider 账号能力查询接口,由账号服务客户端实现
type CapabilityProvider interface {
	GetCapabilities(ctx context.Context, platform, accountID string) (*model.AccountCapabilities, error)
}

// Dispatcher 单账号投递接口,把一次投递请求发往平台适配端点
type Dispatcher interface {
	Dispatch(ctx context.Context, req *model.PostSubmissionRequest) error
}

// Service 帖子编排服务
type Service struct {
	dao          dao.ComposerDAO
	archive      dao.ArchiveDAO
	redis        *redis.RedisClient
	kafka        *kafka.Producer
	store        storage.AssetStore
	capabilities CapabilityProvider
	dispatcher   Dispatcher
	logger       logger.Logger
}

// NewService 创建帖子编排服务实例
func NewService(
	composerDAO dao.ComposerDAO,
	archiveDAO dao.ArchiveDAO,
	redis *redis.RedisClient,
	kafka *kafka.Producer,
	store storage.AssetStore,
	capabilities CapabilityProvider,
	dispatcher Dispatcher,
	log logger.Logger,
) *Service {
	return &Service{
		dao:          composerDAO,
		archive:      archiveDAO,
		redis:        redis,
		kafka:        kafka,
		store:        store,
		capabilities: capabilities,
		dispatcher:   dispatcher,
		logger:       log,
	}
}

// CreateDraft 创建帖子草稿
func (s *Service) CreateDraft(ctx context.Context, userID int64, caption string, platforms []string) (*model.PostDraft, error) {
	ctx, span := telemetry.StartSpan(ctx, "composer.service.CreateDraft")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("draft.user_id", userID),
		attribute.Int("draft.platforms_count", len(platforms)),
	)
	ctx = tracecontext.WithUserID(ctx, userID)

	draft := &model.PostDraft{
		ID:        snowflake.GenerateID(),
		UserID:    userID,
		Caption:   caption,
		Platforms: platforms,
		Status:    model.DraftStatusComposing,
	}
	if err := s.dao.CreateDraft(ctx, draft); err != nil {
		s.logger.Error(ctx, "Failed to create draft", logger.F("error", err.Error()))
		return nil, fmt.Errorf("创建草稿失败: %v", err)
	}

	s.logger.Info(ctx, "Draft created",
		logger.F("draftID", draft.ID),
		logger.F("userID", userID))
	return draft, nil
}

// GetDraft 获取草稿
func (s *Service) GetDraft(ctx context.Context, draftID int64) (*model.PostDraft, error) {
	ctx, span := telemetry.StartSpan(ctx, "composer.service.GetDraft")
	defer span.End()
	span.SetAttributes(attribute.Int64("draft.id", draftID))

	draft, err := s.dao.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("草稿不存在: %v", err)
	}
	return draft, nil
}

// UpdateCaption 更新草稿文案
func (s *Service) UpdateCaption(ctx context.Context, draftID int64, caption string) (*model.PostDraft, error) {
	ctx, span := telemetry.StartSpan(ctx, "composer.service.UpdateCaption")
	defer span.End()
	span.SetAttributes(attribute.Int64("draft.id", draftID))

	draft, err := s.dao.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("草稿不存在: %v", err)
	}
	draft.Caption = caption
	if err := s.dao.UpdateDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("更新文案失败: %v", err)
	}
	return draft, nil
}

// UpdatePlatforms 更新目标平台集合
// 平台变化后已附加的媒体按新的合并规则重新校验,硬性错误的媒体项保留但带出提醒
func (s *Service) UpdatePlatforms(ctx context.Context, draftID int64, platforms []string) (*model.PostDraft, []string, error) {
	ctx, span := telemetry.StartSpan(ctx, "composer.service.UpdatePlatforms")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("draft.id", draftID),
		attribute.Int("draft.platforms_count", len(platforms)),
	)

	draft, err := s.dao.GetDraft(ctx, draftID)
	if err != nil {
		return nil, nil, fmt.Errorf("草稿不存在: %v", err)
	}
	draft.Platforms = platforms
	if err := s.dao.UpdateDraft(ctx, draft); err != nil {
		return nil, nil, fmt.Errorf("更新平台失败: %v", err)
	}

	// 重新评估已有媒体,提示不再满足新规则的项
	items, err := s.dao.GetMediaItems(ctx, draftID)
	if err != nil {
		return nil, nil, fmt.Errorf("查询媒体失败: %v", err)
	}
	eff := CombineConstraints(platforms)
	var notices []string
	for _, item := range items {
		upload := model.FileUpload{Filename: item.Filename, Size: item.Size}
		meta := model.FileMeta{Width: item.Width, Height: item.Height, DurationSeconds: item.DurationSeconds}
		verdict := validateWithMeta(upload, item.MimeType, item.MediaType, meta, eff)
		if !verdict.Valid {
			notices = append(notices, verdict.Message)
		}
	}
	return draft, notices, nil
}

// DeleteDraft 删除草稿并释放其全部本地资源
func (s *Service) DeleteDraft(ctx context.Context, draftID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "composer.service.DeleteDraft")
	defer span.End()
	span.SetAttributes(attribute.Int64("draft.id", draftID))

	items, err := s.dao.GetMediaItems(ctx, draftID)
	if err != nil {
		return fmt.Errorf("查询媒体失败: %v", err)
	}
	for _, item := range items {
		s.releaseItemAssets(ctx, item)
	}
	if err := s.dao.DeleteDraft(ctx, draftID); err != nil {
		return fmt.Errorf("删除草稿失败: %v", err)
	}

	s.logger.Info(ctx, "Draft deleted",
		logger.F("draftID", draftID),
		logger.F("mediaCount", len(items)))
	return nil
}

// GetUserDrafts 获取用户草稿列表
func (s *Service) GetUserDrafts(ctx context.Context, userID int64, page, pageSize int32) ([]*model.PostDraft, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.dao.GetUserDrafts(ctx, userID, page, pageSize)
}

// GetEffectiveConstraints 计算草稿当前目标平台的合并约束
func (s *Service) GetEffectiveConstraints(ctx context.Context, draftID int64) (*model.EffectiveConstraints, error) {
	draft, err := s.dao.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("草稿不存在: %v", err)
	}
	return CombineConstraints(draft.Platforms), nil
}

// emitSubmissionEvent 发布投递进度事件,写Kafka并推到Redis频道
// 事件只服务体验,失败不影响投递流程
func (s *Service) emitSubmissionEvent(ctx context.Context, event *model.SubmissionEvent) {
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if s.kafka != nil {
		key := []byte(fmt.Sprintf("%d", event.SubmissionID))
		if err := s.kafka.SendMessage(model.TopicSubmissionEvents, key, data); err != nil {
			s.logger.Warn(ctx, "Failed to publish submission event to kafka",
				logger.F("submissionID", event.SubmissionID),
				logger.F("error", err.Error()))
		}
	}
	if s.redis != nil {
		channel := fmt.Sprintf("%s%d", model.RedisChanSubmission, event.SubmissionID)
		if err := s.redis.Publish(ctx, channel, string(data)); err != nil {
			s.logger.Warn(ctx, "Failed to publish submission event to redis",
				logger.F("submissionID", event.SubmissionID),
				logger.F("error", err.Error()))
		}
		// 最新进度额外存一份快照,晚订阅的客户端可据此补齐当前阶段
		progressKey := fmt.Sprintf("%s%d", model.RedisKeySubmissionProgress, event.SubmissionID)
		if err := s.redis.Set(ctx, progressKey, string(data), time.Hour); err != nil {
			s.logger.Warn(ctx, "Failed to save submission progress snapshot",
				logger.F("submissionID", event.SubmissionID),
				logger.F("error", err.Error()))
		}
	}
}
