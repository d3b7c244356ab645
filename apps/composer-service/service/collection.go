package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"

	"crosspost/apps/composer-service/model"
	"crosspost/pkg/logger"
	"crosspost/pkg/snowflake"
	"crosspost/pkg/telemetry"
)

// AddMedia 向草稿批量添加媒体文件
// 超出容量的文件在校验前就被拒收;其余文件逐个顺序校验,保证确定的排序,
// 多平台合并规则的提示每批只出一条
func (s *Service) AddMedia(ctx context.Context, draftID int64, uploads []model.FileUpload) (*model.AddMediaResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "composer.service.AddMedia")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("draft.id", draftID),
		attribute.Int("media.upload_count", len(uploads)),
	)

	draft, err := s.dao.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("草稿不存在: %v", err)
	}
	existing, err := s.dao.GetMediaItems(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("查询媒体失败: %v", err)
	}

	eff := CombineConstraints(draft.Platforms)
	capacity := model.MaxMediaItems - len(existing)
	if capacity < 0 {
		capacity = 0
	}

	result := &model.AddMediaResult{}
	if len(draft.Platforms) > 1 {
		result.Advisory = fmt.Sprintf("已按 %d 个平台的合并规则校验", len(draft.Platforms))
	}

	for i, upload := range uploads {
		if i >= capacity {
			result.Rejected = append(result.Rejected, &model.RejectedFile{
				Filename: upload.Filename,
				Reasons:  []string{fmt.Sprintf("最多附加 %d 个媒体文件", model.MaxMediaItems)},
			})
			continue
		}

		verdict := ValidateFile(upload, eff)
		if !verdict.Valid {
			result.Rejected = append(result.Rejected, &model.RejectedFile{
				Filename: upload.Filename,
				Reasons:  verdict.HardErrors,
			})
			continue
		}

		item, err := s.acceptUpload(ctx, draftID, upload, verdict, len(existing)+len(result.Accepted))
		if err != nil {
			return nil, err
		}
		result.Accepted = append(result.Accepted, item)
	}

	s.logger.Info(ctx, "Media batch processed",
		logger.F("draftID", draftID),
		logger.F("accepted", len(result.Accepted)),
		logger.F("rejected", len(result.Rejected)))
	return result, nil
}

// acceptUpload 落盘一个通过校验的文件并生成缩略图
func (s *Service) acceptUpload(ctx context.Context, draftID int64, upload model.FileUpload, verdict *model.ValidationVerdict, sortOrder int) (*model.MediaItem, error) {
	itemID := snowflake.GenerateID()
	assetKey := fmt.Sprintf("drafts/%d/%d%s", draftID, itemID, filepath.Ext(upload.Filename))

	src, err := os.Open(upload.Path)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %v", err)
	}
	displayURL, err := s.store.Save(ctx, assetKey, src)
	src.Close()
	if err != nil {
		return nil, fmt.Errorf("保存媒体文件失败: %v", err)
	}

	item := &model.MediaItem{
		ID:              itemID,
		DraftID:         draftID,
		MediaType:       verdict.MediaType,
		Filename:        upload.Filename,
		MimeType:        verdict.MimeType,
		Size:            upload.Size,
		Width:           verdict.Meta.Width,
		Height:          verdict.Meta.Height,
		DurationSeconds: verdict.Meta.DurationSeconds,
		AssetKey:        assetKey,
		DisplayURL:      displayURL,
		SortOrder:       sortOrder,
		SoftWarnings:    verdict.SoftWarnings,
	}

	// 缩略图尽力生成,失败只降级不拒收
	coverTime := clampCoverTime(model.DefaultCoverTimeSeconds, verdict.Meta.DurationSeconds)
	if err := s.deriveThumbnail(ctx, item, coverTime); err != nil {
		s.logger.Warn(ctx, "Failed to derive thumbnail",
			logger.F("draftID", draftID),
			logger.F("itemID", itemID),
			logger.F("error", err.Error()))
	}

	if err := s.dao.CreateMediaItem(ctx, item); err != nil {
		s.releaseItemAssets(ctx, item)
		return nil, fmt.Errorf("保存媒体记录失败: %v", err)
	}
	return item, nil
}

// deriveThumbnail 为媒体项生成缩略图并写入存储
// 视频按封面时间抓帧,图片直接缩放
func (s *Service) deriveThumbnail(ctx context.Context, item *model.MediaItem, coverTime float64) error {
	var data []byte
	var err error

	switch item.MediaType {
	case model.MediaTypeImage:
		data, err = makeImageThumbnail(s.store.Path(item.AssetKey))
	case model.MediaTypeVideo:
		data, err = makeVideoThumbnail(ctx, s.store.Path(item.AssetKey), coverTime)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	thumbKey := fmt.Sprintf("drafts/%d/%d_thumb_%d.jpg", item.DraftID, item.ID, snowflake.GenerateID())
	thumbURL, err := s.store.Save(ctx, thumbKey, bytes.NewReader(data))
	if err != nil {
		return err
	}
	item.ThumbnailKey = thumbKey
	item.ThumbnailURL = thumbURL
	if item.MediaType == model.MediaTypeVideo {
		item.ThumbTimeSeconds = coverTime
	}
	return nil
}

// RemoveMedia 移除媒体项并立刻释放其本地资源
// 释放是硬性生命周期约定,不依赖垃圾回收
func (s *Service) RemoveMedia(ctx context.Context, draftID, itemID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "composer.service.RemoveMedia")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("draft.id", draftID),
		attribute.Int64("media.item_id", itemID),
	)

	item, err := s.dao.GetMediaItem(ctx, draftID, itemID)
	if err != nil {
		return fmt.Errorf("媒体项不存在: %v", err)
	}

	s.releaseItemAssets(ctx, item)

	if err := s.dao.DeleteMediaItem(ctx, draftID, itemID); err != nil {
		return fmt.Errorf("删除媒体记录失败: %v", err)
	}

	// 删除后顺序重排,保证sort_order连续
	remaining, err := s.dao.GetMediaItems(ctx, draftID)
	if err != nil {
		return fmt.Errorf("查询媒体失败: %v", err)
	}
	ids := make([]int64, 0, len(remaining))
	for _, it := range remaining {
		ids = append(ids, it.ID)
	}
	return s.dao.SaveMediaOrder(ctx, draftID, ids)
}

// ReorderMedia 调整媒体项位置,位置0的项即封面
func (s *Service) ReorderMedia(ctx context.Context, draftID, itemID int64, newIndex int) ([]*model.MediaItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "composer.service.ReorderMedia")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("draft.id", draftID),
		attribute.Int64("media.item_id", itemID),
		attribute.Int("media.new_index", newIndex),
	)

	items, err := s.dao.GetMediaItems(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("查询媒体失败: %v", err)
	}

	current := -1
	for i, it := range items {
		if it.ID == itemID {
			current = i
			break
		}
	}
	if current < 0 {
		return nil, fmt.Errorf("媒体项不存在")
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex >= len(items) {
		newIndex = len(items) - 1
	}

	moved := items[current]
	items = append(items[:current], items[current+1:]...)
	items = append(items[:newIndex], append([]*model.MediaItem{moved}, items[newIndex:]...)...)

	ids := make([]int64, 0, len(items))
	for i, it := range items {
		it.SortOrder = i
		ids = append(ids, it.ID)
	}
	if err := s.dao.SaveMediaOrder(ctx, draftID, ids); err != nil {
		return nil, fmt.Errorf("保存排序失败: %v", err)
	}
	return items, nil
}

// SetCoverTime 重设视频封面时间并重新抓帧
// 旧缩略图先释放再生成新图
func (s *Service) SetCoverTime(ctx context.Context, draftID, itemID int64, seconds float64) (*model.MediaItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "composer.service.SetCoverTime")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("draft.id", draftID),
		attribute.Int64("media.item_id", itemID),
		attribute.Float64("media.cover_time", seconds),
	)

	item, err := s.dao.GetMediaItem(ctx, draftID, itemID)
	if err != nil {
		return nil, fmt.Errorf("媒体项不存在: %v", err)
	}
	if item.MediaType != model.MediaTypeVideo {
		return nil, fmt.Errorf("仅视频支持设置封面时间")
	}

	if item.ThumbnailKey != "" {
		if err := s.store.Release(ctx, item.ThumbnailKey); err != nil {
			s.logger.Warn(ctx, "Failed to release old thumbnail",
				logger.F("itemID", itemID),
				logger.F("error", err.Error()))
		}
		item.ThumbnailKey = ""
		item.ThumbnailURL = ""
	}

	coverTime := clampCoverTime(seconds, item.DurationSeconds)
	if err := s.deriveThumbnail(ctx, item, coverTime); err != nil {
		s.logger.Warn(ctx, "Failed to derive thumbnail",
			logger.F("itemID", itemID),
			logger.F("error", err.Error()))
	}
	item.ThumbTimeSeconds = coverTime

	if err := s.dao.UpdateMediaItem(ctx, item); err != nil {
		return nil, fmt.Errorf("更新媒体记录失败: %v", err)
	}
	return item, nil
}

// GetMediaItems 按顺序获取草稿媒体列表
func (s *Service) GetMediaItems(ctx context.Context, draftID int64) ([]*model.MediaItem, error) {
	return s.dao.GetMediaItems(ctx, draftID)
}

// releaseItemAssets 释放媒体项的全部本地资源,幂等
func (s *Service) releaseItemAssets(ctx context.Context, item *model.MediaItem) {
	if err := s.store.Release(ctx, item.AssetKey); err != nil {
		s.logger.Warn(ctx, "Failed to release media asset",
			logger.F("itemID", item.ID),
			logger.F("error", err.Error()))
	}
	if item.ThumbnailKey != "" {
		if err := s.store.Release(ctx, item.ThumbnailKey); err != nil {
			s.logger.Warn(ctx, "Failed to release thumbnail asset",
				logger.F("itemID", item.ID),
				logger.F("error", err.Error()))
		}
	}
}
