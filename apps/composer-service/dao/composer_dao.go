package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"crosspost/apps/composer-service/model"
	"crosspost/pkg/database"
)

// ErrRecordNotFound 记录不存在
var ErrRecordNotFound = gorm.ErrRecordNotFound

type composerDAO struct {
	db *database.PostgreSQL
}

// NewComposerDAO 创建编排DAO实例
func NewComposerDAO(db *database.PostgreSQL) ComposerDAO {
	return &composerDAO{db: db}
}

// ==================== 草稿管理 ====================

// CreateDraft 创建草稿
func (d *composerDAO) CreateDraft(ctx context.Context, draft *model.PostDraft) error {
	return d.db.WithContext(ctx).Create(draft).Error
}

// GetDraft 获取草稿
func (d *composerDAO) GetDraft(ctx context.Context, draftID int64) (*model.PostDraft, error) {
	var draft model.PostDraft
	err := d.db.WithContext(ctx).First(&draft, draftID).Error
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// UpdateDraft 更新草稿
func (d *composerDAO) UpdateDraft(ctx context.Context, draft *model.PostDraft) error {
	return d.db.WithContext(ctx).Save(draft).Error
}

// DeleteDraft 删除草稿及其附属记录
func (d *composerDAO) DeleteDraft(ctx context.Context, draftID int64) error {
	return d.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("draft_id = ?", draftID).Delete(&model.MediaItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("draft_id = ?", draftID).Delete(&model.ShortVideoOptions{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.PostDraft{}, draftID).Error
	})
}

// GetUserDrafts 获取用户的草稿列表
func (d *composerDAO) GetUserDrafts(ctx context.Context, userID int64, page, pageSize int32) ([]*model.PostDraft, int64, error) {
	var drafts []*model.PostDraft
	var total int64

	query := d.db.WithContext(ctx).Model(&model.PostDraft{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("updated_at DESC").Offset(int(offset)).Limit(int(pageSize)).Find(&drafts).Error
	if err != nil {
		return nil, 0, err
	}
	return drafts, total, nil
}

// ==================== 媒体项管理 ====================

// CreateMediaItem 创建媒体项
func (d *composerDAO) CreateMediaItem(ctx context.Context, item *model.MediaItem) error {
	return d.db.WithContext(ctx).Create(item).Error
}

// GetMediaItem 获取单个媒体项
func (d *composerDAO) GetMediaItem(ctx context.Context, draftID, itemID int64) (*model.MediaItem, error) {
	var item model.MediaItem
	err := d.db.WithContext(ctx).
		Where("draft_id = ? AND id = ?", draftID, itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetMediaItems 按排序获取草稿的全部媒体项
func (d *composerDAO) GetMediaItems(ctx context.Context, draftID int64) ([]*model.MediaItem, error) {
	var items []*model.MediaItem
	err := d.db.WithContext(ctx).
		Where("draft_id = ?", draftID).
		Order("sort_order ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateMediaItem 更新媒体项
func (d *composerDAO) UpdateMediaItem(ctx context.Context, item *model.MediaItem) error {
	return d.db.WithContext(ctx).Save(item).Error
}

// DeleteMediaItem 删除媒体项
func (d *composerDAO) DeleteMediaItem(ctx context.Context, draftID, itemID int64) error {
	result := d.db.WithContext(ctx).
		Where("draft_id = ? AND id = ?", draftID, itemID).
		Delete(&model.MediaItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// SaveMediaOrder 按给定ID顺序重写排序字段
func (d *composerDAO) SaveMediaOrder(ctx context.Context, draftID int64, orderedIDs []int64) error {
	return d.db.Transaction(ctx, func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			err := tx.Model(&model.MediaItem{}).
				Where("draft_id = ? AND id = ?", draftID, id).
				Update("sort_order", i).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ==================== 平台选项管理 ====================

// GetOptionRecord 获取选项记录,不存在时返回ErrRecordNotFound
func (d *composerDAO) GetOptionRecord(ctx context.Context, draftID int64, platform, accountID string) (*model.ShortVideoOptions, error) {
	var record model.ShortVideoOptions
	err := d.db.WithContext(ctx).
		Where("draft_id = ? AND platform = ? AND account_id = ?", draftID, platform, accountID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertOptionRecord 创建或更新选项记录
func (d *composerDAO) UpsertOptionRecord(ctx context.Context, record *model.ShortVideoOptions) error {
	var existing model.ShortVideoOptions
	err := d.db.WithContext(ctx).
		Where("draft_id = ? AND platform = ? AND account_id = ?", record.DraftID, record.Platform, record.AccountID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return d.db.WithContext(ctx).Create(record).Error
	}
	if err != nil {
		return err
	}
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return d.db.WithContext(ctx).Save(record).Error
}

// GetOptionRecords 获取草稿的全部选项记录
func (d *composerDAO) GetOptionRecords(ctx context.Context, draftID int64) ([]*model.ShortVideoOptions, error) {
	var records []*model.ShortVideoOptions
	err := d.db.WithContext(ctx).
		Where("draft_id = ?", draftID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ==================== 投递记录管理 ====================

// CreateSubmission 创建投递总记录
func (d *composerDAO) CreateSubmission(ctx context.Context, record *model.SubmissionRecord) error {
	return d.db.WithContext(ctx).Create(record).Error
}

// UpdateSubmission 更新投递总记录
func (d *composerDAO) UpdateSubmission(ctx context.Context, record *model.SubmissionRecord) error {
	return d.db.WithContext(ctx).Save(record).Error
}

// GetSubmission 获取投递总记录
func (d *composerDAO) GetSubmission(ctx context.Context, submissionID int64) (*model.SubmissionRecord, error) {
	var record model.SubmissionRecord
	err := d.db.WithContext(ctx).First(&record, submissionID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateDispatchRecord 创建单账号投递记录
func (d *composerDAO) CreateDispatchRecord(ctx context.Context, record *model.DispatchRecord) error {
	return d.db.WithContext(ctx).Create(record).Error
}

// GetDispatchRecords 获取一次投递的全部单账号记录
func (d *composerDAO) GetDispatchRecords(ctx context.Context, submissionID int64) ([]*model.DispatchRecord, error) {
	var records []*model.DispatchRecord
	err := d.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
