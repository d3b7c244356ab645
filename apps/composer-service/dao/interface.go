package dao

import (
	"context"

	"crosspost/apps/composer-service/model"
)

// ComposerDAO 帖子编排数据访问接口
type ComposerDAO interface {
	// 草稿管理
	CreateDraft(ctx context.Context, draft *model.PostDraft) error
	GetDraft(ctx context.Context, draftID int64) (*model.PostDraft, error)
	UpdateDraft(ctx context.Context, draft *model.PostDraft) error
	DeleteDraft(ctx context.Context, draftID int64) error
	GetUserDrafts(ctx context.Context, userID int64, page, pageSize int32) ([]*model.PostDraft, int64, error)

	// 媒体项管理
	CreateMediaItem(ctx context.Context, item *model.MediaItem) error
	GetMediaItem(ctx context.Context, draftID, itemID int64) (*model.MediaItem, error)
	GetMediaItems(ctx context.Context, draftID int64) ([]*model.MediaItem, error)
	UpdateMediaItem(ctx context.Context, item *model.MediaItem) error
	DeleteMediaItem(ctx context.Context, draftID, itemID int64) error
	SaveMediaOrder(ctx context.Context, draftID int64, orderedIDs []int64) error

	// 平台选项管理
	GetOptionRecord(ctx context.Context, draftID int64, platform, accountID string) (*model.ShortVideoOptions, error)
	UpsertOptionRecord(ctx context.Context, record *model.ShortVideoOptions) error
	GetOptionRecords(ctx context.Context, draftID int64) ([]*model.ShortVideoOptions, error)

	// 投递记录管理
	CreateSubmission(ctx context.Context, record *model.SubmissionRecord) error
	UpdateSubmission(ctx context.Context, record *model.SubmissionRecord) error
	GetSubmission(ctx context.Context, submissionID int64) (*model.SubmissionRecord, error)
	CreateDispatchRecord(ctx context.Context, record *model.DispatchRecord) error
	GetDispatchRecords(ctx context.Context, submissionID int64) ([]*model.DispatchRecord, error)
}

// ArchiveDAO 投递归档数据访问接口
type ArchiveDAO interface {
	SaveArchive(ctx context.Context, archive *model.DispatchArchive) error
	GetArchive(ctx context.Context, submissionID int64) (*model.DispatchArchive, error)
}
