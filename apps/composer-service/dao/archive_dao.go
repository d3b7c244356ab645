package dao

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"crosspost/apps/composer-service/model"
	"crosspost/pkg/database"
)

const archiveCollection = "dispatch_archives"

type archiveDAO struct {
	db *database.MongoDB
}

// NewArchiveDAO 创建归档DAO实例
func NewArchiveDAO(db *database.MongoDB) ArchiveDAO {
	return &archiveDAO{db: db}
}

// SaveArchive 保存投递归档,按submission_id幂等覆盖
func (d *archiveDAO) SaveArchive(ctx context.Context, archive *model.DispatchArchive) error {
	collection := d.db.GetCollection(archiveCollection)

	if archive.ArchivedAt.IsZero() {
		archive.ArchivedAt = time.Now()
	}

	filter := bson.M{"submission_id": archive.SubmissionID}
	opts := options.Replace().SetUpsert(true)
	_, err := collection.ReplaceOne(ctx, filter, archive, opts)
	if err != nil {
		return fmt.Errorf("保存投递归档失败: %v", err)
	}
	return nil
}

// GetArchive 获取投递归档
func (d *archiveDAO) GetArchive(ctx context.Context, submissionID int64) (*model.DispatchArchive, error) {
	collection := d.db.GetCollection(archiveCollection)

	var archive model.DispatchArchive
	err := collection.FindOne(ctx, bson.M{"submission_id": submissionID}).Decode(&archive)
	if err != nil {
		return nil, fmt.Errorf("查询投递归档失败: %v", err)
	}
	return &archive, nil
}
