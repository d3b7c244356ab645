package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"crosspost/apps/composer-service/dao"
	"crosspost/apps/composer-service/model"
	"crosspost/pkg/snowflake"
	"crosspost/pkg/telemetry"
)

// CheckOptionCompleteness 判断短视频选项记录是否完整
// 完整性是当前字段值和账号能力的纯函数,每次编辑和提交前都会重算
// 规则:
//   - 标题必填
//   - 账号上报了可见性选项时必须选择可见性
//   - 政策确认永远必填
//   - 勾选商业内容时账号必须具备变现资格,且必须选择品牌类型
//   - 账号能力开放的互动开关必须显式给出布尔值
func CheckOptionCompleteness(record *model.ShortVideoOptions, caps *model.AccountCapabilities) *model.OptionCompleteness {
	result := &model.OptionCompleteness{}

	if record == nil {
		result.MissingFields = []string{"title", "visibility", "agreed_to_policy"}
		return result
	}

	if record.Title == "" {
		result.MissingFields = append(result.MissingFields, "title")
	}
	if caps != nil && len(caps.VisibilityOptions) > 0 && record.Visibility == "" {
		result.MissingFields = append(result.MissingFields, "visibility")
	}
	if caps != nil {
		if caps.CommentToggleable && record.AllowComment == nil {
			result.MissingFields = append(result.MissingFields, "allow_comment")
		}
		if caps.DuetToggleable && record.AllowDuet == nil {
			result.MissingFields = append(result.MissingFields, "allow_duet")
		}
		if caps.StitchToggleable && record.AllowStitch == nil {
			result.MissingFields = append(result.MissingFields, "allow_stitch")
		}
	}
	if record.IsCommercial {
		if caps == nil || !caps.MonetizationEligible {
			result.MissingFields = append(result.MissingFields, "monetization_eligibility")
		}
		if record.BrandType == "" {
			result.MissingFields = append(result.MissingFields, "brand_type")
		}
	}
	if !record.AgreedToPolicy {
		result.MissingFields = append(result.MissingFields, "agreed_to_policy")
	}

	result.Complete = len(result.MissingFields) == 0
	return result
}

// GetOptions 获取选项记录及当前完整性
// 记录不存在时返回空记录,便于前端直接渲染表单
func (s *Service) GetOptions(ctx context.Context, draftID int64, platform, accountID string) (*model.ShortVideoOptions, *model.OptionCompleteness, error) {
	ctx, span := telemetry.StartSpan(ctx, "composer.service.GetOptions")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("draft.id", draftID),
		attribute.String("options.platform", platform),
		attribute.String("options.account_id", accountID),
	)

	record, err := s.dao.GetOptionRecord(ctx, draftID, platform, accountID)
	if err != nil {
		if !errors.Is(err, dao.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("查询选项失败: %v", err)
		}
		record = &model.ShortVideoOptions{
			DraftID:   draftID,
			Platform:  platform,
			AccountID: accountID,
		}
	}

	caps, err := s.capabilities.GetCapabilities(ctx, platform, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("查询账号能力失败: %v", err)
	}
	return record, CheckOptionCompleteness(record, caps), nil
}

// UpdateOptions 保存选项记录并重算完整性
func (s *Service) UpdateOptions(ctx context.Context, record *model.ShortVideoOptions) (*model.OptionCompleteness, error) {
	ctx, span := telemetry.StartSpan(ctx, "composer.service.UpdateOptions")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("draft.id", record.DraftID),
		attribute.String("options.platform", record.Platform),
		attribute.String("options.account_id", record.AccountID),
	)

	if record.Platform == "" || record.AccountID == "" {
		return nil, fmt.Errorf("平台和账号不能为空")
	}
	if record.Visibility != "" && !model.ValidateVisibility(record.Visibility) {
		return nil, fmt.Errorf("无效的可见性级别: %s", record.Visibility)
	}
	if record.BrandType != "" && !model.ValidateBrandType(record.BrandType) {
		return nil, fmt.Errorf("无效的品牌类型: %s", record.BrandType)
	}
	if record.ID == 0 {
		record.ID = snowflake.GenerateID()
	}

	if err := s.dao.UpsertOptionRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("保存选项失败: %v", err)
	}

	caps, err := s.capabilities.GetCapabilities(ctx, record.Platform, record.AccountID)
	if err != nil {
		return nil, fmt.Errorf("查询账号能力失败: %v", err)
	}
	return CheckOptionCompleteness(record, caps), nil
}
