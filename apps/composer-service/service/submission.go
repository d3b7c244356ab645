package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"crosspost/apps/composer-service/dao"
	"crosspost/apps/composer-service/model"
	tracecontext "crosspost/pkg/context"
	"crosspost/pkg/logger"
	"crosspost/pkg/snowflake"
	"crosspost/pkg/telemetry"
)

// Submit 把一条草稿投递到所有勾选的(平台,账号)对
// 前置条件全部通过后才会发出第一个网络请求;投递严格串行,
// 单个账号失败不影响其余账号,最终汇总为成功/部分成功/失败
func (s *Service) Submit(ctx context.Context, req *model.SubmitRequest) (*model.SubmissionSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "composer.service.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("draft.id", req.DraftID),
		attribute.Int("submission.account_count", len(req.Accounts)),
	)
	ctx = tracecontext.WithDraftID(ctx, req.DraftID)

	draft, err := s.dao.GetDraft(ctx, req.DraftID)
	if err != nil {
		return nil, fmt.Errorf("草稿不存在: %v", err)
	}
	items, err := s.dao.GetMediaItems(ctx, req.DraftID)
	if err != nil {
		return nil, fmt.Errorf("查询媒体失败: %v", err)
	}

	// 前置校验,任何一条不过都不发起网络请求
	if err := s.checkPreconditions(ctx, draft, items, req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	mediaType := model.MediaTypeText
	if len(items) > 0 {
		mediaType = items[0].MediaType
	}

	record := &model.SubmissionRecord{
		ID:         snowflake.GenerateID(),
		DraftID:    draft.ID,
		UserID:     draft.UserID,
		Status:     model.SubmissionStatusRunning,
		TotalCount: len(req.Accounts),
	}
	var scheduledAt, timezone string
	if req.Schedule != nil {
		scheduledAt = req.Schedule.At.Format(time.RFC3339)
		timezone = req.Schedule.Timezone
		if timezone == "" {
			timezone = time.Local.String()
		}
		at := req.Schedule.At
		record.ScheduledAt = &at
		record.Timezone = timezone
	}
	if err := s.dao.CreateSubmission(ctx, record); err != nil {
		return nil, fmt.Errorf("创建投递记录失败: %v", err)
	}
	ctx = tracecontext.WithSubmissionID(ctx, record.ID)

	s.emitSubmissionEvent(ctx, &model.SubmissionEvent{
		SubmissionID: record.ID,
		DraftID:      draft.ID,
		Stage:        model.StagePreparing,
	})
	s.emitSubmissionEvent(ctx, &model.SubmissionEvent{
		SubmissionID: record.ID,
		DraftID:      draft.ID,
		Stage:        model.StageProcessingMedia,
		Message:      fmt.Sprintf("%d 个媒体文件", len(items)),
	})

	// 按平台首次出现的顺序分组,组内保持勾选顺序
	platforms, groups := groupAccounts(req.Accounts)

	summary := &model.SubmissionSummary{SubmissionID: record.ID}
	for _, platform := range platforms {
		for _, account := range groups[platform] {
			outcome := s.dispatchOne(ctx, draft, items, record, account, req, mediaType, scheduledAt, timezone)
			summary.Outcomes = append(summary.Outcomes, outcome)
		}
	}

	for _, o := range summary.Outcomes {
		if o.Succeeded {
			record.SuccessCount++
		} else {
			record.FailureCount++
		}
	}
	switch {
	case record.FailureCount == 0:
		record.Status = model.SubmissionStatusSucceeded
	case record.SuccessCount == 0:
		record.Status = model.SubmissionStatusFailed
	default:
		record.Status = model.SubmissionStatusPartial
	}
	summary.Status = record.Status

	if err := s.dao.UpdateSubmission(ctx, record); err != nil {
		s.logger.Error(ctx, "Failed to finalize submission record",
			logger.F("submissionID", record.ID),
			logger.F("error", err.Error()))
	}
	if record.SuccessCount > 0 {
		draft.Status = model.DraftStatusSubmitted
		if err := s.dao.UpdateDraft(ctx, draft); err != nil {
			s.logger.Warn(ctx, "Failed to mark draft submitted",
				logger.F("draftID", draft.ID),
				logger.F("error", err.Error()))
		}
	}

	s.archiveSubmission(ctx, draft, record, summary)

	s.emitSubmissionEvent(ctx, &model.SubmissionEvent{
		SubmissionID: record.ID,
		DraftID:      draft.ID,
		Stage:        model.StageCompleted,
		Message: fmt.Sprintf("成功 %d 个,失败 %d 个",
			record.SuccessCount, record.FailureCount),
	})

	s.logger.Info(ctx, "Submission finished",
		logger.F("submissionID", record.ID),
		logger.F("status", record.Status),
		logger.F("success", record.SuccessCount),
		logger.F("failure", record.FailureCount))
	return summary, nil
}

// checkPreconditions 提交前置校验
func (s *Service) checkPreconditions(ctx context.Context, draft *model.PostDraft, items []*model.MediaItem, req *model.SubmitRequest) error {
	if len(req.Accounts) == 0 {
		return fmt.Errorf("请至少选择一个账号")
	}
	if strings.TrimSpace(draft.Caption) == "" {
		return fmt.Errorf("文案不能为空")
	}

	// 一条帖子的媒体必须同为图片或同为视频
	for _, item := range items {
		if item.MediaType != items[0].MediaType {
			return fmt.Errorf("不支持图片和视频混合发布")
		}
	}

	// 需要补充选项的平台,所有勾选账号的选项必须完整
	for _, account := range req.Accounts {
		if !model.OptionRequiredPlatforms[account.Platform] {
			continue
		}
		record, err := s.dao.GetOptionRecord(ctx, draft.ID, account.Platform, account.AccountID)
		if err != nil && !errors.Is(err, dao.ErrRecordNotFound) {
			return fmt.Errorf("查询选项失败: %v", err)
		}
		caps, err := s.capabilities.GetCapabilities(ctx, account.Platform, account.AccountID)
		if err != nil {
			return fmt.Errorf("查询账号能力失败: %v", err)
		}
		completeness := CheckOptionCompleteness(record, caps)
		if !completeness.Complete {
			return fmt.Errorf("平台 %s 账号 %s 的发布选项不完整: %s",
				account.Platform, account.AccountID,
				strings.Join(completeness.MissingFields, ", "))
		}
	}
	return nil
}

// dispatchOne 投递单个账号,失败只记录不中断
func (s *Service) dispatchOne(ctx context.Context, draft *model.PostDraft, items []*model.MediaItem,
	record *model.SubmissionRecord, account model.SelectedAccount, req *model.SubmitRequest,
	mediaType, scheduledAt, timezone string) *model.DispatchOutcome {

	ctx, span := telemetry.StartSpan(ctx, "composer.service.dispatchOne")
	defer span.End()
	span.SetAttributes(
		attribute.String("dispatch.platform", account.Platform),
		attribute.String("dispatch.account_id", account.AccountID),
	)

	caption := draft.Caption
	if override, ok := req.CaptionOverrides[account.Platform]; ok && override != "" {
		caption = override
	}

	psr := &model.PostSubmissionRequest{
		SubmissionID: record.ID,
		DraftID:      draft.ID,
		Platform:     account.Platform,
		AccountID:    account.AccountID,
		Caption:      caption,
		MediaType:    mediaType,
		Media:        items,
		ScheduledAt:  scheduledAt,
		Timezone:     timezone,
	}
	if model.OptionRequiredPlatforms[account.Platform] {
		if options, err := s.dao.GetOptionRecord(ctx, draft.ID, account.Platform, account.AccountID); err == nil {
			psr.Options = options
		}
	}

	s.emitSubmissionEvent(ctx, &model.SubmissionEvent{
		SubmissionID: record.ID,
		DraftID:      draft.ID,
		Stage:        model.StageQueuing,
		Platform:     account.Platform,
		AccountID:    account.AccountID,
	})

	outcome := &model.DispatchOutcome{
		Platform:  account.Platform,
		AccountID: account.AccountID,
	}
	dispatch := &model.DispatchRecord{
		ID:           snowflake.GenerateID(),
		SubmissionID: record.ID,
		Platform:     account.Platform,
		AccountID:    account.AccountID,
	}

	if err := s.dispatcher.Dispatch(ctx, psr); err != nil {
		outcome.Error = err.Error()
		dispatch.Status = model.DispatchStatusFailed
		dispatch.Error = err.Error()
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error(ctx, "Dispatch failed",
			logger.F("submissionID", record.ID),
			logger.F("platform", account.Platform),
			logger.F("accountID", account.AccountID),
			logger.F("error", err.Error()))
	} else {
		outcome.Succeeded = true
		dispatch.Status = model.DispatchStatusSucceeded
	}

	if err := s.dao.CreateDispatchRecord(ctx, dispatch); err != nil {
		s.logger.Warn(ctx, "Failed to persist dispatch record",
			logger.F("submissionID", record.ID),
			logger.F("error", err.Error()))
	}

	s.emitSubmissionEvent(ctx, &model.SubmissionEvent{
		SubmissionID: record.ID,
		DraftID:      draft.ID,
		Stage:        model.StageDispatched,
		Platform:     account.Platform,
		AccountID:    account.AccountID,
		Message:      dispatch.Status,
	})
	return outcome
}

// archiveSubmission 把最终结果归档到MongoDB,失败只告警
func (s *Service) archiveSubmission(ctx context.Context, draft *model.PostDraft, record *model.SubmissionRecord, summary *model.SubmissionSummary) {
	if s.archive == nil {
		return
	}
	archive := &model.DispatchArchive{
		SubmissionID: record.ID,
		DraftID:      draft.ID,
		UserID:       draft.UserID,
		Caption:      draft.Caption,
		Platforms:    draft.Platforms,
		Status:       record.Status,
		Outcomes:     summary.Outcomes,
	}
	if err := s.archive.SaveArchive(ctx, archive); err != nil {
		s.logger.Warn(ctx, "Failed to archive submission",
			logger.F("submissionID", record.ID),
			logger.F("error", err.Error()))
	}
}

// GetSubmission 查询投递记录及逐账号结果
func (s *Service) GetSubmission(ctx context.Context, submissionID int64) (*model.SubmissionRecord, []*model.DispatchRecord, error) {
	record, err := s.dao.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, nil, fmt.Errorf("投递记录不存在: %v", err)
	}
	dispatches, err := s.dao.GetDispatchRecords(ctx, submissionID)
	if err != nil {
		return nil, nil, fmt.Errorf("查询投递明细失败: %v", err)
	}
	return record, dispatches, nil
}

// groupAccounts 按平台首次出现顺序分组,组内保持原顺序
func groupAccounts(accounts []model.SelectedAccount) ([]string, map[string][]model.SelectedAccount) {
	var platforms []string
	groups := make(map[string][]model.SelectedAccount)
	for _, account := range accounts {
		if _, ok := groups[account.Platform]; !ok {
			platforms = append(platforms, account.Platform)
		}
		groups[account.Platform] = append(groups[account.Platform], account)
	}
	return platforms, groups
}
