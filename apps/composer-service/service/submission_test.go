package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"crosspost/apps/composer-service/model"
)

// TestSubmitRequiresAccounts 未选账号直接失败,不发任何请求
func TestSubmitRequiresAccounts(t *testing.T) {
	env := newTestEnv(t)
	draft := env.mustCreateDraft(t, "hello", []string{model.PlatformFacebook})

	_, err := env.svc.Submit(context.Background(), &model.SubmitRequest{DraftID: draft.ID})
	if err == nil {
		t.Fatalf("未选账号应失败")
	}
	if env.dispatcher.callCount() != 0 {
		t.Errorf("前置失败不应产生投递, 实际 %d 次", env.dispatcher.callCount())
	}
}

// TestSubmitRequiresCaption 空文案永远不触发投递
func TestSubmitRequiresCaption(t *testing.T) {
	env := newTestEnv(t)
	draft := env.mustCreateDraft(t, "   ", []string{model.PlatformFacebook})

	_, err := env.svc.Submit(context.Background(), &model.SubmitRequest{
		DraftID:  draft.ID,
		Accounts: []model.SelectedAccount{{Platform: model.PlatformFacebook, AccountID: "fb-1"}},
	})
	if err == nil {
		t.Fatalf("空文案应失败")
	}
	if env.dispatcher.callCount() != 0 {
		t.Errorf("空文案不应产生投递, 实际 %d 次", env.dispatcher.callCount())
	}
}

// TestSubmitRejectsMixedMedia 图片视频混合的草稿不可提交
func TestSubmitRejectsMixedMedia(t *testing.T) {
	env := newTestEnv(t)
	draft := env.mustCreateDraft(t, "hello", []string{model.PlatformFacebook})

	ctx := context.Background()
	_ = env.dao.CreateMediaItem(ctx, &model.MediaItem{ID: 1, DraftID: draft.ID, MediaType: model.MediaTypeImage, SortOrder: 0})
	_ = env.dao.CreateMediaItem(ctx, &model.MediaItem{ID: 2, DraftID: draft.ID, MediaType: model.MediaTypeVideo, SortOrder: 1})

	_, err := env.svc.Submit(ctx, &model.SubmitRequest{
		DraftID:  draft.ID,
		Accounts: []model.SelectedAccount{{Platform: model.PlatformFacebook, AccountID: "fb-1"}},
	})
	if err == nil {
		t.Fatalf("混合媒体应失败")
	}
	if env.dispatcher.callCount() != 0 {
		t.Errorf("混合媒体不应产生投递")
	}
}

// TestSubmitBlocksIncompleteOptions 选项不完整时整体中止,零投递
func TestSubmitBlocksIncompleteOptions(t *testing.T) {
	env := newTestEnv(t)
	draft := env.mustCreateDraft(t, "hello", []string{model.PlatformTikTok})
	env.caps.set(model.PlatformTikTok, "tt-1", fullCaps())

	// 商业内容已勾选但没选品牌类型
	record := completeRecord()
	record.DraftID = draft.ID
	record.AccountID = "tt-1"
	record.IsCommercial = true
	if _, err := env.svc.UpdateOptions(context.Background(), record); err != nil {
		t.Fatalf("准备选项失败: %v", err)
	}

	_, err := env.svc.Submit(context.Background(), &model.SubmitRequest{
		DraftID:  draft.ID,
		Accounts: []model.SelectedAccount{{Platform: model.PlatformTikTok, AccountID: "tt-1"}},
	})
	if err == nil {
		t.Fatalf("选项不完整应中止提交")
	}
	if env.dispatcher.callCount() != 0 {
		t.Errorf("选项不完整不应产生投递, 实际 %d 次", env.dispatcher.callCount())
	}
}

// TestSubmitPartialFailure 2平台x2账号,第3个失败:3成1败,第4个照常执行
func TestSubmitPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	draft := env.mustCreateDraft(t, "hello", []string{model.PlatformX, model.PlatformFacebook})

	accounts := []model.SelectedAccount{
		{Platform: model.PlatformX, AccountID: "x-1"},
		{Platform: model.PlatformX, AccountID: "x-2"},
		{Platform: model.PlatformFacebook, AccountID: "fb-1"},
		{Platform: model.PlatformFacebook, AccountID: "fb-2"},
	}
	env.dispatcher.failOn(model.PlatformFacebook, "fb-1", fmt.Errorf("backend rejected"))

	summary, err := env.svc.Submit(context.Background(), &model.SubmitRequest{
		DraftID:  draft.ID,
		Accounts: accounts,
	})
	if err != nil {
		t.Fatalf("部分失败不应让Submit整体报错: %v", err)
	}
	if env.dispatcher.callCount() != 4 {
		t.Fatalf("4个账号都应尝试投递, 实际 %d 次", env.dispatcher.callCount())
	}
	if summary.Status != model.SubmissionStatusPartial {
		t.Errorf("应为部分成功, 实际 %s", summary.Status)
	}

	var success, failure int
	for _, o := range summary.Outcomes {
		if o.Succeeded {
			success++
		} else {
			failure++
			if o.Platform != model.PlatformFacebook || o.AccountID != "fb-1" {
				t.Errorf("失败的应是fb-1, 实际 %s/%s", o.Platform, o.AccountID)
			}
		}
	}
	if success != 3 || failure != 1 {
		t.Errorf("应3成1败, 实际 %d成%d败", success, failure)
	}

	// 总记录与归档同步落库
	record, dispatches, err := env.svc.GetSubmission(context.Background(), summary.SubmissionID)
	if err != nil {
		t.Fatalf("查询投递记录失败: %v", err)
	}
	if record.SuccessCount != 3 || record.FailureCount != 1 {
		t.Errorf("记录计数应3/1, 实际 %d/%d", record.SuccessCount, record.FailureCount)
	}
	if len(dispatches) != 4 {
		t.Errorf("应4条投递明细, 实际 %d", len(dispatches))
	}
	if _, err := env.archive.GetArchive(context.Background(), summary.SubmissionID); err != nil {
		t.Errorf("应有归档: %v", err)
	}
}

// TestSubmitGroupingOrder 按平台首次出现分组,组内保持勾选顺序
func TestSubmitGroupingOrder(t *testing.T) {
	env := newTestEnv(t)
	draft := env.mustCreateDraft(t, "hello", []string{model.PlatformX, model.PlatformFacebook})

	// 勾选顺序交错,投递时应按 x-1, x-2, fb-1 分组排列
	_, err := env.svc.Submit(context.Background(), &model.SubmitRequest{
		DraftID: draft.ID,
		Accounts: []model.SelectedAccount{
			{Platform: model.PlatformX, AccountID: "x-1"},
			{Platform: model.PlatformFacebook, AccountID: "fb-1"},
			{Platform: model.PlatformX, AccountID: "x-2"},
		},
	})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}

	expected := []string{"x:x-1", "x:x-2", "facebook:fb-1"}
	if len(env.dispatcher.calls) != len(expected) {
		t.Fatalf("应3次投递, 实际 %d", len(env.dispatcher.calls))
	}
	for i, call := range env.dispatcher.calls {
		got := call.Platform + ":" + call.AccountID
		if got != expected[i] {
			t.Errorf("第 %d 次投递应为 %s, 实际 %s", i+1, expected[i], got)
		}
	}
}

// TestSubmitCaptionOverride 平台覆盖文案优先于全局文案
func TestSubmitCaptionOverride(t *testing.T) {
	env := newTestEnv(t)
	draft := env.mustCreateDraft(t, "global caption", []string{model.PlatformX, model.PlatformFacebook})

	_, err := env.svc.Submit(context.Background(), &model.SubmitRequest{
		DraftID: draft.ID,
		Accounts: []model.SelectedAccount{
			{Platform: model.PlatformX, AccountID: "x-1"},
			{Platform: model.PlatformFacebook, AccountID: "fb-1"},
		},
		CaptionOverrides: map[string]string{model.PlatformX: "x flavored"},
	})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}

	for _, call := range env.dispatcher.calls {
		switch call.Platform {
		case model.PlatformX:
			if call.Caption != "x flavored" {
				t.Errorf("x平台应用覆盖文案, 实际 %q", call.Caption)
			}
		case model.PlatformFacebook:
			if call.Caption != "global caption" {
				t.Errorf("facebook应用全局文案, 实际 %q", call.Caption)
			}
		}
	}
}

// TestSubmitSchedule 定时投递携带RFC3339时间和时区,即时投递不带
func TestSubmitSchedule(t *testing.T) {
	env := newTestEnv(t)
	draft := env.mustCreateDraft(t, "hello", []string{model.PlatformFacebook})

	at := time.Date(2026, 9, 15, 10, 30, 0, 0, time.UTC)
	_, err := env.svc.Submit(context.Background(), &model.SubmitRequest{
		DraftID:  draft.ID,
		Accounts: []model.SelectedAccount{{Platform: model.PlatformFacebook, AccountID: "fb-1"}},
		Schedule: &model.ScheduleIntent{At: at, Timezone: "Asia/Shanghai"},
	})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}

	call := env.dispatcher.calls[0]
	if call.ScheduledAt != at.Format(time.RFC3339) {
		t.Errorf("定时时间应为RFC3339, 实际 %q", call.ScheduledAt)
	}
	if call.Timezone != "Asia/Shanghai" {
		t.Errorf("时区应透传, 实际 %q", call.Timezone)
	}

	// 即时投递不带定时字段
	draft2 := env.mustCreateDraft(t, "hello", []string{model.PlatformFacebook})
	_, err = env.svc.Submit(context.Background(), &model.SubmitRequest{
		DraftID:  draft2.ID,
		Accounts: []model.SelectedAccount{{Platform: model.PlatformFacebook, AccountID: "fb-1"}},
	})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	call = env.dispatcher.calls[len(env.dispatcher.calls)-1]
	if call.ScheduledAt != "" || call.Timezone != "" {
		t.Errorf("即时投递不应带定时字段: %q %q", call.ScheduledAt, call.Timezone)
	}
}

// TestSubmitOptionsPayload 只有要求选项的平台附带选项载荷
func TestSubmitOptionsPayload(t *testing.T) {
	env := newTestEnv(t)
	draft := env.mustCreateDraft(t, "hello", []string{model.PlatformTikTok, model.PlatformFacebook})
	env.caps.set(model.PlatformTikTok, "tt-1", fullCaps())

	record := completeRecord()
	record.DraftID = draft.ID
	record.AccountID = "tt-1"
	if _, err := env.svc.UpdateOptions(context.Background(), record); err != nil {
		t.Fatalf("准备选项失败: %v", err)
	}

	_, err := env.svc.Submit(context.Background(), &model.SubmitRequest{
		DraftID: draft.ID,
		Accounts: []model.SelectedAccount{
			{Platform: model.PlatformTikTok, AccountID: "tt-1"},
			{Platform: model.PlatformFacebook, AccountID: "fb-1"},
		},
	})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}

	for _, call := range env.dispatcher.calls {
		switch call.Platform {
		case model.PlatformTikTok:
			if call.Options == nil || call.Options.Title != "my video" {
				t.Errorf("tiktok投递应附带选项载荷")
			}
		case model.PlatformFacebook:
			if call.Options != nil {
				t.Errorf("facebook投递不应附带选项载荷")
			}
		}
	}
}

// TestSubmitAllOutcomes 全成与全败的状态归类
func TestSubmitAllOutcomes(t *testing.T) {
	env := newTestEnv(t)
	draft := env.mustCreateDraft(t, "hello", []string{model.PlatformFacebook})

	summary, err := env.svc.Submit(context.Background(), &model.SubmitRequest{
		DraftID:  draft.ID,
		Accounts: []model.SelectedAccount{{Platform: model.PlatformFacebook, AccountID: "fb-1"}},
	})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if summary.Status != model.SubmissionStatusSucceeded {
		t.Errorf("全成应为succeeded, 实际 %s", summary.Status)
	}

	// 成功后草稿进入submitted状态
	saved, _ := env.svc.GetDraft(context.Background(), draft.ID)
	if saved.Status != model.DraftStatusSubmitted {
		t.Errorf("成功后草稿应为submitted, 实际 %s", saved.Status)
	}

	// 全部失败
	draft2 := env.mustCreateDraft(t, "hello", []string{model.PlatformFacebook})
	env.dispatcher.failOn(model.PlatformFacebook, "fb-dead", fmt.Errorf("network down"))
	summary, err = env.svc.Submit(context.Background(), &model.SubmitRequest{
		DraftID:  draft2.ID,
		Accounts: []model.SelectedAccount{{Platform: model.PlatformFacebook, AccountID: "fb-dead"}},
	})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if summary.Status != model.SubmissionStatusFailed {
		t.Errorf("全败应为failed, 实际 %s", summary.Status)
	}
}

// TestSubmitMediaTypeDiscriminator 无媒体为text,有媒体按首项类型
func TestSubmitMediaTypeDiscriminator(t *testing.T) {
	env := newTestEnv(t)
	draft := env.mustCreateDraft(t, "hello", []string{model.PlatformFacebook})

	_, err := env.svc.Submit(context.Background(), &model.SubmitRequest{
		DraftID:  draft.ID,
		Accounts: []model.SelectedAccount{{Platform: model.PlatformFacebook, AccountID: "fb-1"}},
	})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if env.dispatcher.calls[0].MediaType != model.MediaTypeText {
		t.Errorf("无媒体应为text, 实际 %s", env.dispatcher.calls[0].MediaType)
	}

	draft2 := env.mustCreateDraft(t, "hello", []string{model.PlatformFacebook})
	_ = env.dao.CreateMediaItem(context.Background(), &model.MediaItem{
		ID: 11, DraftID: draft2.ID, MediaType: model.MediaTypeImage, SortOrder: 0,
	})
	_, err = env.svc.Submit(context.Background(), &model.SubmitRequest{
		DraftID:  draft2.ID,
		Accounts: []model.SelectedAccount{{Platform: model.PlatformFacebook, AccountID: "fb-1"}},
	})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	last := env.dispatcher.calls[len(env.dispatcher.calls)-1]
	if last.MediaType != model.MediaTypeImage {
		t.Errorf("有图片应为image, 实际 %s", last.MediaType)
	}
	if len(last.Media) != 1 {
		t.Errorf("投递载荷应携带媒体引用")
	}
}
