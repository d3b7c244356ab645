package service

import (
	"reflect"
	"testing"

	"crosspost/apps/composer-service/model"
)

// TestCombineEmptyPlatforms 空平台集回落到general
func TestCombineEmptyPlatforms(t *testing.T) {
	eff := CombineConstraints(nil)

	general := GetPlatformConstraint(model.PlatformGeneral)
	if !reflect.DeepEqual(eff.Platforms, []string{model.PlatformGeneral}) {
		t.Errorf("空集应回落到general, 实际 %v", eff.Platforms)
	}
	if *eff.MaxFileSizeMB != *general.MaxFileSizeMB {
		t.Errorf("大小上限应为general的 %v, 实际 %v", *general.MaxFileSizeMB, *eff.MaxFileSizeMB)
	}
	if !reflect.DeepEqual(eff.AllowedMediaTypes, general.AllowedMediaTypes) {
		t.Errorf("允许类型应为general的, 实际 %v", eff.AllowedMediaTypes)
	}
}

// TestCombineSingleton 单平台合并等于该平台自身规则
func TestCombineSingleton(t *testing.T) {
	eff := CombineConstraints([]string{model.PlatformTikTok})
	src := GetPlatformConstraint(model.PlatformTikTok)

	if *eff.MaxFileSizeMB != *src.MaxFileSizeMB {
		t.Errorf("单平台大小上限应为 %v, 实际 %v", *src.MaxFileSizeMB, *eff.MaxFileSizeMB)
	}
	if !reflect.DeepEqual(eff.AllowedMediaTypes, src.AllowedMediaTypes) {
		t.Errorf("单平台允许类型不一致: %v", eff.AllowedMediaTypes)
	}
	if !reflect.DeepEqual(eff.Image, src.Image) {
		t.Errorf("单平台图片规则不一致")
	}
	if !reflect.DeepEqual(eff.Video, src.Video) {
		t.Errorf("单平台视频规则不一致")
	}
}

// TestCombineDeepCopy 返回值是深拷贝,改动不能污染规则表
func TestCombineDeepCopy(t *testing.T) {
	eff := CombineConstraints([]string{model.PlatformTikTok})
	*eff.MaxFileSizeMB = 1
	eff.Video.MinDimensions.Width = 9999
	eff.AllowedMediaTypes[0] = "hacked"

	fresh := GetPlatformConstraint(model.PlatformTikTok)
	if *fresh.MaxFileSizeMB == 1 {
		t.Errorf("规则表的大小上限被外部污染")
	}
	if fresh.Video.MinDimensions.Width == 9999 {
		t.Errorf("规则表的尺寸下限被外部污染")
	}
	if fresh.AllowedMediaTypes[0] == "hacked" {
		t.Errorf("规则表的允许类型被外部污染")
	}
}

// TestCombineMaxFileSize 大小上限取各平台最小值
func TestCombineMaxFileSize(t *testing.T) {
	eff := CombineConstraints([]string{model.PlatformTikTok, model.PlatformInstagram})
	if *eff.MaxFileSizeMB != 100 {
		t.Errorf("tiktok(287)+instagram(100) 应取 100, 实际 %v", *eff.MaxFileSizeMB)
	}

	// 未限制大小的平台不参与取最小
	eff = CombineConstraints([]string{model.PlatformYouTube, model.PlatformLinkedIn})
	if eff.MaxFileSizeMB == nil || *eff.MaxFileSizeMB != 200 {
		t.Errorf("youtube(不限)+linkedin(200) 应取 200, 实际 %v", eff.MaxFileSizeMB)
	}
}

// TestCombineAllowedTypes 允许类型取交集,不限制的一方被排除
func TestCombineAllowedTypes(t *testing.T) {
	eff := CombineConstraints([]string{model.PlatformTikTok, model.PlatformInstagram})
	expected := []string{"image/jpeg", "image/png", "video/mp4", "video/quicktime"}
	if !reflect.DeepEqual(eff.AllowedMediaTypes, expected) {
		t.Errorf("类型交集应为 %v, 实际 %v", expected, eff.AllowedMediaTypes)
	}

	// nil视为不限制,交集即另一方
	got := intersectTypes(nil, []string{"image/png"})
	if !reflect.DeepEqual(got, []string{"image/png"}) {
		t.Errorf("nil与集合的交集应为集合本身, 实际 %v", got)
	}
	got = intersectTypes([]string{"image/png"}, nil)
	if !reflect.DeepEqual(got, []string{"image/png"}) {
		t.Errorf("集合与nil的交集应为集合本身, 实际 %v", got)
	}
}

// TestCombineDimensions 尺寸下限取最大,上限取最小
func TestCombineDimensions(t *testing.T) {
	eff := CombineConstraints([]string{model.PlatformTikTok, model.PlatformInstagram})

	if eff.Image == nil || eff.Image.MinDimensions == nil {
		t.Fatalf("合并后应保留图片尺寸下限")
	}
	if eff.Image.MinDimensions.Width != 360 || eff.Image.MinDimensions.Height != 360 {
		t.Errorf("下限应取最大 360x360, 实际 %dx%d",
			eff.Image.MinDimensions.Width, eff.Image.MinDimensions.Height)
	}
	if eff.Image.MaxDimensions == nil || eff.Image.MaxDimensions.Width != 1080 || eff.Image.MaxDimensions.Height != 1350 {
		t.Errorf("上限应取最小 1080x1350, 实际 %v", eff.Image.MaxDimensions)
	}
}

// TestCombineDuration 时长下限取最大,上限取最小
func TestCombineDuration(t *testing.T) {
	eff := CombineConstraints([]string{model.PlatformTikTok, model.PlatformInstagram})
	if *eff.Video.MinDurationSeconds != 3 {
		t.Errorf("时长下限应为 3, 实际 %v", *eff.Video.MinDurationSeconds)
	}
	if *eff.Video.MaxDurationSeconds != 90 {
		t.Errorf("时长上限应为 min(600,90)=90, 实际 %v", *eff.Video.MaxDurationSeconds)
	}

	eff = CombineConstraints([]string{model.PlatformX, model.PlatformTikTok})
	if *eff.Video.MinDurationSeconds != 3 {
		t.Errorf("x(0.5)+tiktok(3) 下限应取最大 3, 实际 %v", *eff.Video.MinDurationSeconds)
	}
	if *eff.Video.MaxDurationSeconds != 140 {
		t.Errorf("x(140)+tiktok(600) 上限应取最小 140, 实际 %v", *eff.Video.MaxDurationSeconds)
	}
}

// TestCombineBitrate 码率上限取最小
func TestCombineBitrate(t *testing.T) {
	eff := CombineConstraints([]string{model.PlatformTikTok, model.PlatformX})
	if eff.Video.MaxBitrateKbps == nil || *eff.Video.MaxBitrateKbps != 16000 {
		t.Errorf("码率上限应为 min(16000,25000)=16000, 实际 %v", eff.Video.MaxBitrateKbps)
	}
}

// TestCombineUnknownPlatform 未知平台按general处理
func TestCombineUnknownPlatform(t *testing.T) {
	c := GetPlatformConstraint("myspace")
	general := GetPlatformConstraint(model.PlatformGeneral)
	if *c.MaxFileSizeMB != *general.MaxFileSizeMB {
		t.Errorf("未知平台应回落到general")
	}
}
