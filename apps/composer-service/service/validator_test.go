package service

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crosspost/apps/composer-service/model"
)

// writeTestPNG 生成指定尺寸的PNG测试文件
func writeTestPNG(t *testing.T, width, height int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("创建测试图片失败: %v", err)
	}
	defer f.Close()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("编码测试图片失败: %v", err)
	}
	return path
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat失败: %v", err)
	}
	return info.Size()
}

// TestValidateRealImage 合规图片通过校验且提取到尺寸
func TestValidateRealImage(t *testing.T) {
	path := writeTestPNG(t, 400, 400)
	upload := model.FileUpload{Filename: "test.png", Size: fileSize(t, path), Path: path}

	eff := CombineConstraints([]string{model.PlatformInstagram})
	verdict := ValidateFile(upload, eff)

	if !verdict.Valid {
		t.Fatalf("400x400图片应通过instagram校验, 硬性错误: %v", verdict.HardErrors)
	}
	if verdict.MimeType != "image/png" {
		t.Errorf("应嗅探出image/png, 实际 %s", verdict.MimeType)
	}
	if verdict.Meta.Width != 400 || verdict.Meta.Height != 400 {
		t.Errorf("应提取到 400x400, 实际 %dx%d", verdict.Meta.Width, verdict.Meta.Height)
	}
	if len(verdict.SoftWarnings) != 0 {
		t.Errorf("1:1图片不应有提醒, 实际 %v", verdict.SoftWarnings)
	}
}

// TestValidateMimeRejected 类型不在允许集合内是硬性错误
func TestValidateMimeRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("plain text content"), 0o644); err != nil {
		t.Fatalf("写测试文件失败: %v", err)
	}
	upload := model.FileUpload{Filename: "note.txt", Size: 18, Path: path}

	verdict := ValidateFile(upload, CombineConstraints(nil))
	if verdict.Valid {
		t.Fatalf("文本文件不应通过校验")
	}
	if len(verdict.HardErrors) == 0 || !strings.Contains(verdict.HardErrors[0], "不支持的文件类型") {
		t.Errorf("应报类型错误, 实际 %v", verdict.HardErrors)
	}
	if verdict.Message == "" || !strings.Contains(verdict.Message, "note.txt") {
		t.Errorf("结论消息应包含文件名, 实际 %q", verdict.Message)
	}
}

// TestValidateSizeLimit 150MB文件对合并上限100MB是硬性错误
func TestValidateSizeLimit(t *testing.T) {
	eff := CombineConstraints([]string{model.PlatformTikTok, model.PlatformInstagram})
	upload := model.FileUpload{Filename: "big.jpg", Size: 150 * 1024 * 1024}
	meta := model.FileMeta{Width: 1000, Height: 1000}

	verdict := validateWithMeta(upload, "image/jpeg", model.MediaTypeImage, meta, eff)
	if verdict.Valid {
		t.Fatalf("150MB不应通过100MB上限")
	}
	found := false
	for _, e := range verdict.HardErrors {
		if strings.Contains(e, "超过上限") {
			found = true
		}
	}
	if !found {
		t.Errorf("应报大小错误, 实际 %v", verdict.HardErrors)
	}
}

// TestValidateMinDimensionsHard 低于尺寸下限是硬性错误
func TestValidateMinDimensionsHard(t *testing.T) {
	path := writeTestPNG(t, 100, 100)
	upload := model.FileUpload{Filename: "small.png", Size: fileSize(t, path), Path: path}

	verdict := ValidateFile(upload, CombineConstraints([]string{model.PlatformInstagram}))
	if verdict.Valid {
		t.Fatalf("100x100低于下限320x320, 不应通过")
	}
	found := false
	for _, e := range verdict.HardErrors {
		if strings.Contains(e, "低于最小要求") {
			found = true
		}
	}
	if !found {
		t.Errorf("应报尺寸下限错误, 实际 %v", verdict.HardErrors)
	}
}

// TestValidateMaxDimensionsSoft 超出尺寸上限只提醒不拒收
func TestValidateMaxDimensionsSoft(t *testing.T) {
	eff := CombineConstraints([]string{model.PlatformInstagram})
	upload := model.FileUpload{Filename: "huge.jpg", Size: 5 * 1024 * 1024}
	meta := model.FileMeta{Width: 4000, Height: 4000}

	verdict := validateWithMeta(upload, "image/jpeg", model.MediaTypeImage, meta, eff)
	if !verdict.Valid {
		t.Fatalf("超出上限应放行, 硬性错误: %v", verdict.HardErrors)
	}
	if len(verdict.SoftWarnings) != 1 {
		t.Fatalf("应恰好一条尺寸提醒, 实际 %v", verdict.SoftWarnings)
	}
	if !strings.Contains(verdict.SoftWarnings[0], "超过建议上限") {
		t.Errorf("提醒内容不对: %v", verdict.SoftWarnings[0])
	}
	if !strings.Contains(verdict.Message, "huge.jpg") {
		t.Errorf("提醒消息应包含文件名, 实际 %q", verdict.Message)
	}
}

// TestValidateDurationBounds 视频时长出界是硬性错误
func TestValidateDurationBounds(t *testing.T) {
	eff := CombineConstraints([]string{model.PlatformTikTok})
	upload := model.FileUpload{Filename: "clip.mp4", Size: 10 * 1024 * 1024}

	// 45秒9:16视频,3-600秒区间内,无任何提醒
	meta := model.FileMeta{Width: 1080, Height: 1920, DurationSeconds: 45}
	verdict := validateWithMeta(upload, "video/mp4", model.MediaTypeVideo, meta, eff)
	if !verdict.Valid || len(verdict.SoftWarnings) != 0 {
		t.Errorf("45秒9:16视频应干净通过, 错误 %v 提醒 %v", verdict.HardErrors, verdict.SoftWarnings)
	}

	// 太短
	meta.DurationSeconds = 2
	verdict = validateWithMeta(upload, "video/mp4", model.MediaTypeVideo, meta, eff)
	if verdict.Valid {
		t.Errorf("2秒视频不应通过3秒下限")
	}

	// 太长
	meta.DurationSeconds = 700
	verdict = validateWithMeta(upload, "video/mp4", model.MediaTypeVideo, meta, eff)
	if verdict.Valid {
		t.Errorf("700秒视频不应通过600秒上限")
	}
}

// TestValidateAspectRatioTolerance 宽高比容差0.05,出界只提醒
func TestValidateAspectRatioTolerance(t *testing.T) {
	eff := CombineConstraints([]string{model.PlatformInstagram})
	upload := model.FileUpload{Filename: "photo.jpg", Size: 1024}

	// 1:1 在推荐列表内
	meta := model.FileMeta{Width: 800, Height: 800}
	verdict := validateWithMeta(upload, "image/jpeg", model.MediaTypeImage, meta, eff)
	if len(verdict.SoftWarnings) != 0 {
		t.Errorf("1:1不应有比例提醒, 实际 %v", verdict.SoftWarnings)
	}

	// 4:3≈1.33 距最近的1:1超出容差
	meta = model.FileMeta{Width: 800, Height: 600}
	verdict = validateWithMeta(upload, "image/jpeg", model.MediaTypeImage, meta, eff)
	if !verdict.Valid {
		t.Fatalf("比例出界不应拒收")
	}
	found := false
	for _, w := range verdict.SoftWarnings {
		if strings.Contains(w, "宽高比") {
			found = true
		}
	}
	if !found {
		t.Errorf("应有比例提醒, 实际 %v", verdict.SoftWarnings)
	}
}

// TestValidateCorruptFileDegrades 元数据提取失败只跳过相关检查,不整体失败
func TestValidateCorruptFileDegrades(t *testing.T) {
	// PNG魔数加垃圾内容:类型能嗅探出来,解码必然失败
	path := filepath.Join(t.TempDir(), "corrupt.png")
	data := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, []byte("garbage")...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("写测试文件失败: %v", err)
	}
	upload := model.FileUpload{Filename: "corrupt.png", Size: int64(len(data)), Path: path}

	verdict := ValidateFile(upload, CombineConstraints([]string{model.PlatformInstagram}))
	if verdict.Meta.HasDimensions() {
		t.Fatalf("损坏文件不应提取到尺寸")
	}
	// 尺寸相关检查被跳过,不应报尺寸错误
	for _, e := range verdict.HardErrors {
		if strings.Contains(e, "尺寸") {
			t.Errorf("空元数据不应触发尺寸检查: %v", e)
		}
	}
}
