package service

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"strings"

	"github.com/abema/go-mp4"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"crosspost/apps/composer-service/model"
)

// DetectMediaType 根据MIME判断媒体类型,非图非视频返回空串
func DetectMediaType(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return model.MediaTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return model.MediaTypeVideo
	}
	return ""
}

// detectMimeType 嗅探文件内容得到MIME,失败时退回扩展名推断为空串
func detectMimeType(path string) string {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	// mimetype可能带参数,如 video/mp4; codecs=...
	return strings.Split(m.String(), ";")[0]
}

// extractFileMeta 尽力提取文件元数据,任何失败都返回空元数据而不报错
// 空元数据会让依赖尺寸/时长的检查被跳过
func extractFileMeta(path, mediaType string) model.FileMeta {
	switch mediaType {
	case model.MediaTypeImage:
		return extractImageMeta(path)
	case model.MediaTypeVideo:
		return extractVideoMeta(path)
	}
	return model.FileMeta{}
}

func extractImageMeta(path string) model.FileMeta {
	f, err := os.Open(path)
	if err != nil {
		return model.FileMeta{}
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return model.FileMeta{}
	}
	return model.FileMeta{Width: cfg.Width, Height: cfg.Height}
}

// extractVideoMeta 解析MP4容器取时长和轨道尺寸
func extractVideoMeta(path string) model.FileMeta {
	f, err := os.Open(path)
	if err != nil {
		return model.FileMeta{}
	}
	defer f.Close()

	var meta model.FileMeta

	info, err := mp4.Probe(f)
	if err != nil {
		return model.FileMeta{}
	}
	if info.Timescale > 0 {
		meta.DurationSeconds = float64(info.Duration) / float64(info.Timescale)
	}

	if _, err := f.Seek(0, 0); err != nil {
		return meta
	}
	// tkhd里的宽高是16.16定点数,取视频轨道的第一个非零值
	_, _ = mp4.ReadBoxStructure(f, func(h *mp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case mp4.BoxTypeMoov(), mp4.BoxTypeTrak():
			return h.Expand()
		case mp4.BoxTypeTkhd():
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			tkhd, ok := box.(*mp4.Tkhd)
			if ok && meta.Width == 0 && tkhd.Width > 0 && tkhd.Height > 0 {
				meta.Width = int(tkhd.Width >> 16)
				meta.Height = int(tkhd.Height >> 16)
			}
		}
		return nil, nil
	})
	return meta
}

// ValidateFile 按有效约束校验单个文件
// 硬性错误拒收,软性提醒放行;元数据提取失败只会跳过相关检查
func ValidateFile(upload model.FileUpload, eff *model.EffectiveConstraints) *model.ValidationVerdict {
	mimeType := detectMimeType(upload.Path)
	mediaType := DetectMediaType(mimeType)
	meta := extractFileMeta(upload.Path, mediaType)
	return validateWithMeta(upload, mimeType, mediaType, meta, eff)
}

// validateWithMeta 用已提取的元数据执行检查,便于单独测试各规则
func validateWithMeta(upload model.FileUpload, mimeType, mediaType string, meta model.FileMeta, eff *model.EffectiveConstraints) *model.ValidationVerdict {
	verdict := &model.ValidationVerdict{
		MediaType: mediaType,
		MimeType:  mimeType,
		Meta:      meta,
	}

	// MIME类型必须在允许集合内
	if eff.AllowedMediaTypes != nil && !containsString(eff.AllowedMediaTypes, mimeType) {
		verdict.HardErrors = append(verdict.HardErrors,
			fmt.Sprintf("不支持的文件类型 %s", mimeType))
	}

	// 文件大小上限
	if eff.MaxFileSizeMB != nil {
		sizeMB := float64(upload.Size) / (1024 * 1024)
		if sizeMB > *eff.MaxFileSizeMB {
			verdict.HardErrors = append(verdict.HardErrors,
				fmt.Sprintf("文件大小 %.1fMB 超过上限 %.0fMB", sizeMB, *eff.MaxFileSizeMB))
		}
	}

	var minDims, maxDims *model.Dimensions
	var ratios []model.AspectRatio
	switch mediaType {
	case model.MediaTypeImage:
		if eff.Image != nil {
			minDims = eff.Image.MinDimensions
			maxDims = eff.Image.MaxDimensions
			ratios = eff.Image.AspectRatios
		}
	case model.MediaTypeVideo:
		if eff.Video != nil {
			minDims = eff.Video.MinDimensions
			maxDims = eff.Video.MaxDimensions
			ratios = eff.Video.AspectRatios
		}
	}

	// 尺寸下限不足是硬性错误,上限超出只提醒(平台会自行压缩)
	if meta.HasDimensions() {
		if minDims != nil && (meta.Width < minDims.Width || meta.Height < minDims.Height) {
			verdict.HardErrors = append(verdict.HardErrors,
				fmt.Sprintf("尺寸 %dx%d 低于最小要求 %dx%d",
					meta.Width, meta.Height, minDims.Width, minDims.Height))
		}
		if maxDims != nil && (meta.Width > maxDims.Width || meta.Height > maxDims.Height) {
			verdict.SoftWarnings = append(verdict.SoftWarnings,
				fmt.Sprintf("尺寸 %dx%d 超过建议上限 %dx%d,平台可能压缩",
					meta.Width, meta.Height, maxDims.Width, maxDims.Height))
		}
	}

	// 视频时长出界是硬性错误
	if mediaType == model.MediaTypeVideo && eff.Video != nil && meta.HasDuration() {
		if eff.Video.MinDurationSeconds != nil && meta.DurationSeconds < *eff.Video.MinDurationSeconds {
			verdict.HardErrors = append(verdict.HardErrors,
				fmt.Sprintf("时长 %.1f秒 短于最小要求 %.1f秒",
					meta.DurationSeconds, *eff.Video.MinDurationSeconds))
		}
		if eff.Video.MaxDurationSeconds != nil && meta.DurationSeconds > *eff.Video.MaxDurationSeconds {
			verdict.HardErrors = append(verdict.HardErrors,
				fmt.Sprintf("时长 %.1f秒 超过上限 %.1f秒",
					meta.DurationSeconds, *eff.Video.MaxDurationSeconds))
		}
	}

	// 宽高比仅提醒,比值取两位小数并允许0.05绝对容差
	if meta.HasDimensions() && len(ratios) > 0 {
		ratio := math.Round(float64(meta.Width)/float64(meta.Height)*100) / 100
		matched := false
		for _, r := range ratios {
			if math.Abs(ratio-r.Value()) <= model.AspectRatioTolerance {
				matched = true
				break
			}
		}
		if !matched {
			verdict.SoftWarnings = append(verdict.SoftWarnings,
				fmt.Sprintf("宽高比 %.2f 不在建议范围内", ratio))
		}
	}

	verdict.Valid = len(verdict.HardErrors) == 0
	verdict.Message = composeVerdictMessage(upload.Filename, verdict)
	return verdict
}

// composeVerdictMessage 拼接给用户看的校验结论
func composeVerdictMessage(filename string, v *model.ValidationVerdict) string {
	if !v.Valid {
		return fmt.Sprintf("%s: %s", filename, strings.Join(v.HardErrors, "; "))
	}
	if len(v.SoftWarnings) > 0 {
		return fmt.Sprintf("%s: %s", filename, strings.Join(v.SoftWarnings, "; "))
	}
	return ""
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
