package service

import (
	"crosspost/apps/composer-service/model"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

// platformConstraints 各平台媒体规则表,进程启动时定义,不可变
// 取不到对应平台时回落到general
var platformConstraints = map[string]*model.PlatformConstraint{
	model.PlatformGeneral: {
		Platform:      model.PlatformGeneral,
		MaxFileSizeMB: f64(512),
		AllowedMediaTypes: []string{
			"image/jpeg", "image/png", "image/gif", "image/webp",
			"video/mp4", "video/quicktime",
		},
	},
	model.PlatformTikTok: {
		Platform:      model.PlatformTikTok,
		MaxFileSizeMB: f64(287),
		AllowedMediaTypes: []string{
			"image/jpeg", "image/png", "image/webp",
			"video/mp4", "video/quicktime", "video/webm",
		},
		Image: &model.ImageRule{
			MinDimensions: &model.Dimensions{Width: 360, Height: 360},
			AspectRatios:  []model.AspectRatio{{W: 9, H: 16}, {W: 1, H: 1}},
		},
		Video: &model.VideoRule{
			MinDimensions:      &model.Dimensions{Width: 360, Height: 360},
			MinDurationSeconds: f64(3),
			MaxDurationSeconds: f64(600),
			MaxBitrateKbps:     i64(16000),
			AspectRatios:       []model.AspectRatio{{W: 9, H: 16}, {W: 1, H: 1}, {W: 16, H: 9}},
		},
	},
	model.PlatformInstagram: {
		Platform:      model.PlatformInstagram,
		MaxFileSizeMB: f64(100),
		AllowedMediaTypes: []string{
			"image/jpeg", "image/png",
			"video/mp4", "video/quicktime",
		},
		Image: &model.ImageRule{
			MinDimensions: &model.Dimensions{Width: 320, Height: 320},
			MaxDimensions: &model.Dimensions{Width: 1080, Height: 1350},
			AspectRatios:  []model.AspectRatio{{W: 1, H: 1}, {W: 4, H: 5}, {W: 9, H: 16}},
		},
		Video: &model.VideoRule{
			MinDurationSeconds: f64(3),
			MaxDurationSeconds: f64(90),
			AspectRatios:       []model.AspectRatio{{W: 9, H: 16}},
		},
	},
	model.PlatformYouTube: {
		Platform: model.PlatformYouTube,
		AllowedMediaTypes: []string{
			"video/mp4", "video/quicktime", "video/webm", "video/x-matroska",
		},
		Video: &model.VideoRule{
			MinDimensions:      &model.Dimensions{Width: 426, Height: 240},
			MinDurationSeconds: f64(1),
		},
	},
	model.PlatformX: {
		Platform:      model.PlatformX,
		MaxFileSizeMB: f64(512),
		AllowedMediaTypes: []string{
			"image/jpeg", "image/png", "image/gif", "image/webp",
			"video/mp4",
		},
		Image: &model.ImageRule{
			MaxDimensions: &model.Dimensions{Width: 8192, Height: 8192},
		},
		Video: &model.VideoRule{
			MinDurationSeconds: f64(0.5),
			MaxDurationSeconds: f64(140),
			MaxBitrateKbps:     i64(25000),
			AspectRatios:       []model.AspectRatio{{W: 16, H: 9}, {W: 1, H: 1}},
		},
	},
	model.PlatformFacebook: {
		Platform:      model.PlatformFacebook,
		MaxFileSizeMB: f64(1024),
		AllowedMediaTypes: []string{
			"image/jpeg", "image/png", "image/gif", "image/webp",
			"video/mp4", "video/quicktime",
		},
		Video: &model.VideoRule{
			MaxDurationSeconds: f64(14400),
		},
	},
	model.PlatformLinkedIn: {
		Platform:      model.PlatformLinkedIn,
		MaxFileSizeMB: f64(200),
		AllowedMediaTypes: []string{
			"image/jpeg", "image/png", "image/gif",
			"video/mp4", "video/quicktime",
		},
		Video: &model.VideoRule{
			MinDimensions:      &model.Dimensions{Width: 256, Height: 144},
			MaxDimensions:      &model.Dimensions{Width: 4096, Height: 2304},
			MinDurationSeconds: f64(3),
			MaxDurationSeconds: f64(600),
			AspectRatios:       []model.AspectRatio{{W: 16, H: 9}, {W: 1, H: 1}, {W: 9, H: 16}},
		},
	},
}

// GetPlatformConstraint 获取单个平台的约束,未知平台回落到general
// 返回深拷贝,调用方可以随意改动
func GetPlatformConstraint(platform string) *model.PlatformConstraint {
	c, ok := platformConstraints[platform]
	if !ok {
		c = platformConstraints[model.PlatformGeneral]
	}
	return copyConstraint(c)
}

// CombineConstraints 把多个平台的规则合并成一套有效约束
// 合并原则:通过合并校验的文件,对每个入选平台单独校验也必须通过
//   - 允许类型取交集,未限制类型的平台不参与交集
//   - 大小/时长/尺寸上限取最小值,尺寸/时长下限取最大值
//   - 宽高比不做合并,仅作提示性传递
//
// 空平台集返回general,单平台原样返回(深拷贝)
func CombineConstraints(platforms []string) *model.EffectiveConstraints {
	if len(platforms) == 0 {
		c := GetPlatformConstraint(model.PlatformGeneral)
		return &model.EffectiveConstraints{
			Platforms:         []string{model.PlatformGeneral},
			MaxFileSizeMB:     c.MaxFileSizeMB,
			AllowedMediaTypes: c.AllowedMediaTypes,
			Image:             c.Image,
			Video:             c.Video,
		}
	}

	eff := &model.EffectiveConstraints{
		Platforms: append([]string(nil), platforms...),
	}
	first := GetPlatformConstraint(platforms[0])
	eff.MaxFileSizeMB = first.MaxFileSizeMB
	eff.AllowedMediaTypes = first.AllowedMediaTypes
	eff.Image = first.Image
	eff.Video = first.Video

	for _, p := range platforms[1:] {
		c := GetPlatformConstraint(p)
		eff.MaxFileSizeMB = minF64(eff.MaxFileSizeMB, c.MaxFileSizeMB)
		eff.AllowedMediaTypes = intersectTypes(eff.AllowedMediaTypes, c.AllowedMediaTypes)
		eff.Image = combineImageRules(eff.Image, c.Image)
		eff.Video = combineVideoRules(eff.Video, c.Video)
	}
	return eff
}

// intersectTypes 允许类型取交集,nil视为不限制
func intersectTypes(a, b []string) []string {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	set := make(map[string]bool, len(b))
	for _, t := range b {
		set[t] = true
	}
	result := make([]string, 0, len(a))
	for _, t := range a {
		if set[t] {
			result = append(result, t)
		}
	}
	return result
}

func combineImageRules(a, b *model.ImageRule) *model.ImageRule {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &model.ImageRule{
		MinDimensions: maxDims(a.MinDimensions, b.MinDimensions),
		MaxDimensions: minDims(a.MaxDimensions, b.MaxDimensions),
		AspectRatios:  a.AspectRatios,
	}
}

func combineVideoRules(a, b *model.VideoRule) *model.VideoRule {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &model.VideoRule{
		MinDimensions:      maxDims(a.MinDimensions, b.MinDimensions),
		MaxDimensions:      minDims(a.MaxDimensions, b.MaxDimensions),
		MinDurationSeconds: maxF64(a.MinDurationSeconds, b.MinDurationSeconds),
		MaxDurationSeconds: minF64(a.MaxDurationSeconds, b.MaxDurationSeconds),
		MaxBitrateKbps:     minI64(a.MaxBitrateKbps, b.MaxBitrateKbps),
		AspectRatios:       a.AspectRatios,
	}
}

// minDims 逐轴取最小,nil视为无限制
func minDims(a, b *model.Dimensions) *model.Dimensions {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &model.Dimensions{
		Width:  minInt(a.Width, b.Width),
		Height: minInt(a.Height, b.Height),
	}
}

// maxDims 逐轴取最大,nil视为无限制
func maxDims(a, b *model.Dimensions) *model.Dimensions {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &model.Dimensions{
		Width:  maxInt(a.Width, b.Width),
		Height: maxInt(a.Height, b.Height),
	}
}

func minF64(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a <= *b {
		return a
	}
	return b
}

func maxF64(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a >= *b {
		return a
	}
	return b
}

func minI64(a, b *int64) *int64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a <= *b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func copyConstraint(c *model.PlatformConstraint) *model.PlatformConstraint {
	out := &model.PlatformConstraint{
		Platform: c.Platform,
	}
	if c.MaxFileSizeMB != nil {
		v := *c.MaxFileSizeMB
		out.MaxFileSizeMB = &v
	}
	if c.AllowedMediaTypes != nil {
		out.AllowedMediaTypes = append([]string(nil), c.AllowedMediaTypes...)
	}
	if c.Image != nil {
		out.Image = &model.ImageRule{
			MinDimensions: copyDims(c.Image.MinDimensions),
			MaxDimensions: copyDims(c.Image.MaxDimensions),
			AspectRatios:  append([]model.AspectRatio(nil), c.Image.AspectRatios...),
		}
	}
	if c.Video != nil {
		out.Video = &model.VideoRule{
			MinDimensions: copyDims(c.Video.MinDimensions),
			MaxDimensions: copyDims(c.Video.MaxDimensions),
			AspectRatios:  append([]model.AspectRatio(nil), c.Video.AspectRatios...),
		}
		if c.Video.MinDurationSeconds != nil {
			v := *c.Video.MinDurationSeconds
			out.Video.MinDurationSeconds = &v
		}
		if c.Video.MaxDurationSeconds != nil {
			v := *c.Video.MaxDurationSeconds
			out.Video.MaxDurationSeconds = &v
		}
		if c.Video.MaxBitrateKbps != nil {
			v := *c.Video.MaxBitrateKbps
			out.Video.MaxBitrateKbps = &v
		}
	}
	return out
}

func copyDims(d *model.Dimensions) *model.Dimensions {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
