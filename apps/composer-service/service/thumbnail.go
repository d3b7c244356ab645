package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/image/draw"

	"crosspost/apps/composer-service/model"
)

// thumbnailMaxEdge 缩略图最长边像素
const thumbnailMaxEdge = 320

// clampCoverTime 把封面时间夹在[0, 时长-0.1]内,非法输入回落到默认第1秒
// 时长未知时原样返回非负值
func clampCoverTime(seconds, duration float64) float64 {
	if seconds < 0 {
		seconds = model.DefaultCoverTimeSeconds
	}
	if duration <= 0 {
		return seconds
	}
	limit := duration - model.CoverTimeEpsilonSeconds
	if limit < 0 {
		limit = 0
	}
	if seconds > limit {
		return limit
	}
	return seconds
}

// makeImageThumbnail 缩放图片生成JPEG缩略图
func makeImageThumbnail(srcPath string) ([]byte, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("打开图片失败: %v", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("解码图片失败: %v", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("图片尺寸无效")
	}

	tw, th := w, h
	if w >= h && w > thumbnailMaxEdge {
		tw = thumbnailMaxEdge
		th = h * thumbnailMaxEdge / w
	} else if h > w && h > thumbnailMaxEdge {
		th = thumbnailMaxEdge
		tw = w * thumbnailMaxEdge / h
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("编码缩略图失败: %v", err)
	}
	return buf.Bytes(), nil
}

// makeVideoThumbnail 用ffmpeg定位到目标时间抓一帧
// 环境没有ffmpeg时返回错误,调用方降级为无缩略图
func makeVideoThumbnail(ctx context.Context, srcPath string, atSeconds float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", strconv.FormatFloat(atSeconds, 'f', 2, 64),
		"-i", srcPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", thumbnailMaxEdge),
		"-f", "image2",
		"-vcodec", "mjpeg",
		"pipe:1",
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("抓取视频帧失败: %v", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("抓取视频帧失败: 无输出")
	}
	return out, nil
}
