package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crosspost/apps/composer-service/model"
	"crosspost/pkg/config"
	"crosspost/pkg/logger"
	"crosspost/pkg/platform"
	"crosspost/pkg/storage"
)

// TestHTTPDispatcherWireFormat 校验出站multipart表单的结构
// post字段放JSON描述,每个媒体一个二进制字段,同ID的meta字段带宽高,
// 平台选项是独立的结构化字段
func TestHTTPDispatcherWireFormat(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost/assets", logger.GetLogger())
	if err != nil {
		t.Fatalf("创建测试存储失败: %v", err)
	}
	if _, err := store.Save(context.Background(), "drafts/1/42.jpg", bytes.NewReader([]byte("fake-jpeg-bytes"))); err != nil {
		t.Fatalf("写测试资产失败: %v", err)
	}

	type captured struct {
		descriptor map[string]interface{}
		mediaBody  string
		mediaMime  string
		meta       string
		options    map[string]interface{}
	}
	var got captured

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/posts" {
			t.Errorf("投递路径应为/api/v1/posts, 实际 %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("解析multipart失败: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.Unmarshal([]byte(r.FormValue("post")), &got.descriptor)
		got.meta = r.FormValue("meta[42]")
		if v := r.FormValue("short_video_options"); v != "" {
			_ = json.Unmarshal([]byte(v), &got.options)
		}
		if fhs := r.MultipartForm.File["media[42]"]; len(fhs) == 1 {
			got.mediaMime = fhs[0].Header.Get("Content-Type")
			f, _ := fhs[0].Open()
			body, _ := io.ReadAll(f)
			f.Close()
			got.mediaBody = string(body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Dispatch.Endpoints = map[string]string{model.PlatformTikTok: srv.URL}
	cfg.Dispatch.Timeout = "5s"
	cfg.Dispatch.Retries = 1

	connectors := platform.NewConnectorManager(cfg, logger.NewKratosStdLogger("dispatch-test", "test"))
	dispatcher := NewHTTPDispatcher(connectors, store, logger.GetLogger())

	req := &model.PostSubmissionRequest{
		SubmissionID: 7,
		DraftID:      1,
		Platform:     model.PlatformTikTok,
		AccountID:    "tt-1",
		Caption:      "hello world",
		MediaType:    model.MediaTypeImage,
		Media: []*model.MediaItem{{
			ID:       42,
			DraftID:  1,
			Filename: "photo.jpg",
			MimeType: "image/jpeg",
			Width:    1080,
			Height:   1920,
			AssetKey: "drafts/1/42.jpg",
		}},
		Options: &model.ShortVideoOptions{Title: "my video", AgreedToPolicy: true},
	}
	if err := dispatcher.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("投递失败: %v", err)
	}

	if got.descriptor["content"] != "hello world" {
		t.Errorf("描述字段content应为文案, 实际 %v", got.descriptor["content"])
	}
	if got.descriptor["media_type"] != "image" {
		t.Errorf("描述字段media_type不对: %v", got.descriptor["media_type"])
	}
	if got.descriptor["account_id"] != "tt-1" {
		t.Errorf("描述字段account_id不对: %v", got.descriptor["account_id"])
	}
	if got.mediaBody != "fake-jpeg-bytes" {
		t.Errorf("媒体内容应原样透传, 实际 %q", got.mediaBody)
	}
	if got.mediaMime != "image/jpeg" {
		t.Errorf("媒体字段应带MIME, 实际 %q", got.mediaMime)
	}
	if got.meta != "1080x1920" {
		t.Errorf("meta字段应为宽x高, 实际 %q", got.meta)
	}
	if got.options == nil || got.options["title"] != "my video" {
		t.Errorf("选项载荷应为独立字段, 实际 %v", got.options)
	}
}

// TestHTTPDispatcherRejectedStatus 非2xx响应视为投递失败
func TestHTTPDispatcherRejectedStatus(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost/assets", logger.GetLogger())
	if err != nil {
		t.Fatalf("创建测试存储失败: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Dispatch.Endpoints = map[string]string{model.PlatformX: srv.URL}
	cfg.Dispatch.Timeout = "5s"
	cfg.Dispatch.Retries = 1

	connectors := platform.NewConnectorManager(cfg, logger.NewKratosStdLogger("dispatch-test", "test"))
	dispatcher := NewHTTPDispatcher(connectors, store, logger.GetLogger())

	err = dispatcher.Dispatch(context.Background(), &model.PostSubmissionRequest{
		Platform:  model.PlatformX,
		AccountID: "x-1",
		Caption:   "hello",
		MediaType: model.MediaTypeText,
	})
	if err == nil {
		t.Fatalf("429应视为投递失败")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("错误应包含状态码, 实际 %v", err)
	}
}

// TestHTTPDispatcherUnknownPlatform 未配置端点的平台直接报错
func TestHTTPDispatcherUnknownPlatform(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost/assets", logger.GetLogger())
	if err != nil {
		t.Fatalf("创建测试存储失败: %v", err)
	}

	cfg := &config.Config{}
	cfg.Dispatch.Endpoints = map[string]string{}
	cfg.Dispatch.Timeout = "5s"

	connectors := platform.NewConnectorManager(cfg, logger.NewKratosStdLogger("dispatch-test", "test"))
	dispatcher := NewHTTPDispatcher(connectors, store, logger.GetLogger())

	err = dispatcher.Dispatch(context.Background(), &model.PostSubmissionRequest{
		Platform: "nowhere", AccountID: "a", Caption: "x", MediaType: model.MediaTypeText,
	})
	if err == nil {
		t.Fatalf("未配置端点应报错")
	}
}
