package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"crosspost/apps/composer-service/model"
	"crosspost/pkg/logger"
	"crosspost/pkg/platform"
	"crosspost/pkg/storage"
)

// httpDispatcher 把投递请求编码成multipart表单发往平台适配端点
// 表单结构:post字段放JSON描述,每个媒体文件一个二进制字段,
// 同ID的meta字段携带宽高,平台选项单独一个结构化字段
type httpDispatcher struct {
	connectors *platform.ConnectorManager
	store      storage.AssetStore
	logger     logger.Logger
}

// NewHTTPDispatcher 创建平台投递客户端
func NewHTTPDispatcher(connectors *platform.ConnectorManager, store storage.AssetStore, log logger.Logger) Dispatcher {
	return &httpDispatcher{
		connectors: connectors,
		store:      store,
		logger:     log,
	}
}

// Dispatch 投递一个(平台,账号)对
func (d *httpDispatcher) Dispatch(ctx context.Context, req *model.PostSubmissionRequest) error {
	conn, err := d.connectors.GetConnector(req.Platform)
	if err != nil {
		return err
	}
	url := strings.TrimRight(conn.Endpoint, "/") + "/api/v1/posts"

	resp, err := d.connectors.DoWithRetry(ctx, req.Platform, func() (*http.Request, error) {
		return d.buildRequest(ctx, url, req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("平台 %s 拒绝投递: 状态 %d, %s", req.Platform, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	d.logger.Info(ctx, "Dispatch delivered",
		logger.F("platform", req.Platform),
		logger.F("accountID", req.AccountID),
		logger.F("submissionID", req.SubmissionID))
	return nil
}

// buildRequest 重试时每次重新构造请求,媒体内容从存储流式读出
func (d *httpDispatcher) buildRequest(ctx context.Context, url string, req *model.PostSubmissionRequest) (*http.Request, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := d.writeForm(ctx, writer, req)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	return httpReq, nil
}

func (d *httpDispatcher) writeForm(ctx context.Context, writer *multipart.Writer, req *model.PostSubmissionRequest) error {
	descriptor, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("编码投递描述失败: %v", err)
	}
	if err := writer.WriteField("post", string(descriptor)); err != nil {
		return err
	}

	for _, item := range req.Media {
		if err := d.writeMediaPart(ctx, writer, item); err != nil {
			return err
		}
		meta := fmt.Sprintf("%dx%d", item.Width, item.Height)
		if err := writer.WriteField(fmt.Sprintf("meta[%d]", item.ID), meta); err != nil {
			return err
		}
	}

	if req.Options != nil {
		options, err := json.Marshal(req.Options)
		if err != nil {
			return fmt.Errorf("编码平台选项失败: %v", err)
		}
		if err := writer.WriteField("short_video_options", string(options)); err != nil {
			return err
		}
	}
	return nil
}

func (d *httpDispatcher) writeMediaPart(ctx context.Context, writer *multipart.Writer, item *model.MediaItem) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="media[%d]"; filename=%q`, item.ID, item.Filename))
	if item.MimeType != "" {
		header.Set("Content-Type", item.MimeType)
	}

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	src, err := d.store.Open(ctx, item.AssetKey)
	if err != nil {
		return fmt.Errorf("读取媒体文件失败: %v", err)
	}
	defer src.Close()

	_, err = io.Copy(part, src)
	return err
}
