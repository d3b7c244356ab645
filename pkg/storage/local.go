package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"crosspost/pkg/logger"
)

// AssetStore 媒体资产存储接口
// 预览图、缩略图这类本地生成的资源都归它管：谁创建谁释放
type AssetStore interface {
	// Save 写入资产并返回可访问的URL
	Save(ctx context.Context, key string, body io.Reader) (string, error)
	// Open 读取资产内容
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Path 返回资产落盘路径
	Path(key string) string
	// URL 返回资产的访问URL
	URL(key string) string
	// Release 释放资产，释放后URL不再可用
	Release(ctx context.Context, key string) error
	// Exists 检查资产是否存在
	Exists(key string) bool
}

// LocalStore 本地文件系统资产存储
type LocalStore struct {
	rootDir string
	baseURL string
	logger  logger.Logger
}

// NewLocalStore 创建本地资产存储
func NewLocalStore(rootDir, baseURL string, log logger.Logger) (*LocalStore, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("资产存储目录不能为空")
	}

	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset directory: %w", err)
	}

	return &LocalStore{
		rootDir: rootDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  log,
	}, nil
}

// Save 写入资产并返回可访问的URL
func (s *LocalStore) Save(ctx context.Context, key string, body io.Reader) (string, error) {
	fullPath := s.Path(key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, body)
	if err != nil {
		// 写入失败时不留半成品
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug(ctx, "Asset saved",
		logger.F("key", key),
		logger.F("bytes", written))

	return s.URL(key), nil
}

// Open 读取资产内容
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("资产不存在: %s", key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Path 返回资产落盘路径
func (s *LocalStore) Path(key string) string {
	return filepath.Join(s.rootDir, filepath.FromSlash(key))
}

// URL 返回资产的访问URL
func (s *LocalStore) URL(key string) string {
	return s.baseURL + "/" + filepath.ToSlash(key)
}

// Release 释放资产。释放是幂等的，重复释放不算错误
func (s *LocalStore) Release(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	err := os.Remove(s.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release asset %s: %w", key, err)
	}

	s.logger.Debug(ctx, "Asset released", logger.F("key", key))
	return nil
}

// Exists 检查资产是否存在
func (s *LocalStore) Exists(key string) bool {
	_, err := os.Stat(s.Path(key))
	return err == nil
}
