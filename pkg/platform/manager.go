package platform

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	kratoslog "github.com/go-kratos/kratos/v2/log"

	"crosspost/pkg/config"
)

// Connector 单个平台连接器的出站通道
type Connector struct {
	Platform string
	Endpoint string
	client   *http.Client
}

// Do 执行出站请求
func (c *Connector) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// ConnectorManager 平台连接器管理器
// 每个平台一个HTTP客户端，按需创建并复用
type ConnectorManager struct {
	config     *config.Config
	logger     kratoslog.Logger
	timeout    time.Duration
	connectors map[string]*Connector
	mu         sync.RWMutex
}

// NewConnectorManager 创建平台连接器管理器
func NewConnectorManager(cfg *config.Config, logger kratoslog.Logger) *ConnectorManager {
	timeout := 60 * time.Second
	if d, err := time.ParseDuration(cfg.Dispatch.Timeout); err == nil {
		timeout = d
	}

	return &ConnectorManager{
		config:     cfg,
		logger:     logger,
		timeout:    timeout,
		connectors: make(map[string]*Connector),
	}
}

// GetConnector 获取平台连接器
func (cm *ConnectorManager) GetConnector(platform string) (*Connector, error) {
	cm.mu.RLock()
	if conn, exists := cm.connectors[platform]; exists {
		cm.mu.RUnlock()
		return conn, nil
	}
	cm.mu.RUnlock()

	cm.mu.Lock()
	defer cm.mu.Unlock()

	// 双重检查
	if conn, exists := cm.connectors[platform]; exists {
		return conn, nil
	}

	endpoint, ok := cm.config.Dispatch.Endpoints[platform]
	if !ok {
		return nil, fmt.Errorf("平台 %s 未配置投递地址", platform)
	}

	conn := &Connector{
		Platform: platform,
		Endpoint: endpoint,
		client:   &http.Client{Timeout: cm.timeout},
	}
	cm.connectors[platform] = conn

	cm.logger.Log(kratoslog.LevelInfo, "msg", "Platform connector created",
		"platform", platform, "endpoint", endpoint)

	return conn, nil
}

// DoWithRetry 带重试执行出站请求，请求体由builder每次重新构造
func (cm *ConnectorManager) DoWithRetry(ctx context.Context, platform string,
	builder func() (*http.Request, error)) (*http.Response, error) {

	conn, err := cm.GetConnector(platform)
	if err != nil {
		return nil, err
	}

	retries := cm.config.Dispatch.Retries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for i := 0; i < retries; i++ {
		req, err := builder()
		if err != nil {
			return nil, err
		}

		resp, err := conn.Do(req.WithContext(ctx))
		if err == nil {
			return resp, nil
		}

		lastErr = err
		cm.logger.Log(kratoslog.LevelWarn, "msg", "Platform request failed, retrying",
			"platform", platform, "attempt", i+1, "error", err)

		if i < retries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i+1) * time.Second):
			}
		}
	}

	return nil, fmt.Errorf("failed to reach platform %s after %d attempts: %w", platform, retries, lastErr)
}
