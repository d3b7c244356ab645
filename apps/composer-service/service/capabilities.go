package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"crosspost/apps/composer-service/model"
	"crosspost/pkg/logger"
	"crosspost/pkg/redis"
)

// accountCapabilityProvider 从账号服务拉取账号能力,经Redis缓存
type accountCapabilityProvider struct {
	baseURL string
	client  *http.Client
	redis   *redis.RedisClient
	ttl     time.Duration
	logger  logger.Logger
}

// NewAccountCapabilityProvider 创建账号能力查询客户端
func NewAccountCapabilityProvider(baseURL string, timeout, ttl time.Duration, rds *redis.RedisClient, log logger.Logger) CapabilityProvider {
	return &accountCapabilityProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		redis:   rds,
		ttl:     ttl,
		logger:  log,
	}
}

// GetCapabilities 查询账号能力,命中缓存直接返回
func (p *accountCapabilityProvider) GetCapabilities(ctx context.Context, platform, accountID string) (*model.AccountCapabilities, error) {
	cacheKey := fmt.Sprintf("%s%s:%s", model.RedisKeyCapabilities, platform, accountID)

	if p.redis != nil {
		cached, err := p.redis.Get(ctx, cacheKey)
		if err == nil && cached != "" {
			var caps model.AccountCapabilities
			if err := json.Unmarshal([]byte(cached), &caps); err == nil {
				return &caps, nil
			}
		} else if err != nil && !redis.IsNil(err) {
			p.logger.Warn(ctx, "Capability cache read failed",
				logger.F("platform", platform),
				logger.F("accountID", accountID),
				logger.F("error", err.Error()))
		}
	}

	caps, err := p.fetch(ctx, platform, accountID)
	if err != nil {
		return nil, err
	}

	if p.redis != nil {
		if data, err := json.Marshal(caps); err == nil {
			if err := p.redis.Set(ctx, cacheKey, string(data), p.ttl); err != nil {
				p.logger.Warn(ctx, "Capability cache write failed",
					logger.F("platform", platform),
					logger.F("accountID", accountID),
					logger.F("error", err.Error()))
			}
		}
	}
	return caps, nil
}

func (p *accountCapabilityProvider) fetch(ctx context.Context, platform, accountID string) (*model.AccountCapabilities, error) {
	url := fmt.Sprintf("%s/api/v1/accounts/%s/%s/capabilities", p.baseURL, platform, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("构造能力查询请求失败: %v", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("查询账号能力失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("账号服务返回异常状态: %d", resp.StatusCode)
	}

	var caps model.AccountCapabilities
	if err := json.NewDecoder(resp.Body).Decode(&caps); err != nil {
		return nil, fmt.Errorf("解析账号能力失败: %v", err)
	}
	caps.Platform = platform
	caps.AccountID = accountID
	return &caps, nil
}
