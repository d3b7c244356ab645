package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"crosspost/apps/composer-service/model"
	"crosspost/pkg/logger"
	"crosspost/pkg/redis"
)

// WSHandler 投递进度推送处理器
// 订阅投递事件的Redis频道,把进度实时转发给浏览器
type WSHandler struct {
	redis  *redis.RedisClient
	logger logger.Logger
}

// NewWSHandler 创建WebSocket处理器
func NewWSHandler(rds *redis.RedisClient, log logger.Logger) *WSHandler {
	return &WSHandler{
		redis:  rds,
		logger: log,
	}
}

// HandleProgress 处理一条进度订阅连接
// 客户端通过 submission_id 查询参数指定要订阅的投递
func (h *WSHandler) HandleProgress(conn *websocket.Conn, r *http.Request) {
	defer conn.Close()
	ctx := r.Context()

	submissionID, err := strconv.ParseInt(r.URL.Query().Get("submission_id"), 10, 64)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"无效的submission_id"}`))
		return
	}

	channel := fmt.Sprintf("%s%d", model.RedisChanSubmission, submissionID)
	pubsub := h.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	h.logger.Info(ctx, "Progress subscriber connected",
		logger.F("submissionID", submissionID),
		logger.F("remoteAddr", r.RemoteAddr))

	// 先补发最近一条进度快照,订阅晚了也能看到当前阶段
	progressKey := fmt.Sprintf("%s%d", model.RedisKeySubmissionProgress, submissionID)
	if snapshot, err := h.redis.Get(ctx, progressKey); err == nil && snapshot != "" {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(snapshot)); err != nil {
			return
		}
	}

	// 客户端断开时结束转发
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.logger.Warn(ctx, "Progress push failed",
					logger.F("submissionID", submissionID),
					logger.F("error", err.Error()))
				return
			}
		}
	}
}
