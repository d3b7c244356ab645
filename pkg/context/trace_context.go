package context

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// 上下文键类型
type contextKey string

const (
	// 业务相关的上下文键
	TraceIDKey      contextKey = "trace_id"
	UserIDKey       contextKey = "user_id"
	DraftIDKey      contextKey = "draft_id"
	AccountIDKey    contextKey = "account_id"
	PlatformKey     contextKey = "platform"
	SubmissionIDKey contextKey = "submission_id"
	RequestIDKey    contextKey = "request_id"

	// 服务相关的上下文键
	ServiceNameKey contextKey = "service_name"
	ClientIPKey    contextKey = "client_ip"
	UserAgentKey   contextKey = "user_agent"
)

// TraceContext 业务追踪上下文
type TraceContext struct {
	TraceID      string
	UserID       int64
	DraftID      int64
	AccountID    string
	Platform     string
	SubmissionID int64
	RequestID    string
}

// WithTraceID 在context中设置TraceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = GenerateTraceID()
	}

	// 同时设置到OpenTelemetry span中
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.String("trace.id", traceID))
	}

	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID 从context中获取TraceID
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// WithRequestID 在context中设置RequestID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID 从context中获取RequestID
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithUserID 在context中设置操作人ID
func WithUserID(ctx context.Context, userID int64) context.Context {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int64("user.id", userID))
	}
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID 从context中获取操作人ID
func GetUserID(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if userID, ok := ctx.Value(UserIDKey).(int64); ok {
		return userID
	}
	return 0
}

// WithDraftID 在context中设置草稿ID
func WithDraftID(ctx context.Context, draftID int64) context.Context {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int64("draft.id", draftID))
	}
	return context.WithValue(ctx, DraftIDKey, draftID)
}

// GetDraftID 从context中获取草稿ID
func GetDraftID(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if draftID, ok := ctx.Value(DraftIDKey).(int64); ok {
		return draftID
	}
	return 0
}

// WithAccountID 在context中设置平台账号信息
func WithAccountID(ctx context.Context, platform, accountID string) context.Context {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("account.platform", platform),
			attribute.String("account.id", accountID),
		)
	}
	ctx = context.WithValue(ctx, PlatformKey, platform)
	return context.WithValue(ctx, AccountIDKey, accountID)
}

// GetAccountID 从context中获取平台账号ID
func GetAccountID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if accountID, ok := ctx.Value(AccountIDKey).(string); ok {
		return accountID
	}
	return ""
}

// GetPlatform 从context中获取平台标识
func GetPlatform(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if platform, ok := ctx.Value(PlatformKey).(string); ok {
		return platform
	}
	return ""
}

// WithSubmissionID 在context中设置投递ID
func WithSubmissionID(ctx context.Context, submissionID int64) context.Context {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int64("submission.id", submissionID))
	}
	return context.WithValue(ctx, SubmissionIDKey, submissionID)
}

// GetSubmissionID 从context中获取投递ID
func GetSubmissionID(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if submissionID, ok := ctx.Value(SubmissionIDKey).(int64); ok {
		return submissionID
	}
	return 0
}

// WithServiceInfo 在context中设置服务信息
func WithServiceInfo(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

// GetServiceName 从context中获取服务名
func GetServiceName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

// WithClientInfo 在context中设置客户端信息
func WithClientInfo(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ClientIPKey, clientIP)
	return context.WithValue(ctx, UserAgentKey, userAgent)
}

// GenerateTraceID 生成新的TraceID
func GenerateTraceID() string {
	return uuid.New().String()
}

// Extract 从context中提取完整的业务追踪上下文
func Extract(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:      GetTraceID(ctx),
		UserID:       GetUserID(ctx),
		DraftID:      GetDraftID(ctx),
		AccountID:    GetAccountID(ctx),
		Platform:     GetPlatform(ctx),
		SubmissionID: GetSubmissionID(ctx),
		RequestID:    GetRequestID(ctx),
	}
}

// FormatUserID 格式化操作人ID为字符串
func FormatUserID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
