package xerr

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// 通用错误
	ErrInternalServer = errors.New("服务器内部错误")

	// 客户端请求错误
	ErrInvalidParams       = errors.New("无效的请求参数")
	ErrValidationFailed    = errors.New("参数验证失败")
	ErrFileRequired        = errors.New("请选择要上传的文件")
	ErrInvalidReviewStatus = errors.New("审核目标状态不合法")
	ErrNotChainHead        = errors.New("只能对文档的最新版本执行该操作")

	// 认证与授权错误
	ErrUnauthorized = errors.New("用户未授权")
	ErrTokenInvalid = errors.New("认证 Token 无效或已过期")

	// 资源未找到错误
	ErrDocumentNotFound = errors.New("文档不存在")
	ErrUploadNotFound   = errors.New("上传任务不存在或已结束")

	// 业务逻辑冲突
	ErrChainHeadMoved = errors.New("版本链已被更新，请刷新后重试")
	ErrUploadCanceled = errors.New("上传已取消")

	// 数据库与外部服务错误
	ErrDatabaseError = errors.New("数据库操作失败")
	ErrStorageError  = errors.New("存储服务操作失败")
	ErrMQError       = errors.New("消息队列操作失败")
	ErrCacheError    = errors.New("缓存操作失败")
	ErrSearchError   = errors.New("搜索索引操作失败")
)

// ValidationError 参数校验失败，携带出错的字段名
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return ErrValidationFailed.Error() + ": " + strings.Join(e.Fields, ", ")
}

// Unwrap 使 errors.Is(err, ErrValidationFailed) 成立
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError fields 为空时返回 nil
func NewValidationError(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

type errorMapping struct {
	target     error
	httpStatus int
	code       int
}

// 顺序即优先级
var errorMappings = []errorMapping{
	{ErrValidationFailed, http.StatusBadRequest, ValidationFailedCode},
	{ErrInvalidParams, http.StatusBadRequest, InvalidParamsCode},
	{ErrFileRequired, http.StatusBadRequest, FileRequiredCode},
	{ErrInvalidReviewStatus, http.StatusBadRequest, InvalidReviewStatusCode},
	{ErrNotChainHead, http.StatusConflict, NotChainHeadCode},
	{ErrUnauthorized, http.StatusUnauthorized, UnauthorizedCode},
	{ErrTokenInvalid, http.StatusUnauthorized, TokenInvalidCode},
	{ErrDocumentNotFound, http.StatusNotFound, DocumentNotFoundCode},
	{ErrUploadNotFound, http.StatusNotFound, UploadNotFoundCode},
	{ErrChainHeadMoved, http.StatusConflict, ChainHeadMovedCode},
	{ErrUploadCanceled, http.StatusConflict, UploadCanceledCode},
	{ErrDatabaseError, http.StatusInternalServerError, DatabaseErrorCode},
	{ErrStorageError, http.StatusInternalServerError, StorageErrorCode},
	{ErrMQError, http.StatusInternalServerError, MQErrorCode},
	{ErrCacheError, http.StatusInternalServerError, CacheErrorCode},
	{ErrSearchError, http.StatusInternalServerError, SearchErrorCode},
}

// CodeFromError 将服务层错误映射为 HTTP 状态码和业务码
func CodeFromError(err error) (int, int) {
	if m, ok := lookup(err); ok {
		return m.httpStatus, m.code
	}
	return http.StatusInternalServerError, InternalServerErrorCode
}

// PublicMessage 返回可以展示给前端的错误信息，不暴露内部包装链
func PublicMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if m, ok := lookup(err); ok {
		return m.target.Error()
	}
	return ErrInternalServer.Error()
}

func lookup(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m, true
		}
	}
	return errorMapping{}, false
}
