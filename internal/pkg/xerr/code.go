package xerr

// 定义了统一的业务错误码
const (
	SuccessCode = 20000 // 通用成功码

	// --- 客户端请求错误系列 (400xx) ---
	InvalidParamsCode       = 40000 // 无效的请求参数
	ValidationFailedCode    = 40001 // 参数验证失败
	FileRequiredCode        = 40002 // 未选择文件
	InvalidReviewStatusCode = 40003 // 审核目标状态不合法
	NotChainHeadCode        = 40004 // 只能对最新版本执行操作

	// --- 认证与授权错误系列 (401xx) ---
	UnauthorizedCode = 40100 // 通用未授权
	TokenInvalidCode = 40101 // Token 无效或过期

	// --- 资源未找到错误系列 (404xx) ---
	NotFoundCode         = 40400 // 通用资源未找到
	DocumentNotFoundCode = 40401 // 文档不存在
	UploadNotFoundCode   = 40402 // 上传任务不存在

	// --- 业务逻辑冲突系列 (409xx) ---
	ChainHeadMovedCode = 40900 // 版本链已被其他请求更新
	UploadCanceledCode = 40901 // 上传已取消

	// --- 服务器内部错误系列 (500xx) ---
	InternalServerErrorCode = 50000 // 服务器内部通用错误
	DatabaseErrorCode       = 50001 // 数据库操作失败
	StorageErrorCode        = 50002 // 存储服务操作失败（如MinIO）
	MQErrorCode             = 50003 // 消息队列操作失败
	CacheErrorCode          = 50004 // 缓存操作失败
	SearchErrorCode         = 50005 // 搜索索引操作失败
)
