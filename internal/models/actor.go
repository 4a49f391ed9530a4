package models

// DefaultDisplayName 身份提供方未返回姓名时使用
const DefaultDisplayName = "Usuario"

// Actor 当前操作用户，由认证中间件写入上下文
type Actor struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// NewActor 补齐缺省的显示名
func NewActor(uid, displayName, email string) Actor {
	if displayName == "" {
		displayName = DefaultDisplayName
	}
	return Actor{UID: uid, DisplayName: displayName, Email: email}
}
