package model

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
)

// 账号管理的错误码，位于 JSON-RPC 保留给服务端的 -32000 ~ -32099 区间
const (
	FaultUserExists   = -32001
	FaultUserNotFound = -32002
	FaultInvalidUser  = -32003
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// APIUser 可以调用受保护方法的账号，Secret 为共享密钥
type APIUser struct {
	ID        int64
	Username  string
	Secret    string
	Role      string
	Active    bool
	LastLogin *time.Time
	CreatedAt time.Time
}

func (u *APIUser) GetUsername() string { return u.Username }

func (u *APIUser) GetSecret() string { return u.Secret }

// IsAdmin 用作 admin 前缀下方法的筛选条件
func IsAdmin(u *APIUser) bool {
	return u.Role == RoleAdmin
}

// UserUseCase 账号管理用例
type UserUseCase interface {
	// CreateUser 创建账号并生成密钥，返回的 APIUser 携带明文密钥
	CreateUser(ctx context.Context, username, role string) (*APIUser, error)
	SetActive(ctx context.Context, username string, active bool) error
}
