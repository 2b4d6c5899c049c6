package biz

import (
	"fmt"
	"time"

	"rpcenable/internal/biz/model"
	conf "rpcenable/internal/conf/v1"
	"rpcenable/internal/data"
	"rpcenable/internal/pkg/rpcauth"

	"go.uber.org/zap"
)

// NewAuthConfig 以默认值为基础，覆盖配置文件中设置的项
func NewAuthConfig(cfg *conf.Bootstrap) (rpcauth.Config, error) {
	c := rpcauth.DefaultConfig()
	if a := cfg.Auth; a != nil {
		if a.NonceMinLength > 0 {
			c.NonceMinLength = int(a.NonceMinLength)
		}
		if a.ValidityWindowSeconds > 0 {
			c.ValidityWindow = time.Duration(a.ValidityWindowSeconds) * time.Second
		}
		if a.NonceAlphabet != "" {
			c.NonceAlphabet = a.NonceAlphabet
		}
	}
	if err := c.Validate(); err != nil {
		return rpcauth.Config{}, fmt.Errorf("invalid auth config: %w", err)
	}
	return c, nil
}

// NewAuthenticator 组装 nonce 存储、重放检查与用户目录
func NewAuthenticator(
	cfg rpcauth.Config,
	cache rpcauth.TTLCache,
	repo data.UserRepo,
	logger *zap.Logger,
	opts ...rpcauth.Option,
) *rpcauth.Authenticator[*model.APIUser] {
	if _, ok := cache.(rpcauth.AtomicTTLCache); !ok {
		logger.Warn("nonce cache has no atomic set-if-absent, concurrent duplicate calls may both pass")
	}
	guard := rpcauth.NewReplayGuard(cfg, rpcauth.NewNonceStore(cache, cfg.ValidityWindow), opts...)
	return rpcauth.NewAuthenticator[*model.APIUser](guard, repo)
}
