package biz

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"rpcenable/internal/biz/model"
	"rpcenable/internal/data"
	"rpcenable/internal/pkg/rpc"
	"rpcenable/internal/pkg/rpcauth"
)

type CheckUseCase struct {
	repo     data.CheckRepo
	registry *rpc.Registry
	cache    rpcauth.TTLCache
	cfg      rpcauth.Config
}

func NewCheckUseCase(repo data.CheckRepo, registry *rpc.Registry, cache rpcauth.TTLCache, cfg rpcauth.Config) model.CheckUseCase {
	return &CheckUseCase{
		repo:     repo,
		registry: registry,
		cache:    cache,
		cfg:      cfg,
	}
}

// Ready 依赖全部可用时附带认证相关的运行参数
func (c *CheckUseCase) Ready(ctx context.Context, q model.ReadinessQuery) (model.Readiness, error) {
	reply, err := c.repo.Ready(ctx, q)
	if err != nil {
		return model.Readiness{}, err
	}
	if reply.Status != model.StatusReady {
		return reply, nil
	}

	details := make(map[string]string, len(reply.Details)+4)
	for k, v := range reply.Details {
		details[k] = v
	}
	_, atomic := c.cache.(rpcauth.AtomicTTLCache)
	details["nonce_cache_atomic"] = strconv.FormatBool(atomic)
	details["validity_window"] = c.cfg.ValidityWindow.String()
	details["nonce_min_length"] = strconv.Itoa(c.cfg.NonceMinLength)

	prefixes := c.registry.Prefixes()
	for i, p := range prefixes {
		if p == "" {
			prefixes[i] = "default"
		}
	}
	sort.Strings(prefixes)
	details["prefixes"] = strings.Join(prefixes, ",")

	return model.Readiness{
		Status:  reply.Status,
		Details: details,
	}, nil
}
