package data

import (
	"context"

	"rpcenable/internal/biz/model"

	"connectrpc.com/connect"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type CheckRepo interface {
	Ready(context.Context, model.ReadinessQuery) (model.Readiness, error)
}

type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type checkRepo struct {
	db  dbPinger
	rdb redisPinger
	l   *zap.Logger
}

func NewCheckRepo(data *Data, l *zap.Logger) CheckRepo {
	repo := &checkRepo{db: data.db, l: l}
	if data.rdb != nil {
		repo.rdb = data.rdb
	}
	return repo
}

func (c *checkRepo) Ready(ctx context.Context, _ model.ReadinessQuery) (model.Readiness, error) {
	if err := c.db.Ping(ctx); err != nil {
		c.l.Warn("database is not ready", zap.Error(err))
		return model.Readiness{
			Status: model.StatusUnhealthy,
			Details: map[string]string{
				"Components": "Postgres",
				"Message":    err.Error(),
			},
		}, connect.NewError(connect.CodeUnavailable, err)
	}
	if c.rdb != nil {
		if err := c.rdb.Ping(ctx).Err(); err != nil {
			c.l.Warn("redis is not ready", zap.Error(err))
			return model.Readiness{
				Status: model.StatusUnhealthy,
				Details: map[string]string{
					"Components": "Redis",
					"Message":    err.Error(),
				},
			}, connect.NewError(connect.CodeUnavailable, err)
		}
	}
	return model.Readiness{
		Status: model.StatusReady,
	}, nil
}
