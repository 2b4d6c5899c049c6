package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rpcenable/internal/biz/model"
	"rpcenable/internal/data/models"
	"rpcenable/internal/pkg/rpcauth"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// pgUniqueViolation 是 PostgreSQL 唯一约束冲突的错误码
const pgUniqueViolation = "23505"

// UserRepo 账号数据访问接口，同时作为认证用的用户目录
type UserRepo interface {
	rpcauth.Directory[*model.APIUser]
	CreateUser(ctx context.Context, user *model.APIUser) (*model.APIUser, error)
	// SetActive 返回是否存在该用户
	SetActive(ctx context.Context, username string, active bool) (bool, error)
}

type userQuerier interface {
	GetActiveUsersByName(ctx context.Context, username string) ([]models.ApiUser, error)
	CreateUser(ctx context.Context, arg models.CreateUserParams) (models.ApiUser, error)
	UpdateLastLogin(ctx context.Context, arg models.UpdateLastLoginParams) error
	SetUserActive(ctx context.Context, arg models.SetUserActiveParams) (int64, error)
}

type userRepo struct {
	queries userQuerier
	l       *zap.Logger
}

func NewUserRepo(data *Data, logger *zap.Logger) UserRepo {
	return &userRepo{
		queries: models.New(data.db),
		l:       logger,
	}
}

func (r *userRepo) FindActive(ctx context.Context, username string, filter rpcauth.Filter[*model.APIUser]) ([]*model.APIUser, error) {
	rows, err := r.queries.GetActiveUsersByName(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("query users %q: %w", username, err)
	}
	users := make([]*model.APIUser, 0, len(rows))
	for _, row := range rows {
		u := toAPIUser(row)
		if filter != nil && !filter(u) {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *userRepo) PersistLastLogin(ctx context.Context, user *model.APIUser, at time.Time) error {
	err := r.queries.UpdateLastLogin(ctx, models.UpdateLastLoginParams{
		ID:        user.ID,
		LastLogin: pgtype.Timestamptz{Time: at, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("update last login of %q: %w", user.Username, err)
	}
	user.LastLogin = &at
	return nil
}

func (r *userRepo) CreateUser(ctx context.Context, user *model.APIUser) (*model.APIUser, error) {
	row, err := r.queries.CreateUser(ctx, models.CreateUserParams{
		Username: user.Username,
		Secret:   user.Secret,
		Role:     user.Role,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, model.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("insert user %q: %w", user.Username, err)
	}
	r.l.Info("api user created", zap.String("username", row.Username), zap.String("role", row.Role))
	return toAPIUser(row), nil
}

func (r *userRepo) SetActive(ctx context.Context, username string, active bool) (bool, error) {
	n, err := r.queries.SetUserActive(ctx, models.SetUserActiveParams{
		Username: username,
		Active:   active,
	})
	if err != nil {
		return false, fmt.Errorf("update user %q: %w", username, err)
	}
	return n > 0, nil
}

func toAPIUser(row models.ApiUser) *model.APIUser {
	u := &model.APIUser{
		ID:        row.ID,
		Username:  row.Username,
		Secret:    row.Secret,
		Role:      row.Role,
		Active:    row.Active,
		CreatedAt: row.CreatedAt.Time,
	}
	if row.LastLogin.Valid {
		t := row.LastLogin.Time
		u.LastLogin = &t
	}
	return u
}
