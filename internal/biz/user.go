package biz

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"regexp"

	"rpcenable/internal/biz/model"
	conf "rpcenable/internal/conf/v1"
	"rpcenable/internal/data"
	"rpcenable/internal/pkg/rpcauth"

	"go.uber.org/zap"
)

const defaultSecretLength = 32

// 用户名不允许包含 ':'，避免与 nonce 缓存键的分隔符混淆
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.@+-]{1,255}$`)

var ErrInvalidUser = errors.New("invalid user")

type UserUseCase struct {
	repo         data.UserRepo
	alphabet     string
	secretLength int
	random       io.Reader
	l            *zap.Logger
}

func NewUserUseCase(repo data.UserRepo, authCfg rpcauth.Config, cfg *conf.Bootstrap, logger *zap.Logger) model.UserUseCase {
	length := defaultSecretLength
	if cfg.Auth != nil && cfg.Auth.SecretLength > 0 {
		length = int(cfg.Auth.SecretLength)
	}
	return &UserUseCase{
		repo:         repo,
		alphabet:     authCfg.NonceAlphabet,
		secretLength: length,
		random:       rand.Reader,
		l:            logger,
	}
}

func (uc *UserUseCase) CreateUser(ctx context.Context, username, role string) (*model.APIUser, error) {
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username %q", ErrInvalidUser, username)
	}
	switch role {
	case "":
		role = model.RoleUser
	case model.RoleUser, model.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: role %q", ErrInvalidUser, role)
	}

	secret, err := rpcauth.GenerateNonce(uc.random, uc.alphabet, uc.secretLength)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	user, err := uc.repo.CreateUser(ctx, &model.APIUser{
		Username: username,
		Secret:   secret,
		Role:     role,
		Active:   true,
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (uc *UserUseCase) SetActive(ctx context.Context, username string, active bool) error {
	found, err := uc.repo.SetActive(ctx, username, active)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", model.ErrUserNotFound, username)
	}
	uc.l.Info("api user updated", zap.String("username", username), zap.Bool("active", active))
	return nil
}
