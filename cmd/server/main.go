package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"rpcenable/internal/biz"
	"rpcenable/internal/biz/model"
	confv1 "rpcenable/internal/conf/v1"
	"rpcenable/internal/data"
	"rpcenable/internal/pkg/config"
	logger "rpcenable/internal/pkg/log"
	"rpcenable/internal/pkg/otel"
	"rpcenable/internal/pkg/registry"
	"rpcenable/internal/server"
	"rpcenable/internal/service"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var serviceName = registry.ServiceName("rpcenable")

var (
	createUser = flag.String("create-user", "", "create an API user, print its generated secret and exit")
	role       = flag.String("role", model.RoleUser, "role of the user created by -create-user")
)

func main() {
	flag.Parse()

	if *createUser != "" {
		if err := provisionUser(*createUser, *role); err != nil {
			log.Printf("Failed to create user: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fxApp := NewApp()

	if err := fxApp.Start(context.Background()); err != nil {
		log.Printf("Failed to start app: %v\n", err)
		os.Exit(1)
	}

	// 等待中断信号
	<-fxApp.Done()

	// 优雅关闭
	if err := fxApp.Stop(context.Background()); err != nil {
		log.Printf("Failed to stop app gracefully: %v\n", err)
		os.Exit(1)
	}
}

// NewApp 创建并配置 FX 应用
func NewApp() *fx.App {
	return fx.New(
		// 提供基础模块
		config.Module,
		logger.Module,
		registry.Module,

		// 注入业务模块（按依赖顺序）
		data.Module,
		biz.Module,
		service.Module,
		server.MiddlewareModule, // 中间件模块需要在服务器模块之前
		server.Module,

		fx.Supply(serviceName),

		fx.Invoke(
			// 验证配置完整性
			func(conf *confv1.Bootstrap) error {
				return config.ValidateConfig(conf)
			},

			// 先安装 OTel，使后续创建的指标与日志写入导出管道
			func(lc fx.Lifecycle, conf *confv1.Bootstrap, logger *zap.Logger) error {
				otelShutdown, err := otel.SetupOTelSDK(context.Background(), conf.Trace, logger)
				if err != nil {
					return fmt.Errorf("setup OTel SDK: %w", err)
				}
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						if err := otelShutdown(ctx); err != nil {
							logger.Error("Failed to shutdown OTel", zap.Error(err))
						}
						return nil
					},
				})
				return nil
			},

			// HTTP 服务器的生命周期由 server 模块注册
			func(*http.Server) {},

			// 服务器启动后再注册到注册中心
			func(_ *registry.ConsulRegistry) {},
		),
	)
}

// provisionUser 创建用户并打印生成的 secret。secret 只在此处出现一次。
func provisionUser(username, role string) error {
	var created *model.APIUser
	app := fx.New(
		config.Module,
		logger.Module,
		data.Module,
		biz.Module,
		fx.NopLogger,
		fx.Invoke(func(conf *confv1.Bootstrap) error {
			return config.ValidateConfig(conf)
		}),
		fx.Invoke(func(lc fx.Lifecycle, users model.UserUseCase) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					var err error
					created, err = users.CreateUser(ctx, username, role)
					return err
				},
			})
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}
	if err := app.Stop(ctx); err != nil {
		return err
	}

	fmt.Printf("username: %s\nrole:     %s\nsecret:   %s\n", created.Username, created.Role, created.Secret)
	return nil
}
