package registry

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	conf "rpcenable/internal/conf/v1"
	"rpcenable/internal/server"

	"github.com/google/uuid"
	"github.com/hashicorp/consul/api"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ServiceName 注册到 Consul 的服务名
type ServiceName string

const defaultCheckInterval = 10 * time.Second

// Module 提供 Fx 模块
var Module = fx.Module("registry",
	fx.Provide(
		NewConsulRegistry,
	),
)

// ConsulRegistry 在启动时注册服务及其 HTTP 健康检查，停止时注销。
// 未启用时所有操作均为空操作。
type ConsulRegistry struct {
	agent        *api.Agent
	registration *api.AgentServiceRegistration
	l            *zap.Logger
}

func NewConsulRegistry(lc fx.Lifecycle, cfg *conf.Bootstrap, name ServiceName, logger *zap.Logger) (*ConsulRegistry, error) {
	r, err := New(cfg, name, logger)
	if err != nil {
		return nil, err
	}
	if !r.Enabled() {
		logger.Info("service registry disabled")
		return r, nil
	}
	lc.Append(fx.Hook{
		OnStart: r.Register,
		OnStop:  r.Deregister,
	})
	return r, nil
}

func New(cfg *conf.Bootstrap, name ServiceName, logger *zap.Logger) (*ConsulRegistry, error) {
	r := &ConsulRegistry{l: logger}
	if cfg.Registry == nil || cfg.Registry.Consul == nil || !cfg.Registry.Consul.Enabled {
		return r, nil
	}
	cc := cfg.Registry.Consul

	apiCfg := api.DefaultConfig()
	if cc.Address != "" {
		apiCfg.Address = cc.Address
	}
	if cc.Scheme != "" {
		apiCfg.Scheme = cc.Scheme
	}
	if cc.Token != "" {
		apiCfg.Token = cc.Token
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	host, port, err := advertiseAddress(cfg.Server.Http)
	if err != nil {
		return nil, err
	}
	interval := defaultCheckInterval
	if cc.HealthCheckInterval > 0 {
		interval = time.Duration(cc.HealthCheckInterval) * time.Second
	}

	r.agent = client.Agent()
	r.registration = &api.AgentServiceRegistration{
		ID:      fmt.Sprintf("%s-%s", name, uuid.NewString()),
		Name:    string(name),
		Address: host,
		Port:    port,
		Tags:    []string{"connect", "rpc"},
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s%s", net.JoinHostPort(host, strconv.Itoa(port)), server.HealthPath),
			Interval:                       interval.String(),
			Timeout:                        "3s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
	return r, nil
}

func (r *ConsulRegistry) Enabled() bool {
	return r.registration != nil
}

// ServiceID 未启用时为空
func (r *ConsulRegistry) ServiceID() string {
	if r.registration == nil {
		return ""
	}
	return r.registration.ID
}

func (r *ConsulRegistry) Register(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	err := r.agent.ServiceRegisterOpts(r.registration, api.ServiceRegisterOpts{}.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to register service in consul: %w", err)
	}
	r.l.Info("service registered in consul",
		zap.String("id", r.registration.ID),
		zap.String("address", r.registration.Address),
		zap.Int("port", r.registration.Port),
	)
	return nil
}

func (r *ConsulRegistry) Deregister(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	opts := (&api.QueryOptions{}).WithContext(ctx)
	if err := r.agent.ServiceDeregisterOpts(r.registration.ID, opts); err != nil {
		// 注销失败不阻塞退出，检查超时后 Consul 会自动清理
		r.l.Warn("failed to deregister service from consul", zap.Error(err))
		return nil
	}
	r.l.Info("service deregistered from consul", zap.String("id", r.registration.ID))
	return nil
}

// advertiseAddress 优先使用配置的对外地址，其次监听地址，监听所有网卡时回退到主机名
func advertiseAddress(cfg *conf.Server_HTTP) (string, int, error) {
	if cfg == nil {
		return "", 0, fmt.Errorf("server http configuration is required for registry")
	}
	host, portStr, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid server address %q: %w", cfg.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid server port %q: %w", portStr, err)
	}
	if cfg.AdvertisePort > 0 {
		port = int(cfg.AdvertisePort)
	}
	if cfg.AdvertiseHost != "" {
		return cfg.AdvertiseHost, port, nil
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		if host, err = os.Hostname(); err != nil {
			return "", 0, fmt.Errorf("failed to resolve hostname: %w", err)
		}
	}
	return host, port, nil
}
