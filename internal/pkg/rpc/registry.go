package rpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const introspectionPrefix = "system."

var ErrDuplicateMethod = errors.New("rpc: method already registered")

// Method 描述一个已注册的方法
type Method struct {
	Name      string
	Help      string
	Signature []string
	Handler   Handler
}

type MethodOption func(*Method)

// WithSignature 设置 system.methodSignature 返回的参数描述
func WithSignature(sig ...string) MethodOption {
	return func(m *Method) {
		m.Signature = sig
	}
}

// WithHelp 设置 system.methodHelp 返回的说明
func WithHelp(help string) MethodOption {
	return func(m *Method) {
		m.Help = help
	}
}

// Registry 按前缀管理可调用的方法。每个前缀在首次注册时创建，并自带
// system.listMethods、system.methodSignature 和 system.methodHelp。
type Registry struct {
	mu       sync.RWMutex
	prefixes map[string]map[string]*Method
}

func NewRegistry() *Registry {
	r := &Registry{prefixes: make(map[string]map[string]*Method)}
	r.mu.Lock()
	r.ensureLocked("")
	r.mu.Unlock()
	return r
}

// Register 在 prefix 下注册 name。同名方法重复注册返回 ErrDuplicateMethod。
func (r *Registry) Register(prefix, name string, h Handler, opts ...MethodOption) error {
	if name == "" {
		return errors.New("rpc: method name is required")
	}
	if h == nil {
		return fmt.Errorf("rpc: nil handler for %q", name)
	}
	if strings.HasPrefix(name, introspectionPrefix) {
		return fmt.Errorf("rpc: %q is reserved for introspection", name)
	}

	m := &Method{Name: name, Handler: h}
	for _, opt := range opts {
		opt(m)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	methods := r.ensureLocked(prefix)
	if _, ok := methods[name]; ok {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateMethod, prefix, name)
	}
	methods[name] = m
	return nil
}

func (r *Registry) MustRegister(prefix, name string, h Handler, opts ...MethodOption) {
	if err := r.Register(prefix, name, h, opts...); err != nil {
		panic(err)
	}
}

// Dispatch 查找并调用方法。未知前缀返回 -32600，未知方法返回 -32601。
func (r *Registry) Dispatch(ctx context.Context, prefix, name string, params Params) (any, error) {
	m, err := r.lookup(prefix, name)
	if err != nil {
		return nil, err
	}
	return m.Handler(ctx, params)
}

// Lookup 返回已注册的方法
func (r *Registry) Lookup(prefix, name string) (*Method, bool) {
	m, err := r.lookup(prefix, name)
	return m, err == nil
}

// Methods 返回 prefix 下的方法名（含自省方法），按字母排序
func (r *Registry) Methods(prefix string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	methods, ok := r.prefixes[prefix]
	if !ok {
		return nil, unknownPrefix(prefix)
	}
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.prefixes))
	for p := range r.prefixes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) lookup(prefix, name string) (*Method, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	methods, ok := r.prefixes[prefix]
	if !ok {
		return nil, unknownPrefix(prefix)
	}
	m, ok := methods[name]
	if !ok {
		return nil, &Fault{Code: FaultMethodNotFound, Message: fmt.Sprintf("method %q is not supported", name)}
	}
	return m, nil
}

// ensureLocked 创建前缀并注册自省方法。调用方需持有写锁。
func (r *Registry) ensureLocked(prefix string) map[string]*Method {
	if methods, ok := r.prefixes[prefix]; ok {
		return methods
	}
	methods := make(map[string]*Method)
	r.prefixes[prefix] = methods

	methods["system.listMethods"] = &Method{
		Name:      "system.listMethods",
		Help:      "Returns the names of all methods available under this prefix.",
		Signature: []string{"array"},
		Handler: func(context.Context, Params) (any, error) {
			return r.Methods(prefix)
		},
	}
	methods["system.methodSignature"] = &Method{
		Name:      "system.methodSignature",
		Help:      "Returns the parameter description of the named method.",
		Signature: []string{"array", "string"},
		Handler: func(_ context.Context, params Params) (any, error) {
			m, err := r.namedMethod(prefix, params)
			if err != nil {
				return nil, err
			}
			if m.Signature == nil {
				return []string{}, nil
			}
			return m.Signature, nil
		},
	}
	methods["system.methodHelp"] = &Method{
		Name:      "system.methodHelp",
		Help:      "Returns the help text of the named method.",
		Signature: []string{"string", "string"},
		Handler: func(_ context.Context, params Params) (any, error) {
			m, err := r.namedMethod(prefix, params)
			if err != nil {
				return nil, err
			}
			return m.Help, nil
		},
	}
	return methods
}

func (r *Registry) namedMethod(prefix string, params Params) (*Method, error) {
	name, err := params.String(0)
	if err != nil {
		return nil, err
	}
	return r.lookup(prefix, name)
}

func unknownPrefix(prefix string) *Fault {
	return &Fault{Code: FaultInvalidRequest, Message: fmt.Sprintf("unknown prefix %q", prefix)}
}
