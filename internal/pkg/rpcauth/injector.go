package rpcauth

import (
	"fmt"
	"io"
	"strconv"

	"github.com/benbjohnson/clock"
)

// Injector 为出站调用生成认证参数，每次调用都使用新的 nonce
type Injector struct {
	cfg      Config
	username string
	secret   string
	clock    clock.Clock
	random   io.Reader
}

func NewInjector(cfg Config, username, secret string, opts ...Option) *Injector {
	o := buildOptions(opts)
	return &Injector{
		cfg:      cfg,
		username: username,
		secret:   secret,
		clock:    o.clock,
		random:   o.random,
	}
}

// Generate 生成一组新的认证参数
func (i *Injector) Generate() (Credential, error) {
	nonce, err := GenerateNonce(i.random, i.cfg.NonceAlphabet, i.cfg.NonceMinLength)
	if err != nil {
		return Credential{}, err
	}
	ts := i.clock.Now().Unix()
	return Credential{
		Nonce:     nonce,
		Timestamp: strconv.FormatInt(ts, 10),
		Username:  i.username,
		Signature: ComputeSignature(nonce, ts, i.username, i.secret),
	}, nil
}

// Inject 在参数列表前插入认证参数，可直接用作 rpc.ParamHook
func (i *Injector) Inject(params []any) ([]any, error) {
	cred, err := i.Generate()
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, credentialArgs+len(params))
	out = append(out, cred.Args()...)
	return append(out, params...), nil
}

// GenerateNonce 从 r 读取 n 个字节，按 byte % len(alphabet) 映射为字符。
// alphabet 的长度需整除 256 才能保证均匀分布。
func GenerateNonce(r io.Reader, alphabet string, n int) (string, error) {
	if alphabet == "" {
		return "", fmt.Errorf("generate nonce: empty alphabet")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	for k, b := range buf {
		buf[k] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}
