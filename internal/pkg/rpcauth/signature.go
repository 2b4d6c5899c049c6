package rpcauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
)

// ComputeSignature 计算 HMAC-SHA256(secret, "nonce;ts;username")，返回小写十六进制
func ComputeSignature(nonce string, ts int64, username, secret string) string {
	return ComputeSignatureString(nonce, strconv.FormatInt(ts, 10), username, secret)
}

// ComputeSignatureString 按收到的时间戳原文签名，服务端校验时使用
func ComputeSignatureString(nonce, ts, username, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(nonce + ";" + ts + ";" + username))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature 以常量时间比较两个签名
func VerifySignature(expected, provided string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
