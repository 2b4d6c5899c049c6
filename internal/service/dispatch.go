package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	v1 "rpcenable/api/rpc/v1"
	"rpcenable/api/rpc/v1/rpcv1connect"
	"rpcenable/internal/biz/model"
	"rpcenable/internal/pkg/rpc"
	"rpcenable/internal/pkg/rpcauth"

	"connectrpc.com/connect"
	"go.uber.org/zap"
)

var _ rpcv1connect.DispatchServiceHandler = (*DispatchService)(nil)

// DispatchService 将 Connect 请求转交给已注册的方法
type DispatchService struct {
	uc model.DispatchUseCase
	l  *zap.Logger
}

func NewDispatchService(uc model.DispatchUseCase, logger *zap.Logger) rpcv1connect.DispatchServiceHandler {
	return &DispatchService{
		uc: uc,
		l:  logger,
	}
}

func (s *DispatchService) Call(ctx context.Context, req *connect.Request[v1.CallRequest]) (*connect.Response[v1.CallResponse], error) {
	if req.Msg.Method == "" {
		return nil, FaultError(&rpc.Fault{Code: rpc.FaultInvalidRequest, Message: "method is required"})
	}

	out, err := s.uc.Call(ctx, req.Msg.Prefix, req.Msg.Method, req.Msg.Params)
	if err != nil {
		if rpc.AsFault(err).Code == rpc.FaultInternal {
			s.l.Error("rpc method failed",
				zap.String("prefix", req.Msg.Prefix),
				zap.String("method", req.Msg.Method),
				zap.Error(err),
			)
			err = &rpc.Fault{Code: rpc.FaultInternal, Message: "internal error"}
		}
		return nil, FaultError(err)
	}

	result, err := json.Marshal(out)
	if err != nil {
		s.l.Error("encode rpc result failed", zap.String("method", req.Msg.Method), zap.Error(err))
		return nil, FaultError(&rpc.Fault{Code: rpc.FaultInternal, Message: "result cannot be encoded"})
	}
	return connect.NewResponse(&v1.CallResponse{Result: result}), nil
}

// FaultError 将错误转换为 connect.Error，数字错误码放在 Rpc-Fault-Code 头中
func FaultError(err error) *connect.Error {
	f := rpc.AsFault(err)
	connectErr := connect.NewError(faultConnectCode(err, f), errors.New(f.Message))
	connectErr.Meta().Set(rpcv1connect.FaultCodeHeader, strconv.Itoa(f.Code))
	return connectErr
}

func faultConnectCode(err error, f *rpc.Fault) connect.Code {
	var authErr *rpcauth.Error
	if errors.As(err, &authErr) {
		return connect.CodeUnauthenticated
	}
	switch f.Code {
	case rpc.FaultMethodNotFound, model.FaultUserNotFound:
		return connect.CodeNotFound
	case rpc.FaultInvalidRequest, rpc.FaultInvalidParams, model.FaultInvalidUser:
		return connect.CodeInvalidArgument
	case model.FaultUserExists:
		return connect.CodeAlreadyExists
	default:
		return connect.CodeInternal
	}
}
