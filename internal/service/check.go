package service

import (
	"context"

	"rpcenable/api/check/v1/checkv1connect"
	"rpcenable/internal/biz/model"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ checkv1connect.CheckServiceHandler = (*CheckService)(nil)

type CheckService struct {
	uc model.CheckUseCase
}

func NewCheckService(uc model.CheckUseCase) checkv1connect.CheckServiceHandler {
	return &CheckService{
		uc: uc,
	}
}

func (c *CheckService) Ready(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	ready, err := c.uc.Ready(ctx, model.ReadinessQuery{})
	if err != nil {
		return nil, err
	}
	details := make(map[string]any, len(ready.Details))
	for k, v := range ready.Details {
		details[k] = v
	}
	reply, err := structpb.NewStruct(map[string]any{
		"status":  ready.Status,
		"details": details,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(reply), nil
}
