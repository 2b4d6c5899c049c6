package data

import (
	"context"
	"fmt"

	"rpcenable/internal/biz/model"
	"rpcenable/internal/data/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// RequestLogRepo 持久化出入站调用记录
type RequestLogRepo interface {
	SaveIncoming(ctx context.Context, req *model.IncomingRequest) error
	SaveOutgoing(ctx context.Context, req *model.OutgoingRequest) error
}

type requestQuerier interface {
	InsertIncomingRequest(ctx context.Context, arg models.InsertIncomingRequestParams) error
	InsertOutgoingRequest(ctx context.Context, arg models.InsertOutgoingRequestParams) error
}

type requestLogRepo struct {
	queries requestQuerier
}

func NewRequestLogRepo(data *Data) RequestLogRepo {
	return &requestLogRepo{queries: models.New(data.db)}
}

// SaveIncoming 未设置 ID 时生成新的 UUID
func (r *requestLogRepo) SaveIncoming(ctx context.Context, req *model.IncomingRequest) error {
	id, err := recordID(&req.ID)
	if err != nil {
		return err
	}
	err = r.queries.InsertIncomingRequest(ctx, models.InsertIncomingRequestParams{
		ID:               id,
		Method:           req.Method,
		Params:           req.Params,
		Prefix:           req.Prefix,
		Ip:               optional(req.IP),
		CompletionTimeMs: req.CompletionTime.Milliseconds(),
		Exception:        optional(req.Exception),
		CreatedAt:        pgtype.Timestamptz{Time: req.CreatedAt, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("insert incoming request: %w", err)
	}
	return nil
}

func (r *requestLogRepo) SaveOutgoing(ctx context.Context, req *model.OutgoingRequest) error {
	id, err := recordID(&req.ID)
	if err != nil {
		return err
	}
	err = r.queries.InsertOutgoingRequest(ctx, models.InsertOutgoingRequestParams{
		ID:               id,
		Url:              req.URL,
		Method:           req.Method,
		Params:           req.Params,
		Response:         optional(req.Response),
		CompletionTimeMs: req.CompletionTime.Milliseconds(),
		Exception:        optional(req.Exception),
		CreatedAt:        pgtype.Timestamptz{Time: req.CreatedAt, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("insert outgoing request: %w", err)
	}
	return nil
}

func recordID(id *string) (pgtype.UUID, error) {
	if *id == "" {
		*id = uuid.NewString()
	}
	parsed, err := uuid.Parse(*id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid request id %q: %w", *id, err)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
