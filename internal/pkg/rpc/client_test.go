package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	v1 "rpcenable/api/rpc/v1"
	"rpcenable/api/rpc/v1/rpcv1connect"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registryService 是测试用的最小分发服务
type registryService struct {
	registry *Registry
}

func (s *registryService) Call(ctx context.Context, req *connect.Request[v1.CallRequest]) (*connect.Response[v1.CallResponse], error) {
	out, err := s.registry.Dispatch(ctx, req.Msg.Prefix, req.Msg.Method, req.Msg.Params)
	if err != nil {
		f := AsFault(err)
		connectErr := connect.NewError(connect.CodeInvalidArgument, errors.New(f.Message))
		connectErr.Meta().Set(rpcv1connect.FaultCodeHeader, strconv.Itoa(f.Code))
		return nil, connectErr
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&v1.CallResponse{Result: raw}), nil
}

type memRecorder struct {
	mu      sync.Mutex
	records []CallRecord
}

func (r *memRecorder) RecordOutgoing(_ context.Context, rec CallRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func newTestServer(t *testing.T, registry *Registry) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(rpcv1connect.NewDispatchServiceHandler(&registryService{registry: registry}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_CallWithHookAndRecorder(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister("admin", "echo", echoHandler)
	srv := newTestServer(t, registry)

	rec := &memRecorder{}
	client := NewClient(srv.Client(), srv.URL+"/",
		WithPrefix("admin"),
		WithRecorder(rec),
		WithParamHook(func(params []any) ([]any, error) {
			return append([]any{"first"}, params...), nil
		}),
	)

	var out []any
	require.NoError(t, client.CallInto(context.Background(), &out, "echo", "second"))
	assert.Equal(t, []any{"first", "second"}, out)

	require.Len(t, rec.records, 1)
	assert.Equal(t, "echo", rec.records[0].Method)
	assert.Equal(t, srv.URL+rpcv1connect.DispatchServiceCallProcedure, rec.records[0].URL)
	assert.Equal(t, []any{"first", "second"}, rec.records[0].Params)
	assert.NoError(t, rec.records[0].Err)
	assert.JSONEq(t, `["first","second"]`, string(rec.records[0].Response))
}

func TestClient_FaultRoundTrip(t *testing.T) {
	srv := newTestServer(t, NewRegistry())
	rec := &memRecorder{}
	client := NewClient(srv.Client(), srv.URL, WithRecorder(rec))

	_, err := client.Call(context.Background(), "missing")
	var f *Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, FaultMethodNotFound, f.Code)
	assert.Contains(t, f.Message, "missing")

	require.Len(t, rec.records, 1)
	assert.Error(t, rec.records[0].Err)
	assert.Nil(t, rec.records[0].Response)
}

func TestClient_HookError(t *testing.T) {
	srv := newTestServer(t, NewRegistry())
	client := NewClient(srv.Client(), srv.URL, WithParamHook(func([]any) ([]any, error) {
		return nil, errors.New("no entropy")
	}))
	_, err := client.Call(context.Background(), "system.listMethods")
	assert.ErrorContains(t, err, "no entropy")
}

func TestClient_Introspection(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister("", "ping", echoHandler, WithHelp("Liveness probe."))
	srv := newTestServer(t, registry)
	client := NewClient(srv.Client(), srv.URL)

	var help string
	require.NoError(t, client.CallInto(context.Background(), &help, "system.methodHelp", "ping"))
	assert.Equal(t, "Liveness probe.", help)
}
