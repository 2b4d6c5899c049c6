package models

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserLifecycle(t *testing.T) {
	requireDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	username := "u-" + uuid.NewString()[:8]
	created, err := testQueries.CreateUser(ctx, CreateUserParams{Username: username, Secret: "s1", Role: "user"})
	require.NoError(t, err)
	assert.True(t, created.Active)
	assert.False(t, created.LastLogin.Valid)

	users, err := testQueries.GetActiveUsersByName(ctx, username)
	require.NoError(t, err)
	require.Len(t, users, 1)

	at := time.Now().Truncate(time.Second)
	require.NoError(t, testQueries.UpdateLastLogin(ctx, UpdateLastLoginParams{
		ID:        created.ID,
		LastLogin: pgtype.Timestamptz{Time: at, Valid: true},
	}))

	n, err := testQueries.SetUserActive(ctx, SetUserActiveParams{Username: username, Active: false})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	users, err = testQueries.GetActiveUsersByName(ctx, username)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestInsertRequestLogs(t *testing.T) {
	requireDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	exception := "fault 402: nonce is already used"
	require.NoError(t, testQueries.InsertIncomingRequest(ctx, InsertIncomingRequestParams{
		ID:               pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Method:           "whoami",
		Params:           `[]`,
		CompletionTimeMs: 3,
		Exception:        &exception,
		CreatedAt:        now,
	}))
	require.NoError(t, testQueries.InsertOutgoingRequest(ctx, InsertOutgoingRequestParams{
		ID:               pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Url:              "http://localhost:8080/rpcenable.rpc.v1.DispatchService/Call",
		Method:           "echo",
		Params:           `["a"]`,
		CompletionTimeMs: 5,
		CreatedAt:        now,
	}))
}
