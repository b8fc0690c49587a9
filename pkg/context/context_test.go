package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetUserID(ctx))
	assert.Empty(t, GetRole(ctx))

	ctx = SetRequestID(ctx, "req-1")
	ctx = SetUserID(ctx, "user-1")
	ctx = SetRole(ctx, "uploader")
	ctx = SetRoute(ctx, "/api/v1/imports/polissen")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.Equal(t, "uploader", GetRole(ctx))
	assert.Equal(t, "/api/v1/imports/polissen", GetRoute(ctx))
}

func TestFields(t *testing.T) {
	ctx := SetRequestID(context.Background(), "req-2")
	ctx = SetUserID(ctx, "user-2")

	assert.Equal(t, map[string]any{"request_id": "req-2", "user_id": "user-2"}, Fields(ctx))
	assert.Empty(t, Fields(context.Background()))
}
