package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, UserID(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx = WithUserID(ctx, "ops-user")
	ctx = WithRequestID(ctx, "req-42")
	ctx = WithTime(ctx, fixed)

	assert.Equal(t, "ops-user", UserID(ctx))
	assert.Equal(t, "req-42", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
