package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	redisContainer "github.com/testcontainers/testcontainers-go/modules/redis"

	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/testutil"
)

func limitedEngine(limiter gin.HandlerFunc, pre ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append(pre, limiter, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/limited", handlers...)
	return r
}

func hit(r *gin.Engine, n int) []int {
	codes := make([]int, 0, n)
	for i := 0; i < n; i++ {
		rec, _ := testutil.MakeJSONRequest(nil, "", r, "/limited", http.MethodGet)
		codes = append(codes, rec.Code)
	}
	return codes
}

func TestRateLimiter_InMemory(t *testing.T) {
	r := limitedEngine(RateLimiterMiddleware(2, nil))

	codes := hit(r, 3)
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_KeyedByIdentity(t *testing.T) {
	limiter := RateLimiterMiddleware(1, nil)
	alice := limitedEngine(limiter, testutil.AsIdentity(identity.New(uuid.New(), model.RoleStudent)))
	bob := limitedEngine(limiter, testutil.AsIdentity(identity.New(uuid.New(), model.RoleStudent)))

	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests}, hit(alice, 2))
	assert.Equal(t, []int{http.StatusNoContent}, hit(bob, 1))
}

func TestRateLimiter_Redis(t *testing.T) {
	ctx := context.Background()
	container, err := redisContainer.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	client, err := NewRedisClient(url)
	require.NoError(t, err)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	// Two engines sharing one store see a single budget.
	first := limitedEngine(RateLimiterMiddleware(2, client))
	second := limitedEngine(RateLimiterMiddleware(2, client))

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent}, hit(first, 2))
	assert.Equal(t, []int{http.StatusTooManyRequests}, hit(second, 1))
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient("")
	assert.NoError(t, err)
	assert.Nil(t, client)

	_, err = NewRedisClient("not a url")
	assert.Error(t, err)
}
