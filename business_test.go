package r66

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessMux(t *testing.T) {
	m := NewBusinessMux()
	ctx := context.Background()

	out, err := m.Execute(ctx, "hostA", "  echo   one two ")
	require.NoError(t, err)
	assert.Equal(t, "one two", out)

	out, err = m.Execute(ctx, "hostA", "time")
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339, out)
	assert.NoError(t, err)

	m.Handle("whoami", func(_ context.Context, hostID string, _ []string) (string, error) {
		return hostID, nil
	})

	out, err = m.Execute(ctx, "hostA", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "hostA", out)

	out, err = m.Execute(ctx, "hostA", "actions")
	require.NoError(t, err)
	assert.Equal(t, "actions echo time whoami", out)

	_, err = m.Execute(ctx, "hostA", "")
	assert.Equal(t, ErrUnknownBusinessAction, errors.Cause(err))

	_, err = m.Execute(ctx, "hostA", "format c:")
	assert.Equal(t, ErrUnknownBusinessAction, errors.Cause(err))
}

func TestBusinessTimeout(t *testing.T) {
	srvCfg, cliCfg := testConfigs(t)

	m := NewBusinessMux()
	m.Handle("sleep", func(ctx context.Context, _ string, _ []string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	srv := newTestServer(t, srvCfg, WithBusinessExecutor(m))
	cl := dialTestServer(t, srv, cliCfg)

	_, err := cl.Business(testContext(t), "sleep", 20)
	assert.ErrorContains(t, err, "deadline exceeded")
}
