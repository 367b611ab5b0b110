// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/memory"
	"github.com/gatehouse/gatehouse/internal/web"
)

func newLifecycleServer(t *testing.T) *web.Server {
	t.Helper()
	svc, err := auth.NewService(memory.NewUserRepository(), fastHasher{})
	require.NoError(t, err)
	strategy, err := auth.NewBasicStrategy(svc)
	require.NoError(t, err)
	srv, err := web.NewServer("127.0.0.1:0", svc, strategy, web.Options{})
	require.NoError(t, err)
	return srv
}

func TestNewServer_NilDependencies(t *testing.T) {
	_, err := web.NewServer("127.0.0.1:0", nil, nil, web.Options{})
	require.Error(t, err)
}

func TestServer_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := newLifecycleServer(t)

	errCh, err := srv.Start()
	require.NoError(t, err)
	require.NotEmpty(t, srv.Addr())

	resp, err := http.Get("http://" + srv.Addr() + "/")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Drop keep-alive connections so goleak sees a clean state.
	http.DefaultClient.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	// channel closes on graceful stop
	select {
	case serveErr, ok := <-errCh:
		if ok {
			t.Fatalf("unexpected server error: %v", serveErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("error channel not closed after Stop")
	}
}

func TestServer_DoubleStartFails(t *testing.T) {
	srv := newLifecycleServer(t)

	_, err := srv.Start()
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	}()

	_, err = srv.Start()
	assert.Error(t, err)
}

func TestServer_StopBeforeStartIsNoOp(t *testing.T) {
	srv := newLifecycleServer(t)
	require.NoError(t, srv.Stop(context.Background()))
}
