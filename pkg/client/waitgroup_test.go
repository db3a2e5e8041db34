package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/webfetch/go-client/pkg/client"
	"github.com/webfetch/go-client/pkg/request"
)

func TestWaitGroup(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	c = c.WithBaseURL("https://example.com")
	defer c.Close()
	transport.RegisterResponder("GET", `=~^https://example.com/`, httpmock.NewStringResponder(200, `{"status":"ok"}`))

	// Create wait group
	g := client.NewWaitGroup(context.Background())

	// Run operations
	g.Run(fetchOp(c, "foo1"))
	g.Run(fetchOp(c, "foo2"))
	g.Run(func(ctx context.Context) error {
		if res := send(ctx, c, request.New().WithGet("foo3")); res.Err != nil {
			return res.Err
		}
		g.Run(fetchOp(c, "foo4"))
		return nil
	})

	// Operations run immediately
	time.Sleep(100 * time.Millisecond)
	assert.Greater(t, transport.GetTotalCallCount(), 0)

	// Wait for all operations
	assert.NoError(t, g.Wait())

	// No new request
	assert.Equal(t, map[string]int{
		"GET =~^https://example.com/":  4,
		"GET https://example.com/foo1": 1,
		"GET https://example.com/foo2": 1,
		"GET https://example.com/foo3": 1,
		"GET https://example.com/foo4": 1,
	}, transport.GetCallCountInfo())
}

func TestWaitGroup_HandleError(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	c = c.WithBaseURL("https://example.com")
	defer c.Close()
	transport.RegisterResponder("GET", `=~^https://example.com/`, httpmock.NewStringResponder(401, "Forbidden"))

	// Create wait group
	g := client.NewWaitGroup(context.Background())

	// Run operations
	operationsCount := 100
	assert.Greater(t, operationsCount, client.WaitGroupConcurrencyLimit)
	for i := 1; i <= operationsCount; i++ {
		g.Run(fetchOp(c, "foo"))
	}

	// All errors are returned
	err := g.Wait()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `100 errors occurred:`)

	// All operations have run
	assert.Equal(t, transport.GetTotalCallCount(), 100)
}

func fetchOp(c client.Client, path string) client.Operation {
	return func(ctx context.Context) error {
		return send(ctx, c, request.New().WithGet(path)).Err
	}
}
