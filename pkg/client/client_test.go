package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/uiharness/pkg/command"
	"github.com/devicelab-dev/uiharness/pkg/config"
	"github.com/devicelab-dev/uiharness/pkg/core"
	"github.com/devicelab-dev/uiharness/pkg/engine"
	"github.com/devicelab-dev/uiharness/pkg/registry"
	"github.com/devicelab-dev/uiharness/pkg/server"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := &Client{
		http:    srv.Client(),
		baseURL: srv.URL,
	}
	return client, srv
}

// newHarnessClient runs the real server over the default layout.
func newHarnessClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.Default()
	eng, err := engine.FromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	srv := httptest.NewServer(server.New(cfg.Server, eng, "test").Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestTap_Params(t *testing.T) {
	tests := []struct {
		id    registry.Identifier
		query string
	}{
		{registry.ByText("+"), "text=%2B"},
		{registry.ByKey("increment_key1"), "key=increment_key1"},
	}
	for _, tt := range tests {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/tap" {
				t.Errorf("expected /tap, got %s", r.URL.Path)
			}
			if r.URL.RawQuery != tt.query {
				t.Errorf("expected query %s, got %s", tt.query, r.URL.RawQuery)
			}
			json.NewEncoder(w).Encode(Response{Status: core.StatusSuccess})
		})

		resp, err := client.Tap(context.Background(), tt.id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != core.StatusSuccess {
			t.Errorf("expected success, got %s", resp.Status)
		}
		srv.Close()
	}
}

func TestErrorDecoding(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(Response{Status: core.StatusError, Code: "out_of_bounds", Reason: "list_item_40 not visible"})
	})
	defer srv.Close()

	_, err := client.ScrollInto(context.Background(), "number_list", "list_item_40", 0, -10)
	if !errors.Is(err, core.ErrOutOfBounds) {
		t.Fatalf("expected out_of_bounds, got %v", err)
	}
	execErr := core.AsExecutionError(err)
	if execErr.Category != core.ErrCategoryBounds {
		t.Errorf("expected bounds category, got %s", execErr.Category)
	}
	if execErr.Message != "list_item_40 not visible" {
		t.Errorf("unexpected message %q", execErr.Message)
	}
}

func TestErrorDecoding_NonJSON(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := client.Status(context.Background())
	if !errors.Is(err, core.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestConnectionError(t *testing.T) {
	client := &Client{http: &http.Client{}, baseURL: "http://localhost:99999"}
	if _, err := client.Texts(context.Background(), "txtCount"); err == nil {
		t.Fatal("expected error")
	}
}

func TestWaitReady_Timeout(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ServerStatus{Ready: false})
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := client.WaitReady(ctx, 5*time.Millisecond); !errors.Is(err, core.ErrTimeout) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestAgainstServer_Scenarios(t *testing.T) {
	ctx := context.Background()
	c := newHarnessClient(t)

	require.NoError(t, c.WaitReady(ctx, 10*time.Millisecond))
	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sync", status.Settle)

	require.NoError(t, c.Reset(ctx))
	_, err = c.Tap(ctx, registry.ByText("+"))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = c.Tap(ctx, registry.ByKey("increment_key1"))
		require.NoError(t, err)
	}
	texts, err := c.Texts(ctx, "txtCount")
	require.NoError(t, err)
	assert.Equal(t, []core.TextEntry{{Key: "txtCount", Text: "3"}}, texts)

	_, err = c.ScrollInto(ctx, "number_list", "list_item_30", 0, -200)
	require.NoError(t, err)
	_, err = c.Tap(ctx, registry.ByKey("list_item_30"))
	require.NoError(t, err)

	empty, err := c.Texts(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, c.Idle(ctx, time.Second))
}

func TestAgainstServer_Errors(t *testing.T) {
	ctx := context.Background()
	c := newHarnessClient(t)

	_, err := c.Tap(ctx, registry.ByKey("nope"))
	assert.ErrorIs(t, err, core.ErrElementNotFound)

	_, err = c.ScrollInto(ctx, "nope", "list_item_1", 0, 0)
	assert.ErrorIs(t, err, core.ErrContainerNotFound)

	_, err = c.ScrollInto(ctx, "number_list", "nope", 0, 0)
	assert.ErrorIs(t, err, core.ErrItemNotFound)

	_, err = c.Tap(ctx, registry.ByKey(""))
	assert.ErrorIs(t, err, core.ErrMalformedRequest)
}

func TestAgainstServer_Elements(t *testing.T) {
	c := newHarnessClient(t)

	elements, err := c.Elements(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, elements)
	assert.Equal(t, "txtGreet", elements[0].Key)
	assert.Equal(t, registry.KindStaticText, elements[0].Kind)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	c := newHarnessClient(t)

	cmds := []command.Command{
		command.Reset{},
		command.NewTap(registry.ByText("+")),
		command.ScrollInto{ContainerKey: "number_list", ItemKey: "list_item_30", DY: -200},
		command.NewTap(registry.ByKey("list_item_30")),
	}
	for _, cmd := range cmds {
		if r := c.Apply(ctx, cmd); r.Error != nil {
			t.Fatalf("%s: %v", cmd.Describe(), r.Error)
		}
	}

	r := c.Apply(ctx, command.QueryTexts{Key: "txtCount"})
	require.NoError(t, r.Error)
	assert.Equal(t, []core.TextEntry{{Key: "txtCount", Text: "1"}}, r.Texts)

	r = c.Apply(ctx, command.NewTap(registry.ByKey("nope")))
	assert.Equal(t, core.StatusError, r.Status)
	assert.ErrorIs(t, r.Error, core.ErrElementNotFound)

	r = c.Apply(ctx, command.AssertTexts{Key: "txtCount"})
	assert.ErrorIs(t, r.Error, core.ErrMalformedRequest)
}
