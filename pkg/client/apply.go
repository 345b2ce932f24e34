package client

import (
	"context"
	"time"

	"github.com/devicelab-dev/uiharness/pkg/command"
	"github.com/devicelab-dev/uiharness/pkg/core"
	"github.com/devicelab-dev/uiharness/pkg/registry"
)

// Apply sends cmd to the server and reports it the way the engine would.
func (c *Client) Apply(ctx context.Context, cmd command.Command) *core.CommandResult {
	start := time.Now()

	var result *core.CommandResult
	switch cm := cmd.(type) {
	case command.Reset:
		result = c.respond(c.Tap(ctx, registry.ByText(registry.ReservedText)))
	case command.Tap:
		result = c.respond(c.Tap(ctx, cm.Target))
	case command.QueryTexts:
		texts, err := c.Texts(ctx, cm.Key)
		if err != nil {
			result = core.Failure(err)
		} else {
			result = core.Success("")
			result.Texts = texts
		}
	case command.ScrollInto:
		result = c.respond(c.ScrollInto(ctx, cm.ContainerKey, cm.ItemKey, cm.DX, cm.DY))
	default:
		result = core.Failure(core.ErrMalformedRequest.WithMessagef("unsupported command %T", cmd))
	}

	result.Duration = time.Since(start)
	return result
}

func (c *Client) respond(r *Response, err error) *core.CommandResult {
	if err != nil {
		return core.Failure(err)
	}
	return core.Success(r.Message)
}

// WaitIdle waits for the server to settle, bounded by ctx and the server's
// default idle timeout.
func (c *Client) WaitIdle(ctx context.Context) error {
	return c.Idle(ctx, 0)
}
