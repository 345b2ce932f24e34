package engine

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/devicelab-dev/uiharness/pkg/command"
	"github.com/devicelab-dev/uiharness/pkg/config"
	"github.com/devicelab-dev/uiharness/pkg/core"
	"github.com/devicelab-dev/uiharness/pkg/registry"
)

func newTestEngine(t *testing.T, mutate func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	e, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func apply(t *testing.T, e *Engine, cmd command.Command) *core.CommandResult {
	t.Helper()
	return e.Apply(context.Background(), cmd)
}

func mustSucceed(t *testing.T, e *Engine, cmd command.Command) *core.CommandResult {
	t.Helper()
	r := apply(t, e, cmd)
	if r.Status != core.StatusSuccess {
		t.Fatalf("%s: status %s, error %v", cmd.Describe(), r.Status, r.Error)
	}
	return r
}

func texts(t *testing.T, e *Engine, key string) []core.TextEntry {
	t.Helper()
	return mustSucceed(t, e, command.QueryTexts{Key: key}).Texts
}

func countText(t *testing.T, e *Engine) string {
	t.Helper()
	got := texts(t, e, "txtCount")
	if len(got) != 1 {
		t.Fatalf("expected one txtCount entry, got %v", got)
	}
	return got[0].Text
}

func TestScenarioA_TapByIconText(t *testing.T) {
	e := newTestEngine(t, nil)

	mustSucceed(t, e, command.NewTap(registry.ByText("Reset")))
	if diff := cmp.Diff([]core.TextEntry{{Key: "txtCount", Text: "0"}}, texts(t, e, "txtCount")); diff != "" {
		t.Errorf("after reset (-want +got):\n%s", diff)
	}

	mustSucceed(t, e, command.NewTap(registry.ByText("+")))
	if diff := cmp.Diff([]core.TextEntry{{Key: "txtCount", Text: "1"}}, texts(t, e, "txtCount")); diff != "" {
		t.Errorf("after tap (-want +got):\n%s", diff)
	}
}

func TestScenarioB_TapByKeyThreeTimes(t *testing.T) {
	e := newTestEngine(t, nil)

	mustSucceed(t, e, command.Reset{})
	for i := 0; i < 3; i++ {
		mustSucceed(t, e, command.NewTap(registry.ByKey("increment_key1")))
	}
	if got := countText(t, e); got != "3" {
		t.Errorf("txtCount = %q, want \"3\"", got)
	}
}

func TestScenarioC_StaticGreeting(t *testing.T) {
	e := newTestEngine(t, nil)

	want := []core.TextEntry{{Key: "txtGreet", Text: "Hello World!"}}
	if diff := cmp.Diff(want, texts(t, e, "txtGreet")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	mustSucceed(t, e, command.NewTap(registry.ByKey("increment_key1")))
	if diff := cmp.Diff(want, texts(t, e, "txtGreet")); diff != "" {
		t.Errorf("counter taps must not touch the greeting (-want +got):\n%s", diff)
	}
}

func TestScenarioD_ScrollThenTapListItem(t *testing.T) {
	e := newTestEngine(t, nil)

	r := apply(t, e, command.NewTap(registry.ByKey("list_item_30")))
	if !errors.Is(r.Error, core.ErrElementNotFound) {
		t.Fatalf("off-screen item should not resolve, got %v", r.Error)
	}

	mustSucceed(t, e, command.ScrollInto{ContainerKey: "number_list", ItemKey: "list_item_30", DX: 0, DY: -200})
	mustSucceed(t, e, command.NewTap(registry.ByKey("list_item_30")))
	mustSucceed(t, e, command.NewTap(registry.ByText("Item 30")))
}

func TestTapCountsN(t *testing.T) {
	for _, n := range []int{0, 1, 7, 25} {
		e := newTestEngine(t, nil)
		mustSucceed(t, e, command.Reset{})
		for i := 0; i < n; i++ {
			mustSucceed(t, e, command.NewTap(registry.ByKey("increment_icon")))
		}
		if got := countText(t, e); got != strconv.Itoa(n) {
			t.Errorf("after %d taps txtCount = %q", n, got)
		}
	}
}

func TestTriggersShareCounter(t *testing.T) {
	e := newTestEngine(t, nil)

	mustSucceed(t, e, command.NewTap(registry.ByText("+")))
	mustSucceed(t, e, command.NewTap(registry.ByText("\ue567")))
	mustSucceed(t, e, command.NewTap(registry.ByKey("increment_key1")))

	if got := countText(t, e); got != "3" {
		t.Errorf("txtCount = %q, want \"3\"", got)
	}
	c, _ := e.Counter("count")
	if c.Value() != 3 {
		t.Errorf("counter value = %d, want 3", c.Value())
	}
}

func TestTapByTextEqualsTapByKey(t *testing.T) {
	byText := newTestEngine(t, nil)
	byKey := newTestEngine(t, nil)

	for i := 0; i < 4; i++ {
		mustSucceed(t, byText, command.NewTap(registry.ByText("+")))
		mustSucceed(t, byKey, command.NewTap(registry.ByKey("increment_icon")))
	}

	if diff := cmp.Diff(byKey.Elements(), byText.Elements()); diff != "" {
		t.Errorf("states differ (-byKey +byText):\n%s", diff)
	}
}

func TestResetIdempotent(t *testing.T) {
	once := newTestEngine(t, nil)
	twice := newTestEngine(t, nil)

	for _, e := range []*Engine{once, twice} {
		mustSucceed(t, e, command.NewTap(registry.ByText("+")))
		mustSucceed(t, e, command.ScrollInto{ContainerKey: "number_list", ItemKey: "list_item_40", DY: -300})
	}

	mustSucceed(t, once, command.Reset{})
	mustSucceed(t, twice, command.Reset{})
	mustSucceed(t, twice, command.Reset{})

	if diff := cmp.Diff(once.Elements(), twice.Elements()); diff != "" {
		t.Errorf("reset twice differs from reset once (-once +twice):\n%s", diff)
	}
	fresh := newTestEngine(t, nil)
	if diff := cmp.Diff(fresh.Elements(), once.Elements()); diff != "" {
		t.Errorf("reset differs from initial state (-fresh +reset):\n%s", diff)
	}
	list, _ := once.Container("number_list")
	if list.Offset() != 0 {
		t.Errorf("offset = %d after reset, want 0", list.Offset())
	}
}

func TestResetButtonByKey(t *testing.T) {
	e := newTestEngine(t, nil)
	mustSucceed(t, e, command.NewTap(registry.ByText("+")))
	mustSucceed(t, e, command.NewTap(registry.ByKey("reset_button")))
	if got := countText(t, e); got != "0" {
		t.Errorf("txtCount = %q after reset button, want \"0\"", got)
	}
}

func TestTapNonTriggerIsNoop(t *testing.T) {
	e := newTestEngine(t, nil)
	before := e.Elements()

	mustSucceed(t, e, command.NewTap(registry.ByKey("txtGreet")))
	mustSucceed(t, e, command.NewTap(registry.ByKey("txtCount")))
	mustSucceed(t, e, command.NewTap(registry.ByKey("number_list")))

	if diff := cmp.Diff(before, e.Elements()); diff != "" {
		t.Errorf("tapping non-triggers changed state (-before +after):\n%s", diff)
	}
}

func TestTapUnknown(t *testing.T) {
	e := newTestEngine(t, nil)

	for _, id := range []registry.Identifier{registry.ByKey("nope"), registry.ByText("nope")} {
		r := apply(t, e, command.NewTap(id))
		if r.Status != core.StatusError || !errors.Is(r.Error, core.ErrElementNotFound) {
			t.Errorf("tap %s: got %s %v", id, r.Status, r.Error)
		}
	}
	if got := countText(t, e); got != "0" {
		t.Errorf("failed taps changed the counter: %q", got)
	}
}

func TestQueryTexts_UnknownKeyIsEmpty(t *testing.T) {
	e := newTestEngine(t, nil)
	got := texts(t, e, "does_not_exist")
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestQueryTexts_VirtualizedItems(t *testing.T) {
	e := newTestEngine(t, nil)

	if got := texts(t, e, "list_item_3"); len(got) != 1 || got[0].Text != "Item 3" {
		t.Errorf("visible item query = %v", got)
	}
	if got := texts(t, e, "list_item_30"); len(got) != 0 {
		t.Errorf("off-screen item should not be queryable, got %v", got)
	}
}

func TestQueryTexts_NonVirtualizedItems(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) {
		c.Layout.Containers[0].Virtualized = false
	})

	mustSucceed(t, e, command.NewTap(registry.ByKey("list_item_49")))
	if got := texts(t, e, "list_item_49"); len(got) != 1 {
		t.Errorf("non-virtualized items are always present, got %v", got)
	}
}

func TestScrollInto_Errors(t *testing.T) {
	e := newTestEngine(t, nil)

	tests := []struct {
		cmd  command.ScrollInto
		want error
	}{
		{command.ScrollInto{ContainerKey: "nope", ItemKey: "list_item_1"}, core.ErrContainerNotFound},
		{command.ScrollInto{ContainerKey: "number_list", ItemKey: "txtGreet"}, core.ErrItemNotFound},
		{command.ScrollInto{ContainerKey: "number_list", ItemKey: "list_item_45", DY: -100}, core.ErrOutOfBounds},
	}
	for _, tt := range tests {
		r := apply(t, e, tt.cmd)
		if !errors.Is(r.Error, tt.want) {
			t.Errorf("%s: error %v, want %v", tt.cmd.Describe(), r.Error, tt.want)
		}
	}
}

func TestConcurrentTaps(t *testing.T) {
	e := newTestEngine(t, nil)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := registry.ByKey("increment_key1")
			if i%2 == 0 {
				id = registry.ByText("+")
			}
			if r := e.Apply(context.Background(), command.NewTap(id)); r.Error != nil {
				t.Errorf("tap failed: %v", r.Error)
			}
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := e.Apply(context.Background(), command.QueryTexts{Key: "txtCount"})
			if len(r.Texts) != 1 {
				t.Errorf("query returned %v", r.Texts)
				return
			}
			if _, err := strconv.Atoi(r.Texts[0].Text); err != nil {
				t.Errorf("torn read: %q", r.Texts[0].Text)
			}
		}()
	}
	wg.Wait()

	if got := countText(t, e); got != strconv.Itoa(n) {
		t.Errorf("txtCount = %q, want %d", got, n)
	}
}

func TestConcurrentResetAndTaps(t *testing.T) {
	e := newTestEngine(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.Apply(context.Background(), command.NewTap(registry.ByKey("increment_key1")))
		}()
		go func() {
			defer wg.Done()
			e.Apply(context.Background(), command.Reset{})
		}()
	}
	wg.Wait()

	c, _ := e.Counter("count")
	if got := countText(t, e); got != strconv.Itoa(c.Value()) {
		t.Errorf("display %q out of sync with counter %d", got, c.Value())
	}
}

func TestAsyncSettle(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) {
		c.Settle.Mode = config.SettleAsync
		c.Settle.Delay = 20 * time.Millisecond
	})
	if e.SettleMode() != config.SettleAsync {
		t.Fatalf("SettleMode() = %s", e.SettleMode())
	}

	for i := 0; i < 3; i++ {
		mustSucceed(t, e, command.NewTap(registry.ByKey("increment_key1")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if got := countText(t, e); got != "3" {
		t.Errorf("txtCount = %q after settle, want \"3\"", got)
	}
}

func TestAsyncSettle_UnknownElementFailsImmediately(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) {
		c.Settle.Mode = config.SettleAsync
	})
	r := apply(t, e, command.NewTap(registry.ByKey("nope")))
	if !errors.Is(r.Error, core.ErrElementNotFound) {
		t.Errorf("expected element_not_found, got %v", r.Error)
	}
}

func TestAsyncSettle_ResetDropsPendingEffects(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) {
		c.Settle.Mode = config.SettleAsync
		c.Settle.Delay = 50 * time.Millisecond
	})

	mustSucceed(t, e, command.NewTap(registry.ByKey("increment_key1")))
	mustSucceed(t, e, command.NewTap(registry.ByKey("increment_key1")))
	mustSucceed(t, e, command.Reset{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if got := countText(t, e); got != "0" {
		t.Errorf("txtCount = %q, effects submitted before reset must be dropped", got)
	}
}

func TestAsyncSettle_WaitIdleTimeout(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) {
		c.Settle.Mode = config.SettleAsync
		c.Settle.Delay = time.Second
	})
	mustSucceed(t, e, command.NewTap(registry.ByKey("increment_key1")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.WaitIdle(ctx); !errors.Is(err, core.ErrTimeout) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestSyncWaitIdleReturnsImmediately(t *testing.T) {
	e := newTestEngine(t, nil)
	if err := e.WaitIdle(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestElements(t *testing.T) {
	e := newTestEngine(t, nil)

	var item0, item30 *ElementState
	states := e.Elements()
	for i := range states {
		switch states[i].Key {
		case "list_item_0":
			item0 = &states[i]
		case "list_item_30":
			item30 = &states[i]
		}
	}
	if item0 == nil || item30 == nil {
		t.Fatal("expected list items in element dump")
	}
	if !item0.Visible || item30.Visible {
		t.Errorf("visibility: item0=%v item30=%v", item0.Visible, item30.Visible)
	}
}

type unknownCommand struct{}

func (unknownCommand) Type() command.Type { return "unknown" }
func (unknownCommand) Describe() string   { return "unknown" }
func (unknownCommand) Mutates() bool      { return false }

func TestApply_UnsupportedCommand(t *testing.T) {
	e := newTestEngine(t, nil)
	r := apply(t, e, unknownCommand{})
	if !errors.Is(r.Error, core.ErrMalformedRequest) {
		t.Errorf("expected malformed_request, got %v", r.Error)
	}
}
