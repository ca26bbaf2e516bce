package cascadetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veiloq/cascade"
)

func TestFakeRecordsCalls(t *testing.T) {
	f := New[string]()
	ctx := context.Background()

	f.Get(ctx, "faqs", nil)
	require.NoError(t, f.Set(ctx, "faqs", []string{"a"}))
	_, _, err := f.Refresh(ctx, "faqs")
	require.NoError(t, err)

	calls := f.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "get", calls[0].Method)
	assert.Equal(t, "set", calls[1].Method)
	assert.Equal(t, "refresh", calls[2].Method)
	assert.Equal(t, "faqs", calls[0].Key)
	assert.False(t, calls[0].At.IsZero())
	assert.Equal(t, 1, calls[1].Args["rows"])

	assert.Equal(t, 1, f.CallCount("get", "faqs"))
	assert.Equal(t, 0, f.CallCount("get", "other"))
	assert.Equal(t, 3, f.CallCount("get", "")+f.CallCount("set", "")+f.CallCount("refresh", ""))
}

func TestFakeLayeredLookup(t *testing.T) {
	f := New[string]()
	ctx := context.Background()
	f.Stock("faqs", []string{"row1", "row2"})

	got := f.Get(ctx, "faqs", nil)
	require.Equal(t, []string{"row1", "row2"}, got)

	// promoted: the second read is a warm hit
	_ = f.Get(ctx, "faqs", nil)
	s := f.Stats()
	assert.Equal(t, uint64(1), s.SourceHits)
	assert.Equal(t, uint64(1), s.CacheHits)
	assert.Equal(t, uint64(0), s.Misses)
}

func TestFakeMissReturnsDefault(t *testing.T) {
	f := New[string]()
	def := []string{"fallback"}

	got := f.Get(context.Background(), "nothing", def)
	assert.Equal(t, def, got)
	assert.Equal(t, uint64(1), f.Stats().Misses)
}

func TestFakeTransformAppliesToDefault(t *testing.T) {
	f := New[string]()

	got := f.GetWith(context.Background(), "nothing", []string{"a", "b"}, cascade.GetOptions[string]{
		Transform: func(rows []string) []string { return rows[:1] },
	})
	assert.Equal(t, []string{"a"}, got)
}

func TestFakeSetThenInvalidateFallsBackToStock(t *testing.T) {
	f := New[string]()
	ctx := context.Background()

	require.NoError(t, f.Set(ctx, "faqs", []string{"v2"}))
	require.NoError(t, f.Invalidate(ctx, "faqs"))
	f.AssertMissing(t, "faqs")

	// stock survived the invalidation, so the next read re-resolves
	assert.Equal(t, []string{"v2"}, f.Get(ctx, "faqs", nil))
	f.AssertHas(t, "faqs")
}

func TestFakeSkipSource(t *testing.T) {
	f := New[string]()
	ctx := context.Background()

	require.NoError(t, f.SetWith(ctx, "faqs", []string{"v1"}, cascade.SetOptions{SkipSource: true}))
	require.NoError(t, f.Invalidate(ctx, "faqs"))

	assert.Nil(t, f.Get(ctx, "faqs", nil))
}

func TestFakeRefresh(t *testing.T) {
	f := New[string]()
	ctx := context.Background()

	_, _, err := f.Refresh(ctx, "unbound")
	require.ErrorIs(t, err, cascade.ErrNoSource)

	f.Stock("faqs", []string{"fresh"})
	rows, ok, err := f.Refresh(ctx, "faqs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"fresh"}, rows)
	f.AssertHas(t, "faqs")

	// bound but empty: refresh clears the resolved state
	f.Stock("faqs", []string{})
	rows, ok, err = f.Refresh(ctx, "faqs")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rows)
	f.AssertMissing(t, "faqs")
}

func TestFakeRemember(t *testing.T) {
	f := New[string]()
	ctx := context.Background()
	produced := 0

	produce := func(context.Context) ([]string, error) {
		produced++
		return []string{"computed"}, nil
	}

	rows, err := f.Remember(ctx, "calc", time.Minute, produce)
	require.NoError(t, err)
	assert.Equal(t, []string{"computed"}, rows)

	rows, err = f.Remember(ctx, "calc", time.Minute, produce)
	require.NoError(t, err)
	assert.Equal(t, []string{"computed"}, rows)
	assert.Equal(t, 1, produced)

	// RememberWith resolves the same stored entry.
	rows, err = f.RememberWith(ctx, "calc", produce, cascade.RememberOptions{TTL: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, []string{"computed"}, rows)
	assert.Equal(t, 1, produced)

	boom := errors.New("boom")
	_, err = f.Remember(ctx, "bad", time.Minute, func(context.Context) ([]string, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	f.AssertMissing(t, "bad")
}

func TestFakeServesStoredEmptySet(t *testing.T) {
	f := New[string]()
	ctx := context.Background()
	f.Stock("faqs", []string{"stocked"})

	// an explicit replace to zero rows is served, not resolved from stock
	require.NoError(t, f.SetWith(ctx, "faqs", []string{}, cascade.SetOptions{SkipSource: true}))
	assert.Empty(t, f.Get(ctx, "faqs", []string{"default"}))
	assert.Equal(t, uint64(1), f.Stats().CacheHits)
}

func TestFakeFailWith(t *testing.T) {
	f := New[string]()
	ctx := context.Background()
	boom := errors.New("backend down")
	f.FailWith = boom

	require.ErrorIs(t, f.Set(ctx, "faqs", []string{"a"}), boom)
	f.AssertMissing(t, "faqs")
	require.ErrorIs(t, f.ClearAll(ctx), boom)

	// reads stay error-free
	assert.Equal(t, []string{"d"}, f.Get(ctx, "faqs", []string{"d"}))
}

func TestFakeClearAll(t *testing.T) {
	f := New[string]()
	ctx := context.Background()
	f.Put("a", []string{"1"})
	f.Put("b", []string{"2"})

	require.NoError(t, f.ClearAll(ctx))
	f.AssertMissing(t, "a")
	f.AssertMissing(t, "b")
	f.AssertCalled(t, "clear_all", "")
}

func TestFakeReset(t *testing.T) {
	f := New[string]()
	ctx := context.Background()
	f.Stock("faqs", []string{"x"})
	f.Get(ctx, "faqs", nil)

	f.Reset()
	assert.Empty(t, f.Calls())
	assert.Equal(t, cascade.StatsSnapshot{}, f.Stats())
	// Get records a call again after reset; stock is gone too
	assert.Nil(t, f.Get(ctx, "faqs", nil))
}

// capturingT records assertion failures instead of failing the test, so the
// negative paths of the Assert helpers can themselves be tested.
type capturingT struct {
	testing.TB
	failed bool
}

func (c *capturingT) Errorf(string, ...any) { c.failed = true }

func TestFakeAssertionFailures(t *testing.T) {
	f := New[string]()
	f.Put("present", []string{"x"})
	f.Get(context.Background(), "present", nil)

	for name, fn := range map[string]func(testing.TB) bool{
		"AssertCalled":    func(tb testing.TB) bool { return f.AssertCalled(tb, "set", "present") },
		"AssertNotCalled": func(tb testing.TB) bool { return f.AssertNotCalled(tb, "get", "present") },
		"AssertHas":       func(tb testing.TB) bool { return f.AssertHas(tb, "absent") },
		"AssertMissing":   func(tb testing.TB) bool { return f.AssertMissing(tb, "present") },
	} {
		ct := &capturingT{TB: t}
		assert.False(t, fn(ct), name)
		assert.True(t, ct.failed, name)
	}
}
