package result_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/natcodec/result"
)

func TestConstructors(t *testing.T) {
	e := result.Empty[int, string]()
	assert.False(t, e.IsPresent())
	assert.Empty(t, e.Metadata())

	o := result.Of[int, string](3)
	v, ok := o.Get()
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	var p *int
	assert.False(t, result.OfNullable[*int, string](p).IsPresent())
	x := 1
	assert.True(t, result.OfNullable[*int, string](&x).IsPresent())

	f := result.Failed[int]("bad", "worse")
	assert.False(t, f.IsPresent())
	assert.Equal(t, []string{"bad", "worse"}, f.Metadata())
	assert.Equal(t, 9, f.OrElse(9))
}

func TestWithMetadata_DoesNotMutateReceiver(t *testing.T) {
	base := result.Of[int, string](1).WithMetadata("a")
	r1 := base.WithMetadata("b")
	r2 := base.WithMetadata("c")
	assert.Equal(t, []string{"a"}, base.Metadata())
	assert.Equal(t, []string{"a", "b"}, r1.Metadata())
	assert.Equal(t, []string{"a", "c"}, r2.Metadata())

	md := r1.Metadata()
	md[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, r1.Metadata())
}

func TestMap(t *testing.T) {
	r := result.Map(result.Of[int, string](2).WithMetadata("m"), func(v int) string { return "v=" + string(rune('0'+v)) })
	v, ok := r.Get()
	require.True(t, ok)
	assert.Equal(t, "v=2", v)
	assert.Equal(t, []string{"m"}, r.Metadata())

	absent := result.Map(result.Failed[int]("e"), func(int) string { t.Fatal("must not be called"); return "" })
	assert.False(t, absent.IsPresent())
	assert.Equal(t, []string{"e"}, absent.Metadata())

	assert.Panics(t, func() {
		result.Map(result.Of[int, string](1), func(int) *int { return nil })
	})
}

func TestFlatMap_MetadataOrder(t *testing.T) {
	outer := result.Of[int, string](1).WithMetadata("outer")
	r := result.FlatMap(outer, func(v int) result.Result[int, string] {
		return result.Of[int, string](v + 1).WithMetadata("inner")
	})
	assert.Equal(t, []string{"outer", "inner"}, r.Metadata())
	assert.Equal(t, 2, r.OrElse(0))

	failedInner := result.FlatMap(outer, func(int) result.Result[int, string] { return result.Failed[int]("x") })
	assert.False(t, failedInner.IsPresent())
	assert.Equal(t, []string{"outer", "x"}, failedInner.Metadata())
}

func TestEqualAndString(t *testing.T) {
	a := result.Of[[]int, error]([]int{1, 2})
	b := result.Of[[]int, error]([]int{1, 2})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(b.WithMetadata(errors.New("x"))))
	assert.False(t, a.Equal(result.Empty[[]int, error]()))
	assert.True(t, result.Failed[int]("z").Equal(result.Failed[int]("z")))

	assert.Equal(t, "Result[7, meta=[]]", result.Of[int, string](7).String())
	assert.Equal(t, "Result[absent, meta=[e]]", result.Failed[int]("e").String())
}
