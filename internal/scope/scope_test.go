package scope_test

import (
	"context"
	"testing"

	"github.com/staffdesk/staffdesk/internal/scope"
	"github.com/staffdesk/staffdesk/pkg/errors"
	"github.com/staffdesk/staffdesk/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Engineering(1) > Backend(2) > Databases(3); Sales(4)
type tree map[int64][]int64

func (t tree) DescendantIDs(ctx context.Context, root int64) ([]int64, error) {
	ids, ok := t[root]
	if !ok {
		return []int64{}, nil
	}
	return ids, nil
}

type directory map[int64][]string

func (d directory) UsersByDepartmentIDs(ctx context.Context, ids []int64) ([]string, error) {
	var out []string
	for _, id := range ids {
		out = append(out, d[id]...)
	}
	return out, nil
}

func newResolver() *scope.Resolver {
	return scope.NewResolver(
		tree{1: {1, 2, 3}, 2: {2, 3}, 3: {3}, 4: {4}},
		directory{1: {"eng-lead"}, 2: {"bea"}, 3: {"dan"}, 4: {"sam"}},
	)
}

func TestResolver_Visible(t *testing.T) {
	r := newResolver()
	ctx := context.Background()

	t.Run("admin sees all", func(t *testing.T) {
		v, err := r.Visible(ctx, testutil.Admin("admin"))
		require.NoError(t, err)
		assert.True(t, v.IsAll())
		assert.True(t, v.Allows("anyone"))
		assert.Nil(t, v.Usernames())
	})

	t.Run("manager sees subtree and self", func(t *testing.T) {
		v, err := r.Visible(ctx, testutil.Manager("mona", 2))
		require.NoError(t, err)
		assert.Equal(t, []string{"bea", "dan", "mona"}, v.Usernames())
		assert.False(t, v.Allows("eng-lead"))
		assert.False(t, v.Allows("sam"))
	})

	t.Run("employee sees self", func(t *testing.T) {
		v, err := r.Visible(ctx, testutil.Employee("dan", 3))
		require.NoError(t, err)
		assert.Equal(t, []string{"dan"}, v.Usernames())
	})

	t.Run("no actor", func(t *testing.T) {
		_, err := r.Visible(ctx, nil)
		assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	})
}

func TestResolver_ForDepartment(t *testing.T) {
	r := newResolver()
	ctx := context.Background()

	v, err := r.ForDepartment(ctx, testutil.Admin("admin"), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"bea", "dan"}, v.Usernames())

	v, err = r.ForDepartment(ctx, testutil.Manager("mona", 2), 4)
	require.NoError(t, err)
	assert.Empty(t, v.Usernames())

	v, err = r.ForDepartment(ctx, testutil.Admin("admin"), 99)
	require.NoError(t, err)
	assert.Empty(t, v.Usernames())
}

func TestResolver_FromContext(t *testing.T) {
	r := newResolver()

	v, err := r.FromContext(testutil.ActorContext(testutil.Admin("admin")), 0)
	require.NoError(t, err)
	assert.True(t, v.IsAll())

	v, err = r.FromContext(testutil.ActorContext(testutil.Admin("admin")), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"dan"}, v.Usernames())
}

func TestResolver_Require(t *testing.T) {
	r := newResolver()
	ctx := context.Background()

	assert.NoError(t, r.Require(ctx, testutil.Manager("mona", 2), "dan"))
	err := r.Require(ctx, testutil.Manager("mona", 2), "sam")
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestVisibility_Filter(t *testing.T) {
	v := scope.Only("a", "c")
	assert.Equal(t, []string{"c", "a"}, v.Filter([]string{"c", "b", "a"}))
	assert.Equal(t, []string{"x"}, scope.All().Filter([]string{"x"}))
}

func TestVisibility_NarrowAndEmpty(t *testing.T) {
	assert.False(t, scope.All().Empty())
	assert.True(t, scope.Only().Empty())

	v := scope.All().Narrow([]string{"b", "a"})
	assert.Equal(t, []string{"a", "b"}, v.Usernames())

	v = scope.Only("a").Narrow([]string{"b"})
	assert.True(t, v.Empty())
	assert.NotNil(t, v.Usernames())

	assert.True(t, scope.All().Narrow(nil).IsAll())
}
