package nest_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/nestdump/pkg/nest"
	"github.com/pthm/nestdump/pkg/schema"
)

func shopSnapshot() *schema.Snapshot {
	customers := newTable("customers", []string{"id", "name"},
		map[string]schema.Kind{"name": schema.KindText},
		[]any{int64(1), "A"},
		[]any{int64(2), "B"},
	)
	orders := newTable("orders", []string{"id", "customer_id", "amount"},
		map[string]schema.Kind{"amount": schema.KindDecimal},
		[]any{int64(10), int64(1), decimal.RequireFromString("9.99")},
	)
	orders.ForeignKeys = []schema.ForeignKey{fk("orders", "customer_id", "customers", "id")}
	return schema.NewSnapshot(customers, orders)
}

func TestMaterialize_CustomersOrders(t *testing.T) {
	tree, err := build(shopSnapshot(), nest.Independent{})
	require.NoError(t, err)

	doc, err := tree.Document()
	require.NoError(t, err)
	out, err := doc.MarshalJSON()
	require.NoError(t, err)

	assert.JSONEq(t, `{"customers":[
		{"id":1,"name":"A","orders":[{"id":10,"customer_id":1,"amount":9.99}]},
		{"id":2,"name":"B","orders":[]}
	]}`, string(out))
}

func TestMaterialize_DefaultStrategySelectsUnreferencedTables(t *testing.T) {
	tree, err := build(shopSnapshot(), nest.Unreferenced{})
	require.NoError(t, err)

	// customers is referenced by orders, so only orders is a root and it
	// has nothing pointing at it.
	require.Len(t, tree.Roots, 1)
	assert.Equal(t, "orders", tree.Roots[0].Table)
	require.Len(t, tree.Roots[0].Nodes, 1)
	assert.Empty(t, tree.Roots[0].Nodes[0].Children())
}

func TestMaterialize_RootCompleteness(t *testing.T) {
	s := schema.NewSnapshot(
		newTable("a", []string{"id"}, nil),
		newTable("b", []string{"id", "a_id"}, nil),
		newTable("c", []string{"id"}, nil),
		newTable("d", []string{"id", "b_id"}, nil),
	)
	b, _ := s.Table("b")
	b.ForeignKeys = []schema.ForeignKey{fk("b", "a_id", "a", "id")}
	d, _ := s.Table("d")
	d.ForeignKeys = []schema.ForeignKey{fk("d", "b_id", "b", "id")}

	tree, err := build(s, nest.Unreferenced{})
	require.NoError(t, err)

	var names []string
	for _, r := range tree.Roots {
		names = append(names, r.Table)
	}
	assert.Equal(t, []string{"c", "d"}, names)
}

func TestMaterialize_JoinKeepsSourceOrder(t *testing.T) {
	parents := newTable("parents", []string{"id"}, nil, []any{int64(1)}, []any{int64(2)})
	kids := newTable("kids", []string{"id", "parent_id"}, nil,
		[]any{int64(5), int64(2)},
		[]any{int64(3), int64(1)},
		[]any{int64(9), int64(1)},
		[]any{int64(1), int64(2)},
		[]any{int64(4), int64(1)},
	)
	kids.ForeignKeys = []schema.ForeignKey{fk("kids", "parent_id", "parents", "id")}

	tree, err := build(schema.NewSnapshot(parents, kids), nest.Explicit{Tables: []string{"parents"}})
	require.NoError(t, err)

	roots, ok := tree.Root("parents")
	require.True(t, ok)

	var ids []any
	children, ok := roots[0].Child("kids")
	require.True(t, ok)
	for _, n := range children {
		ids = append(ids, n.Value("id"))
	}
	assert.Equal(t, []any{int64(3), int64(9), int64(4)}, ids)

	ids = nil
	children, _ = roots[1].Child("kids")
	for _, n := range children {
		ids = append(ids, n.Value("id"))
	}
	assert.Equal(t, []any{int64(5), int64(1)}, ids)
}

func TestMaterialize_EmptyMatchYieldsEmptyList(t *testing.T) {
	tree, err := build(shopSnapshot(), nest.Independent{})
	require.NoError(t, err)

	roots, _ := tree.Root("customers")
	orders, ok := roots[1].Child("orders")
	require.True(t, ok, "key must be present even without matches")
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestMaterialize_NullJoinValueMatchesNothing(t *testing.T) {
	parents := newTable("parents", []string{"code"}, nil, []any{nil}, []any{int64(7)})
	kids := newTable("kids", []string{"id", "parent_code"}, nil,
		[]any{int64(1), nil},
		[]any{int64(2), int64(7)},
	)
	kids.ForeignKeys = []schema.ForeignKey{fk("kids", "parent_code", "parents", "code")}

	tree, err := build(schema.NewSnapshot(parents, kids), nest.Explicit{Tables: []string{"parents"}})
	require.NoError(t, err)

	roots, _ := tree.Root("parents")
	first, ok := roots[0].Child("kids")
	require.True(t, ok)
	assert.Empty(t, first)
	second, _ := roots[1].Child("kids")
	assert.Len(t, second, 1)
}

func TestMaterialize_NoTypeCoercion(t *testing.T) {
	parents := newTable("parents", []string{"id"}, nil, []any{int64(1)})
	kids := newTable("kids", []string{"id", "parent_id"}, nil, []any{int64(1), float64(1)})
	kids.ForeignKeys = []schema.ForeignKey{fk("kids", "parent_id", "parents", "id")}

	tree, err := build(schema.NewSnapshot(parents, kids), nest.Explicit{Tables: []string{"parents"}})
	require.NoError(t, err)

	roots, _ := tree.Root("parents")
	children, ok := roots[0].Child("kids")
	require.True(t, ok)
	assert.Empty(t, children)
}

func TestMaterialize_DecimalJoinIgnoresTrailingZeros(t *testing.T) {
	parents := newTable("parents", []string{"code"}, map[string]schema.Kind{"code": schema.KindDecimal},
		[]any{decimal.RequireFromString("1.50")})
	kids := newTable("kids", []string{"id", "code"}, map[string]schema.Kind{"code": schema.KindDecimal},
		[]any{int64(1), decimal.RequireFromString("1.5")})
	kids.ForeignKeys = []schema.ForeignKey{fk("kids", "code", "parents", "code")}

	tree, err := build(schema.NewSnapshot(parents, kids), nest.Explicit{Tables: []string{"parents"}})
	require.NoError(t, err)

	roots, _ := tree.Root("parents")
	children, _ := roots[0].Child("kids")
	assert.Len(t, children, 1)
}

func TestMaterialize_TerminatesOnCycle(t *testing.T) {
	a := newTable("a", []string{"id", "b_id"}, nil, []any{int64(1), int64(100)})
	b := newTable("b", []string{"id", "a_id"}, nil, []any{int64(100), int64(1)}, []any{int64(101), int64(1)})
	a.ForeignKeys = []schema.ForeignKey{fk("a", "b_id", "b", "id")}
	b.ForeignKeys = []schema.ForeignKey{fk("b", "a_id", "a", "id")}
	s := schema.NewSnapshot(a, b)

	// Every table is referenced, so the default strategy yields nothing.
	tree, err := build(s, nest.Unreferenced{})
	require.NoError(t, err)
	assert.True(t, tree.Empty())

	tree, err = build(s, nest.Explicit{Tables: []string{"a"}})
	require.NoError(t, err)

	got := projectTree(tree)
	want := map[string][]map[string]any{
		"a": {{
			"id": int64(1), "b_id": int64(100),
			"b": []map[string]any{
				{"id": int64(100), "a_id": int64(1)},
				{"id": int64(101), "a_id": int64(1)},
			},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestMaterialize_SelfReference(t *testing.T) {
	categories := newTable("categories", []string{"id", "parent_id"}, nil,
		[]any{int64(1), nil},
		[]any{int64(2), int64(1)},
		[]any{int64(3), int64(2)},
	)
	categories.ForeignKeys = []schema.ForeignKey{fk("categories", "parent_id", "categories", "id")}
	s := schema.NewSnapshot(categories)

	tree, err := build(s, nest.Unreferenced{})
	require.NoError(t, err)
	assert.True(t, tree.Empty(), "a self-referencing table is referenced")

	tree, err = build(s, nest.Independent{})
	require.NoError(t, err)

	roots, ok := tree.Root("categories")
	require.True(t, ok)
	require.Len(t, roots, 3)
	for _, n := range roots {
		_, nested := n.Child("categories")
		assert.False(t, nested, "the root table is already on the descent path")
	}
}

func TestMaterialize_SiblingBranchesDoNotShareVisited(t *testing.T) {
	users := newTable("users", []string{"id"}, nil, []any{int64(1)})
	posts := newTable("posts", []string{"id", "user_id"}, nil, []any{int64(10), int64(1)})
	comments := newTable("comments", []string{"id", "user_id", "post_id"}, nil,
		[]any{int64(100), int64(1), int64(10)},
		[]any{int64(101), int64(2), int64(10)},
	)
	posts.ForeignKeys = []schema.ForeignKey{fk("posts", "user_id", "users", "id")}
	comments.ForeignKeys = []schema.ForeignKey{
		fk("comments", "user_id", "users", "id"),
		fk("comments", "post_id", "posts", "id"),
	}

	tree, err := build(schema.NewSnapshot(users, posts, comments), nest.Explicit{Tables: []string{"users"}})
	require.NoError(t, err)

	got := projectTree(tree)
	want := map[string][]map[string]any{
		"users": {{
			"id": int64(1),
			"posts": []map[string]any{{
				"id": int64(10), "user_id": int64(1),
				"comments": []map[string]any{
					{"id": int64(100), "user_id": int64(1), "post_id": int64(10)},
					{"id": int64(101), "user_id": int64(2), "post_id": int64(10)},
				},
			}},
			"comments": []map[string]any{
				{"id": int64(100), "user_id": int64(1), "post_id": int64(10)},
			},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestMaterialize_SecondEdgeFromSameTableReplacesCollection(t *testing.T) {
	users := newTable("users", []string{"id"}, nil, []any{int64(1)}, []any{int64(2)})
	messages := newTable("messages", []string{"id", "sender_id", "recipient_id"}, nil,
		[]any{int64(1), int64(1), int64(2)},
		[]any{int64(2), int64(2), int64(1)},
		[]any{int64(3), int64(2), int64(1)},
	)
	messages.ForeignKeys = []schema.ForeignKey{
		fk("messages", "sender_id", "users", "id"),
		fk("messages", "recipient_id", "users", "id"),
	}

	tree, err := build(schema.NewSnapshot(users, messages), nest.Explicit{Tables: []string{"users"}})
	require.NoError(t, err)

	roots, _ := tree.Root("users")
	require.Len(t, roots[0].Children(), 1, "a node holds a child key once")

	inbox, _ := roots[0].Child("messages")
	var ids []any
	for _, n := range inbox {
		ids = append(ids, n.Value("id"))
	}
	assert.Equal(t, []any{int64(2), int64(3)}, ids)
}

func TestMaterialize_Idempotent(t *testing.T) {
	s := shopSnapshot()

	first, err := build(s, nest.Independent{})
	require.NoError(t, err)
	second, err := build(s, nest.Independent{})
	require.NoError(t, err)

	if diff := cmp.Diff(projectTree(first), projectTree(second)); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}

	a, err := first.Document()
	require.NoError(t, err)
	b, err := second.Document()
	require.NoError(t, err)
	aj, err := a.MarshalJSON()
	require.NoError(t, err)
	bj, err := b.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(aj), string(bj))
}

func TestMaterialize_LeavesSourceRowsUntouched(t *testing.T) {
	s := shopSnapshot()
	customers, _ := s.Table("customers")
	before := len(customers.Rows[0])

	_, err := build(s, nest.Independent{})
	require.NoError(t, err)

	assert.Len(t, customers.Rows[0], before)
}

func TestMaterialize_SharedRowGetsDistinctNodes(t *testing.T) {
	users := newTable("users", []string{"id"}, nil, []any{int64(1)})
	teams := newTable("teams", []string{"id"}, nil, []any{int64(7)})
	members := newTable("members", []string{"id", "user_id", "team_id"}, nil, []any{int64(1), int64(1), int64(7)})
	members.ForeignKeys = []schema.ForeignKey{
		fk("members", "user_id", "users", "id"),
		fk("members", "team_id", "teams", "id"),
	}

	tree, err := build(schema.NewSnapshot(users, teams, members), nest.Independent{})
	require.NoError(t, err)

	u, _ := tree.Root("users")
	tm, _ := tree.Root("teams")
	viaUser, _ := u[0].Child("members")
	viaTeam, _ := tm[0].Child("members")
	require.Len(t, viaUser, 1)
	require.Len(t, viaTeam, 1)
	assert.NotSame(t, viaUser[0], viaTeam[0])
	assert.Equal(t, 4, tree.NodeCount())
}

func TestMaterialize_InconsistentEdge(t *testing.T) {
	s := shopSnapshot()
	orders, _ := s.Table("orders")
	orders.ForeignKeys = []schema.ForeignKey{fk("orders", "customer_id", "customers", "uuid")}

	_, err := build(s, nest.Independent{})
	require.Error(t, err)
	assert.True(t, schema.IsInconsistentSchemaErr(err))
}
