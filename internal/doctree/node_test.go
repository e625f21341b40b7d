package doctree

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func intNode(v string) Node { return Node{kind: Scalar, tag: "!!int", value: v} }

func TestParse_Tree(t *testing.T) {
	t.Parallel()
	got, err := Parse([]byte(`
tools:
  - name: github_mcp
    spec_file: mcp/github.md
    retries: 3
  - name: ado
`))
	require.NoError(t, err)
	want := NewMapping(KeyValue{"tools", NewSequence(
		NewMapping(
			KeyValue{"name", NewScalar("github_mcp")},
			KeyValue{"spec_file", NewScalar("mcp/github.md")},
			KeyValue{"retries", intNode("3")},
		),
		NewMapping(KeyValue{"name", NewScalar("ado")}),
	)})
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(Node{})); diff != "" {
		t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_EmptyAndNull(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "   \n", "~", "null", "# only a comment\n"} {
		n, err := Parse([]byte(in))
		require.NoError(t, err, "%q", in)
		assert.Equal(t, Null, n.Kind(), "%q", in)
		assert.True(t, n.Empty(), "%q", in)
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"tools: [a, b", "key: value\n  - broken: [", "\t- tab"} {
		_, err := Parse([]byte(in))
		require.ErrorIs(t, err, ErrMalformed, "%q", in)
	}
}

func TestParse_AliasesAndMerge(t *testing.T) {
	t.Parallel()
	n, err := Parse([]byte(`
base: &base
  transport: stdio
  timeout: 30
tool:
  <<: *base
  name: github
  timeout: 60
copy: *base
`))
	require.NoError(t, err)
	tool, ok := n.Field("tool")
	require.True(t, ok)
	assert.Equal(t, []string{"name", "timeout", "transport"}, tool.Keys())
	timeout, _ := tool.FieldStr("timeout")
	assert.Equal(t, "60", timeout)
	transport, _ := tool.FieldStr("transport")
	assert.Equal(t, "stdio", transport)

	cp, ok := n.Field("copy")
	require.True(t, ok)
	assert.Equal(t, []string{"transport", "timeout"}, cp.Keys())
}

func TestParse_DuplicateKeyKeepsFirstPositionLastValue(t *testing.T) {
	t.Parallel()
	n, err := Parse([]byte("a: 1\nb: 2\na: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, n.Keys())
	v, _ := n.FieldStr("a")
	assert.Equal(t, "3", v)
}

func TestParse_JSONInput(t *testing.T) {
	t.Parallel()
	n, err := Parse([]byte(`[{"name": "readme", "file": "readme.md"}]`))
	require.NoError(t, err)
	items, ok := n.Items()
	require.True(t, ok)
	require.Len(t, items, 1)
	name, ok := items[0].FieldStr("name")
	assert.True(t, ok)
	assert.Equal(t, "readme", name)
}

func TestAccessors_WrongKind(t *testing.T) {
	t.Parallel()
	scalar := NewScalar("x")
	seq := NewSequence(scalar)
	mapping := NewMapping(KeyValue{"k", scalar})

	_, ok := scalar.Field("k")
	assert.False(t, ok)
	_, ok = seq.Field("k")
	assert.False(t, ok)
	_, ok = mapping.Field("missing")
	assert.False(t, ok)
	_, ok = mapping.Items()
	assert.False(t, ok)
	_, ok = scalar.Items()
	assert.False(t, ok)
	_, ok = seq.Str()
	assert.False(t, ok)
	_, ok = Node{}.Str()
	assert.False(t, ok)
	_, ok = mapping.FieldStr("missing")
	assert.False(t, ok)
	assert.Nil(t, seq.Keys())
	assert.Equal(t, 0, scalar.Len())
	assert.Equal(t, 1, seq.Len())
	assert.Equal(t, 1, mapping.Len())
}

func TestAccessors_DoNotAlias(t *testing.T) {
	t.Parallel()
	seq := NewSequence(NewScalar("a"), NewScalar("b"))
	items, _ := seq.Items()
	items[0] = NewScalar("changed")
	again, _ := seq.Items()
	s, _ := again[0].Str()
	assert.Equal(t, "a", s)
}

func TestNode_Empty(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want bool
	}{
		{"[]", true},
		{"{}", true},
		{`""`, true},
		{"false", true},
		{"0", true},
		{"0.0", true},
		{"- a", false},
		{"a: 1", false},
		{"text", false},
		{"true", false},
		{"7", false},
		{`"0"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			n, err := Parse([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Empty())
		})
	}
}

func TestNewMapping_DuplicatePanics(t *testing.T) {
	t.Parallel()
	require.Panics(t, func() {
		NewMapping(KeyValue{"a", NewScalar("1")}, KeyValue{"a", NewScalar("2")})
	})
}

func TestMarshalJSON_PreservesOrderAndTypes(t *testing.T) {
	t.Parallel()
	n, err := Parse([]byte(`
zeta: last-alphabetically
alpha: 1
enabled: true
ratio: 0.5
missing: ~
tags: [b, a]
html: "<a & b>"
symbol: "©"
big: 18446744073709551615
inf: .inf
version: "1.0"
`))
	require.NoError(t, err)
	b, err := n.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"zeta":"last-alphabetically","alpha":1,"enabled":true,"ratio":0.5,"missing":null,"tags":["b","a"],"html":"<a & b>","symbol":"©","big":18446744073709551615,"inf":".inf","version":"1.0"}`, string(b))
	assert.Equal(t, `{"zeta":"last-alphabetically","alpha":1,`, string(b[:len(`{"zeta":"last-alphabetically","alpha":1,`)]))
}

func TestIndentJSON(t *testing.T) {
	t.Parallel()
	n, err := Parse([]byte("name: github_mcp\nspec_file: mcp/github.md\nscopes: []\n"))
	require.NoError(t, err)
	got, err := IndentJSON(n, "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"github_mcp\",\n  \"spec_file\": \"mcp/github.md\",\n  \"scopes\": []\n}", got)

	got, err = IndentJSON(Node{}, "  ")
	require.NoError(t, err)
	assert.Equal(t, "null", got)
}

func TestKind_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "null", Null.String())
	assert.Equal(t, "scalar", Scalar.String())
	assert.Equal(t, "sequence", Sequence.String())
	assert.Equal(t, "mapping", Mapping.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
