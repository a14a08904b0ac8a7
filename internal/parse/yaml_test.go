package parse

import (
	"errors"
	"testing"

	"github.com/jacoelho/treeview/internal/docerr"
	"github.com/jacoelho/treeview/internal/value"
)

func mustYAML(t *testing.T, input string) []value.Root {
	t.Helper()

	roots, err := YAML([]byte(input), Options{})
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	return roots
}

func TestYAMLMatchesJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		json string
	}{
		{
			name: "mapping",
			yaml: "name: svc\nport: 8080\nratio: 0.5\nenabled: true\nnothing: null\n",
			json: `{"name":"svc","port":8080,"ratio":0.5,"enabled":true,"nothing":null}`,
		},
		{
			name: "nested",
			yaml: "items:\n  - id: 1\n    tags: [a, b]\n  - id: 2\n    tags: []\nmeta: {}\n",
			json: `{"items":[{"id":1,"tags":["a","b"]},{"id":2,"tags":[]}],"meta":{}}`,
		},
		{
			name: "quoted scalars stay strings",
			yaml: "a: \"1\"\nb: 'true'\nc: ~\n",
			json: `{"a":"1","b":"true","c":null}`,
		},
		{
			name: "block scalar",
			yaml: "text: |\n  line one\n  line two\n",
			json: `{"text":"line one\nline two\n"}`,
		},
		{
			name: "sequence root",
			yaml: "- 1\n- two\n- [3]\n",
			json: `[1,"two",[3]]`,
		},
		{
			name: "hex integer",
			yaml: "mask: 0xff\n",
			json: `{"mask":255}`,
		},
		{
			name: "duplicate key keeps first position",
			yaml: "a: 1\nb: 2\na: 3\n",
			json: `{"a":3,"b":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			roots := mustYAML(t, tt.yaml)
			want, err := JSON([]byte(tt.json), Options{})
			if err != nil {
				t.Fatalf("JSON() error = %v", err)
			}
			if len(roots) != 1 || roots[0].Indexed {
				t.Fatalf("YAML() roots = %d, want one unlabeled root", len(roots))
			}
			if !value.Equal(roots[0].Value, want) {
				t.Errorf("YAML() = %s, want %s", value.AppendJSON(nil, roots[0].Value), tt.json)
			}
		})
	}
}

func TestYAMLMultiDocument(t *testing.T) {
	t.Parallel()

	roots := mustYAML(t, "a: 1\n---\nb: 2\n---\n- x\n")
	if len(roots) != 3 {
		t.Fatalf("len(roots) = %d, want 3", len(roots))
	}
	for i, root := range roots {
		if !root.Indexed || root.Index != i {
			t.Errorf("roots[%d] label = %d (indexed %v)", i, root.Index, root.Indexed)
		}
	}
	if got := string(value.AppendJSON(nil, roots[2].Value)); got != `["x"]` {
		t.Errorf("roots[2] = %s, want [\"x\"]", got)
	}
}

func TestYAMLAnchorsAndMerge(t *testing.T) {
	t.Parallel()

	input := `
base: &base
  host: localhost
  port: 80
extra: &extra
  tls: true
svc:
  <<: [*base, *extra]
  port: 8080
copy: *base
`
	roots := mustYAML(t, input)
	root := roots[0].Value

	svc, ok := root.Get("svc")
	if !ok {
		t.Fatal("svc missing")
	}
	if got := string(value.AppendJSON(nil, svc)); got != `{"host":"localhost","tls":true,"port":8080}` {
		t.Errorf("svc = %s", got)
	}

	copied, _ := root.Get("copy")
	base, _ := root.Get("base")
	if !value.Equal(copied, base) {
		t.Errorf("copy = %s, want %s", value.AppendJSON(nil, copied), value.AppendJSON(nil, base))
	}
}

func TestYAMLTags(t *testing.T) {
	t.Parallel()

	input := "s: !!str 123\nn: !!null ''\nf: !!float 1\nb: !!binary aGVsbG8=\ni: !!int \"42\"\n"
	root := mustYAML(t, input)[0].Value

	s, _ := root.Get("s")
	if s.Kind() != value.String || s.Str() != "123" {
		t.Errorf("s = %v %q, want string 123", s.Kind(), s.Str())
	}
	n, _ := root.Get("n")
	if n.Kind() != value.Null {
		t.Errorf("n = %v, want null", n.Kind())
	}
	f, _ := root.Get("f")
	if f.Kind() != value.Number || f.IsInt() {
		t.Errorf("f = %v (int %v), want float number", f.Kind(), f.IsInt())
	}
	b, _ := root.Get("b")
	if !b.IsBinary() || b.Str() != "0x68656c6c6f" {
		t.Errorf("b = %q (binary %v), want 0x68656c6c6f", b.Str(), b.IsBinary())
	}
	i, _ := root.Get("i")
	if i.Kind() != value.Number || i.Literal() != "42" {
		t.Errorf("i = %v %q, want number 42", i.Kind(), i.Literal())
	}
}

func TestYAMLSpecialFloats(t *testing.T) {
	t.Parallel()

	root := mustYAML(t, "a: .inf\nb: .nan\n")[0].Value
	for _, key := range []string{"a", "b"} {
		v, _ := root.Get(key)
		if v.Kind() != value.String {
			t.Errorf("%s kind = %v, want string", key, v.Kind())
		}
	}
}

func TestYAMLErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"self alias", "a: &x [1, *x]\n", docerr.ErrCycle},
		{"alias into enclosing mapping", "root: &r\n  child:\n    back: *r\n", docerr.ErrCycle},
		{"unknown alias", "a: *missing\n", docerr.ErrParse},
		{"syntax", "a: [1, 2\n", docerr.ErrParse},
		{"bad merge", "a: 1\nb:\n  <<: 5\n", docerr.ErrParse},
		{"bad binary", "a: !!binary '***'\n", docerr.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := YAML([]byte(tt.input), Options{})
			if !errors.Is(err, tt.want) {
				t.Errorf("YAML() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// aliasBomb nests eight levels of ten aliases: about 10^8 nodes once expanded.
const aliasBomb = `a: &a [x, x, x, x, x, x, x, x, x, x]
b: &b [*a, *a, *a, *a, *a, *a, *a, *a, *a, *a]
c: &c [*b, *b, *b, *b, *b, *b, *b, *b, *b, *b]
d: &d [*c, *c, *c, *c, *c, *c, *c, *c, *c, *c]
e: &e [*d, *d, *d, *d, *d, *d, *d, *d, *d, *d]
f: &f [*e, *e, *e, *e, *e, *e, *e, *e, *e, *e]
g: &g [*f, *f, *f, *f, *f, *f, *f, *f, *f, *f]
h: [*g, *g, *g, *g, *g, *g, *g, *g, *g, *g]
`

func TestYAMLAliasExpansionLimit(t *testing.T) {
	t.Parallel()

	// root, a with its two items, b with two copies of a
	const input = "a: &a [1, 2]\nb: [*a, *a]\n"

	tests := []struct {
		name     string
		input    string
		maxNodes int64
		want     error
	}{
		{name: "at limit", input: input, maxNodes: 11},
		{name: "over limit", input: input, maxNodes: 10, want: docerr.ErrLimit},
		{name: "bomb with defaults", input: aliasBomb, want: docerr.ErrLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := YAML([]byte(tt.input), Options{MaxNodes: tt.maxNodes})
			if tt.want == nil {
				if err != nil {
					t.Errorf("YAML() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("YAML() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestYAMLCyclePosition(t *testing.T) {
	t.Parallel()

	_, err := YAML([]byte("a: &x\n  b: *x\n"), Options{})
	var derr *docerr.Error
	if !errors.As(err, &derr) {
		t.Fatalf("YAML() error = %v, want *docerr.Error", err)
	}
	if derr.Kind != docerr.CycleDetected || derr.Line != 2 {
		t.Errorf("error = %v (line %d), want CycleDetected on line 2", derr, derr.Line)
	}
}

func TestYAMLEmptyDocuments(t *testing.T) {
	t.Parallel()

	if roots := mustYAML(t, ""); len(roots) != 0 {
		t.Errorf("YAML(empty) roots = %d, want 0", len(roots))
	}
	roots := mustYAML(t, "---\n")
	if len(roots) != 1 || roots[0].Value.Kind() != value.Null {
		t.Errorf("YAML(---) = %+v, want one null root", roots)
	}
}
