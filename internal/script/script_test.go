package script

import (
	"strings"
	"testing"
)

func TestOperationRender(t *testing.T) {
	op := Operation{
		Name: "test.op",
		Params: []Param{
			{Name: "path", Type: TypeString, Required: true},
			{Name: "count", Type: TypeNumber, Required: false},
			{Name: "flag", Type: TypeBool, Required: false},
		},
		Template: `run({param:path}, {param:count}, {param:flag})`,
	}

	tests := []struct {
		name    string
		args    map[string]any
		want    string
		wantErr string
	}{
		{
			name: "all arguments",
			args: map[string]any{"path": "/media/a.mov", "count": float64(3), "flag": true},
			want: `run("/media/a.mov", 3, true)`,
		},
		{
			name: "optional arguments omitted",
			args: map[string]any{"path": "/media/a.mov"},
			want: `run("/media/a.mov", undefined, undefined)`,
		},
		{
			name: "string escaping",
			args: map[string]any{"path": `C:\media\"clip".mov` + "\n"},
			want: `run("C:\\media\\\"clip\".mov\n", undefined, undefined)`,
		},
		{
			name:    "missing required",
			args:    map[string]any{},
			wantErr: "missing required argument",
		},
		{
			name:    "unknown argument",
			args:    map[string]any{"path": "/a", "bogus": 1},
			wantErr: "unknown argument",
		},
		{
			name:    "type mismatch",
			args:    map[string]any{"path": 42},
			wantErr: "expected string",
		},
		{
			name:    "bool mismatch",
			args:    map[string]any{"path": "/a", "flag": "yes"},
			wantErr: "expected bool",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := op.Render(tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Render() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderValueContainingPlaceholder(t *testing.T) {
	op := Operation{
		Name: "test.op",
		Params: []Param{
			{Name: "path", Type: TypeString, Required: true},
			{Name: "note", Type: TypeString, Required: false},
		},
		Template: `run({param:path}, {param:note})`,
	}

	// Argument values are literal text; placeholder syntax inside them must
	// come out verbatim, not be expanded again.
	got, err := op.Render(map[string]any{"path": "{param:path}", "note": "see {param:other} docs"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := `run("{param:path}", "see {param:other} docs")`
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderIntArgument(t *testing.T) {
	op := Operation{
		Name:     "n",
		Params:   []Param{{Name: "x", Type: TypeNumber, Required: true}},
		Template: `f({param:x})`,
	}
	got, err := op.Render(map[string]any{"x": 7})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "f(7)" {
		t.Errorf("Render() = %q, want f(7)", got)
	}
}

func TestQuoteControlCharacters(t *testing.T) {
	got := Quote("a\u0001b\u2028c")
	if got != `"a\u0001b\u2028c"` {
		t.Errorf("Quote() = %s", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	op := Operation{Name: "x.y", Template: "1+1"}
	if err := r.Register(op); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(op); err == nil {
		t.Fatal("duplicate Register succeeded")
	}
	if err := r.Register(Operation{Template: "1"}); err == nil {
		t.Fatal("Register with empty name succeeded")
	}
	if err := r.Register(Operation{Name: "empty"}); err == nil {
		t.Fatal("Register with empty template succeeded")
	}

	if _, ok := r.Get("x.y"); !ok {
		t.Error("Get(x.y) not found")
	}
	if _, err := r.Render("nope", nil); err == nil {
		t.Error("Render(unknown) succeeded")
	}

	script, err := r.Render("x.y", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if script != "1+1" {
		t.Errorf("Render() = %q", script)
	}
}

func TestBuiltins(t *testing.T) {
	r := Builtins()

	names := r.Names()
	if len(names) == 0 {
		t.Fatal("no builtin operations")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Names() not sorted: %v", names)
		}
	}

	script, err := r.Render("project.open", map[string]any{"path": "/tmp/edit.prproj"})
	if err != nil {
		t.Fatalf("Render(project.open): %v", err)
	}
	if !strings.Contains(script, `app.openDocument("/tmp/edit.prproj")`) {
		t.Errorf("rendered script = %q", script)
	}

	// Every builtin with no required params must render with nil args.
	for _, op := range r.All() {
		required := false
		for _, p := range op.Params {
			if p.Required {
				required = true
			}
		}
		if required {
			continue
		}
		if _, err := op.Render(nil); err != nil {
			t.Errorf("Render(%s, nil): %v", op.Name, err)
		}
	}
}
