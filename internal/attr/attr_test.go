package attr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zclconf/go-cty/cty"

	"github.com/nilla-nix/nilla-cli/internal/expr"
	"github.com/nilla-nix/nilla-cli/internal/nix"
)

type fakeEvaluator struct {
	results []nix.Result
	err     error
	exprs   []string
	opts    []nix.EvalOpts
}

func (f *fakeEvaluator) Evaluate(_ context.Context, e expr.Expr, opts nix.EvalOpts) (nix.Result, error) {
	f.exprs = append(f.exprs, expr.Render(e))
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nix.Result{}, f.err
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

var testSrc = expr.Source{StorePath: "/nix/store/abc-project", Hash: "h", File: "nilla.nix"}

func mustPath(t *testing.T, s string) expr.AttrPath {
	t.Helper()
	p, err := expr.ParseAttrPath(s)
	if err != nil {
		t.Fatalf("ParseAttrPath(%q): %v", s, err)
	}
	return p
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want Kind
	}{
		{"systems.nixos", KindSystem},
		{"shells.default.result", KindShell},
		{`packages."foo".result."x86_64-linux"`, KindPackage},
		{"lib.foo", KindUnknown},
		{"packagesx", KindUnknown},
		{`"packages".x`, KindPackage},
	}
	for _, tt := range tests {
		if got := KindOf(mustPath(t, tt.path)); got != tt.want {
			t.Errorf("KindOf(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	tests := map[Kind]string{
		KindSystem:  "system",
		KindShell:   "shell",
		KindPackage: "package",
		KindUnknown: "unknown attribute",
		Kind(99):    "unknown attribute",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}

func TestExists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		result  nix.Result
		want    bool
		wantErr error
	}{
		{"present", nix.Structured(cty.True), true, nil},
		{"absent", nix.Structured(cty.False), false, nil},
		{"non-boolean", nix.Structured(cty.StringVal("yes")), false, nix.ErrTypeMismatch},
		{"raw", nix.Raw("true"), false, nix.ErrTypeMismatch},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev := &fakeEvaluator{results: []nix.Result{tt.result}}
			r := &Resolver{Eval: ev}

			got, err := r.Exists(context.Background(), testSrc, mustPath(t, "packages.default"))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
			if !ev.opts[0].JSON || !ev.opts[0].Impure {
				t.Errorf("opts = %+v, want JSON and impure", ev.opts[0])
			}
			if !strings.HasSuffix(ev.exprs[0], "(project.packages or {}) ? default") {
				t.Errorf("unexpected expression:\n%s", ev.exprs[0])
			}
		})
	}
}

func TestRequire(t *testing.T) {
	t.Parallel()

	r := &Resolver{Eval: &fakeEvaluator{results: []nix.Result{nix.Structured(cty.False)}}}
	if err := r.Require(context.Background(), testSrc, mustPath(t, "packages.nope")); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	r = &Resolver{Eval: &fakeEvaluator{err: nix.ErrEvaluation}}
	if err := r.Require(context.Background(), testSrc, mustPath(t, "packages.nope")); !errors.Is(err, nix.ErrEvaluation) {
		t.Errorf("error = %v, want ErrEvaluation", err)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		result nix.Result
		want   Classification
	}{
		{
			name:   "package with name",
			path:   `packages."hello".result."x86_64-linux"`,
			result: nix.Structured(cty.StringVal("hello-2.12")),
			want:   Classification{Kind: KindPackage, Name: "hello-2.12"},
		},
		{
			name:   "null name falls back to path",
			path:   `shells."dev".result."x86_64-linux"`,
			result: nix.Structured(cty.NullVal(cty.DynamicPseudoType)),
			want:   Classification{Kind: KindShell, Name: `shells."dev".result."x86_64-linux"`},
		},
		{
			name:   "non-string name falls back to path",
			path:   "systems.nixos",
			result: nix.Structured(cty.NumberIntVal(3)),
			want:   Classification{Kind: KindSystem, Name: "systems.nixos"},
		},
		{
			name:   "unknown category",
			path:   "lib.thing",
			result: nix.Structured(cty.StringVal("thing")),
			want:   Classification{Kind: KindUnknown, Name: "thing"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &Resolver{Eval: &fakeEvaluator{results: []nix.Result{tt.result}}}
			got, err := r.Classify(context.Background(), testSrc, mustPath(t, tt.path))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClassify_EvaluationFailureFallsBack(t *testing.T) {
	t.Parallel()

	r := &Resolver{Eval: &fakeEvaluator{err: &nix.CommandError{
		Kind:     nix.ErrEvaluation,
		Tool:     "nix",
		Args:     []string{"eval"},
		ExitCode: 1,
		Stderr:   "error: name throws",
	}}}
	path := mustPath(t, `packages."foo".result."x86_64-linux"`)

	got, err := r.Classify(context.Background(), testSrc, path)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := Classification{Kind: KindPackage, Name: `packages."foo".result."x86_64-linux"`}
	if got != want {
		t.Errorf("Classify() = %+v, want %+v", got, want)
	}
}

func TestClassify_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Resolver{Eval: &fakeEvaluator{err: context.Canceled}}
	if _, err := r.Classify(ctx, testSrc, mustPath(t, "packages.x")); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestMainProgram(t *testing.T) {
	t.Parallel()

	ev := &fakeEvaluator{results: []nix.Result{nix.Structured(cty.StringVal("hello"))}}
	r := &Resolver{Eval: ev}
	got, err := r.MainProgram(context.Background(), testSrc, mustPath(t, "packages.default.result.x"), "default")
	if err != nil {
		t.Fatalf("MainProgram: %v", err)
	}
	if got != "hello" {
		t.Errorf("MainProgram() = %q, want hello", got)
	}
	if !strings.Contains(ev.exprs[0], `.meta.mainProgram or (`) {
		t.Errorf("unexpected expression:\n%s", ev.exprs[0])
	}

	r = &Resolver{Eval: &fakeEvaluator{results: []nix.Result{nix.Structured(cty.True)}}}
	if _, err := r.MainProgram(context.Background(), testSrc, mustPath(t, "packages.x"), "x"); !errors.Is(err, nix.ErrTypeMismatch) {
		t.Errorf("error = %v, want ErrTypeMismatch", err)
	}
}
