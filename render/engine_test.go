package render

import (
	"errors"
	"testing"

	"github.com/gogpu/viz"
	"github.com/gogpu/viz/backend/headless"
	"github.com/gogpu/viz/shader"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.PopulateDefaults(); err != nil {
		t.Fatalf("PopulateDefaults: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func headlessDevice(t *testing.T, e *Engine) *headless.Device {
	t.Helper()
	d, ok := e.Device().(*headless.Device)
	if !ok {
		t.Fatalf("engine device is %T, want *headless.Device", e.Device())
	}
	return d
}

// tweakRule builds a rule that appends the statement to the final color
// adjustment point. Handy for composing order-independent test variants.
func tweakRule(stmt string) shader.Rule {
	return shader.Rule{
		Replacements: []shader.Replacement{{
			Target:  shader.PointFragmentTweak,
			Snippet: "    " + stmt,
		}},
	}
}

func TestGetCompiledProgramMemoized(t *testing.T) {
	e := newTestEngine(t)
	d := headlessDevice(t, e)

	before := d.CompileCount()
	cp1, err := e.GetCompiledProgram("MESH", []string{"SHADE_BASECOLOR"}, DefaultsNone)
	if err != nil {
		t.Fatalf("first compile: %v", err)
	}
	cp2, err := e.GetCompiledProgram("MESH", []string{"SHADE_BASECOLOR"}, DefaultsNone)
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if cp1 != cp2 {
		t.Error("same composition returned distinct compiled programs")
	}
	if got := d.CompileCount() - before; got != 1 {
		t.Errorf("device compiles = %d, want 1", got)
	}

	stats := e.CacheStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("cache stats = %d hits / %d misses, want 1/1", stats.Hits, stats.Misses)
	}
}

func TestRuleListNormalization(t *testing.T) {
	e := newTestEngine(t)

	cp1, err := e.GetCompiledProgram("MESH", []string{"SHADE_BASECOLOR"}, DefaultsNone)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	// Empty names drop, repeats collapse to the first occurrence.
	cp2, err := e.GetCompiledProgram("MESH", []string{"", "SHADE_BASECOLOR", "SHADE_BASECOLOR", ""}, DefaultsNone)
	if err != nil {
		t.Fatalf("compile with noisy list: %v", err)
	}
	if cp1 != cp2 {
		t.Error("normalized rule lists should share one compiled program")
	}
}

func TestRuleOrderCompilesSeparately(t *testing.T) {
	e := newTestEngine(t)

	if err := e.RegisterShaderRule("TEST_HALVE", tweakRule("litColor = litColor * 0.5;")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := e.RegisterShaderRule("TEST_LIFT", tweakRule("litColor = litColor + vec3<f32>(0.1, 0.1, 0.1);")); err != nil {
		t.Fatalf("register: %v", err)
	}

	ab, err := e.GetCompiledProgram("MESH", []string{"TEST_HALVE", "TEST_LIFT"}, DefaultsNone)
	if err != nil {
		t.Fatalf("compile halve-lift: %v", err)
	}
	ba, err := e.GetCompiledProgram("MESH", []string{"TEST_LIFT", "TEST_HALVE"}, DefaultsNone)
	if err != nil {
		t.Fatalf("compile lift-halve: %v", err)
	}
	if ab == ba {
		t.Error("rule order should produce distinct compiled programs")
	}
}

func TestCustomRulesApplyBeforePreset(t *testing.T) {
	e := newTestEngine(t)

	// The preset re-lists GLOBAL_FRAGMENT_FILTER; dedup keeps the custom
	// occurrence, so the key matches listing it up front explicitly.
	cp1, err := e.GetCompiledProgram("MESH", []string{"GLOBAL_FRAGMENT_FILTER", "SHADE_BASECOLOR"}, DefaultsSceneObject)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	cp2, err := e.GetCompiledProgram("MESH", []string{"SHADE_BASECOLOR"}, DefaultsSceneObject)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if cp1 == cp2 {
		t.Error("custom rules precede the preset, so these orders must differ")
	}
}

func TestRequestShaderInstancesShareCompiled(t *testing.T) {
	e := newTestEngine(t)

	p1, err := e.RequestShader("MESH", nil, DefaultsNone)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	p2, err := e.RequestShader("MESH", nil, DefaultsNone)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if p1 == p2 {
		t.Error("bound instances must be distinct")
	}
	if p1.Compiled() != p2.Compiled() {
		t.Error("bound instances over one composition must share the compiled program")
	}
}

func TestUnknownProgramAndRuleAreFatal(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.GetCompiledProgram("NO_SUCH_PROGRAM", nil, DefaultsNone); !viz.IsFatal(err) {
		t.Errorf("unknown program: err = %v, want fatal", err)
	}
	if _, err := e.GetCompiledProgram("MESH", []string{"NO_SUCH_RULE"}, DefaultsNone); !viz.IsFatal(err) {
		t.Errorf("unknown rule: err = %v, want fatal", err)
	}
}

func TestCompileErrorNotCached(t *testing.T) {
	e := newTestEngine(t)

	bad := []shader.StageSpec{
		{Kind: viz.StageVertex, Source: "fn broken( {"},
		{Kind: viz.StageFragment, Source: "fn also_broken"},
	}
	if err := e.RegisterShaderProgram("TEST_BROKEN", bad, viz.DrawTriangles); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := e.GetCompiledProgram("TEST_BROKEN", nil, DefaultsNone); err == nil {
		t.Fatal("broken program compiled")
	}
	if _, err := e.GetCompiledProgram("TEST_BROKEN", nil, DefaultsNone); err == nil {
		t.Fatal("broken program compiled on retry")
	}
	// Failures are retried, never cached.
	if got := e.CacheStats().Len; got != 0 {
		t.Errorf("cache holds %d entries after failing compiles, want 0", got)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	e := newTestEngine(t)

	stages := shader.BuiltinPrograms()[0].Stages
	if err := e.RegisterShaderProgram("MESH", stages, viz.DrawTriangles); !viz.IsFatal(err) {
		t.Errorf("duplicate program: err = %v, want fatal", err)
	}
	if err := e.RegisterShaderProgram("", stages, viz.DrawTriangles); err == nil || viz.IsFatal(err) {
		t.Errorf("empty program name: err = %v, want usage error", err)
	}
	if err := e.RegisterShaderRule("SHADE_BASECOLOR", tweakRule("litColor = albedo;")); !viz.IsFatal(err) {
		t.Errorf("duplicate rule: err = %v, want fatal", err)
	}
	if err := e.RegisterShaderRule("CLIP_PLANE_CULL_0", tweakRule("litColor = albedo;")); err == nil || viz.IsFatal(err) {
		t.Errorf("reserved prefix: err = %v, want usage error", err)
	}
}

func TestClipPlaneRulesExtendSceneObjectPreset(t *testing.T) {
	e := newTestEngine(t)

	objName, gridName, err := e.RegisterClipPlaneRules("0")
	if err != nil {
		t.Fatalf("RegisterClipPlaneRules: %v", err)
	}
	if objName != "CLIP_PLANE_CULL_0" || gridName != "CLIP_PLANE_VOLUMEGRID_CULL_0" {
		t.Fatalf("rule names = %q, %q", objName, gridName)
	}

	with, err := e.RequestShader("MESH", nil, DefaultsSceneObject)
	if err != nil {
		t.Fatalf("request with clip: %v", err)
	}
	if !with.HasUniform("u_clipPlane_0") {
		t.Error("scene-object preset should carry the clip-plane uniform")
	}

	without, err := e.RequestShader("MESH", nil, DefaultsSceneObjectNoClip)
	if err != nil {
		t.Fatalf("request without clip: %v", err)
	}
	if without.HasUniform("u_clipPlane_0") {
		t.Error("no-clip preset should filter the clip-plane rules")
	}

	if _, _, err := e.RegisterClipPlaneRules("0"); !viz.IsFatal(err) {
		t.Errorf("re-registering a suffix: err = %v, want fatal", err)
	}
}

func TestColorMapRegistry(t *testing.T) {
	e := newTestEngine(t)

	cm, err := e.ColorMap("viridis")
	if err != nil {
		t.Fatalf("viridis missing after PopulateDefaults: %v", err)
	}
	if cm.Name != "viridis" {
		t.Errorf("colormap name = %q", cm.Name)
	}
	if _, err := e.ColorMap("no-such-map"); err == nil {
		t.Error("unknown colormap lookup succeeded")
	}
	if err := e.RegisterColorMap("", nil); err == nil {
		t.Error("empty registration succeeded")
	}
}

func TestCheckErrorEscalation(t *testing.T) {
	e := newTestEngine(t)
	d := headlessDevice(t, e)

	if err := e.CheckError(false); err != nil {
		t.Fatalf("fresh engine has pending error: %v", err)
	}

	// Provoke a device error, then observe it through the engine.
	if err := d.WriteBuffer(9999, 0, []byte{1}); err == nil {
		t.Fatal("write to bogus buffer succeeded")
	}
	err := e.CheckError(true)
	if !viz.IsFatal(err) {
		t.Errorf("escalated error = %v, want fatal", err)
	}
	if !errors.Is(err, viz.ErrFatal) {
		t.Errorf("escalated error should wrap the fatal sentinel, got %v", err)
	}
	if err := e.CheckError(false); err != nil {
		t.Errorf("error state should clear after polling, got %v", err)
	}
}
