package render

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
	_ "github.com/gogpu/viz/backend/headless" // always-available fallback device
	"github.com/gogpu/viz/cache"
	"github.com/gogpu/viz/shader"
)

// DefaultRules selects which preset rule list is appended after the caller's
// custom rules when a shader is requested.
type DefaultRules int

const (
	// DefaultsNone appends nothing.
	DefaultsNone DefaultRules = iota
	// DefaultsSceneObject appends the standard scene-object rules,
	// including any registered clip-plane cull rules.
	DefaultsSceneObject
	// DefaultsSceneObjectNoClip is DefaultsSceneObject with every
	// clip-plane rule filtered out.
	DefaultsSceneObjectNoClip
	// DefaultsPick appends the picking rules.
	DefaultsPick
	// DefaultsProcess appends the post-processing rules.
	DefaultsProcess
)

// registeredProgram is one entry of the base program registry.
type registeredProgram struct {
	stages []shader.StageSpec
	mode   viz.DrawMode
}

// Engine owns the program and rule registries, the compiled-program cache
// and the device connection.
type Engine struct {
	dev    backend.Device
	strict bool

	mu       sync.RWMutex
	programs map[string]registeredProgram
	rules    map[string]shader.Rule
	// Scene-object preset, in registration order. Starts with the standard
	// rules; clip-plane cull rules are appended as planes register.
	sceneObjectRules []string
	colorMaps        map[string]*viz.ColorMap

	compiled *cache.Cache[string, *CompiledProgram]

	// Render target bound by FrameBuffer.BindForRendering, zero for the
	// default target.
	boundTarget   backend.FramebufferID
	boundViewport [4]int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDevice makes the engine use the given device instead of the best
// registered one. The engine takes ownership and initializes it.
func WithDevice(d backend.Device) EngineOption {
	return func(e *Engine) { e.dev = d }
}

// WithStrictChecking makes every draw poll the device error state. Slow;
// meant for debugging.
func WithStrictChecking() EngineOption {
	return func(e *Engine) { e.strict = true }
}

// NewEngine creates an engine and initializes its device. Registries start
// empty; call PopulateDefaults for the built-in program and rule library.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		programs:         make(map[string]registeredProgram),
		rules:            make(map[string]shader.Rule),
		sceneObjectRules: []string{"GLOBAL_FRAGMENT_FILTER", "CULL_POS_FROM_VIEW"},
		colorMaps:        make(map[string]*viz.ColorMap),
		compiled:         cache.New[string, *CompiledProgram](),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.dev == nil {
		dev, err := backend.InitDefault()
		if err != nil {
			return nil, viz.Fatalf("no usable device: %v", err)
		}
		e.dev = dev
	} else if err := e.dev.Init(); err != nil {
		return nil, viz.Fatalf("device init: %v", err)
	}

	viz.Logger().Info("engine ready", slog.String("device", e.dev.Name()))
	return e, nil
}

// Device returns the engine's device.
func (e *Engine) Device() backend.Device { return e.dev }

// Close destroys all cached programs and shuts the device down. The engine
// is unusable after Close.
func (e *Engine) Close() {
	e.compiled.Clear(func(cp *CompiledProgram) {
		e.dev.DestroyProgram(cp.id)
	})
	e.mu.Lock()
	e.programs = make(map[string]registeredProgram)
	e.rules = make(map[string]shader.Rule)
	e.colorMaps = make(map[string]*viz.ColorMap)
	e.mu.Unlock()
	e.dev.Close()
}

// PopulateDefaults registers the built-in program and rule library and the
// built-in colormaps. Call once, after NewEngine.
func (e *Engine) PopulateDefaults() error {
	for _, p := range shader.BuiltinPrograms() {
		if err := e.RegisterShaderProgram(p.Name, p.Stages, p.Mode); err != nil {
			return err
		}
	}
	for _, r := range shader.BuiltinRules() {
		if err := e.RegisterShaderRule(r.Name, r.Rule); err != nil {
			return err
		}
	}
	for _, cm := range []*viz.ColorMap{viz.ColorMapViridis, viz.ColorMapCoolWarm, viz.ColorMapBlues} {
		if err := e.RegisterColorMap(cm.Name, cm); err != nil {
			return err
		}
	}
	return nil
}

// RegisterShaderProgram adds a base program to the registry. Registering a
// name twice is an error: the compiled cache keys on the name, so mutating
// a registration would silently serve stale programs.
func (e *Engine) RegisterShaderProgram(name string, stages []shader.StageSpec, mode viz.DrawMode) error {
	if name == "" {
		return viz.Usagef("register program: empty name")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.programs[name]; ok {
		return viz.Fatalf("register program: %q already registered", name)
	}
	e.programs[name] = registeredProgram{stages: stages, mode: mode}
	return nil
}

// RegisterShaderRule adds a replacement rule to the registry. Duplicate
// names are an error. The CLIP_PLANE_ prefix is reserved for
// RegisterClipPlaneRules.
func (e *Engine) RegisterShaderRule(name string, rule shader.Rule) error {
	if name == "" {
		return viz.Usagef("register rule: empty name")
	}
	if shader.IsClipPlaneRuleName(name) {
		return viz.Usagef("register rule: prefix %q is reserved for clip planes", shader.ClipPlaneRulePrefix)
	}
	return e.registerRule(name, rule)
}

func (e *Engine) registerRule(name string, rule shader.Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rules[name]; ok {
		return viz.Fatalf("register rule: %q already registered", name)
	}
	e.rules[name] = rule
	return nil
}

// RegisterClipPlaneRules generates and registers the cull rule pair for a
// clip plane with the given unique suffix, and appends the object-cull rule
// to the scene-object preset. It returns the two rule names (object cull,
// volume-grid cull).
func (e *Engine) RegisterClipPlaneRules(suffix string) (string, string, error) {
	objName := shader.ClipPlaneRuleName(suffix)
	gridName := shader.ClipPlaneVolumeGridRuleName(suffix)
	if err := e.registerRule(objName, shader.ClipPlaneRule(suffix)); err != nil {
		return "", "", err
	}
	if err := e.registerRule(gridName, shader.ClipPlaneVolumeGridRule(suffix)); err != nil {
		return "", "", err
	}
	e.mu.Lock()
	e.sceneObjectRules = append(e.sceneObjectRules, objName)
	e.mu.Unlock()
	return objName, gridName, nil
}

// defaultRuleNames expands a preset into its current rule-name list.
func (e *Engine) defaultRuleNames(preset DefaultRules) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch preset {
	case DefaultsSceneObject:
		return append([]string(nil), e.sceneObjectRules...)
	case DefaultsSceneObjectNoClip:
		out := make([]string, 0, len(e.sceneObjectRules))
		for _, n := range e.sceneObjectRules {
			if !shader.IsClipPlaneRuleName(n) {
				out = append(out, n)
			}
		}
		return out
	case DefaultsPick:
		return []string{"GLOBAL_FRAGMENT_FILTER"}
	case DefaultsProcess:
		return []string{"INVERSE_TONEMAP"}
	default:
		return nil
	}
}

// RequestShader returns a fresh bound program instance over the compiled
// program for the given composition. Custom rules apply before the preset's.
func (e *Engine) RequestShader(programName string, customRules []string, preset DefaultRules) (*ShaderProgram, error) {
	cp, err := e.GetCompiledProgram(programName, customRules, preset)
	if err != nil {
		return nil, err
	}
	return newShaderProgram(e, cp), nil
}

// GetCompiledProgram resolves and compiles the program variant for the
// given composition, memoized by program name and effective rule list. The
// effective list is the custom rules followed by the preset's, with empty
// names dropped and only the first occurrence of each name kept; order is
// significant, so the same rules in a different order compile separately.
func (e *Engine) GetCompiledProgram(programName string, customRules []string, preset DefaultRules) (*CompiledProgram, error) {
	e.mu.RLock()
	reg, ok := e.programs[programName]
	e.mu.RUnlock()
	if !ok {
		return nil, viz.Fatalf("no program named %q registered", programName)
	}

	names := make([]string, 0, len(customRules)+4)
	names = append(names, customRules...)
	names = append(names, e.defaultRuleNames(preset)...)
	names = shader.DedupNames(names)

	key := programName + "#" + strings.Join(names, "#")

	return e.compiled.GetOrCreate(key, func() (*CompiledProgram, error) {
		rules := make([]shader.Rule, 0, len(names))
		for _, n := range names {
			e.mu.RLock()
			r, ok := e.rules[n]
			e.mu.RUnlock()
			if !ok {
				return nil, viz.Fatalf("no rule named %q registered", n)
			}
			rules = append(rules, r)
		}

		specialized := shader.ApplyReplacements(reg.stages, rules)
		cp, err := newCompiledProgram(e.dev, specialized, reg.mode)
		if err != nil {
			return nil, err
		}
		viz.Logger().Debug("compiled program variant",
			slog.String("program", programName),
			slog.Int("rules", len(names)))
		return cp, nil
	})
}

// CacheStats reports hit/miss counters of the compiled-program cache.
func (e *Engine) CacheStats() cache.Stats { return e.compiled.Stats() }

// RegisterColorMap adds a colormap to the registry, replacing any previous
// one with the same name.
func (e *Engine) RegisterColorMap(name string, cm *viz.ColorMap) error {
	if name == "" || cm == nil {
		return viz.Usagef("register colormap: empty name or nil map")
	}
	e.mu.Lock()
	e.colorMaps[name] = cm
	e.mu.Unlock()
	return nil
}

// ColorMap looks up a registered colormap.
func (e *Engine) ColorMap(name string) (*viz.ColorMap, error) {
	e.mu.RLock()
	cm, ok := e.colorMaps[name]
	e.mu.RUnlock()
	if !ok {
		return nil, viz.Usagef("no colormap named %q registered", name)
	}
	return cm, nil
}

// CheckError polls the device error state. With fatal set, a pending error
// is escalated so that IsFatal reports true on it.
func (e *Engine) CheckError(fatal bool) error {
	err := e.dev.CheckError()
	if err == nil {
		return nil
	}
	if fatal {
		return viz.Fatalf("device error: %v", err)
	}
	return err
}

// bindTarget records the render target for subsequent draws.
func (e *Engine) bindTarget(fb backend.FramebufferID, viewport [4]int) {
	e.boundTarget = fb
	e.boundViewport = viewport
}
