package easing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// ScriptSamples is the resolution of the lookup table built from a script.
const ScriptSamples = 256

// The script must define `ease := func(t) { ... }` returning a number.
const scriptDispatch = `
__out := ease(__t)
`

// SampleScript compiles a tengo easing script and samples it on [0,1].
func SampleScript(src []byte, samples int) ([]float64, error) {
	if samples < 2 {
		samples = ScriptSamples
	}
	script := tengo.NewScript(append(append([]byte{}, src...), []byte(scriptDispatch)...))
	_ = script.Add("__t", 0.0)
	script.SetImports(stdlib.GetModuleMap("math"))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	out := make([]float64, samples)
	for i := range out {
		t := float64(i) / float64(samples-1)
		if err := compiled.Set("__t", t); err != nil {
			return nil, err
		}
		if err := compiled.Run(); err != nil {
			return nil, fmt.Errorf("run at t=%.4f: %w", t, err)
		}
		v := compiled.Get("__out")
		switch v.ValueType() {
		case "float", "int":
			out[i] = v.Float()
		default:
			return nil, fmt.Errorf("ease(%.4f) returned %s, want number", t, v.ValueType())
		}
	}
	return out, nil
}

// RegisterScript samples src and registers it under name in the registry.
func (r *Registry) RegisterScript(name string, src []byte) (Type, error) {
	samples, err := SampleScript(src, ScriptSamples)
	if err != nil {
		return Linear, fmt.Errorf("easing: script %s: %w", name, err)
	}
	return r.Register(name, samples)
}

// LoadScriptFile registers a .tengo file, named after its base name.
func (r *Registry) LoadScriptFile(path string) (Type, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Linear, fmt.Errorf("easing: load %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return r.RegisterScript(name, src)
}
