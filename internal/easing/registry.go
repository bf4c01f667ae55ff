package easing

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds the scripted easings known to the process next to the
// built-in curves.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Type
	curves map[Type]*table
	names  map[Type]string
	next   Type
}

// Default is the process-wide registry used by Calc, Parse and String.
var Default = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Type),
		curves: make(map[Type]*table),
		names:  make(map[Type]string),
		next:   ScriptBase,
	}
}

// Calc clamps t to [0,1] and evaluates the easing. Unknown ids fall back to Linear.
func (r *Registry) Calc(t float64, e Type) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	if e >= 0 && e < builtinCount {
		return calcBuiltin(t, e)
	}
	r.mu.RLock()
	c := r.curves[e]
	r.mu.RUnlock()
	if c == nil {
		return t
	}
	return c.at(t)
}

// Register stores a sampled curve under name. Re-registering a name keeps
// its id so keyframes referring to it stay valid.
func (r *Registry) Register(name string, samples []float64) (Type, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Linear, fmt.Errorf("easing: empty name")
	}
	for _, n := range builtinNames {
		if strings.EqualFold(n, name) {
			return Linear, fmt.Errorf("easing: %s shadows a built-in curve", name)
		}
	}
	tbl, err := newTable(samples)
	if err != nil {
		return Linear, fmt.Errorf("easing: %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	id, ok := r.byName[key]
	if !ok {
		id = r.next
		r.next++
		r.byName[key] = id
	}
	r.curves[id] = tbl
	r.names[id] = name
	return id, nil
}

// Names lists the registered scripted easing names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for id := ScriptBase; id < r.next; id++ {
		if n, ok := r.names[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (r *Registry) lookup(name string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[strings.ToLower(name)]
	return id, ok
}

func (r *Registry) name(e Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.names[e]
	return n, ok
}

// table is a uniformly sampled curve on [0,1]. The first and last samples
// are pinned to 0 and 1.
type table struct {
	samples []float64
}

func newTable(samples []float64) (*table, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("need at least 2 samples, got %d", len(samples))
	}
	s := make([]float64, len(samples))
	copy(s, samples)
	s[0] = 0
	s[len(s)-1] = 1
	return &table{samples: s}, nil
}

func (c *table) at(t float64) float64 {
	t = clamp01(t)
	pos := t * float64(len(c.samples)-1)
	i := int(pos)
	if i >= len(c.samples)-1 {
		return c.samples[len(c.samples)-1]
	}
	frac := pos - float64(i)
	return c.samples[i] + (c.samples[i+1]-c.samples[i])*frac
}
