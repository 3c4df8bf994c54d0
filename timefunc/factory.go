// Copyright 2026 The JazzPetri Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package timefunc

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a TimeFunction from numeric parameters.
type Constructor func(src *Source, params ...float64) (TimeFunction, error)

// Factory builds time functions by name, as model loaders refer to
// distributions textually ("exponential", 4).
//
// Factory is safe for concurrent use.
type Factory struct {
	mu           sync.RWMutex
	src          *Source
	constructors map[string]Constructor
}

// NewFactory creates a factory with the built-in distributions registered:
// constant, uniform, exponential, normal and triangular.
func NewFactory(src *Source) *Factory {
	f := &Factory{src: src, constructors: make(map[string]Constructor)}
	f.constructors["constant"] = func(_ *Source, p ...float64) (TimeFunction, error) {
		if err := arity("constant", p, 1); err != nil {
			return nil, err
		}
		return Constant(p[0]), nil
	}
	f.constructors["uniform"] = func(s *Source, p ...float64) (TimeFunction, error) {
		if err := arity("uniform", p, 2); err != nil {
			return nil, err
		}
		return NewUniform(p[0], p[1], s)
	}
	f.constructors["exponential"] = func(s *Source, p ...float64) (TimeFunction, error) {
		if err := arity("exponential", p, 1); err != nil {
			return nil, err
		}
		return NewExponential(p[0], s), nil
	}
	f.constructors["normal"] = func(s *Source, p ...float64) (TimeFunction, error) {
		if err := arity("normal", p, 2); err != nil {
			return nil, err
		}
		return NewNormal(p[0], p[1], s), nil
	}
	f.constructors["triangular"] = func(s *Source, p ...float64) (TimeFunction, error) {
		if err := arity("triangular", p, 3); err != nil {
			return nil, err
		}
		return NewTriangular(p[0], p[1], p[2], s)
	}
	return f
}

// Register adds or replaces a named constructor.
func (f *Factory) Register(name string, c Constructor) error {
	if name == "" {
		return fmt.Errorf("timefunc: name cannot be empty")
	}
	if c == nil {
		return fmt.Errorf("timefunc: constructor for %q cannot be nil", name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = c
	return nil
}

// New builds the named time function.
func (f *Factory) New(name string, params ...float64) (TimeFunction, error) {
	f.mu.RLock()
	c, ok := f.constructors[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("timefunc: unknown function %q", name)
	}
	return c(f.src, params...)
}

// Names returns the registered names in sorted order.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.constructors))
	for n := range f.constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func arity(name string, p []float64, n int) error {
	if len(p) != n {
		return fmt.Errorf("timefunc: %s expects %d parameters, got %d", name, n, len(p))
	}
	return nil
}
