// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdl

import (
	"sort"
	"sync"

	"github.com/cpmech/godae/prm"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
)

// Allocator builds a model on an arena. prms may hold options read by the allocator; e.g. an
// optional event threshold.
type Allocator func(a *sym.Arena, prms dbf.Params) (*Model, error)

// allocators holds all available models
var (
	allocators   = make(map[string]Allocator)
	allocatorsMu sync.RWMutex
)

// Register adds a model to the factory. It is called by the init functions of model packages.
func Register(name string, allocator Allocator) {
	allocatorsMu.Lock()
	defer allocatorsMu.Unlock()
	if _, ok := allocators[name]; ok {
		chk.Panic("model %q is registered more than once", name)
	}
	allocators[name] = allocator
}

// New builds a registered model. The values in prms override the model's default values.
func New(name string, a *sym.Arena, prms dbf.Params) (model *Model, err error) {
	allocatorsMu.RLock()
	allocator, ok := allocators[name]
	allocatorsMu.RUnlock()
	if !ok {
		return nil, chk.Err("model %q is not available in 'mdl' database", name)
	}
	model, err = allocator(a, prms)
	if err != nil {
		return nil, chk.Err("cannot allocate model %q:\n%v", name, err)
	}
	vals, err := prm.FromPrms(prms)
	if err != nil {
		return nil, err
	}
	model.Values.Update(vals)
	return
}

// Available returns the names of all registered models
func Available() (names []string) {
	allocatorsMu.RLock()
	defer allocatorsMu.RUnlock()
	for name := range allocators {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}
