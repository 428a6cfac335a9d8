// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prm

import (
	"fmt"
	"strings"

	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/io"
)

// colours of the depth-first traversal over parameter definitions
const (
	white = iota // not visited
	grey         // on the current path
	black        // resolved
)

// resolver substitutes parameters in one pass; results are memoised
type resolver struct {
	a      *sym.Arena        // arena
	vals   *Values           // values
	colour map[string]int    // traversal state per parameter
	done   map[string]sym.Id // resolved parameters
	memo   map[sym.Id]sym.Id // resolved nodes
	path   []string          // current chain of definitions
}

// Resolve substitutes all Parameter leaves of ids (except inputs). Chained definitions are
// resolved recursively; a definition referring to itself, directly or not, yields ErrCyclic.
func (o *Values) Resolve(a *sym.Arena, ids ...sym.Id) (res []sym.Id, err error) {
	r := &resolver{
		a:      a,
		vals:   o,
		colour: make(map[string]int),
		done:   make(map[string]sym.Id),
		memo:   make(map[sym.Id]sym.Id),
	}
	res = make([]sym.Id, len(ids))
	var serr error
	err = sym.Build(func() {
		for i, id := range ids {
			if res[i], serr = r.substitute(id); serr != nil {
				return
			}
		}
	})
	if err == nil {
		err = serr
	}
	if err != nil {
		return nil, err
	}
	if o.verbose {
		io.Pfgreen("prm: %d parameter definitions resolved\n", len(r.done))
	}
	return
}

// Resolve1 resolves a single expression
func (o *Values) Resolve1(a *sym.Arena, id sym.Id) (res sym.Id, err error) {
	ids, err := o.Resolve(a, id)
	if err != nil {
		return sym.Nil, err
	}
	return ids[0], nil
}

// substitute replaces parameters in the tree of id
func (o *resolver) substitute(id sym.Id) (res sym.Id, err error) {
	if r, ok := o.memo[id]; ok {
		return r, nil
	}
	n := o.a.Node(id)
	switch {
	case n.Kind == sym.KindParameter:
		if res, err = o.param(n.Name); err != nil {
			return
		}
	case len(n.Children) == 0:
		res = id
	default:
		cs := make([]sym.Id, len(n.Children))
		for i, c := range n.Children {
			if cs[i], err = o.substitute(c); err != nil {
				return
			}
		}
		res = o.a.Remake(id, cs)
	}
	o.memo[id] = res
	return
}

// param resolves one parameter by name
func (o *resolver) param(name string) (res sym.Id, err error) {
	if v, ok := o.vals.nums[name]; ok {
		return o.a.Const(v), nil
	}
	if _, ok := o.vals.inputs[name]; ok {
		return o.a.Param(name), nil
	}
	b, ok := o.vals.exprs[name]
	if !ok {
		return sym.Nil, fmt.Errorf("%w: %q", ErrUnbound, name)
	}
	switch o.colour[name] {
	case black:
		return o.done[name], nil
	case grey:
		chain := append(o.cycle(name), name)
		return sym.Nil, fmt.Errorf("%w: %s", ErrCyclic, strings.Join(chain, " -> "))
	}
	o.colour[name] = grey
	o.path = append(o.path, name)
	if res, err = o.substitute(b(o.a)); err != nil {
		return
	}
	o.path = o.path[:len(o.path)-1]
	o.colour[name] = black
	o.done[name] = res
	return
}

// cycle returns the part of the current path starting at name
func (o *resolver) cycle(name string) []string {
	for i, p := range o.path {
		if p == name {
			return append([]string{}, o.path[i:]...)
		}
	}
	return []string{name}
}
