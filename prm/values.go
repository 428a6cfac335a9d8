// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package prm implements parameter values and the substitution of Parameter nodes
package prm

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/io"
	"github.com/hashicorp/go-multierror"
)

// errors
var (
	ErrCyclic  = errors.New("cyclic parameter definition")
	ErrUnbound = errors.New("unbound parameter")
)

// Builder returns the expression defining a parameter. Builders may refer to other
// parameters with a.Param(name); they are resolved recursively.
type Builder func(a *sym.Arena) sym.Id

// Values maps parameter names to numbers, to expressions or to inputs supplied at solve time
type Values struct {
	nums    map[string]float64 // numeric values
	exprs   map[string]Builder // expressions
	inputs  map[string]float64 // input parameters => default value
	names   []string           // all names in insertion order
	verbose bool               // show messages
}

// NewValues returns an empty set of values
func NewValues() *Values {
	return &Values{
		nums:   make(map[string]float64),
		exprs:  make(map[string]Builder),
		inputs: make(map[string]float64),
	}
}

// FromPrms builds values from a list of parameters. The "extra" field may contain:
//
//	!input      the parameter is an input; V is its default value
//	!ref:name   the parameter equals V times parameter "name"
func FromPrms(prms dbf.Params) (o *Values, err error) {
	o = NewValues()
	for _, p := range prms {
		if o.Has(p.N) {
			return nil, chk.Err("parameter %q is defined more than once", p.N)
		}
		if _, found := io.Keycode(p.Extra, "input"); found {
			o.SetInput(p.N, p.V)
			continue
		}
		if ref, found := io.Keycode(p.Extra, "ref"); found {
			if ref == "" {
				return nil, chk.Err("reference of parameter %q must be given as !ref:name", p.N)
			}
			factor := p.V
			o.SetExpr(p.N, func(a *sym.Arena) sym.Id {
				return a.Mul(a.Const(factor), a.Param(ref))
			})
			continue
		}
		o.SetNum(p.N, p.V)
	}
	return
}

// SetNum sets a numeric value
func (o *Values) SetNum(name string, v float64) {
	o.reset(name)
	o.nums[name] = v
}

// SetExpr sets an expression
func (o *Values) SetExpr(name string, b Builder) {
	o.reset(name)
	o.exprs[name] = b
}

// SetInput marks a parameter as an input supplied at solve time
func (o *Values) SetInput(name string, defaultValue float64) {
	o.reset(name)
	o.inputs[name] = defaultValue
}

// SetVerbose turns messages on or off
func (o *Values) SetVerbose(verbose bool) { o.verbose = verbose }

// Has tells whether the name is defined
func (o *Values) Has(name string) bool {
	_, n := o.nums[name]
	_, e := o.exprs[name]
	_, i := o.inputs[name]
	return n || e || i
}

// Num returns a numeric value
func (o *Values) Num(name string) (v float64, found bool) {
	v, found = o.nums[name]
	return
}

// IsInput tells whether name is an input parameter
func (o *Values) IsInput(name string) bool {
	_, found := o.inputs[name]
	return found
}

// Inputs returns the default values of input parameters
func (o *Values) Inputs() map[string]float64 {
	res := make(map[string]float64, len(o.inputs))
	for k, v := range o.inputs {
		res[k] = v
	}
	return res
}

// Names returns all names in insertion order
func (o *Values) Names() []string { return append([]string{}, o.names...) }

// Copy returns a copy that can be modified independently
func (o *Values) Copy() *Values {
	c := NewValues()
	c.Update(o)
	c.verbose = o.verbose
	return c
}

// Update overrides values with the definitions of b
func (o *Values) Update(b *Values) {
	if b == nil {
		return
	}
	for _, name := range b.names {
		if v, ok := b.nums[name]; ok {
			o.SetNum(name, v)
		}
		if e, ok := b.exprs[name]; ok {
			o.SetExpr(name, e)
		}
		if v, ok := b.inputs[name]; ok {
			o.SetInput(name, v)
		}
	}
}

// Check resolves every expression in a scratch arena and reports all problems
func (o *Values) Check() error {
	var res *multierror.Error
	a := sym.NewArena()
	for _, name := range o.names {
		if _, ok := o.exprs[name]; !ok {
			continue
		}
		if _, err := o.Resolve(a, a.Param(name)); err != nil {
			res = multierror.Append(res, err)
		}
	}
	return res.ErrorOrNil()
}

// Hash returns a content hash. Expressions contribute the structural hash of the tree their
// builder creates (builders must be deterministic).
func (o *Values) Hash() uint64 {
	names := append([]string{}, o.names...)
	sort.Strings(names)
	d := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		d.Write(buf[:])
	}
	a := sym.NewArena()
	for _, name := range names {
		d.WriteString(name)
		d.Write([]byte{0})
		if v, ok := o.nums[name]; ok {
			put(1)
			put(math.Float64bits(v))
		}
		if b, ok := o.exprs[name]; ok {
			put(2)
			var h uint64
			if err := sym.Build(func() { h = a.Hash(b(a)) }); err != nil {
				d.WriteString(err.Error())
			}
			put(h)
		}
		if v, ok := o.inputs[name]; ok {
			put(3)
			put(math.Float64bits(v))
		}
	}
	return d.Sum64()
}

// reset removes a name from all maps and records it
func (o *Values) reset(name string) {
	if !o.Has(name) {
		o.names = append(o.names, name)
	}
	delete(o.nums, name)
	delete(o.exprs, name)
	delete(o.inputs, name)
}
