// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package out implements processed output: expressions of a model evaluated over a solution
package out

import (
	"bytes"
	"math"
	"strings"

	"github.com/cpmech/godae/solver"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// TolT is the tolerance to compare times
var TolT = 1e-10

// Results holds the variables of one solution
type Results struct {
	Sol   *solver.Solution     // solution
	Vars  []*Variable          // variables in the order given
	index map[string]*Variable // name => variable
}

// NewResults returns the named outputs of a solution. All outputs of the model are returned if
// no names are given.
func NewResults(sol *solver.Solution, names ...string) (o *Results, err error) {
	if sol.Disc == nil {
		return nil, chk.Err("solution has no discretisation: %v", sol.Err)
	}
	if len(names) == 0 {
		for _, out := range sol.Disc.Model.Outputs {
			names = append(names, out.Name)
		}
	}
	o = &Results{Sol: sol, index: make(map[string]*Variable)}
	for _, name := range names {
		if _, ok := o.index[name]; ok {
			continue
		}
		var v *Variable
		if v, err = New(sol, name); err != nil {
			return nil, err
		}
		o.Vars = append(o.Vars, v)
		o.index[name] = v
	}
	return
}

// Get returns a variable by name; nil if not found
func (o *Results) Get(name string) *Variable {
	return o.index[name]
}

// Times returns the output times t0, t0+dt, … up to the last time of the solution, which is
// always included. Only the stored times are returned if dt ≤ 0.
func (o *Results) Times(dt float64) (times []float64) {
	t0, tf := o.Sol.T[0], o.Sol.T[len(o.Sol.T)-1]
	if dt <= 0 {
		return append([]float64{}, o.Sol.T...)
	}
	n := int(math.Floor((tf-t0)/dt + TolT))
	for i := 0; i <= n; i++ {
		times = append(times, t0+float64(i)*dt)
	}
	if tf-times[len(times)-1] > TolT*math.Max(1, math.Abs(tf)) {
		times = append(times, tf)
	}
	return
}

// Table returns the values at the given times as text: one row per time and one column per
// entry. Variables with many entries are shown by their first and last entries.
func (o *Results) Table(times []float64) (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	buf.WriteString(io.Sf("%13s", "t"))
	for _, v := range o.Vars {
		buf.WriteString(io.Sf(" %28s", label(v.Name)))
	}
	buf.WriteString("\n")
	for _, t := range times {
		buf.WriteString(io.Sf("%13.6e", t))
		for _, v := range o.Vars {
			var vals []float64
			if vals, err = v.At(t); err != nil {
				return nil, err
			}
			if len(vals) == 1 {
				buf.WriteString(io.Sf(" %28.15e", vals[0]))
				continue
			}
			buf.WriteString(io.Sf(" %13.6e:%13.6e ", vals[0], vals[len(vals)-1]))
		}
		buf.WriteString("\n")
	}
	return
}

// Save writes Table to dirout/fnkey.res
func (o *Results) Save(dirout, fnkey string, times []float64) (err error) {
	buf, err := o.Table(times)
	if err != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			err = chk.Err("cannot save results to %q:\n%v", dirout, r)
		}
	}()
	io.WriteFileD(dirout, fnkey+".res", buf)
	return
}

// label shortens names to fit a column
func label(name string) string {
	name = strings.Replace(name, " ", "_", -1)
	if r := []rune(name); len(r) > 28 {
		return string(r[:27]) + "~"
	}
	return name
}
