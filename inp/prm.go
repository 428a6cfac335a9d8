// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"encoding/json"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/io"
)

// PrmSet holds a named set of parameter values; e.g. the parameters of one cell chemistry
type PrmSet struct {
	Name  string     `json:"name"`  // name of set
	Model string     `json:"model"` // model the set was written for; empty means any
	Extra string     `json:"extra"` // extra information; e.g. the source of the values
	Prms  dbf.Params `json:"prms"`  // parameters
}

// PrmSets holds parameter sets
type PrmSets []*PrmSet

// PrmDb implements a database of parameter sets
type PrmDb struct {
	Sets PrmSets `json:"sets"` // all sets

	// derived
	index map[string]*PrmSet // name => set
}

// ReadPrm reads parameter sets from a .prm JSON file
func ReadPrm(dir, fn string) (pdb *PrmDb, err error) {

	// new database
	pdb = new(PrmDb)

	// read file
	b, err := readFile(filepath.Join(dir, fn))
	if err != nil {
		return nil, err
	}

	// decode
	err = json.Unmarshal(b, pdb)
	if err != nil {
		return nil, chk.Err("cannot unmarshal parameters file %q:\n%v", fn, err)
	}

	// index
	pdb.index = make(map[string]*PrmSet)
	for _, s := range pdb.Sets {
		if _, ok := pdb.index[s.Name]; ok {
			return nil, chk.Err("parameter set %q is defined more than once in %q", s.Name, fn)
		}
		seen := make(map[string]bool)
		for _, p := range s.Prms {
			if seen[p.N] {
				return nil, chk.Err("parameter %q is repeated in set %q", p.N, s.Name)
			}
			seen[p.N] = true
		}
		pdb.index[s.Name] = s
	}
	return
}

// Get returns a parameter set; nil if not found
func (o PrmDb) Get(name string) *PrmSet {
	return o.index[name]
}

// Merge returns the parameters of set overridden by prms
func Merge(set dbf.Params, prms dbf.Params) (res dbf.Params) {
	index := make(map[string]int)
	for _, p := range set {
		index[p.N] = len(res)
		q := *p
		res = append(res, &q)
	}
	for _, p := range prms {
		q := *p
		if i, ok := index[p.N]; ok {
			res[i] = &q
			continue
		}
		index[p.N] = len(res)
		res = append(res, &q)
	}
	return
}

// String prints one set
func (o *PrmSet) String() string {
	return io.Sf("    {\n      \"name\"  : %q,\n      \"model\" : %q,\n      \"extra\" : %q,\n      \"prms\"  : [\n%v\n      ]\n    }", o.Name, o.Model, o.Extra, o.Prms)
}

// String prints sets
func (o PrmSets) String() string {
	l := "  \"sets\" : [\n"
	for i, s := range o {
		if i > 0 {
			l += ",\n"
		}
		l += io.Sf("%v", s)
	}
	l += "\n  ]"
	return l
}

// String outputs all sets
func (o PrmDb) String() string {
	return io.Sf("{\n%v\n}", o.Sets)
}

// readFile reads a file with gosl/io, returning an error instead of panicking
func readFile(fn string) (b []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = chk.Err("cannot read file %q:\n%v", fn, r)
		}
	}()
	return io.ReadFile(fn), nil
}
