// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dae

import (
	"errors"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

func Test_linsol01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("linsol01. refactorisation with more entries")

	for _, name := range LinSols() {
		io.Pforan("linear solver = %s\n", name)
		ls, err := GetLinSol(name)
		if err != nil {
			tst.Errorf("GetLinSol failed:\n%v", err)
			return
		}

		// diagonal first
		t := new(la.Triplet)
		t.Init(3, 3, 9)
		t.Put(0, 0, 2)
		t.Put(1, 1, 4)
		t.Put(2, 2, 8)
		if err = ls.Init(t, 3); err != nil {
			tst.Errorf("%s: Init failed:\n%v", name, err)
			return
		}
		if err = ls.Fact(); err != nil {
			tst.Errorf("%s: Fact failed:\n%v", name, err)
			return
		}
		x := make([]float64, 3)
		if err = ls.Solve(x, []float64{2, 4, 8}); err != nil {
			tst.Errorf("%s: Solve failed:\n%v", name, err)
			return
		}
		chk.Array(tst, name+": x", 1e-15, x, []float64{1, 1, 1})

		// same triplet, more entries and duplicates
		t.Start()
		t.Put(0, 0, 1)
		t.Put(0, 0, 1)
		t.Put(0, 1, 1)
		t.Put(1, 1, 3)
		t.Put(1, 2, 1)
		t.Put(2, 2, 4)
		if err = ls.Fact(); err != nil {
			tst.Errorf("%s: Fact failed:\n%v", name, err)
			return
		}
		if err = ls.Solve(x, []float64{3, 4, 4}); err != nil {
			tst.Errorf("%s: Solve failed:\n%v", name, err)
			return
		}
		chk.Array(tst, name+": x", 1e-14, x, []float64{1, 1, 1})
		ls.Free()
	}
}

func Test_linsol02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("linsol02. singular matrices give errors")

	for _, name := range LinSols() {
		ls, err := GetLinSol(name)
		if err != nil {
			tst.Errorf("GetLinSol failed:\n%v", err)
			return
		}
		t := new(la.Triplet)
		t.Init(2, 2, 4)
		t.Put(0, 0, 1)
		t.Put(0, 1, 1)
		t.Put(1, 0, 1)
		t.Put(1, 1, 1)
		if err = ls.Init(t, 2); err != nil {
			tst.Errorf("%s: Init failed:\n%v", name, err)
			return
		}
		err = ls.Fact()
		if err == nil {
			x := make([]float64, 2)
			err = ls.Solve(x, []float64{1, 2})
		}
		if !errors.Is(err, ErrSingular) {
			tst.Errorf("%s: singular matrix should give ErrSingular. err = %v", name, err)
		}
		io.Pforan("%s: err = %v\n", name, err)
		ls.Free()
	}

	if _, err := GetLinSol("mumps"); err == nil {
		tst.Errorf("unknown linear solver should fail")
	}
}
