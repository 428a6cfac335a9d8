// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diffusion

import "github.com/cpmech/godae/sym"

// M1 implements a nonlinear diffusion coefficient
//
//	kval = a0  +  a1 u  +  a2 u² +  a3 u³
type M1 struct {
	a *sym.Arena
}

// Kval returns k(u)
func (o *M1) Kval(u sym.Id) sym.Id {
	a := o.a
	return a.Sum(
		a.Param("a0"),
		a.Mul(a.Param("a1"), u),
		a.Mul(a.Param("a2"), a.Pow(u, a.Const(2))),
		a.Mul(a.Param("a3"), a.Pow(u, a.Const(3))),
	)
}
