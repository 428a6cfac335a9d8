// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disc

import (
	"github.com/cpmech/godae/mdl"
	"github.com/cpmech/godae/msh"
	"github.com/cpmech/godae/sym"
)

// finite-volume matrices /////////////////////////////////////////////////////////////////////////

// GradMatrix returns the (n-1)×n matrix of interior gradients: (y[i+1]-y[i])/dxc[i]
func GradMatrix(sub *msh.SubMesh) *sym.SpMat {
	n := sub.N()
	b := sym.NewSpBuilder(n-1, n)
	for i := 0; i < n-1; i++ {
		b.Put(i, i, -1.0/sub.Dxc[i])
		b.Put(i, i+1, 1.0/sub.Dxc[i])
	}
	return b.Build()
}

// DivMatrix returns the n×(n+1) matrix of flux balances: (A[i+1] F[i+1] - A[i] F[i]) / V[i]
func DivMatrix(sub *msh.SubMesh) *sym.SpMat {
	n := sub.N()
	A, V := sub.Areas(), sub.Volumes()
	b := sym.NewSpBuilder(n, n+1)
	for i := 0; i < n; i++ {
		b.Put(i, i, -A[i]/V[i])
		b.Put(i, i+1, A[i+1]/V[i])
	}
	return b.Build()
}

// IntegralMatrix returns the 1×n matrix of cell volumes
func IntegralMatrix(sub *msh.SubMesh) *sym.SpMat {
	b := sym.NewSpBuilder(1, sub.N())
	for i, v := range sub.Volumes() {
		b.Put(0, i, v)
	}
	return b.Build()
}

// ExtrapMatrix returns the 1×n matrix extrapolating the two cells nearest one side linearly
// to the boundary
func ExtrapMatrix(sub *msh.SubMesh, side sym.Side) *sym.SpMat {
	n := sub.N()
	b := sym.NewSpBuilder(1, n)
	if n == 1 {
		b.Put(0, 0, 1)
		return b.Build()
	}
	if side == sym.Left {
		w := sub.Dx[0] / (2.0 * sub.Dxc[0])
		b.Put(0, 0, 1+w)
		b.Put(0, 1, -w)
		return b.Build()
	}
	w := sub.Dx[n-1] / (2.0 * sub.Dxc[n-2])
	b.Put(0, n-1, 1+w)
	b.Put(0, n-2, -w)
	return b.Build()
}

// EdgeMatrix returns the (n+1)×n matrix interpolating cell values to faces. Boundary faces
// are extrapolated.
func EdgeMatrix(sub *msh.SubMesh) *sym.SpMat {
	n := sub.N()
	b := sym.NewSpBuilder(n+1, n)
	left, right := ExtrapMatrix(sub, sym.Left), ExtrapMatrix(sub, sym.Right)
	left.Each(func(_, j int, x float64) { b.Put(0, j, x) })
	right.Each(func(_, j int, x float64) { b.Put(n, j, x) })
	for i := 1; i < n; i++ {
		w := sub.Dx[i-1] / (2.0 * sub.Dxc[i-1])
		b.Put(i, i-1, 1-w)
		b.Put(i, i, w)
	}
	return b.Build()
}

// operators //////////////////////////////////////////////////////////////////////////////////////

// gradient discretises the gradient of x. Interior faces use GradMatrix; boundary faces use the
// boundary conditions of x.
func (o *discretiser) gradient(x sym.Id) sym.Id {
	a := o.a
	px := o.process(x)
	s := a.Shape(x)
	sub := o.submesh(s.Domain)
	n := sub.N()
	bcs := o.bcs[x]
	parts := []sym.Id{o.boundaryGradient(x, px, sub, sym.Left, bcs[sym.Left])}
	if n > 1 {
		parts = append(parts, a.MatMul(GradMatrix(sub), px, sym.Shape{Size: n - 1}))
	}
	parts = append(parts, o.boundaryGradient(x, px, sub, sym.Right, bcs[sym.Right]))
	return a.Join(sym.Shape{Domain: s.Domain, Loc: sym.Edges, Size: n + 1}, parts...)
}

// boundaryGradient returns the gradient at one boundary face
//
//	dirichlet: ±(y_cell - v) / (dx/2)
//	neumann:   v
//	robin:     α y_b + β g = v  with  y_b = y_cell ∓ g dx/2
func (o *discretiser) boundaryGradient(x, px sym.Id, sub *msh.SubMesh, side sym.Side, bc *mdl.Bc) sym.Id {
	if bc == nil {
		raise(ErrMissingBc, "%s boundary condition of %s is required by its gradient", side, o.a.String(x))
	}
	a := o.a
	n := sub.N()
	i, sgn := 0, 1.0
	if side == sym.Right {
		i, sgn = n-1, -1.0
	}
	h := sub.Dx[i] / 2.0
	y := a.Index(px, i)
	v := o.process(bc.Value)
	switch bc.Kind {
	case mdl.Dirichlet:
		return a.Mul(a.Const(sgn/h), a.Sub(y, v))
	case mdl.Neumann:
		return v
	}
	alpha, beta := o.process(bc.Alpha), o.process(bc.Beta)
	den := a.Sub(beta, a.Mul(a.Const(sgn*h), alpha))
	return a.Div(a.Sub(v, a.Mul(alpha, y)), den)
}

// divergence discretises the divergence of a flux living on faces
func (o *discretiser) divergence(f sym.Id) sym.Id {
	pf := o.process(f)
	s := o.a.Shape(f)
	sub := o.submesh(s.Domain)
	return o.a.MatMul(DivMatrix(sub), pf, sym.Shape{Domain: s.Domain, Loc: sym.Nodes, Size: sub.N()})
}

// integral discretises the integral of x over its domain
func (o *discretiser) integral(x sym.Id) sym.Id {
	px := o.process(x)
	sub := o.submesh(o.a.Shape(x).Domain)
	return o.a.MatMul(IntegralMatrix(sub), px, sym.Scalar)
}

// boundaryValue returns the declared Dirichlet value or the extrapolated value of x at one side
func (o *discretiser) boundaryValue(x sym.Id, side sym.Side) sym.Id {
	if bc := o.bcs[x][side]; bc != nil && bc.Kind == mdl.Dirichlet {
		return o.process(bc.Value)
	}
	px := o.process(x)
	sub := o.submesh(o.a.Shape(x).Domain)
	return o.a.MatMul(ExtrapMatrix(sub, side), px, sym.Scalar)
}

// boundaryFlux returns the boundary entry of a flux living on faces
func (o *discretiser) boundaryFlux(f sym.Id, side sym.Side) sym.Id {
	pf := o.process(f)
	if side == sym.Left {
		return o.a.Index(pf, 0)
	}
	return o.a.Index(pf, o.a.Shape(pf).Size-1)
}

// nodeToEdge interpolates x to the faces
func (o *discretiser) nodeToEdge(x sym.Id) sym.Id {
	px := o.process(x)
	s := o.a.Shape(x)
	sub := o.submesh(s.Domain)
	return o.a.MatMul(EdgeMatrix(sub), px, sym.Shape{Domain: s.Domain, Loc: sym.Edges, Size: sub.N() + 1})
}
