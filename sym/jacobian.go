// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

// Jacobian returns the matrix-valued derivative of a discretised expression with respect to a
// state vector of length n. Constant contributions are folded into constant sparse matrices
// when the Jacobian is built, thus the Jacobian of an affine expression is a JacConst (or
// JacZero) node.
func (o *Arena) Jacobian(id Id, n int) (jac Id, err error) {
	err = Build(func() {
		jac = o.jacobian(id, n)
	})
	return
}

// ConstJacobian returns the matrix of a constant Jacobian node
func (o *Arena) ConstJacobian(jac Id) (m *SpMat, ok bool) {
	n := o.Node(jac)
	switch n.Kind {
	case KindJacZero:
		return SpZero(n.Size, n.Cols), true
	case KindJacConst:
		return o.Matrix(jac), true
	}
	return nil, false
}

func (o *Arena) jacobian(id Id, ncol int) (r Id) {
	key := [2]int{int(id), ncol}
	o.mu.RLock()
	r, ok := o.jacs[key]
	o.mu.RUnlock()
	if ok {
		return
	}
	n := o.Node(id)
	if n.Size < 1 {
		raise(ErrNotDiscretised, "jacobian of %q node with unknown size", n.Kind)
	}
	rows := n.Size
	switch {

	case n.Kind == KindStateVector:
		if n.Aux2 > ncol {
			raise(ErrShape, "slice [%d,%d) of %q exceeds state vector of length %d", n.Aux, n.Aux2, n.Name, ncol)
		}
		r = o.jacConst(SpSelect(n.Aux, n.Aux2, ncol))

	case n.Kind == KindVariable:
		raise(ErrNotDiscretised, "variable %q", n.Name)

	case n.Kind.IsLeaf():
		r = o.jacZero(rows, ncol)

	case n.Kind.IsElementwise():
		var ps, terms []Id
		for i, c := range n.Children {
			jc := o.jacobian(c, ncol)
			if o.Node(jc).Kind == KindJacZero {
				continue
			}
			if ps == nil {
				ps = o.partials(id, &n)
			}
			terms = append(terms, o.jacDiag(o.Simplify(ps[i]), o.jacBroadcast(jc, rows)))
		}
		r = o.jacSum(rows, ncol, terms)

	case n.Kind == KindMatMul:
		o.mu.RLock()
		m := o.mats[n.Aux]
		o.mu.RUnlock()
		r = o.jacMat(m, o.jacBroadcast(o.jacobian(n.Children[0], ncol), m.N))

	case n.Kind == KindIndex:
		r = o.jacRow(o.jacobian(n.Children[0], ncol), n.Aux)

	case n.Kind == KindConcatenation:
		parts := make([]Id, len(n.Children))
		for i, c := range n.Children {
			parts[i] = o.jacobian(c, ncol)
		}
		r = o.jacStack(parts)

	case n.Kind == KindBroadcast:
		r = o.jacBroadcast(o.jacobian(n.Children[0], ncol), rows)

	default:
		raise(ErrNotDiscretised, "jacobian of %q node", n.Kind)
	}
	o.mu.Lock()
	o.jacs[key] = r
	o.mu.Unlock()
	return
}

// matrix-valued nodes //////////////////////////////////////////////////////////////////////////////

func (o *Arena) jacZero(m, n int) Id {
	return o.intern(Node{Kind: KindJacZero, Size: m, Cols: n})
}

func (o *Arena) jacConst(a *SpMat) Id {
	if a.NNZ() == 0 {
		return o.jacZero(a.M, a.N)
	}
	return o.intern(Node{Kind: KindJacConst, Size: a.M, Cols: a.N, Aux: o.internMat(a)})
}

// jacSum returns the sum of matrix nodes; constant terms are added up
func (o *Arena) jacSum(m, n int, terms []Id) Id {
	var sum *SpMat
	var rest []Id
	stack := append([]Id{}, terms...)
	for len(stack) > 0 {
		t := stack[0]
		stack = stack[1:]
		if nt := o.Node(t); nt.Kind == KindJacSum {
			stack = append(stack, nt.Children...)
			continue
		}
		if c, ok := o.ConstJacobian(t); ok {
			if sum == nil {
				sum = c
			} else {
				sum = sum.Add(c)
			}
			continue
		}
		rest = append(rest, t)
	}
	if sum != nil && sum.NNZ() > 0 {
		rest = append(rest, o.jacConst(sum))
	}
	switch len(rest) {
	case 0:
		return o.jacZero(m, n)
	case 1:
		return rest[0]
	}
	o.sortIds(rest)
	return o.intern(Node{Kind: KindJacSum, Size: m, Cols: n, Children: rest})
}

// jacDiag returns diag(v) * a
func (o *Arena) jacDiag(v, a Id) Id {
	na := o.Node(a)
	if na.Kind == KindJacZero {
		return a
	}
	nv := o.Node(v)
	if nv.Size > 1 && nv.Size != na.Size {
		raise(ErrShape, "diagonal of %d entries times %dx%d matrix", nv.Size, na.Size, na.Cols)
	}
	if nv.Kind == KindConstant {
		switch nv.Value {
		case 0:
			return o.jacZero(na.Size, na.Cols)
		case 1:
			return a
		}
	}
	if c, ok := o.ConstJacobian(a); ok {
		switch nv.Kind {
		case KindConstant:
			return o.jacConst(c.ScaleRows([]float64{nv.Value}))
		case KindVector:
			return o.jacConst(c.ScaleRows(o.Array(v)))
		}
	}
	return o.intern(Node{Kind: KindJacDiag, Size: na.Size, Cols: na.Cols, Children: []Id{v, a}})
}

// jacMat returns m * a
func (o *Arena) jacMat(m *SpMat, a Id) Id {
	na := o.Node(a)
	if na.Size != m.N {
		raise(ErrShape, "cannot multiply %dx%d matrix by %dx%d jacobian", m.M, m.N, na.Size, na.Cols)
	}
	if c, ok := o.ConstJacobian(a); ok {
		return o.jacConst(m.Mul(c))
	}
	return o.intern(Node{Kind: KindJacMat, Size: m.M, Cols: na.Cols, Aux: o.internMat(m), Children: []Id{a}})
}

// jacRow returns row i of a
func (o *Arena) jacRow(a Id, i int) Id {
	na := o.Node(a)
	if na.Size == 1 {
		return a
	}
	if c, ok := o.ConstJacobian(a); ok {
		return o.jacConst(c.Row(i))
	}
	return o.intern(Node{Kind: KindJacRow, Size: 1, Cols: na.Cols, Aux: i, Children: []Id{a}})
}

// jacBroadcast repeats the single row of a
func (o *Arena) jacBroadcast(a Id, rows int) Id {
	na := o.Node(a)
	if na.Size == rows {
		return a
	}
	if na.Size != 1 {
		raise(ErrShape, "cannot broadcast %dx%d jacobian to %d rows", na.Size, na.Cols, rows)
	}
	if c, ok := o.ConstJacobian(a); ok {
		return o.jacConst(c.Replicate(rows))
	}
	return o.intern(Node{Kind: KindJacBroadcast, Size: rows, Cols: na.Cols, Children: []Id{a}})
}

// jacStack stacks matrix nodes vertically
func (o *Arena) jacStack(parts []Id) Id {
	if len(parts) == 1 {
		return parts[0]
	}
	rows, cols := 0, 0
	allConst := true
	mats := make([]*SpMat, len(parts))
	for i, p := range parts {
		np := o.Node(p)
		rows += np.Size
		cols = np.Cols
		if c, ok := o.ConstJacobian(p); ok {
			mats[i] = c
		} else {
			allConst = false
		}
	}
	if allConst {
		return o.jacConst(SpStack(mats...))
	}
	return o.intern(Node{Kind: KindJacStack, Size: rows, Cols: cols, Children: append([]Id{}, parts...)})
}
