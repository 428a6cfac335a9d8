// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

import (
	"strings"

	"github.com/cpmech/gosl/io"
)

// Shape describes the entries of a node
type Shape struct {
	Domain []string // ordered sub-domains; empty means no spatial domain
	Loc    Loc      // nodes or edges
	Size   int      // number of entries; 0 means not known yet
}

// Scalar is the shape of a single number
var Scalar = Shape{Size: 1}

// IsScalar tells whether the shape holds a single number
func (o Shape) IsScalar() bool { return len(o.Domain) == 0 && o.Size <= 1 }

// Equal compares shapes
func (o Shape) Equal(b Shape) bool {
	return equalStrings(o.Domain, b.Domain) && o.Loc == b.Loc && o.Size == b.Size
}

// String returns a short description such as "negative[10]@nodes"
func (o Shape) String() string {
	if o.IsScalar() {
		return "scalar"
	}
	loc := "nodes"
	if o.Loc == Edges {
		loc = "edges"
	}
	size := "?"
	if o.Size > 0 {
		size = io.Sf("%d", o.Size)
	}
	return io.Sf("%s[%s]@%s", strings.Join(o.Domain, "+"), size, loc)
}

// combine returns the shape of an elementwise operation between a and b
func combine(a, b Shape) (res Shape, ok bool) {
	if a.IsScalar() {
		return b, true
	}
	if b.IsScalar() {
		return a, true
	}
	if len(a.Domain) > 0 && len(b.Domain) > 0 {
		if !equalStrings(a.Domain, b.Domain) || a.Loc != b.Loc {
			return
		}
	}
	if a.Size > 0 && b.Size > 0 && a.Size != b.Size {
		return
	}
	res = a
	if len(res.Domain) == 0 {
		res.Domain, res.Loc = b.Domain, b.Loc
	}
	if res.Size == 0 {
		res.Size = b.Size
	}
	return res, true
}

// Shape returns the shape of a node
func (o *Arena) Shape(id Id) Shape {
	o.mu.RLock()
	defer o.mu.RUnlock()
	n := &o.nodes[id]
	return Shape{n.Domain, n.Loc, n.Size}
}

// shaped returns a node skeleton with the given shape
func shaped(kind Kind, s Shape, children ...Id) Node {
	if len(s.Domain) == 0 && s.Size < 1 {
		s.Size = 1
	}
	return Node{Kind: kind, Domain: s.Domain, Loc: s.Loc, Size: s.Size, Children: children}
}

// leaves ///////////////////////////////////////////////////////////////////////////////////////////

// Const returns a scalar constant
func (o *Arena) Const(v float64) Id {
	return o.intern(Node{Kind: KindConstant, Value: v, Size: 1})
}

// Filled returns a constant with all entries equal to v and the given shape
func (o *Arena) Filled(v float64, s Shape) Id {
	if s.IsScalar() {
		return o.Const(v)
	}
	n := shaped(KindConstant, s)
	n.Value = v
	return o.intern(n)
}

// Zeros returns a zero constant with the given shape
func (o *Arena) Zeros(s Shape) Id { return o.Filled(0, s) }

// Vector returns a constant array
func (o *Arena) Vector(vals []float64, dom []string, loc Loc) Id {
	if len(vals) == 0 {
		raise(ErrShape, "constant vector must have at least one entry")
	}
	if len(vals) == 1 && len(dom) == 0 {
		return o.Const(vals[0])
	}
	k := o.internVec(vals)
	return o.intern(Node{Kind: KindVector, Aux: k, Domain: copyStrings(dom), Loc: loc, Size: len(vals)})
}

// Var returns a variable. Without domains the variable is a scalar.
func (o *Arena) Var(name string, dom ...string) Id {
	key := strings.Join(dom, ",")
	o.mu.Lock()
	old, found := o.names[name]
	if !found {
		o.names[name] = key
	}
	o.mu.Unlock()
	if found && old != key {
		raise(ErrShape, "variable %q already declared on domain [%s]; cannot redeclare on [%s]", name, old, key)
	}
	if len(dom) == 0 {
		return o.intern(Node{Kind: KindVariable, Name: name, Size: 1})
	}
	return o.intern(Node{Kind: KindVariable, Name: name, Domain: copyStrings(dom), Loc: Nodes})
}

// Param returns a named scalar parameter
func (o *Arena) Param(name string) Id {
	return o.intern(Node{Kind: KindParameter, Name: name, Size: 1})
}

// Time returns the independent variable
func (o *Arena) Time() Id {
	return o.intern(Node{Kind: KindTime, Size: 1})
}

// StateVector returns the slice y[lo:hi] of the state vector
func (o *Arena) StateVector(name string, lo, hi int, dom []string, loc Loc) Id {
	if lo < 0 || hi <= lo {
		raise(ErrShape, "invalid state-vector slice [%d,%d) of %q", lo, hi, name)
	}
	return o.intern(Node{Kind: KindStateVector, Name: name, Aux: lo, Aux2: hi, Domain: copyStrings(dom), Loc: loc, Size: hi - lo})
}

// elementwise //////////////////////////////////////////////////////////////////////////////////////

func (o *Arena) binary(kind Kind, a, b Id) Id {
	sa, sb := o.Shape(a), o.Shape(b)
	s, ok := combine(sa, sb)
	if !ok {
		raise(ErrShape, "cannot apply %q to %v and %v", kind, sa, sb)
	}
	return o.intern(shaped(kind, s, a, b))
}

func (o *Arena) nary(kind Kind, xs []Id) Id {
	s := Scalar
	for _, x := range xs {
		sx := o.Shape(x)
		c, ok := combine(s, sx)
		if !ok {
			raise(ErrShape, "cannot apply %q to %v and %v", kind, s, sx)
		}
		s = c
	}
	return o.intern(shaped(kind, s, append([]Id{}, xs...)...))
}

func (o *Arena) unary(kind Kind, a Id) Id {
	return o.intern(shaped(kind, o.Shape(a), a))
}

// Add returns a + b
func (o *Arena) Add(a, b Id) Id { return o.binary(KindAdd, a, b) }

// Sub returns a - b
func (o *Arena) Sub(a, b Id) Id { return o.binary(KindSub, a, b) }

// Mul returns a * b
func (o *Arena) Mul(a, b Id) Id { return o.binary(KindMul, a, b) }

// Div returns a / b
func (o *Arena) Div(a, b Id) Id { return o.binary(KindDiv, a, b) }

// Pow returns a ^ b
func (o *Arena) Pow(a, b Id) Id { return o.binary(KindPow, a, b) }

// Min returns min(a, b)
func (o *Arena) Min(a, b Id) Id { return o.binary(KindMin, a, b) }

// Max returns max(a, b)
func (o *Arena) Max(a, b Id) Id { return o.binary(KindMax, a, b) }

// Less returns 1 where a < b and 0 elsewhere
func (o *Arena) Less(a, b Id) Id { return o.binary(KindLess, a, b) }

// LessEq returns 1 where a <= b and 0 elsewhere
func (o *Arena) LessEq(a, b Id) Id { return o.binary(KindLessEq, a, b) }

// Greater returns 1 where a > b and 0 elsewhere
func (o *Arena) Greater(a, b Id) Id { return o.binary(KindGreater, a, b) }

// GreaterEq returns 1 where a >= b and 0 elsewhere
func (o *Arena) GreaterEq(a, b Id) Id { return o.binary(KindGreaterEq, a, b) }

// Sum returns x0 + x1 + ...
func (o *Arena) Sum(xs ...Id) Id {
	switch len(xs) {
	case 0:
		return o.Const(0)
	case 1:
		return xs[0]
	}
	return o.nary(KindSum, xs)
}

// Product returns x0 * x1 * ...
func (o *Arena) Product(xs ...Id) Id {
	switch len(xs) {
	case 0:
		return o.Const(1)
	case 1:
		return xs[0]
	}
	return o.nary(KindProduct, xs)
}

// Scale returns c * x
func (o *Arena) Scale(c float64, x Id) Id { return o.Mul(o.Const(c), x) }

// Neg returns -a
func (o *Arena) Neg(a Id) Id { return o.unary(KindNeg, a) }

// Exp returns exp(a)
func (o *Arena) Exp(a Id) Id { return o.unary(KindExp, a) }

// Log returns the natural logarithm of a
func (o *Arena) Log(a Id) Id { return o.unary(KindLog, a) }

// Sqrt returns the square root of a
func (o *Arena) Sqrt(a Id) Id { return o.unary(KindSqrt, a) }

// Sign returns -1, 0 or 1
func (o *Arena) Sign(a Id) Id { return o.unary(KindSign, a) }

// Abs returns |a|
func (o *Arena) Abs(a Id) Id { return o.unary(KindAbs, a) }

// Sin returns sin(a)
func (o *Arena) Sin(a Id) Id { return o.unary(KindSin, a) }

// Cos returns cos(a)
func (o *Arena) Cos(a Id) Id { return o.unary(KindCos, a) }

// Sinh returns sinh(a)
func (o *Arena) Sinh(a Id) Id { return o.unary(KindSinh, a) }

// Cosh returns cosh(a)
func (o *Arena) Cosh(a Id) Id { return o.unary(KindCosh, a) }

// Tanh returns tanh(a)
func (o *Arena) Tanh(a Id) Id { return o.unary(KindTanh, a) }

// Arcsinh returns the inverse hyperbolic sine of a
func (o *Arena) Arcsinh(a Id) Id { return o.unary(KindArcsinh, a) }

// spatial //////////////////////////////////////////////////////////////////////////////////////////

// Gradient returns the gradient of a quantity living on domain nodes. The result lives on edges.
func (o *Arena) Gradient(x Id) Id {
	s := o.Shape(x)
	if len(s.Domain) == 0 || s.Loc != Nodes {
		raise(ErrShape, "gradient requires a quantity on domain nodes; got %v", s)
	}
	if s.Size > 0 {
		s.Size++
	}
	s.Loc = Edges
	return o.intern(shaped(KindGradient, s, x))
}

// Divergence returns the divergence of a flux living on domain edges. The result lives on nodes.
func (o *Arena) Divergence(f Id) Id {
	s := o.Shape(f)
	if len(s.Domain) == 0 || s.Loc != Edges {
		raise(ErrShape, "divergence requires a flux on domain edges; got %v", s)
	}
	if s.Size > 0 {
		s.Size--
	}
	s.Loc = Nodes
	return o.intern(shaped(KindDivergence, s, f))
}

// Integral returns the integral of x over its domain
func (o *Arena) Integral(x Id) Id {
	s := o.Shape(x)
	if len(s.Domain) == 0 || s.Loc != Nodes {
		raise(ErrShape, "integral requires a quantity on domain nodes; got %v", s)
	}
	return o.intern(shaped(KindIntegral, Scalar, x))
}

// BoundaryValue returns the value of x at one side of its domain
func (o *Arena) BoundaryValue(x Id, side Side) Id {
	s := o.Shape(x)
	if len(s.Domain) == 0 || s.Loc != Nodes {
		raise(ErrShape, "boundary value requires a quantity on domain nodes; got %v", s)
	}
	n := shaped(KindBoundaryValue, Scalar, x)
	n.Aux = int(side)
	return o.intern(n)
}

// BoundaryFlux returns the boundary entry of a flux living on edges
func (o *Arena) BoundaryFlux(f Id, side Side) Id {
	s := o.Shape(f)
	if len(s.Domain) == 0 || s.Loc != Edges {
		raise(ErrShape, "boundary flux requires a flux on domain edges; got %v", s)
	}
	n := shaped(KindBoundaryFlux, Scalar, f)
	n.Aux = int(side)
	return o.intern(n)
}

// Broadcast spreads a scalar over the nodes of the given domain
func (o *Arena) Broadcast(x Id, dom ...string) Id {
	if !o.Shape(x).IsScalar() {
		raise(ErrShape, "broadcast requires a scalar; got %v", o.Shape(x))
	}
	if len(dom) == 0 {
		return x
	}
	return o.intern(shaped(KindBroadcast, Shape{Domain: copyStrings(dom), Loc: Nodes}, x))
}

// BroadcastTo spreads a scalar over s.Size entries (discretised broadcast)
func (o *Arena) BroadcastTo(x Id, s Shape) Id {
	if !o.Shape(x).IsScalar() || s.Size < 1 {
		raise(ErrShape, "cannot broadcast %v to %v", o.Shape(x), s)
	}
	if s.IsScalar() {
		return x
	}
	return o.intern(shaped(KindBroadcast, s, x))
}

// NodeToEdge interpolates a quantity from nodes to edges
func (o *Arena) NodeToEdge(x Id) Id {
	s := o.Shape(x)
	if len(s.Domain) == 0 || s.Loc != Nodes {
		raise(ErrShape, "node-to-edge requires a quantity on domain nodes; got %v", s)
	}
	if s.Size > 0 {
		s.Size++
	}
	s.Loc = Edges
	return o.intern(shaped(KindNodeToEdge, s, x))
}

// Concat joins quantities defined on distinct sub-domains, in order
func (o *Arena) Concat(xs ...Id) Id {
	if len(xs) == 0 {
		raise(ErrShape, "concatenation requires at least one child")
	}
	if len(xs) == 1 {
		return xs[0]
	}
	var dom []string
	seen := make(map[string]bool)
	size := 0
	for _, x := range xs {
		s := o.Shape(x)
		if len(s.Domain) == 0 || s.Loc != Nodes {
			raise(ErrShape, "concatenation requires quantities on domain nodes; got %v", s)
		}
		for _, d := range s.Domain {
			if seen[d] {
				raise(ErrShape, "concatenation has sub-domain %q more than once", d)
			}
			seen[d] = true
			dom = append(dom, d)
		}
		if s.Size == 0 || size < 0 {
			size = -1
		} else {
			size += s.Size
		}
	}
	if size < 0 {
		size = 0
	}
	return o.intern(shaped(KindConcatenation, Shape{Domain: dom, Loc: Nodes, Size: size}, append([]Id{}, xs...)...))
}

// Join concatenates discretised children (all sizes known) and tags the result with s
func (o *Arena) Join(s Shape, xs ...Id) Id {
	size := 0
	for _, x := range xs {
		sx := o.Shape(x)
		if sx.Size < 1 {
			raise(ErrShape, "join requires children with known size; got %v", sx)
		}
		size += sx.Size
	}
	if s.Size > 0 && s.Size != size {
		raise(ErrShape, "join of %d entries cannot have shape %v", size, s)
	}
	s.Size = size
	if len(xs) == 1 && o.Shape(xs[0]).Equal(s) {
		return xs[0]
	}
	return o.intern(shaped(KindConcatenation, s, append([]Id{}, xs...)...))
}

// discrete /////////////////////////////////////////////////////////////////////////////////////////

// MatMul returns m * x where m is a constant sparse matrix. The result is tagged with s.
func (o *Arena) MatMul(m *SpMat, x Id, s Shape) Id {
	sx := o.Shape(x)
	if !sx.IsScalar() && sx.Size != m.N {
		raise(ErrShape, "cannot multiply %dx%d matrix by %v", m.M, m.N, sx)
	}
	if s.Size > 0 && s.Size != m.M {
		raise(ErrShape, "product of %dx%d matrix cannot have shape %v", m.M, m.N, s)
	}
	s.Size = m.M
	n := shaped(KindMatMul, s, x)
	n.Aux = o.internMat(m)
	return o.intern(n)
}

// Index returns entry i of x
func (o *Arena) Index(x Id, i int) Id {
	s := o.Shape(x)
	if s.IsScalar() && i == 0 {
		return x
	}
	if s.Size < 1 || i < 0 || i >= s.Size {
		raise(ErrShape, "cannot index %v at %d", s, i)
	}
	n := shaped(KindIndex, Scalar, x)
	n.Aux = i
	return o.intern(n)
}

// auxiliary ////////////////////////////////////////////////////////////////////////////////////////

func copyStrings(a []string) []string {
	if len(a) == 0 {
		return nil
	}
	return append([]string{}, a...)
}

// Remake returns a node of the same kind as id with children cs. The node is rebuilt
// through the constructors, thus shapes are checked again.
func (o *Arena) Remake(id Id, cs []Id) Id {
	n := o.Node(id)
	if len(cs) != len(n.Children) {
		raise(ErrShape, "%q node needs %d children; got %d", n.Kind, len(n.Children), len(cs))
	}
	same := true
	for i := range cs {
		same = same && cs[i] == n.Children[i]
	}
	if same {
		return id
	}
	s := Shape{n.Domain, n.Loc, n.Size}
	switch {
	case n.Kind.IsBinary():
		return o.binary(n.Kind, cs[0], cs[1])
	case n.Kind == KindSum || n.Kind == KindProduct:
		return o.nary(n.Kind, cs)
	case n.Kind.IsUnary():
		return o.unary(n.Kind, cs[0])
	}
	switch n.Kind {
	case KindGradient:
		return o.Gradient(cs[0])
	case KindDivergence:
		return o.Divergence(cs[0])
	case KindIntegral:
		return o.Integral(cs[0])
	case KindBoundaryValue:
		return o.BoundaryValue(cs[0], Side(n.Aux))
	case KindBoundaryFlux:
		return o.BoundaryFlux(cs[0], Side(n.Aux))
	case KindBroadcast:
		if n.Size > 0 {
			return o.BroadcastTo(cs[0], s)
		}
		return o.Broadcast(cs[0], n.Domain...)
	case KindNodeToEdge:
		return o.NodeToEdge(cs[0])
	case KindConcatenation:
		if n.Size > 0 {
			return o.Join(s, cs...)
		}
		return o.Concat(cs...)
	case KindMatMul:
		o.mu.RLock()
		m := o.mats[n.Aux]
		o.mu.RUnlock()
		return o.MatMul(m, cs[0], s)
	case KindIndex:
		return o.Index(cs[0], n.Aux)
	}
	raise(ErrShape, "cannot remake %q node", n.Kind)
	return Nil
}
