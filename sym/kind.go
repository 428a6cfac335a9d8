// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

// Kind is the variant tag of a node
type Kind int

// leaves
const (
	KindConstant    Kind = iota // scalar or filled vector
	KindVector                  // constant array
	KindVariable                // named unknown with domain
	KindParameter               // named value resolved later
	KindTime                    // independent variable t
	KindStateVector             // slice [lo,hi) of y
)

// binary operators
const (
	KindAdd Kind = iota + 16
	KindSub
	KindMul
	KindDiv
	KindPow
	KindMin
	KindMax
	KindLess
	KindLessEq
	KindGreater
	KindGreaterEq
)

// n-ary operators
const (
	KindSum Kind = iota + 32
	KindProduct
)

// unary functions
const (
	KindNeg Kind = iota + 48
	KindExp
	KindLog
	KindSqrt
	KindSign
	KindAbs
	KindSin
	KindCos
	KindSinh
	KindCosh
	KindTanh
	KindArcsinh
)

// spatial operators
const (
	KindGradient Kind = iota + 64
	KindDivergence
	KindIntegral
	KindBoundaryValue
	KindBoundaryFlux
	KindBroadcast
	KindNodeToEdge
	KindConcatenation
)

// discrete operators
const (
	KindMatMul Kind = iota + 80
	KindIndex
)

// matrix-valued (Jacobian) nodes
const (
	KindJacZero      Kind = iota + 96 // all zeros
	KindJacConst                      // constant sparse matrix
	KindJacSum                        // A + B
	KindJacDiag                       // diag(v) * A
	KindJacMat                        // M * A with constant M
	KindJacStack                      // [A; B; ...]
	KindJacRow                        // row i of A
	KindJacBroadcast                  // row of A repeated Size times
)

var kindNames = map[Kind]string{
	KindConstant:      "constant",
	KindVector:        "vector",
	KindVariable:      "variable",
	KindParameter:     "parameter",
	KindTime:          "time",
	KindStateVector:   "y",
	KindAdd:           "+",
	KindSub:           "-",
	KindMul:           "*",
	KindDiv:           "/",
	KindPow:           "^",
	KindMin:           "min",
	KindMax:           "max",
	KindLess:          "<",
	KindLessEq:        "<=",
	KindGreater:       ">",
	KindGreaterEq:     ">=",
	KindSum:           "sum",
	KindProduct:       "product",
	KindNeg:           "neg",
	KindExp:           "exp",
	KindLog:           "log",
	KindSqrt:          "sqrt",
	KindSign:          "sign",
	KindAbs:           "abs",
	KindSin:           "sin",
	KindCos:           "cos",
	KindSinh:          "sinh",
	KindCosh:          "cosh",
	KindTanh:          "tanh",
	KindArcsinh:       "arcsinh",
	KindGradient:      "grad",
	KindDivergence:    "div",
	KindIntegral:      "integral",
	KindBoundaryValue: "boundary_value",
	KindBoundaryFlux:  "boundary_flux",
	KindBroadcast:     "broadcast",
	KindNodeToEdge:    "node_to_edge",
	KindConcatenation: "concat",
	KindMatMul:        "matmul",
	KindIndex:         "index",
	KindJacZero:       "jzero",
	KindJacConst:      "jconst",
	KindJacSum:        "jsum",
	KindJacDiag:       "jdiag",
	KindJacMat:        "jmat",
	KindJacStack:      "jstack",
	KindJacRow:        "jrow",
	KindJacBroadcast:  "jbroadcast",
}

// String returns the operator symbol or name
func (o Kind) String() string {
	if s, ok := kindNames[o]; ok {
		return s
	}
	return "unknown"
}

// IsLeaf tells whether nodes of this kind have no children
func (o Kind) IsLeaf() bool { return o <= KindStateVector }

// IsBinary tells whether o is a binary operator
func (o Kind) IsBinary() bool { return o >= KindAdd && o <= KindGreaterEq }

// IsComparison tells whether o is a comparison (result is 0 or 1)
func (o Kind) IsComparison() bool { return o >= KindLess && o <= KindGreaterEq }

// IsUnary tells whether o is an elementwise unary function
func (o Kind) IsUnary() bool { return o >= KindNeg && o <= KindArcsinh }

// IsSpatial tells whether o is a continuous spatial operator (requires discretisation)
func (o Kind) IsSpatial() bool { return o >= KindGradient && o <= KindNodeToEdge }

// IsJac tells whether o is a matrix-valued node
func (o Kind) IsJac() bool { return o >= KindJacZero && o <= KindJacBroadcast }

// IsElementwise tells whether o acts entry by entry (with scalar broadcasting)
func (o Kind) IsElementwise() bool {
	return o.IsBinary() || o.IsUnary() || o == KindSum || o == KindProduct
}
