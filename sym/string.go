// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

import (
	"bytes"
	"strings"

	"github.com/cpmech/gosl/io"
)

// String returns a human-readable form of the expression
func (o *Arena) String(id Id) string {
	var b bytes.Buffer
	o.write(&b, id)
	return b.String()
}

func (o *Arena) write(b *bytes.Buffer, id Id) {
	n := o.Node(id)
	switch {
	case n.Kind == KindConstant:
		if n.IsScalar() {
			b.WriteString(io.Sf("%g", n.Value))
		} else {
			b.WriteString(io.Sf("%g[%s]", n.Value, Shape{n.Domain, n.Loc, n.Size}))
		}
	case n.Kind == KindVector:
		b.WriteString(io.Sf("vector[%d]", n.Size))
	case n.Kind == KindVariable, n.Kind == KindParameter:
		b.WriteString(n.Name)
	case n.Kind == KindTime:
		b.WriteString("t")
	case n.Kind == KindStateVector:
		b.WriteString(io.Sf("y[%d:%d]", n.Aux, n.Aux2))
	case n.Kind.IsBinary() && n.Kind != KindMin && n.Kind != KindMax:
		b.WriteString("(")
		o.write(b, n.Children[0])
		b.WriteString(io.Sf(" %s ", n.Kind))
		o.write(b, n.Children[1])
		b.WriteString(")")
	case n.Kind == KindSum, n.Kind == KindProduct:
		sep := " + "
		if n.Kind == KindProduct {
			sep = " * "
		}
		b.WriteString("(")
		for i, c := range n.Children {
			if i > 0 {
				b.WriteString(sep)
			}
			o.write(b, c)
		}
		b.WriteString(")")
	case n.Kind == KindNeg:
		b.WriteString("-")
		o.write(b, n.Children[0])
	case n.Kind == KindBoundaryValue, n.Kind == KindBoundaryFlux:
		b.WriteString(io.Sf("%s(", n.Kind))
		o.write(b, n.Children[0])
		b.WriteString(io.Sf(", %s)", Side(n.Aux)))
	case n.Kind == KindBroadcast:
		b.WriteString("broadcast(")
		o.write(b, n.Children[0])
		b.WriteString(io.Sf(", %s)", strings.Join(n.Domain, "+")))
	case n.Kind == KindIndex:
		o.write(b, n.Children[0])
		b.WriteString(io.Sf("[%d]", n.Aux))
	case n.Kind == KindMatMul:
		b.WriteString(io.Sf("M%d@", n.Aux))
		o.write(b, n.Children[0])
	case n.Kind.IsJac():
		b.WriteString(io.Sf("%s<%dx%d>", n.Kind, n.Size, n.Cols))
	default:
		b.WriteString(io.Sf("%s(", n.Kind))
		for i, c := range n.Children {
			if i > 0 {
				b.WriteString(", ")
			}
			o.write(b, c)
		}
		b.WriteString(")")
	}
}
