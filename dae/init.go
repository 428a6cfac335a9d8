// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dae

import (
	"fmt"

	"github.com/cpmech/godae/sym"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// ConsistentInit returns y0 with algebraic entries satisfying Alg(t0, y) = 0. Differential
// entries are held fixed; the algebraic block is solved by Newton's method with step halving.
func (o *System) ConsistentInit(t0 float64, y0 []float64, verbose bool) (y []float64, err error) {
	y = append([]float64{}, y0...)
	na := o.N - o.Nrhs
	if na == 0 {
		return
	}
	g := make([]float64, o.N)
	δ := make([]float64, o.N)
	ytry := make([]float64, o.N)
	b := make([]float64, o.N)

	// residual norm of the algebraic block
	norm := func(y []float64) (float64, error) {
		if err := o.F(t0, y, g); err != nil {
			return 0, err
		}
		return la.Vector(g[o.Nrhs:]).Largest(1), nil
	}

	largG, err := norm(y)
	if err != nil {
		return
	}
	if verbose {
		io.Pf("\n%13s%4s%23s%10s\n", "t", "it", "largG", "λ")
	}
	for it := 0; it < o.InitMaxIt; it++ {
		if verbose {
			io.Pf("%13.6e%4d%23.15e\n", t0, it, largG)
		}
		if largG < o.InitTol {
			return
		}

		// [I 0; -∂g/∂x -∂g/∂z] δ = [0; g]
		if err = o.factorizeAlg(t0, y); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInconsistentIc, err)
		}
		la.Vector(b[:o.Nrhs]).Fill(0)
		copy(b[o.Nrhs:], g[o.Nrhs:])
		if err = o.Solve(δ, b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInconsistentIc, err)
		}

		// step halving
		λ := 1.0
		for {
			for i := range y {
				ytry[i] = y[i] + λ*δ[i]
			}
			var largTry float64
			largTry, err = norm(ytry)
			if err == nil && largTry < largG {
				largG = largTry
				break
			}
			λ /= 2
			if λ < 1.0/1024 {
				return nil, fmt.Errorf("%w: line search failed at iteration %d with |g| = %g", ErrInconsistentIc, it, largG)
			}
		}
		if verbose && λ < 1 {
			io.Pfyel("%13s%4s%23s%10g\n", "", "", "", λ)
		}
		copy(y, ytry)
	}
	if largG < o.InitTol {
		return
	}
	return nil, fmt.Errorf("%w: |g| = %g after %d iterations", ErrInconsistentIc, largG, o.InitMaxIt)
}

// factorizeAlg assembles and factorises the matrix of ConsistentInit
func (o *System) factorizeAlg(t float64, y []float64) (err error) {
	J, err := o.DfDy(t, y)
	if err != nil {
		return
	}
	if err = o.ensure(o.N + J.NNZ()); err != nil {
		return
	}
	o.kb.Start()
	for i := 0; i < o.Nrhs; i++ {
		o.kb.Put(i, i, 1)
	}
	J.Each(func(i, j int, x float64) {
		if i >= o.Nrhs && j >= o.Nrhs {
			o.kb.Put(i, j, -x)
		}
	})
	o.Stats.Ndecomp++
	return o.lsol.Fact()
}

// Consistent tells whether the algebraic residuals of y are below tol
func (o *System) Consistent(t float64, y []float64, tol float64) (ok bool, err error) {
	if o.N == o.Nrhs {
		return true, nil
	}
	g := make([]float64, o.N-o.Nrhs)
	if err = o.Alg(t, y, g); err != nil {
		return
	}
	return la.Vector(g).Largest(1) < tol, nil
}

// JacobianTriplet returns a new triplet holding cj M - ∂F/∂y
func (o *System) JacobianTriplet(t float64, y []float64, cj float64) (jac *la.Triplet, err error) {
	var J *sym.SpMat
	if J, err = o.DfDy(t, y); err != nil {
		return
	}
	jac = new(la.Triplet)
	jac.Init(o.N, o.N, o.N+J.NNZ())
	o.put(jac, J, cj)
	return
}
