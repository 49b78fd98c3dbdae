// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package propcheck is a small property-based test harness: a Property
// pairs a generator of random inputs with a Check that must hold for every
// generated value. Verifier runs a Property for N iterations and reports
// the first counterexample, with no component-registry indirection: a
// Property is checked directly against the package under test.
package propcheck

import (
	"fmt"
	"math/rand"
)

// Property is one invariant to check against randomly generated inputs.
type Property struct {
	// Name identifies the property in failure output.
	Name string

	// Generator produces one random input value per call, seeded by rnd so
	// runs are reproducible given the same seed.
	Generator func(rnd *rand.Rand) any

	// Check reports whether the property holds for input, and a
	// human-readable reason when it does not.
	Check func(input any) (ok bool, reason string)
}

// Result is the outcome of verifying one Property.
type Result struct {
	Property        string
	Iterations      int
	Passed          bool
	Counterexample  any
	FailureReason   string
	FailedIteration int
}

// Verifier runs properties against their generators for a fixed iteration
// count and a fixed seed, so a failing run is reproducible.
type Verifier struct {
	Iterations int
	Seed       int64
}

// NewVerifier returns a Verifier with the given iteration count and seed.
func NewVerifier(iterations int, seed int64) *Verifier {
	if iterations <= 0 {
		iterations = 100
	}
	return &Verifier{Iterations: iterations, Seed: seed}
}

// Verify runs p.Generator/p.Check for v.Iterations rounds, stopping at the
// first counterexample.
func (v *Verifier) Verify(p Property) Result {
	rnd := rand.New(rand.NewSource(v.Seed))
	for i := 0; i < v.Iterations; i++ {
		input := p.Generator(rnd)
		ok, reason := p.Check(input)
		if !ok {
			return Result{
				Property:        p.Name,
				Iterations:      i + 1,
				Passed:          false,
				Counterexample:  input,
				FailureReason:   reason,
				FailedIteration: i,
			}
		}
	}
	return Result{Property: p.Name, Iterations: v.Iterations, Passed: true}
}

// VerifyAll runs every property in props and returns all results in order.
// It does not stop early: a caller wanting fail-fast semantics should range
// over props and break on the first !Passed result.
func (v *Verifier) VerifyAll(props []Property) []Result {
	results := make([]Result, len(props))
	for i, p := range props {
		results[i] = v.Verify(p)
	}
	return results
}

// Error renders a non-passing Result as an error, or nil if it passed.
func (r Result) Error() error {
	if r.Passed {
		return nil
	}
	return fmt.Errorf("property %q failed at iteration %d: %s (counterexample: %+v)",
		r.Property, r.FailedIteration, r.FailureReason, r.Counterexample)
}
