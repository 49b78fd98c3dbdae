// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package propcheck

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_PassesWhenPropertyHolds(t *testing.T) {
	prop := Property{
		Name:      "non-negative squares",
		Generator: func(rnd *rand.Rand) any { return rnd.Intn(1000) },
		Check: func(input any) (bool, string) {
			n := input.(int)
			return n*n >= 0, "square went negative"
		},
	}

	v := NewVerifier(200, 42)
	result := v.Verify(prop)
	require.True(t, result.Passed, result.Error())
}

func TestVerifier_ReportsFirstCounterexample(t *testing.T) {
	prop := Property{
		Name:      "always less than 10",
		Generator: func(rnd *rand.Rand) any { return rnd.Intn(20) },
		Check: func(input any) (bool, string) {
			n := input.(int)
			if n >= 10 {
				return false, "value reached double digits"
			}
			return true, ""
		},
	}

	v := NewVerifier(500, 7)
	result := v.Verify(prop)
	assert.False(t, result.Passed, "expected property to fail for some generated input")
	assert.Error(t, result.Error())
}

func TestVerifier_Deterministic(t *testing.T) {
	prop := Property{
		Name:      "deterministic",
		Generator: func(rnd *rand.Rand) any { return rnd.Intn(1000) },
		Check: func(input any) (bool, string) {
			return input.(int) != 999, "hit the unlucky value"
		},
	}

	v1 := NewVerifier(1000, 123)
	v2 := NewVerifier(1000, 123)
	r1 := v1.Verify(prop)
	r2 := v2.Verify(prop)
	assert.Equal(t, r1.Passed, r2.Passed)
	assert.Equal(t, r1.FailedIteration, r2.FailedIteration)
}

func TestVerifier_VerifyAll(t *testing.T) {
	props := []Property{
		{
			Name:      "always true",
			Generator: func(rnd *rand.Rand) any { return 1 },
			Check:     func(any) (bool, string) { return true, "" },
		},
		{
			Name:      "always false",
			Generator: func(rnd *rand.Rand) any { return 1 },
			Check:     func(any) (bool, string) { return false, "nope" },
		},
	}
	v := NewVerifier(5, 1)
	results := v.VerifyAll(props)
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
}
