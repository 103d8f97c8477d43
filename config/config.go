// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package config holds the tuning constants shared by the reconstruction
// and goal-functional packages: finite-difference step sizes, KS/curvature
// aggregation weights and least-squares tolerances. These used to be
// static module-level constants in the original implementation; here they
// are scoped to a struct passed in at construction (see DESIGN.md).
package config

// Config holds tuning parameters for reconstruction and goal functionals.
type Config struct {

	// FDStep is a central-difference step size. No function in this module
	// reads it: KSDerivFD and CurvatureDerivFD use num.DerivCen's own step.
	FDStep float64 `json:"fdstep"`

	// KSWeight is the sharpness parameter k of the KS aggregation (C6.3)
	// and of the curvature induced-exponential aggregate (C6.4).
	KSWeight float64 `json:"ksweight"`

	// LstSqTol is the tolerance passed to the rank-revealing least-squares
	// solves (C4's patch fit and C6.4's curvature fit); -1 requests the
	// machine-default tolerance.
	LstSqTol float64 `json:"lstsqtol"`

	// PseudoInvTol is a generalized-inverse tolerance that no solve in this
	// module reads; the patch-reconstruction solve takes LstSqTol.
	PseudoInvTol float64 `json:"pseudoinvtol"`
}

// NewDefault returns a Config with the defaults used throughout the spec:
// FDStep = 1e-6 (§9 Design Notes), machine-default least-squares tolerance.
func NewDefault() *Config {
	return &Config{
		FDStep:       1e-6,
		KSWeight:     10.0,
		LstSqTol:     -1,
		PseudoInvTol: 1e-10,
	}
}
