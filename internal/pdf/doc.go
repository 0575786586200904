// Package pdf defines the conditional distribution contract consumed by
// measurement models, P(Z | X[, U]), together with a few concrete
// distributions backed by gonum.
//
// Responsibilities: sampling-method enumeration, probability values,
// conditioning arity checks and the error taxonomy shared with callers.
// Key types: Conditional, SamplingMethod, Probability.
//
// Conditioning values are passed as an ordered slice: cond[0] is the
// state, cond[1] (when present) is the sensor parameter. Every slot shares
// one Go type, so the state and the sensor parameter must both be
// continuous or both be discrete. The measurement type is independent.
//
// Distributions are not safe for concurrent use unless their random
// source is (see NewSource). Parameters are fixed at construction.
package pdf
