// Package ast builds artificial star test (AST) input lists: tables of
// model stars, each with a position at which it will be injected into the
// observed images.
//
// Two placement strategies are provided. PickPositionsFromMap spreads the
// models over regions of similar stellar or background density, so that
// every density regime gets the same set of fake stars. PickPositions
// puts each model a few pixels away from a randomly chosen real source.
//
// Every output table starts with two integer marker columns (all zeros,
// then all ones) that the photometry pipeline expects in fake star lists.
//
// Randomness comes from the *rand.Rand passed in the options, so runs with
// the same seed and inputs give identical tables.
package ast
