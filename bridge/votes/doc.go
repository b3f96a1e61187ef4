// Package votes keeps the stake-weighted tallies validators build up for
// facts observed on the bridged chain.
//
// Each fact (the body) gets five keys under bridge/<kind>/<hash>: the body
// itself, the seen flag, the validators that voted with the height of their
// vote, the voting power contributed per epoch and the epoch voting started.
// Voting power is recorded in the epoch it was cast and only ever grows; it
// is turned into a fraction of the total stake of a reference epoch whenever
// a decision has to be made.
//
// Tallies are mutated exclusively through a *state.Manager during the state
// transition. Nothing here locks or caches; see state.Manager for the
// single-writer contract this relies on.
package votes
