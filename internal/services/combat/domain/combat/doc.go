// Package combat defines the combat session aggregate and its transitions.
//
// Every transition is a pure function from one Session value to the next.
// Callers persist the result through a store that applies the transition
// atomically, so a transition that returns an error leaves nothing behind.
package combat
