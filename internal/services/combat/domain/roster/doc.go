// Package roster holds the ordered participant list of a combat session.
//
// A roster is sorted by initiative, highest first. Ties keep the order in
// which participants were supplied, so re-sorting an already sorted roster
// never moves anyone.
package roster
