// Package ranker produces top-K similar-item lists from a catalog Snapshot.
//
// Ranking reads one matrix row, orders the non-self candidates by score
// descending with ties broken by ascending catalog position, and truncates
// to K. It performs no I/O and never mutates the snapshot, so a single Ranker
// may serve any number of goroutines.
package ranker
