// Package door contains the core domain types of the garage door.
//
// It defines State (the coarse door position), Reading (the two proximity
// sensors of the node) and Decode, the pure mapping from a reading to a
// state.
package door
