// Package entry persists configured Bazarr instances and runs the flows that
// create them and replace their API keys.
//
// Entries live in a single bbolt bucket keyed by UUID and encoded as JSON. A
// Flow validates credentials before anything is written, so a stored entry
// always held a key Bazarr accepted at the time it was saved.
package entry
