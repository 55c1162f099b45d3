// Package statedb provides read and update access to the auth-related
// entries of Cursor's state.vscdb SQLite store.
//
// The store is a single ItemTable of (key, value) text pairs with no
// namespacing; candidate entries are selected by substring match on the key
// and decoded best-effort. The database is opened and closed per logical
// operation so no lock is held while the host application is running.
package statedb
