// Package storage defines the persistence contracts for the marketplace.
//
// It abstracts how accounts, sessions, categories, requests, bids, and
// escrows are stored. The sqlite subpackage is the production
// implementation; tests may substitute in-memory fakes of the narrow
// interfaces they need.
//
// # Errors
//
// Implementations translate backend failures to the package sentinels:
//   - ErrNotFound: a requested record is missing.
//   - ErrAlreadyExists: a uniqueness constraint rejected a write.
//
// Field-specific conflicts (taken email, duplicate bid) surface as coded
// errors so handlers can map them to precise API responses.
package storage
