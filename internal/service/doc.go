// Package service implements the application's business logic, coordinating
// between the domain model, the store layer, the in-memory graph index, and
// the snapshot cache.
//
// Services own transaction boundaries: stores execute single statements, and
// services compose them with store.RunInTransaction. Events are emitted only
// after a transaction commits.
package service
