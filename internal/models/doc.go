// Package models defines the domain types shared by the authenticator, the aggregator and the UI layers.
//
// Request types:
//   - [Category] : the kind of top item (artists or tracks), carrying its table columns
//   - [Window] : the ranking period passed as time_range
//   - [FetchRequest] : category, window and a count from [AllowedCounts]
//
// Result types:
//   - [Row] : one normalized item, projected per category
//   - [ResultTable] : ordered rows for one fetch, possibly partial
//
// Session types:
//   - [TokenState] : the bearer token held for a session; never refreshed
//   - [Session] : persistent entity mapping an opaque ID to a [TokenState]
//
// [Session] implements [Model] and is stored through a [Repository].
package models
