// Package models contains GORM persistence models for the stock ledger.
// Domain types stay free of table mappings; each model converts to and from
// its domain counterpart with ToDomain / FromDomain.
//
//   - base.go: BaseModel and AggregateModel (identity, timestamps, version)
//   - ledger.go: products, variants, batches, batch consumptions, movements
//   - demand.go: demand history rows
package models
