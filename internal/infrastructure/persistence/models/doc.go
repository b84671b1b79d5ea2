// Package models contains GORM persistence models. They carry the table
// mappings so domain entities stay free of ORM tags; each model converts to
// and from its domain aggregate.
package models
