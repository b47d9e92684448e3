// Package models contains GORM persistence models that map to database tables.
// They stay separate from domain entities so the domain layer carries no ORM tags;
// each model converts with ToDomain / FromDomain.
package models
