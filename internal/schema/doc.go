// Package schema declares the songplays star schema and the statements that
// build it.
//
// The catalog holds two staging tables, four dimensions and one fact table.
// Foreign key declarations form a dependency graph that fixes the create
// order, and its reverse the drop order. Transforms declare which other
// transforms they read from, so insert order is derived rather than listed.
//
// Queries renders the five statement groups (drop, create, copy, insert,
// row count) for a dialect.
package schema
