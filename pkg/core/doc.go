// Package core defines the shared language of the songplays pipeline.
//
// This package contains:
//   - Schema entities (Table, Column, Reference)
//   - Pipeline entities (Stage, Statement, Plan, CopySpec)
//   - Run history entities (Run, StatementRun, RowCounts)
//   - Configuration types (TargetConfig, AdapterConfig)
//
// pkg/core imports only the standard library.
// All other packages depend on core, not the reverse.
package core
