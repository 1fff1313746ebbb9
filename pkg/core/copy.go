package core

// JSONPathsAuto requests column mapping by matching JSON keys to column names.
const JSONPathsAuto = "auto"

// TimeFormatEpochMillis decodes timestamps given as epoch milliseconds.
const TimeFormatEpochMillis = "epochmillisecs"

// CopySpec describes a bulk load of JSON objects from object storage into a staging table.
type CopySpec struct {
	Table *Table
	// Source is the storage location URI, e.g. s3://bucket/log_data.
	Source string
	// RoleARN is the delegated-access role used by the warehouse to read Source.
	RoleARN string
	Region  string
	// JSONPaths is the URI of a JSONPaths descriptor, or JSONPathsAuto.
	JSONPaths string
	// Paths are the resolved JSONPaths expressions, one per table column.
	// Only set for dialects that project columns themselves.
	Paths []string
	// TimeFormat is the timestamp decoding format, or "" for the warehouse default.
	TimeFormat string
}
