package output

import "time"

// RunOutput is the JSON form of a pipeline run.
type RunOutput struct {
	ID          string            `json:"id"`
	Environment string            `json:"environment"`
	Target      string            `json:"target"`
	Stages      []string          `json:"stages"`
	Status      string            `json:"status"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	DurationMS  int64             `json:"duration_ms,omitempty"`
	Error       string            `json:"error,omitempty"`
	Statements  []StatementOutput `json:"statements,omitempty"`
	Counts      []TableCount      `json:"counts,omitempty"`
}

// StatementOutput is the JSON form of one statement run.
type StatementOutput struct {
	Ordinal      int    `json:"ordinal"`
	Stage        string `json:"stage"`
	Name         string `json:"name"`
	Table        string `json:"table"`
	Status       string `json:"status"`
	RowsAffected int64  `json:"rows_affected"`
	ExecutionMS  int64  `json:"execution_ms"`
	Error        string `json:"error,omitempty"`
	SQL          string `json:"sql,omitempty"`
}

// TableCount is one table's row count.
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// PlanOutput is the JSON form of a rendered plan.
type PlanOutput struct {
	Dialect string            `json:"dialect"`
	Stages  []PlanStageOutput `json:"stages"`
}

// PlanStageOutput is one stage of a plan.
type PlanStageOutput struct {
	Stage      string          `json:"stage"`
	Statements []PlanStatement `json:"statements"`
}

// PlanStatement is one rendered statement.
type PlanStatement struct {
	Name  string `json:"name"`
	Table string `json:"table"`
	SQL   string `json:"sql"`
}

// DAGOutput is the JSON form of the table and transform graphs.
type DAGOutput struct {
	Tables     []DAGLevel `json:"tables"`
	Transforms []DAGLevel `json:"transforms"`
}

// DAGLevel is one execution level.
type DAGLevel struct {
	Level int       `json:"level"`
	Nodes []DAGNode `json:"nodes"`
}

// DAGNode is one table or transform.
type DAGNode struct {
	Name      string   `json:"name"`
	DependsOn []string `json:"depends_on,omitempty"`
	UsedBy    []string `json:"used_by,omitempty"`
	Detail    string   `json:"detail,omitempty"`
}

// SourceOutput is the JSON form of one listed source.
type SourceOutput struct {
	Source   string         `json:"source"`
	Location string         `json:"location"`
	Objects  []ObjectOutput `json:"objects"`
	Error    string         `json:"error,omitempty"`
}

// ObjectOutput is one listed object.
type ObjectOutput struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}
