package core

import (
	"fmt"
	"strings"
)

// Stage is one step of the pipeline. Stages always run in the order they are declared below.
type Stage string

// Pipeline stages.
const (
	StageReset     Stage = "reset"
	StageCreate    Stage = "create"
	StageLoad      Stage = "load"
	StageTransform Stage = "transform"
	StageCheck     Stage = "check"
)

// AllStages lists every stage in execution order.
var AllStages = []Stage{StageReset, StageCreate, StageLoad, StageTransform, StageCheck}

// Index returns the position of the stage in AllStages, or -1.
func (s Stage) Index() int {
	for i, st := range AllStages {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseStage parses a stage name (case-insensitive).
func ParseStage(name string) (Stage, error) {
	s := Stage(strings.ToLower(strings.TrimSpace(name)))
	if s.Index() < 0 {
		return "", fmt.Errorf("unknown stage %q (valid: reset, create, load, transform, check)", name)
	}
	return s, nil
}

// ParseStages parses a list of stage names.
func ParseStages(names []string) ([]Stage, error) {
	stages := make([]Stage, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		s, err := ParseStage(n)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, nil
}

// Statement is a single SQL statement in a stage.
type Statement struct {
	Stage Stage
	// Name identifies the statement within the plan, e.g. "create_songplays".
	Name string
	// Table is the table the statement targets.
	Table string
	SQL   string
	// Redacted is SQL with credentials masked, used for display and history.
	// Empty when SQL carries no credentials.
	Redacted string
}

// Display returns the SQL that is safe to print.
func (s Statement) Display() string {
	if s.Redacted != "" {
		return s.Redacted
	}
	return s.SQL
}

// StagePlan holds the ordered statements of one stage.
type StagePlan struct {
	Stage      Stage
	Statements []Statement
}

// Plan is the ordered set of statements for a run.
type Plan struct {
	Stages []StagePlan
}

// Statements flattens the plan into execution order.
func (p *Plan) Statements() []Statement {
	var out []Statement
	for _, sp := range p.Stages {
		out = append(out, sp.Statements...)
	}
	return out
}

// Stage returns the plan for a stage, if present.
func (p *Plan) Stage(s Stage) (StagePlan, bool) {
	for _, sp := range p.Stages {
		if sp.Stage == s {
			return sp, true
		}
	}
	return StagePlan{}, false
}
