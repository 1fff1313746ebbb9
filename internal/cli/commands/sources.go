package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/songplays/internal/cli/output"
	"github.com/leapstack-labs/songplays/internal/engine"
	"github.com/spf13/cobra"
)

// NewSourcesCommand creates the sources command.
func NewSourcesCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List objects at each configured source location",
		Long: `List the first objects found at the event log, song catalog and
JSONPaths descriptor locations. Fails if any location cannot be listed.`,
		Example: `  # Show the first five objects per source
  songplays sources

  # Show more
  songplays sources --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSources(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum objects to list per source")

	return cmd
}

func runSources(cmd *cobra.Command, limit int) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	checks := cmdCtx.Engine.ListSources(cmd.Context(), limit)

	var errs []error
	for _, c := range checks {
		if c.Err != nil {
			errs = append(errs, &engine.SourceError{Source: c.Source, Location: c.Location, Err: c.Err})
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := make([]output.SourceOutput, 0, len(checks))
		for _, c := range checks {
			so := output.SourceOutput{Source: c.Source, Location: c.Location, Objects: []output.ObjectOutput{}}
			if c.Err != nil {
				so.Error = c.Err.Error()
			}
			for _, o := range c.Objects {
				so.Objects = append(so.Objects, output.ObjectOutput{Key: o.Key, Size: o.Size, LastModified: o.LastModified})
			}
			out = append(out, so)
		}
		if err := r.JSON(out); err != nil {
			return err
		}

	default:
		for _, c := range checks {
			r.Header(2, fmt.Sprintf("%s (%s)", c.Source, c.Location))
			if c.Err != nil {
				r.StatusLine(c.Err.Error(), "failed", "")
				r.Println("")
				continue
			}
			if len(c.Objects) == 0 {
				r.Warning("no objects found")
				r.Println("")
				continue
			}
			rows := make([][]string, 0, len(c.Objects))
			for _, o := range c.Objects {
				rows = append(rows, []string{o.Key, strconv.FormatInt(o.Size, 10), o.LastModified.UTC().Format("2006-01-02 15:04:05")})
			}
			r.Table([]string{"key", "bytes", "modified"}, rows)
			r.Println("")
		}
	}

	return errors.Join(errs...)
}
