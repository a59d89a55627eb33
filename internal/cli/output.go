package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dbmigration/dbmigration"
	"go.uber.org/multierr"
)

type resultsOutput struct {
	Results       []result `json:"results"`
	TotalDuration int64    `json:"total_duration_ms"`
	HasError      bool     `json:"has_error"`
	Error         string   `json:"error,omitempty"`
}

type result struct {
	Group     string `json:"group"`
	Version   int32  `json:"version"`
	Name      string `json:"name"`
	Duration  int64  `json:"duration_ms"`
	Direction string `json:"direction"`
	Empty     bool   `json:"empty"`
}

// printResults prints the change sets that were applied or reverted. err is the error that stopped
// the command, if any, and is returned together with any output error.
func printResults(
	st *state,
	results []*dbmigration.Result,
	err error,
	totalDuration time.Duration,
) error {
	if st.flags.json {
		output := resultsOutput{
			Results:       convertResults(results),
			TotalDuration: totalDuration.Milliseconds(),
			HasError:      err != nil,
		}
		if err != nil {
			output.Error = err.Error()
		}
		encodeErr := json.NewEncoder(st.stdout).Encode(output)
		return multierr.Append(err, encodeErr)
	}
	if len(results) == 0 && err == nil {
		fmt.Fprintln(st.stdout, "no change sets to run")
		return nil
	}
	for _, r := range results {
		status := "OK   "
		if r.Empty {
			status = "EMPTY"
		}
		fmt.Fprintf(st.stdout, "%s %-4s %s %s (%s)\n",
			status, r.Direction, r.Group, r.ChangeSet, truncateDuration(r.Duration))
	}
	if err == nil {
		fmt.Fprintf(st.stdout, "\nsuccessfully ran %d change sets in %v\n", len(results), truncateDuration(totalDuration))
	}
	return err
}

func convertResults(results []*dbmigration.Result) []result {
	output := make([]result, 0, len(results))
	for _, r := range results {
		output = append(output, result{
			Group:     r.Group,
			Version:   r.ChangeSet.Version,
			Name:      r.ChangeSet.Name,
			Duration:  r.Duration.Milliseconds(),
			Direction: string(r.Direction),
			Empty:     r.Empty,
		})
	}
	return output
}

type updatedOutput struct {
	Group   string `json:"group"`
	Version int32  `json:"version"`
	Name    string `json:"name"`
}

func printUpdated(st *state, updated []updatedOutput) error {
	if st.flags.json {
		if updated == nil {
			updated = []updatedOutput{}
		}
		return json.NewEncoder(st.stdout).Encode(struct {
			Updated []updatedOutput `json:"updated"`
		}{updated})
	}
	if len(updated) == 0 {
		fmt.Fprintln(st.stdout, "rollback SQL is up to date")
		return nil
	}
	for _, u := range updated {
		fmt.Fprintf(st.stdout, "UPDATED %s V%d %s\n", u.Group, u.Version, u.Name)
	}
	return nil
}

type statusesOutput struct {
	Statuses   []statusOutput `json:"statuses"`
	HasPending bool           `json:"has_pending"`
	HasDrift   bool           `json:"has_drift"`
}

type statusOutput struct {
	Group      string `json:"group"`
	Version    int32  `json:"version"`
	Name       string `json:"name"`
	State      string `json:"state"`
	Reason     string `json:"reason,omitempty"`
	Reversible bool   `json:"reversible"`
}

func printStatus(st *state, statuses []*dbmigration.ChangeSetStatus) error {
	output := statusesOutput{
		Statuses: make([]statusOutput, 0, len(statuses)),
	}
	for _, s := range statuses {
		switch s.State {
		case dbmigration.StatePending:
			output.HasPending = true
		case dbmigration.StateDiverged, dbmigration.StateUntracked:
			output.HasDrift = true
		}
		output.Statuses = append(output.Statuses, statusOutput{
			Group:      s.Group,
			Version:    s.ChangeSet.Version,
			Name:       s.ChangeSet.Name,
			State:      string(s.State),
			Reason:     s.Reason,
			Reversible: s.Reversible,
		})
	}
	if st.flags.json {
		return json.NewEncoder(st.stdout).Encode(output)
	}
	tw := tabwriter.NewWriter(st.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tVERSION\tNAME\tSTATE\tREVERSIBLE")
	for _, s := range output.Statuses {
		state := s.State
		if s.Reason != "" {
			state += " (" + s.Reason + ")"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%t\n", s.Group, s.Version, s.Name, state, s.Reversible)
	}
	return tw.Flush()
}

// truncateDuration truncates the given duration to the nearest millisecond, microsecond, or
// nanosecond depending on its magnitude.
func truncateDuration(d time.Duration) time.Duration {
	for _, v := range []time.Duration{
		time.Second,
		time.Millisecond,
		time.Microsecond,
	} {
		if d > v {
			return d.Round(v / time.Duration(100))
		}
	}
	return d
}
