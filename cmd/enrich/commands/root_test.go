package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/futureroot-service/cmd/enrich/commands"
	"github.com/couchcryptid/futureroot-service/internal/pipeline"
)

type fakeRunner struct {
	ran     []string
	runAll  bool
	summary pipeline.Summary
	err     error
}

func (f *fakeRunner) Run(_ context.Context, job string) (pipeline.Summary, error) {
	f.ran = append(f.ran, job)
	s := f.summary
	s.Job = job
	return s, f.err
}

func (f *fakeRunner) RunAll(_ context.Context) ([]pipeline.Summary, error) {
	f.runAll = true
	return []pipeline.Summary{
		{Job: pipeline.JobHousing, Updated: 1200, Skipped: 3},
		{Job: pipeline.JobCommute, Updated: 4, AlreadySet: 10},
	}, f.err
}

func execute(t *testing.T, runner *fakeRunner, args ...string) (string, bool, error) {
	t.Helper()
	released := false
	root := commands.NewRoot(func(*cobra.Command) (commands.Runner, func(), error) {
		return runner, func() { released = true }, nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), released, err
}

func TestEnrich_EveryJobIsACommand(t *testing.T) {
	root := commands.Root()
	for _, job := range pipeline.JobNames {
		cmd, _, err := root.Find([]string{job})
		require.NoError(t, err, job)
		assert.Equal(t, job, cmd.Name())
		assert.NotEmpty(t, cmd.Short)
	}
}

func TestEnrich_SingleJob(t *testing.T) {
	runner := &fakeRunner{summary: pipeline.Summary{Updated: 1500, Skipped: 2}}

	out, released, err := execute(t, runner, pipeline.JobTaxRate)
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, []string{pipeline.JobTaxRate}, runner.ran)
	assert.Contains(t, out, pipeline.JobTaxRate)
	assert.Contains(t, out, "1,500")
}

func TestEnrich_All(t *testing.T) {
	runner := &fakeRunner{}

	out, _, err := execute(t, runner, "all")
	require.NoError(t, err)
	assert.True(t, runner.runAll)
	assert.Contains(t, out, pipeline.JobHousing)
	assert.Contains(t, out, pipeline.JobCommute)
	assert.Contains(t, out, "1,204")
}

func TestEnrich_JobError(t *testing.T) {
	runner := &fakeRunner{err: pipeline.ErrSourceUnavailable}

	_, released, err := execute(t, runner, pipeline.JobHousing)
	require.ErrorIs(t, err, pipeline.ErrSourceUnavailable)
	assert.True(t, released)
}

func TestEnrich_OpenError(t *testing.T) {
	boom := errors.New("no database")
	root := commands.NewRoot(func(*cobra.Command) (commands.Runner, func(), error) {
		return nil, nil, boom
	})
	root.SetArgs([]string{"all"})
	root.SetOut(&bytes.Buffer{})
	require.ErrorIs(t, root.ExecuteContext(context.Background()), boom)
}

func TestEnrich_RejectsArgs(t *testing.T) {
	_, _, err := execute(t, &fakeRunner{}, pipeline.JobHousing, "extra")
	require.Error(t, err)
}
