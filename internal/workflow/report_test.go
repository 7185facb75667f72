// File: internal/workflow/report_test.go
package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportExitCode(t *testing.T) {
	cases := []struct {
		name   string
		report Report
		code   int
		failed bool
	}{
		{
			name:   "empty run is clean",
			report: Report{},
			code:   ExitOK,
		},
		{
			name: "all actions succeeded",
			report: Report{Results: []ActionResult{
				{Name: "configuration"}, {Name: "keystore"},
			}},
			code: ExitOK,
		},
		{
			name: "one action failed",
			report: Report{Results: []ActionResult{
				{Name: "configuration", Err: errors.New("timed out")},
				{Name: "keystore"},
			}},
			code:   ExitPartial,
			failed: true,
		},
		{
			name:   "fatal outranks partial",
			report: Report{FatalErr: errors.New("login failed"), Results: []ActionResult{{Name: "configuration", Err: errors.New("x")}}},
			code:   ExitFatal,
			failed: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.report.ExitCode())
			assert.Equal(t, tc.failed, tc.report.Failed())
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "action_in_progress", ActionInProgress.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(42).String())
}
