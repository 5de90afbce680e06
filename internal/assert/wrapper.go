package assert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/vellum/internal/config"
	"github.com/kode4food/vellum/pkg/api"
)

type (
	// Wrapper wraps testify assertions with Vellum-specific helpers
	Wrapper struct {
		*testing.T
		*assert.Assertions
	}
)

// DefaultRetryInterval is the default polling interval for Eventually
// checks
const DefaultRetryInterval = 100 * time.Millisecond

// New creates a new test assertion wrapper
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
	}
}

// NodeValid asserts that a graph node passes basic validation
func (w *Wrapper) NodeValid(n *api.Node) {
	w.Helper()
	w.NoError(n.Validate())
	w.NotEmpty(n.ID)
}

// NodeInvalid asserts that a node fails validation and returns the error
func (w *Wrapper) NodeInvalid(
	n *api.Node, expectedErrorContains string,
) error {
	w.Helper()
	err := n.Validate()
	w.Error(err)
	if err != nil && expectedErrorContains != "" {
		w.Contains(err.Error(), expectedErrorContains)
	}
	return err
}

// RunSucceeded asserts that a run completed without error
func (w *Wrapper) RunSucceeded(res *api.RunResult) {
	w.Helper()
	w.Equal(api.RunSuccess, res.Status)
	w.Empty(res.Error)
}

// RunFailed asserts that a run ended in error, optionally matching the
// error text
func (w *Wrapper) RunFailed(res *api.RunResult, contains string) {
	w.Helper()
	w.Equal(api.RunError, res.Status)
	w.NotEmpty(res.Error)
	if contains != "" {
		w.Contains(res.Error, contains)
	}
}

// HasVar asserts that a run produced a variable with the expected value
func (w *Wrapper) HasVar(res *api.RunResult, name api.Name, expected any) {
	w.Helper()
	value, ok := res.Vars[name]
	w.True(ok, "run should have variable: %s", name)
	w.Equal(expected, value)
}

// NoVar asserts that a run never bound the named variable
func (w *Wrapper) NoVar(res *api.RunResult, name api.Name) {
	w.Helper()
	_, ok := res.Vars[name]
	w.False(ok, "run should not have variable: %s", name)
}

// StepTraced asserts that a debug trace contains the node with the given
// status and returns its entry
func (w *Wrapper) StepTraced(
	res *api.RunResult, nodeID api.NodeID, status api.StepStatus,
) *api.StepTrace {
	w.Helper()
	for _, st := range res.Trace {
		if st.NodeID == nodeID {
			w.Equal(status, st.Status)
			return st
		}
	}
	w.Fail("trace missing node", "node: %s", nodeID)
	return nil
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.ScriptTimeout > 0)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if contains != "" {
		w.Contains(err.Error(), contains)
	}
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}
