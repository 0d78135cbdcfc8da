package analysis_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
	"github.com/leapstack-labs/leapsense/pkg/analysis/analysistest"
)

func TestUnknownBackendError_Error(t *testing.T) {
	err := &analysis.UnknownBackendError{
		Name:      "clang",
		Available: []string{"minic"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "clang")
	assert.Contains(t, msg, "minic")
	assert.Contains(t, msg, "leapsense.yaml")
}

func TestRegister(t *testing.T) {
	analysis.Register("test_backend", func(_ *slog.Logger) analysis.Backend { return analysistest.New() })

	assert.True(t, analysis.IsRegistered("test_backend"))
	assert.Contains(t, analysis.ListBackends(), "test_backend")

	factory, ok := analysis.Get("test_backend")
	require.True(t, ok)
	assert.NotNil(t, factory)

	b, err := analysis.NewBackend("test_backend", nil)
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestNewBackend_Errors(t *testing.T) {
	_, err := analysis.NewBackend("", nil)
	require.Error(t, err)
	assert.Equal(t, "backend not specified", err.Error())

	_, err = analysis.NewBackend("does_not_exist", nil)
	var unknown *analysis.UnknownBackendError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "does_not_exist", unknown.Name)
}

func TestListBackends_Sorted(t *testing.T) {
	analysis.Register("zz_backend", func(_ *slog.Logger) analysis.Backend { return analysistest.New() })
	analysis.Register("aa_backend", func(_ *slog.Logger) analysis.Backend { return analysistest.New() })

	names := analysis.ListBackends()
	assert.IsNonDecreasing(t, names)
}
