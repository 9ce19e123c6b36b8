package doctor

import (
	"context"
	"testing"

	"github.com/agent-yes/agent-yes/internal/catalog"
	"github.com/stretchr/testify/assert"
)

func TestNewRegistersOneCheckPerAssistantPlusConfig(t *testing.T) {
	r := New()
	assert.Len(t, r.checks, len(catalog.Names())+1)
}

func TestRunReturnsNamedResults(t *testing.T) {
	r := New()
	results := r.Run(context.Background())

	assert.Len(t, results, len(catalog.Names())+1)

	names := make(map[string]bool)
	for _, res := range results {
		names[res.Name] = true
	}

	assert.True(t, names["Config files"])
	assert.True(t, names["claude"])
}

func TestSummaryCountsByStatus(t *testing.T) {
	results := []Result{
		{Status: StatusPass},
		{Status: StatusPass},
		{Status: StatusWarn},
		{Status: StatusFail},
	}

	passed, failed, warnings := Summary(results)
	assert.Equal(t, 2, passed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, warnings)
}

func TestCheckAssistantBinaryUnknownName(t *testing.T) {
	check := checkAssistantBinary("not-a-real-assistant")
	result := check(context.Background())
	assert.Equal(t, StatusFail, result.Status)
}

func TestCheckConfigFilesNeverFailsOutright(t *testing.T) {
	result := checkConfigFiles(context.Background())
	assert.NotEqual(t, StatusFail, result.Status)
}
