package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upCheck(ctx context.Context) ComponentHealth {
	return ComponentHealth{Status: StatusUp}
}

func downCheck(ctx context.Context) ComponentHealth {
	return ComponentHealth{Status: StatusDown, Message: "unreachable"}
}

func degradedCheck(ctx context.Context) ComponentHealth {
	return ComponentHealth{Status: StatusDegraded, Message: "partial"}
}

func TestCheckerAllUp(t *testing.T) {
	c := NewChecker()
	c.Register("index", upCheck)
	c.Register("cache", upCheck)

	report := c.Run(context.Background())
	assert.Equal(t, StatusUp, report.Status)
	assert.Len(t, report.Components, 2)
	for _, comp := range report.Components {
		assert.Equal(t, StatusUp, comp.Status)
		assert.NotEmpty(t, comp.Latency)
	}
}

func TestCheckerWorstStatusWins(t *testing.T) {
	c := NewChecker()
	c.Register("index", upCheck)
	c.Register("cache", degradedCheck)
	assert.Equal(t, StatusDegraded, c.Run(context.Background()).Status)

	c.Register("broker", downCheck)
	assert.Equal(t, StatusDown, c.Run(context.Background()).Status)
}

func TestCheckerHandler(t *testing.T) {
	c := NewChecker()
	c.Register("index", upCheck)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, 200, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusUp, report.Status)
	assert.Contains(t, report.Components, "index")

	c.Register("cache", downCheck)
	rec = httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, 503, rec.Code)
}
