package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecentLogs(t *testing.T) {
	svc := NewMonitoringService()
	for i := 0; i < 5; i++ {
		svc.LogRequest(LogEntry{
			Timestamp:  time.Now(),
			Path:       "/api/v1/chat",
			Method:     "POST",
			StatusCode: 200,
		})
	}

	assert.Len(t, svc.RecentLogs(3), 3)
	assert.Len(t, svc.RecentLogs(100), 5)
	assert.Len(t, svc.RecentLogs(0), 5)
}
