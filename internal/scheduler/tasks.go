// Package scheduler runs background work through asynq: the periodic
// analytics rollup refresh and its on-demand enqueue path.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskAnalyticsRefresh rebuilds the dashboard rollup tables.
const TaskAnalyticsRefresh = "analytics.refresh"

// AnalyticsRefreshPayload is empty today; the refresh window is derived from
// configuration, not the task.
type AnalyticsRefreshPayload struct{}

// NewAnalyticsRefreshTask creates an analytics refresh task.
func NewAnalyticsRefreshTask() (*asynq.Task, error) {
	data, err := json.Marshal(AnalyticsRefreshPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsRefresh, data), nil
}
