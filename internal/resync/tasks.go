package resync

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskDashboardResync retries a failed dashboard delivery for one call.
const TaskDashboardResync = "dashboard.resync"

// DashboardResyncPayload identifies the call to re-deliver.
type DashboardResyncPayload struct {
	CallID string `json:"callId"`
}

// NewDashboardResyncTask builds the asynq task for a deferred re-sync.
func NewDashboardResyncTask(payload DashboardResyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardResync, data), nil
}

// ParseDashboardResyncPayload decodes the task payload.
func ParseDashboardResyncPayload(task *asynq.Task) (DashboardResyncPayload, error) {
	var payload DashboardResyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DashboardResyncPayload{}, err
	}
	return payload, nil
}
