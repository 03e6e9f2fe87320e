package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TaskLeadChase = "lead:chase"

// Chase phases.
const (
	PhaseImmediate = "immediate"
	PhaseFollowup  = "followup"
)

type LeadChasePayload struct {
	LeadID string `json:"leadId"`
	Phase  string `json:"phase"`
}

// ValidPhase reports whether phase is one the chase knows how to run.
func ValidPhase(phase string) bool {
	return phase == PhaseImmediate || phase == PhaseFollowup
}

// ChaseTaskID is the deterministic job id for one phase of a lead's chase.
func ChaseTaskID(phase, leadID string) string {
	return fmt.Sprintf("chase_%s_%s", phase, leadID)
}

func NewLeadChaseTask(payload LeadChasePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadChase, data), nil
}

func ParseLeadChasePayload(task *asynq.Task) (LeadChasePayload, error) {
	var payload LeadChasePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadChasePayload{}, err
	}
	return payload, nil
}
