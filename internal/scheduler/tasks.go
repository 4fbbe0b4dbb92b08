package scheduler

import (
	"github.com/hibiken/asynq"
)

const TaskTrackingRecycle = "tracking.recycle"

const TaskContractorDailyReset = "contractors.daily_reset"

const TaskAssignmentExpiry = "assignments.expire_overdue"

func NewTrackingRecycleTask() *asynq.Task {
	return asynq.NewTask(TaskTrackingRecycle, nil)
}

func NewContractorDailyResetTask() *asynq.Task {
	return asynq.NewTask(TaskContractorDailyReset, nil)
}

func NewAssignmentExpiryTask() *asynq.Task {
	return asynq.NewTask(TaskAssignmentExpiry, nil)
}
