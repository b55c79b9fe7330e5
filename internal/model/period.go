package model

import "time"

type PeriodStatus string

const (
	PeriodPending   PeriodStatus = "pending"
	PeriodCompleted PeriodStatus = "completed"
)

type Period struct {
	ID          int64      `json:"id"`
	TaskID      int64      `json:"task_id"`
	BatchID     string     `json:"batch_id"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	AssignedTo  int64      `json:"assigned_to"`
	CompletedBy *int64     `json:"completed_by"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (p *Period) Completed() bool {
	return p.CompletedBy != nil
}

func (p *Period) Status() PeriodStatus {
	if p.Completed() {
		return PeriodCompleted
	}
	return PeriodPending
}

// PeriodBatch records the single generation run of a task.
type PeriodBatch struct {
	ID        string    `json:"id"`
	TaskID    int64     `json:"task_id"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
