package models

import "time"

// AssignmentStatus tracks a student's progress on an assigned question.
type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "pending"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
)

var assignmentStatusRank = map[AssignmentStatus]int{
	AssignmentPending:    0,
	AssignmentInProgress: 1,
	AssignmentCompleted:  2,
}

// Valid reports whether the status is one of the known values.
func (s AssignmentStatus) Valid() bool {
	_, ok := assignmentStatusRank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next keeps the status moving forward.
// Staying on the same status is allowed.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	from, ok := assignmentStatusRank[s]
	if !ok {
		return false
	}
	to, ok := assignmentStatusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// Assignment binds a question to a student.
type Assignment struct {
	ID            string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	StudentID     string           `gorm:"type:varchar(36);not null;index" json:"student_id"`
	QuestionID    string           `gorm:"type:varchar(36);not null;index" json:"question_id"`
	Status        AssignmentStatus `gorm:"size:32;not null;default:pending" json:"status"`
	AssignedAt    time.Time        `json:"assigned_at"`
	CompletedAt   *time.Time       `json:"completed_at"`
	StudentAnswer *string          `gorm:"type:text" json:"student_answer"`
	Score         *float64         `json:"score"`
}
