package lifecycle

import (
	"time"

	"qabackend/internal/domain"
	"qabackend/internal/models"
)

// Deadline is anchor + hours. Non-positive hours fall back to the default
// response window.
func Deadline(anchor time.Time, hours int) time.Time {
	if hours <= 0 {
		hours = domain.DefaultResponseTimeHours
	}
	return anchor.Add(time.Duration(hours) * time.Hour)
}

// ValidAnchor reports whether a is a known deadline anchor.
func ValidAnchor(a string) bool {
	return a == domain.DeadlineAnchorCreated || a == domain.DeadlineAnchorPaid
}

// DueAt computes the deadline for q activated at paidAt, using the anchor
// captured on the question when it was created.
func DueAt(q *models.Question, paidAt time.Time) time.Time {
	anchor := q.CreatedAt
	if q.DeadlineAnchor == domain.DeadlineAnchorPaid {
		anchor = paidAt
	}
	return Deadline(anchor.UTC(), q.ResponseTimeHours)
}

// Overdue reports whether the question's deadline passed before now. An
// answer submitted exactly at the deadline is still on time.
func Overdue(q *models.Question, now time.Time) bool {
	return q.DueAt != nil && now.After(*q.DueAt)
}
