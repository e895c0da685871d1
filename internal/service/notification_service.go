package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"qabackend/internal/domain"
	"qabackend/internal/models"
	"qabackend/internal/repository"
	"qabackend/internal/ws"
)

// NotificationService persists in-app notifications, pushes them to devices
// and publishes them to live websocket subscribers. It implements
// lifecycle.Notifier.
type NotificationService struct {
	repo         *repository.NotificationRepository
	users        *repository.UserRepository
	push         Pusher
	hub          *ws.Hub
	clientOrigin string
}

func NewNotificationService(repo *repository.NotificationRepository, users *repository.UserRepository, push Pusher, hub *ws.Hub, clientOrigin string) *NotificationService {
	return &NotificationService{repo: repo, users: users, push: push, hub: hub, clientOrigin: clientOrigin}
}

// Notify stores the notification first; push and websocket delivery are best effort.
func (s *NotificationService) Notify(ctx context.Context, userID uint, q *models.Question, typ, title, body string, data map[string]interface{}) error {
	n := &models.Notification{UserID: userID, Type: typ, Title: title, Body: body}
	if q != nil {
		id := q.ID
		n.QuestionID = &id
		if data == nil {
			data = map[string]interface{}{}
		}
		data["question_id"] = q.ID
	}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode notification data: %w", err)
		}
		n.Data = string(b)
	}
	if err := s.repo.Create(n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	ev := ws.Event{Type: typ, Data: data, At: n.CreatedAt}
	if q != nil {
		ev.QuestionID = q.ID
		ev.Status = q.Status
	}
	s.hub.Publish(userID, ev)
	s.sendPush(ctx, userID, PushMessage{Type: typ, Title: title, Body: body, Data: data})
	return nil
}

func (s *NotificationService) sendPush(ctx context.Context, userID uint, msg PushMessage) {
	if s.push == nil || s.users == nil {
		return
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u.FCMToken == "" {
		return
	}
	if err := s.push.Push(ctx, u.FCMToken, msg); err != nil {
		log.Printf("[Notify] push %s to user %d: %v", msg.Type, userID, err)
	}
}

func (s *NotificationService) answererLink(questionID uint) string {
	return s.clientOrigin + "/influencer/view-question?question_id=" + strconv.FormatUint(uint64(questionID), 10)
}

func (s *NotificationService) questionerLink(questionID uint) string {
	return s.clientOrigin + "/questioner/view-question?question_id=" + strconv.FormatUint(uint64(questionID), 10)
}

func (s *NotificationService) QuestionAssigned(ctx context.Context, q *models.Question) error {
	hours := q.ResponseTimeHours
	if hours <= 0 {
		hours = domain.DefaultResponseTimeHours
	}
	data := map[string]interface{}{"link": s.answererLink(q.ID), "response_time": hours}
	if q.DueAt != nil {
		data["due_at"] = q.DueAt.UTC().Format(time.RFC3339)
	}
	return s.Notify(ctx, q.AnswererID, q, domain.NotifQuestionAssigned,
		"New question assigned to you",
		fmt.Sprintf("Please answer within %d hour(s).", hours), data)
}

func (s *NotificationService) QuestionAnswered(ctx context.Context, q *models.Question, a *models.Answer) error {
	data := map[string]interface{}{"link": s.questionerLink(q.ID)}
	if a != nil {
		data["answer_id"] = a.ID
	}
	return s.Notify(ctx, q.QuestionerID, q, domain.NotifQuestionAnswered,
		"Your question has been answered",
		"You can now rate and review the answer.", data)
}

func (s *NotificationService) QuestionExpired(ctx context.Context, q *models.Question, refundInitiated bool) error {
	body := "Your question was not answered in time."
	if refundInitiated {
		body += " A refund has been initiated."
	}
	data := map[string]interface{}{"link": s.questionerLink(q.ID), "refund_initiated": refundInitiated}
	if err := s.Notify(ctx, q.QuestionerID, q, domain.NotifQuestionExpired, "Question expired", body, data); err != nil {
		return err
	}
	return s.Notify(ctx, q.AnswererID, q, domain.NotifQuestionExpired,
		"Question expired", "A question assigned to you passed its deadline unanswered.",
		map[string]interface{}{"link": s.answererLink(q.ID)})
}

func (s *NotificationService) AnswerReviewed(ctx context.Context, q *models.Question, a *models.Answer) error {
	data := map[string]interface{}{"link": s.answererLink(q.ID)}
	if a != nil {
		data["answer_id"] = a.ID
		if a.Rate != nil {
			data["rate"] = *a.Rate
		}
	}
	return s.Notify(ctx, q.AnswererID, q, domain.NotifAnswerReviewed,
		"You received a new review", "A questioner left a review on your answer.", data)
}
