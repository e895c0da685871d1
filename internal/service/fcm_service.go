package service

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Pusher sends a device push. FCMService is the production implementation.
type Pusher interface {
	Push(ctx context.Context, token string, msg PushMessage) error
}

type PushMessage struct {
	Type  string
	Title string
	Body  string
	Data  map[string]interface{}
}

// FCMService sends push notifications via Firebase Cloud Messaging.
type FCMService struct {
	client *messaging.Client
}

// NewFCMService returns nil when Firebase is not configured or fails to
// initialise; a nil *FCMService drops every push.
func NewFCMService(ctx context.Context, serviceAccountPath string) *FCMService {
	if serviceAccountPath == "" {
		return nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		log.Printf("[FCM] Failed to init Firebase app: %v", err)
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.Printf("[FCM] Failed to get Messaging client: %v", err)
		return nil
	}
	return &FCMService{client: client}
}

func (s *FCMService) Push(ctx context.Context, token string, msg PushMessage) error {
	if s == nil || token == "" {
		return nil
	}
	_, err := s.client.Send(ctx, buildMessage(token, msg))
	if err != nil {
		log.Printf("[FCM] Send %s error: %v", msg.Type, err)
		return err
	}
	return nil
}

func buildMessage(token string, msg PushMessage) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: stringData(msg.Type, msg.Data),
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}

// stringData flattens data for FCM, which only carries string values.
func stringData(typ string, data map[string]interface{}) map[string]string {
	out := make(map[string]string, len(data)+1)
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	out["type"] = typ
	return out
}
