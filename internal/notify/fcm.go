package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMNotifier Firebase Cloud Messaging 实现：
// 向固定 topic 广播提交结果，车队端订阅该 topic。
type FCMNotifier struct {
	client *messaging.Client
	topic  string
}

// NewFCMNotifier 初始化 FCM 客户端
func NewFCMNotifier(ctx context.Context, credentialsFile, topic string) (*FCMNotifier, error) {
	if topic == "" {
		topic = "inspections"
	}

	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init fcm client: %w", err)
	}
	return &FCMNotifier{client: client, topic: topic}, nil
}

// InspectionSubmitted 推送提交结果
func (n *FCMNotifier) InspectionSubmitted(ctx context.Context, ev Event) error {
	if n == nil || n.client == nil {
		return fmt.Errorf("fcm notifier is not initialized")
	}

	title := "Inspection submitted"
	body := fmt.Sprintf("%s: %s", ev.VehicleName, ev.Status)
	_, err := n.client.Send(ctx, &messaging.Message{
		Topic: n.topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"inspection_id": ev.InspectionID,
			"vehicle_id":    ev.VehicleID,
			"status":        ev.Status,
			"actor":         ev.Actor,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send fcm message: %w", err)
	}
	return nil
}
