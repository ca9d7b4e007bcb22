package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"transport-register/internal/models"
)

// Pusher is the part of the APNs client used here
type Pusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNs pushes registration notices to the coordinators' phones
type APNs struct {
	client       Pusher
	topic        string
	deviceTokens []string
}

// NewAPNs builds a token-authenticated APNs client from a .p8 key file
func NewAPNs(keyFile, keyID, teamID, topic string, deviceTokens []string, production bool) (*APNs, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	})
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNs{client: client, topic: topic, deviceTokens: deviceTokens}, nil
}

// NewAPNsWithPusher builds a notifier around an existing client
func NewAPNsWithPusher(client Pusher, topic string, deviceTokens []string) *APNs {
	return &APNs{client: client, topic: topic, deviceTokens: deviceTokens}
}

// Name returns the notifier name
func (a *APNs) Name() string { return "apns" }

// NotifyRegistration pushes the notice to every registered device
func (a *APNs) NotifyRegistration(ctx context.Context, reg models.Registration) error {
	p := payload.NewPayload().
		AlertTitle("New transport registration").
		AlertBody(fmt.Sprintf("%s, pickup at %s", reg.FullName, reg.Location)).
		Sound("default").
		Custom("registration_id", reg.ID)

	var errs []error
	for _, deviceToken := range a.deviceTokens {
		res, err := a.client.PushWithContext(ctx, &apns2.Notification{
			DeviceToken: deviceToken,
			Topic:       a.topic,
			Payload:     p,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("device %s: %w", deviceToken, err))
			continue
		}
		if !res.Sent() {
			errs = append(errs, fmt.Errorf("device %s: %d %s", deviceToken, res.StatusCode, res.Reason))
		}
	}
	return errors.Join(errs...)
}
