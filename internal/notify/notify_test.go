package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sideshow/apns2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transport-register/internal/models"
)

var sampleReg = models.Registration{
	ID: "reg-1",
	RegistrationFields: models.RegistrationFields{
		FullName:            "Kofi Boateng",
		Location:            "Rashidiya",
		PhoneNumber:         "0509876543",
		WorshippersToChurch: 4,
	},
}

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	fail map[int64]bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if f.fail[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("chat not found")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{}, nil
}

type fakePusher struct {
	notifications []*apns2.Notification
	status        int
}

func (f *fakePusher) PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error) {
	f.notifications = append(f.notifications, n)
	return &apns2.Response{StatusCode: f.status, Reason: "BadDeviceToken"}, nil
}

func TestTelegramSendsToEveryChat(t *testing.T) {
	sender := &fakeSender{fail: map[int64]bool{3: true}}
	n := NewTelegramWithSender(sender, []int64{1, 2, 3})

	err := n.NotifyRegistration(context.Background(), sampleReg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat 3")
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0].Text, "Kofi Boateng")
	assert.Contains(t, sender.sent[0].Text, "Rashidiya")
}

func TestAPNsPushesPayload(t *testing.T) {
	pusher := &fakePusher{status: http.StatusOK}
	n := NewAPNsWithPusher(pusher, "org.wci.transport", []string{"tok-a", "tok-b"})

	require.NoError(t, n.NotifyRegistration(context.Background(), sampleReg))

	require.Len(t, pusher.notifications, 2)
	assert.Equal(t, "org.wci.transport", pusher.notifications[0].Topic)
	body, err := json.Marshal(pusher.notifications[0].Payload)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"registration_id":"reg-1"`)
}

func TestAPNsReportsRejectedPushes(t *testing.T) {
	n := NewAPNsWithPusher(&fakePusher{status: http.StatusBadRequest}, "org.wci.transport", []string{"tok-a"})

	err := n.NotifyRegistration(context.Background(), sampleReg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "BadDeviceToken")
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := NewTelegramWithSender(&fakeSender{}, []int64{1})
	bad := NewAPNsWithPusher(&fakePusher{status: http.StatusGone}, "t", []string{"x"})

	err := Multi{ok, bad}.NotifyRegistration(context.Background(), sampleReg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "apns:")
	assert.NotContains(t, err.Error(), "telegram:")
}
