package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESLockoutNotifier_SendsNotice(t *testing.T) {
	client := &fakeSES{}
	notifier := NewSESLockoutNotifierWithClient(client, "noreply@chat.example", newTestLogger())

	err := notifier.NotifyLockout(context.Background(), "a@x.com", blockReasonAccount)
	require.NoError(t, err)

	require.NotNil(t, client.input)
	assert.Equal(t, "noreply@chat.example", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"a@x.com"}, client.input.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(client.input.Message.Body.Text.Data), blockReasonAccount)
}

func TestSESLockoutNotifier_Error(t *testing.T) {
	client := &fakeSES{err: errors.New("throttled")}
	notifier := NewSESLockoutNotifierWithClient(client, "noreply@chat.example", newTestLogger())

	err := notifier.NotifyLockout(context.Background(), "a@x.com", blockReasonAccount)
	assert.ErrorContains(t, err, "throttled")
}

func TestLogLockoutNotifier(t *testing.T) {
	assert.NoError(t, NewLogLockoutNotifier(newTestLogger()).NotifyLockout(context.Background(), "a@x.com", "x"))
}
