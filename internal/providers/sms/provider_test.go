package sms

import (
	"context"
	"errors"
	"testing"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessages struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeMessages) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioSend(t *testing.T) {
	fake := &fakeMessages{}
	p := &TwilioProvider{api: fake, from: "+15550001111"}

	require.NoError(t, p.Send(context.Background(), "+15552223333", "Your order is ready for pickup"))
	require.Len(t, fake.params, 1)
	assert.Equal(t, "+15552223333", *fake.params[0].To)
	assert.Equal(t, "+15550001111", *fake.params[0].From)
	assert.Equal(t, "Your order is ready for pickup", *fake.params[0].Body)
}

func TestTwilioWhatsAppSender(t *testing.T) {
	fake := &fakeMessages{}
	p := &TwilioProvider{api: fake, from: "+15550001111"}

	require.NoError(t, p.Send(context.Background(), "whatsapp:+15552223333", "hi"))
	assert.Equal(t, "whatsapp:+15550001111", *fake.params[0].From)
}

func TestTwilioErrors(t *testing.T) {
	fake := &fakeMessages{err: errors.New("20003 authenticate")}
	p := &TwilioProvider{api: fake, from: "+1555"}

	require.ErrorIs(t, p.Send(context.Background(), "", "x"), ErrNoRecipient)
	require.Error(t, p.Send(context.Background(), "+1666", "x"))
}
