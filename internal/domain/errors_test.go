package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	cause := errors.New("connection reset")
	notif := fmt.Errorf("submit: %w", NotificationError{Channel: ChannelEmail, Err: cause})

	assert.True(t, IsNotification(notif))
	assert.False(t, IsValidation(notif))
	assert.ErrorIs(t, notif, cause)
	assert.Equal(t, "submit: email notification failed: connection reset", notif.Error())

	assert.True(t, IsValidation(ValidationError{Field: "name", Msg: "Please fill out all required fields."}))
	assert.Equal(t, "invalid hour", ValidationError{Field: "hour"}.Error())

	cfgErr := ConfigurationError{Key: "api_key"}
	assert.True(t, IsConfiguration(cfgErr))
	assert.Equal(t, `missing required configuration "api_key"`, cfgErr.Error())
}
