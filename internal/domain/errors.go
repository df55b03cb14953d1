package domain

import (
	"errors"
	"fmt"
)

const (
	ChannelEmail = "email"
	ChannelChat  = "chat"
)

// ValidationError is shown to the user as is; the form is left untouched so
// the user can correct it and submit again.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

// NotificationError reports a failed delivery attempt on one channel.
type NotificationError struct {
	Channel string
	Err     error
}

func (e NotificationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s notification failed", e.Channel)
	}
	return fmt.Sprintf("%s notification failed: %v", e.Channel, e.Err)
}

func (e NotificationError) Unwrap() error { return e.Err }

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Key string
	Err error
}

func (e ConfigurationError) Error() string {
	switch {
	case e.Key != "" && e.Err != nil:
		return fmt.Sprintf("configuration %q: %v", e.Key, e.Err)
	case e.Key != "":
		return fmt.Sprintf("missing required configuration %q", e.Key)
	case e.Err != nil:
		return fmt.Sprintf("configuration: %v", e.Err)
	default:
		return "configuration error"
	}
}

func (e ConfigurationError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsNotification(err error) bool {
	var target NotificationError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target ConfigurationError
	return errors.As(err, &target)
}
