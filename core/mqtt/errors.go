package mqtt

import "errors"

// ErrPublish is returned when a schedule could not be delivered after all
// retries.
var ErrPublish = errors.New("mqtt publish failed")
