package kafka

import (
	"errors"
	"fmt"
)

var (
	ErrProducerClosed = errors.New("kafka producer is closed")
	ErrInvalidMessage = errors.New("invalid message")
	ErrEmptyKey       = errors.New("message key cannot be empty")
	ErrEmptyValue     = errors.New("message value cannot be empty")
)

// DeadLetterError reports a publish that failed on the main topic. DLQErr is
// set when forwarding to the dead letter topic failed too.
type DeadLetterError struct {
	Topic  string
	Err    error
	DLQErr error
}

func (e *DeadLetterError) Error() string {
	if e.DLQErr != nil {
		return fmt.Sprintf("publish to %s failed: %v (dead letter failed: %v)", e.Topic, e.Err, e.DLQErr)
	}
	return fmt.Sprintf("publish to %s failed: %v (sent to dead letter topic)", e.Topic, e.Err)
}

func (e *DeadLetterError) Unwrap() error {
	return e.Err
}
