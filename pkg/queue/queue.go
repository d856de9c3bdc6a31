package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// QueueConfig contains the configuration for the queue.
type QueueConfig struct {
	Workers     int           // number of workers
	RetryLimit  int           // retries after the first attempt
	RetryDelay  time.Duration // base delay, doubled per attempt
	PollTimeout time.Duration // BRPOP block time
}

func (c *QueueConfig) normalize() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
	LastError string          `json:"last_error,omitempty"`
}

func encodeMessage(msg Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return b, nil
}

func decodeMessage(b []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(b, &msg); err != nil {
		return msg, fmt.Errorf("unmarshal message: %w", err)
	}
	if len(msg.Payload) == 0 {
		return msg, fmt.Errorf("message %s has no payload", msg.ID)
	}
	return msg, nil
}

// nextAttempt records a failure on msg and reports whether it should be retried and when.
func nextAttempt(msg *Message, cause error, cfg QueueConfig, now time.Time) (retry bool, at time.Time) {
	msg.Attempts++
	if cause != nil {
		msg.LastError = cause.Error()
	}
	if msg.Attempts > cfg.RetryLimit {
		return false, time.Time{}
	}
	delay := cfg.RetryDelay << (msg.Attempts - 1)
	return true, now.Add(delay)
}
