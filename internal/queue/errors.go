// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import "errors"

var (
	ErrUnknownQueue    = errors.New("unknown queue")
	ErrUnknownMode     = errors.New("unknown queue mode")
	ErrPayloadMismatch = errors.New("payload shape does not match queue mode")
	ErrEmptyPayload    = errors.New("empty payload")
	ErrInvalidPayload  = errors.New("invalid payload")
)
