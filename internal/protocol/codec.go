// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package protocol

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/parley/internal/validation"
)

// Error codes carried by Error frames.
const (
	CodeProtocol         = "PROTOCOL_ERROR"
	CodeValidation       = validation.CodeValidation
	CodeNotFound         = "NOT_FOUND"
	CodeStore            = "STORE_ERROR"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeRateLimited      = "RATE_LIMITED"
	CodeReplayFailed     = "REPLAY_FAILED"
)

var (
	// ErrMalformedFrame is returned when a payload is not a JSON object with
	// a string "type" field, or its fields have the wrong JSON types.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownFrame is returned for a well-formed frame with an
	// unrecognized type discriminator.
	ErrUnknownFrame = errors.New("unknown frame type")

	// ErrBinaryFrame is returned for binary WebSocket messages.
	ErrBinaryFrame = errors.New("binary frames are not supported")
)

type envelope struct {
	Type string `json:"type"`
}

// Decode parses one text frame into its typed variant and validates it.
// Errors are ErrMalformedFrame, ErrUnknownFrame (both wrapped) or
// *validation.RequestValidationError.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	var frame Inbound
	var err error
	switch env.Type {
	case TypeSendMessage:
		frame, err = decodeAs[SendMessage](data)
	case TypeTypingStart:
		frame, err = decodeAs[TypingStart](data)
	case TypeTypingStop:
		frame, err = decodeAs[TypingStop](data)
	case TypeMarkRead:
		frame, err = decodeAs[MarkRead](data)
	case TypePing:
		return Ping{}, nil
	case TypeUploadFile:
		frame, err = decodeAs[UploadFile](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, env.Type)
	}
	if err != nil {
		return nil, err
	}
	return frame, nil
}

func decodeAs[T Inbound](data []byte) (Inbound, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if verr := validation.ValidateStruct(&v); verr != nil {
		return nil, verr
	}
	return v, nil
}

// Encode serializes an outbound frame.
func Encode(f Outbound) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", f.FrameType(), err)
	}
	return data, nil
}

// ErrorCode maps a decode error to the Error frame code reported to the client.
func ErrorCode(err error) string {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		return CodeValidation
	}
	return CodeProtocol
}
