package wsnotify

import (
	"encoding/json"

	"github.com/pkg/errors"
)

const frameTypeNotification = "notification"

// Notification is a single push received from the feed. Two notifications are equal iff both fields match.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type frame struct {
	Type  string  `json:"type"`
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

// DecodeNotification parses a text frame. ok is false for well-formed frames of any other type.
// A notification frame lacking title or body, or any payload that is not a JSON object with
// string fields, yields an error wrapping ErrMalformedFrame.
func DecodeNotification(raw []byte) (n Notification, ok bool, err error) {
	var f frame
	if err = json.Unmarshal(raw, &f); err != nil {
		return n, false, wrapMalformedFrame(err)
	}

	if f.Type != frameTypeNotification {
		return n, false, nil
	}

	switch {
	case f.Title == nil:
		return n, false, wrapMalformedFrame(errors.Wrap(ErrMissingField, "title"))
	case f.Body == nil:
		return n, false, wrapMalformedFrame(errors.Wrap(ErrMissingField, "body"))
	}

	return Notification{Title: *f.Title, Body: *f.Body}, true, nil
}
