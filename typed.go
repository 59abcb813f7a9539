package eventstream

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/devspaces/eventstream-go/util"
)

// SubscribeTyped subscribes to pattern and decodes every payload into T
// before calling fn. Struct payloads are also checked against their validate
// tags; payloads that fail to decode or validate are dropped and logged.
func SubscribeTyped[T any](c *Client, pattern string, fn func(payload T, eventType string)) UnsubscribeFunc {
	return c.Subscribe(pattern, func(raw json.RawMessage, eventType string) {
		payload, err := decodePayload[T](raw)
		if err != nil {
			util.Warnf("SSE - Dropping %s payload: %v", eventType, err)
			return
		}
		fn(payload, eventType)
	})
}

func decodePayload[T any](raw json.RawMessage) (payload T, err error) {
	if err = util.Decode(raw, &payload, util.DefaultConfig()); err != nil {
		return
	}
	err = validate.Struct(&payload)
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		// T is not a struct, nothing to check.
		err = nil
	}
	return
}
