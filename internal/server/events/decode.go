package events

import (
	"encoding/json"
	"fmt"

	"github.com/convivial/salon/internal/common"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Decode parses a raw inbound frame into its typed payload. Unknown event
// types and payloads failing schema validation both map to
// common.ErrValidation; callers surface that to the sender and change no
// state.
func Decode(raw []byte) (string, any, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", nil, fmt.Errorf("%w: malformed frame", common.ErrValidation)
	}

	var payload any
	switch msg.Type {
	case TypeSearchStart:
		payload = &SearchStart{}
	case TypeDiscoveryShare:
		payload = &DiscoveryShare{}
	case TypeMoodSet:
		payload = &MoodSet{}
	case TypeGiftSend:
		payload = &GiftSend{}
	case TypeCoffeeReact:
		payload = &CoffeeReact{}
	case TypeVoiceUpload:
		payload = &VoiceUpload{}
	default:
		return "", nil, fmt.Errorf("%w: unknown event type %q", common.ErrValidation, msg.Type)
	}

	if err := json.Unmarshal(msg.Payload, payload); err != nil {
		return "", nil, fmt.Errorf("%w: malformed %s payload", common.ErrValidation, msg.Type)
	}

	if err := validate.Struct(payload); err != nil {
		return "", nil, fmt.Errorf("%w: %s", common.ErrValidation, err)
	}

	return msg.Type, payload, nil
}
