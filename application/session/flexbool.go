package session

import (
	"bytes"
	"encoding/json"

	"flowcanvas/pkg/errors"
)

// FlexBool is the is_new_chat flag as clients actually send it: JSON
// booleans, the numbers 1 and 0, and the string spellings "true",
// "True", "1", "false", "False", "0". A JSON null or an absent field
// means false, which is the continuation path. Everything else is
// rejected with the historical validation message.
type FlexBool bool

// UnmarshalJSON accepts the tolerated spellings and nothing more.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1", `"true"`, `"True"`, `"1"`:
		*b = true
	case "false", "0", `"false"`, `"False"`, `"0"`, "null":
		*b = false
	default:
		return errors.ErrInvalidNewChatFlag.WithDetail("value", string(data))
	}
	return nil
}

// MarshalJSON renders the flag as a plain JSON boolean.
func (b FlexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

// Bool returns the plain boolean value.
func (b FlexBool) Bool() bool {
	return bool(b)
}
