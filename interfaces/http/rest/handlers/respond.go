package handlers

import (
	"net/http"

	"flowcanvas/pkg/common"
	pkgerrors "flowcanvas/pkg/errors"
	"flowcanvas/pkg/utils"
)

// maxRequestBody caps request bodies. Canvas payloads are a few
// kilobytes even on large documents; anything near this limit is a
// client bug.
const maxRequestBody = 1 << 20

// decodeBody parses and validates a JSON request body. Unknown fields
// are rejected so client typos surface instead of silently dropping.
// Domain errors raised during decoding (such as a malformed
// is_new_chat flag) pass through untouched so they keep their own code
// and message.
func decodeBody(r *http.Request, v interface{}) error {
	if err := common.ParseJSONBody(r, v, maxRequestBody); err != nil {
		if pkgerrors.GetDomainError(err) != nil {
			return err
		}
		return pkgerrors.NewValidationError("invalid request body: " + err.Error())
	}
	if err := utils.ValidateStruct(v); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}
