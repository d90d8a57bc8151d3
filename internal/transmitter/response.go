package transmitter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// SuccessPrefix must open the API message for a batch to count as saved.
// The match is literal; the remote API carries no status code for it.
const SuccessPrefix = "Data Saved Successfully."

// apiResponse is the body the remote API answers with
type apiResponse struct {
	Message    string          `json:"message"`
	CommonData json.RawMessage `json:"commonData"`
}

// commonData is the decoded commonData payload
type commonData struct {
	SuccessfullySavedTransactionIds []json.RawMessage `json:"successfullySavedTransactionIds"`
}

var errInvalidResponse = errors.New("invalid API response")

// interpret turns a 200 response body into an Outcome
func interpret(body []byte) (Outcome, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", errInvalidResponse, err)
	}

	// A rejection carries the API's own message whatever commonData holds
	if !strings.HasPrefix(resp.Message, SuccessPrefix) {
		return Outcome{Success: false, Message: resp.Message}, nil
	}

	raw, present, err := unwrapCommonData(resp.CommonData)
	if err != nil {
		return Outcome{}, err
	}
	if !present {
		return Outcome{Success: false, Message: resp.Message}, nil
	}

	ids, err := transactionIDs(raw)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{Success: true, Message: resp.Message, TxnIDs: ids}, nil
}

// unwrapCommonData returns the commonData object, decoding it a second time
// when the API sent it as a JSON-encoded string. present is false for a
// missing, null, empty-string or empty-object value.
func unwrapCommonData(raw json.RawMessage) (json.RawMessage, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false, fmt.Errorf("%w: commonData: %v", errInvalidResponse, err)
		}
		if s == "" {
			return nil, false, nil
		}
		return json.RawMessage(s), true, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, false, fmt.Errorf("%w: commonData: %v", errInvalidResponse, err)
		}
		return raw, len(fields) > 0, nil
	default:
		return nil, false, fmt.Errorf("%w: commonData has unexpected type", errInvalidResponse)
	}
}

// transactionIDs extracts successfullySavedTransactionIds. Numeric IDs are
// kept in their textual form. The decoded commonData must be an object.
func transactionIDs(raw json.RawMessage) ([]string, error) {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: commonData is not an object", errInvalidResponse)
	}

	var data commonData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: commonData: %v", errInvalidResponse, err)
	}

	ids := make([]string, 0, len(data.SuccessfullySavedTransactionIds))
	for _, item := range data.SuccessfullySavedTransactionIds {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			ids = append(ids, s)
			continue
		}
		ids = append(ids, string(bytes.TrimSpace(item)))
	}
	return ids, nil
}
