package transmitter

import (
	"bytes"

	"github.com/goccy/go-json"
)

const envelopePrefix = `{"punchingDetails":`

// BuildEnvelope wraps batch in {"punchingDetails": <batch>} without
// re-encoding it, so the batch bytes reach the API unchanged. valid reports
// whether the resulting payload is well-formed JSON; a malformed batch is
// still embedded so the API can answer for it.
func BuildEnvelope(batch string) (payload []byte, valid bool) {
	var buf bytes.Buffer
	buf.Grow(len(envelopePrefix) + len(batch) + 1)
	buf.WriteString(envelopePrefix)
	buf.WriteString(batch)
	buf.WriteByte('}')

	payload = buf.Bytes()
	return payload, json.Valid(payload)
}
