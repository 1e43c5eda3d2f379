package fingerprint

import (
	"bytes"
	"encoding/json"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// marshalCanonical produces canonical JSON for a region snapshot so that
// byte-equal serialization implies semantic equality:
//
//  1. Object keys are sorted.
//  2. Strings are NFC normalized.
//  3. No HTML escaping (<, >, & pass through).
//
// The snapshot shape is fixed (strings and string maps only), so the full
// RFC 8785 number rules never come into play.
func marshalCanonical(directive, payload string, inputs map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString(`"directive":`)
	if err := writeCanonicalString(&buf, directive); err != nil {
		return nil, err
	}

	buf.WriteString(`,"inputs":{`)
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeCanonicalString(&buf, inputs[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')

	buf.WriteString(`,"payload":`)
	if err := writeCanonicalString(&buf, payload); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeCanonicalString appends a JSON string with NFC normalization and HTML
// escaping disabled.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}
	// Encode appends a trailing newline; drop it.
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
