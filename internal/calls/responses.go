package calls

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrResponsesNotObject is returned when responses is not a JSON object.
var ErrResponsesNotObject = errors.New("responses must be a JSON object")

// Answer is one captured reply, keyed by the script question key.
type Answer struct {
	Key   string
	Value string
}

// Responses keeps answers in the order the engine reported them.
// It encodes as a JSON object whose keys appear in that order.
type Responses []Answer

func (r Responses) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(a.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object in document order. A repeated key keeps
// its first position and takes the last value. Non-string values are kept as
// their JSON text; null becomes "".
func (r *Responses) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ErrResponsesNotObject
	}

	out := Responses{}
	pos := map[string]int{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value, err := answerText(raw)
		if err != nil {
			return err
		}

		if i, seen := pos[key]; seen {
			out[i].Value = value
			continue
		}
		pos[key] = len(out)
		out = append(out, Answer{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

func answerText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return "", nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
}

// Transcript renders "key: value" lines in order. Empty responses give "".
func (r Responses) Transcript() string {
	lines := make([]string, 0, len(r))
	for _, a := range r {
		lines = append(lines, a.Key+": "+a.Value)
	}
	return strings.Join(lines, "\n")
}

func (r Responses) Equal(o Responses) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if r[i] != o[i] {
			return false
		}
	}
	return true
}
