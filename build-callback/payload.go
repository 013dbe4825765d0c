package main

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/prompt-apk-builder/build-callback/internal/domain"
)

const maxBodyBytes = 1 << 20

var jsonNull = []byte("null")

// decodeNotification never fails: an unreadable or non-object body yields the
// empty notification, and values of the wrong type count as absent.
func decodeNotification(body io.Reader) domain.Notification {
	if body == nil {
		return domain.Notification{}
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return domain.Notification{}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.Notification{}
	}

	return domain.Notification{
		BuildID:   buildIDField(fields["build_id"]),
		Step:      optionalString(fields, "step"),
		StepIndex: optionalInt(fields, "step_index"),
		Status:    nonEmptyString(fields["status"]),
		RunID:     optionalString(fields, "run_id"),
		APKURL:    nonEmptyString(fields["apk_url"]),
		AABURL:    nonEmptyString(fields["aab_url"]),
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

// numberText returns the literal text of a JSON number.
func numberText(raw json.RawMessage) (string, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n.String(), true
}

// buildIDField accepts any truthy scalar: a non-empty string, a non-zero number
// or true.
func buildIDField(raw json.RawMessage) string {
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "true"
		}
		return ""
	}
	text, ok := numberText(raw)
	if !ok {
		return ""
	}
	if f, err := strconv.ParseFloat(text, 64); err != nil || f == 0 {
		return ""
	}
	return text
}

func nonEmptyString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func optionalString(fields map[string]json.RawMessage, key string) domain.Optional[string] {
	raw, ok := fields[key]
	if !ok {
		return domain.Optional[string]{}
	}
	if isNull(raw) {
		return domain.Null[string]()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return domain.Some(s)
	}
	if text, ok := numberText(raw); ok {
		return domain.Some(text)
	}
	return domain.Optional[string]{}
}

func optionalInt(fields map[string]json.RawMessage, key string) domain.Optional[int64] {
	raw, ok := fields[key]
	if !ok {
		return domain.Optional[int64]{}
	}
	if isNull(raw) {
		return domain.Null[int64]()
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return domain.Optional[int64]{}
	}
	if i, err := n.Int64(); err == nil {
		return domain.Some(i)
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return domain.Optional[int64]{}
	}
	return domain.Some(int64(f))
}
