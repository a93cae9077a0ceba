package audit

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Normalized is the stable shape the admin UI consumes for every audit
// entry, whatever era its details row was written in.
type Normalized struct {
	Message        string            `json:"message"`
	Status         string            `json:"status,omitempty"`
	Location       string            `json:"location,omitempty"`
	Extras         map[string]string `json:"extras,omitempty"`
	Target         string            `json:"target,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	Duration       string            `json:"duration,omitempty"`
	TargetNameHint string            `json:"target_name_hint,omitempty"`
}

// Legacy free-text phrasings, tried in priority order; first match wins.
// This is a best-effort compatibility shim for rows written before the
// structured form existed. The patterns are frozen: rows they miss simply
// surface as a bare message, and the set is not extended for new gaps.
var (
	reForDurationReason = regexp.MustCompile(`(?i)\bfor\s+([0-9]+\s*[a-z]+|permanent(?:ly)?)\s*:\s*(.+)$`)
	reBannedNameID      = regexp.MustCompile(`(?i)\b(?:banned|restricted)\s+(.+?)\s*\((\d+)\)`)
	reReasonTail        = regexp.MustCompile(`(?i)\breason\s*:\s*(.+)$`)
)

// Normalize reshapes a raw details payload. JSON-object payloads have their
// known keys extracted directly, with alternate legacy key names accepted
// for reason, duration and target name. Anything else runs through the
// free-text heuristics; when nothing matches, the whole raw string becomes
// the message.
func Normalize(raw string) Normalized {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Normalized{}
	}

	if obj, ok := parseObject(raw); ok {
		n := Normalized{
			Message:  str(obj, "message"),
			Status:   str(obj, "status"),
			Location: str(obj, "location"),
			Target:   str(obj, "target"),
		}
		if m, ok := obj["extras"].(map[string]any); ok {
			n.Extras = make(map[string]string, len(m))
			for k, v := range m {
				n.Extras[k] = anyToString(v)
			}
		}
		n.Reason = firstStr(obj, "reason", "ban_reason", "restriction_reason")
		n.Duration = firstStr(obj, "duration", "ban_duration")
		n.TargetNameHint = firstStr(obj, "target_name", "username", "name")
		if n.Message == "" {
			n.Message = raw
		}
		return n
	}

	n := Normalized{Message: raw}
	if m := reForDurationReason.FindStringSubmatch(raw); m != nil {
		n.Duration = strings.TrimSpace(m[1])
		n.Reason = strings.TrimSpace(m[2])
	} else if m := reReasonTail.FindStringSubmatch(raw); m != nil {
		n.Reason = strings.TrimSpace(m[1])
	}
	if m := reBannedNameID.FindStringSubmatch(raw); m != nil {
		n.TargetNameHint = strings.TrimSpace(m[1])
		n.Target = m[2]
	}
	return n
}

// Patterns that recover a numeric target id from free text, in priority
// order.
var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\((\d+)\)`),
	regexp.MustCompile(`(?i)\buser\s+(\d+)`),
	regexp.MustCompile(`(?i)\bid\s*:\s*(\d+)`),
}

// ExtractTargetUserID recovers a numeric user id from a details payload,
// first from JSON keys and then from free-text patterns. Returns 0 when
// nothing matches.
func ExtractTargetUserID(raw string) int64 {
	if obj, ok := parseObject(raw); ok {
		for _, key := range []string{"target_user_id", "user_id", "uid", "target_id"} {
			if v, ok := obj[key]; ok {
				if id := anyToID(v); id > 0 {
					return id
				}
			}
		}
	}
	for _, re := range idPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return id
			}
		}
	}
	return 0
}

func parseObject(raw string) (map[string]any, bool) {
	if !strings.HasPrefix(raw, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func str(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

func firstStr(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(obj, k); s != "" {
			return s
		}
	}
	return ""
}

func anyToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func anyToID(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		if id, err := strconv.ParseInt(t, 10, 64); err == nil {
			return id
		}
	}
	return 0
}
