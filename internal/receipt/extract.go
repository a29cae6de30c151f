package receipt

import (
	"strconv"
	"strings"
)

// Providers are inconsistent about where they put each field, and the
// shape drifts between API versions. Each logical field therefore has
// an ordered list of paths tried against the payload; the first hit
// wins and missing everything yields the Unknown sentinel.
type fieldRule struct {
	path []string
}

var (
	messageIDRules = []fieldRule{
		{path: []string{"messageId"}},
		{path: []string{"id"}},
		{path: []string{"message", "id"}},
		{path: []string{"message", "messageId"}},
	}
	recipientRules = []fieldRule{
		{path: []string{"to"}},
		{path: []string{"destination"}},
		{path: []string{"recipient"}},
		{path: []string{"message", "to"}},
	}
	channelRules = []fieldRule{
		{path: []string{"channel"}},
		{path: []string{"message", "channel"}},
		{path: []string{"type"}},
		{path: []string{"to", "type"}},
	}
	statusRules = []fieldRule{
		{path: []string{"messageStatus"}},
		{path: []string{"status"}},
	}

	// Sub-keys tried inside a dict-shaped status node.
	statusCodeKeys        = []string{"code", "status", "event", "state"}
	statusDescriptionKeys = []string{"description", "reason", "detail"}

	// Sub-keys tried when a recipient field is itself an object.
	recipientValueKeys = []string{"phoneNumber", "id", "number"}
)

func extractString(payload map[string]any, rules []fieldRule) string {
	return extract(payload, rules, asString)
}

// extractRecipient tolerates both a bare msisdn string and an object
// wrapping it.
func extractRecipient(payload map[string]any) string {
	return extract(payload, recipientRules, func(v any) string {
		if node, ok := v.(map[string]any); ok {
			for _, key := range recipientValueKeys {
				if s := asString(node[key]); s != "" {
					return s
				}
			}
			return ""
		}
		return asString(v)
	})
}

func extract(payload map[string]any, rules []fieldRule, conv func(any) string) string {
	for _, rule := range rules {
		if v, ok := dig(payload, rule.path); ok {
			if s := conv(v); s != "" {
				return s
			}
		}
	}
	return Unknown
}

// extractStatus handles the dict-or-string status node: newer callbacks
// send an object with code/description (or reason) sub-fields, older
// ones a bare string that stands in for all three.
func extractStatus(payload map[string]any) (status, code, description string) {
	status, code, description = Unknown, Unknown, Unknown
	for _, rule := range statusRules {
		v, ok := dig(payload, rule.path)
		if !ok {
			continue
		}
		switch node := v.(type) {
		case map[string]any:
			for _, key := range statusCodeKeys {
				if s := asString(node[key]); s != "" {
					code = s
					break
				}
			}
			for _, key := range statusDescriptionKeys {
				if s := asString(node[key]); s != "" {
					description = s
					break
				}
			}
			if code != Unknown {
				status = code
			} else if description != Unknown {
				status = description
			}
		default:
			if s := asString(node); s != "" {
				status, code, description = s, s, s
			}
		}
		if status != Unknown {
			return status, code, description
		}
	}
	return status, code, description
}

func dig(payload map[string]any, path []string) (any, bool) {
	var cur any = payload
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func isPing(payload map[string]any) bool {
	v, ok := payload["ping"]
	return ok && asString(v) == "ok"
}
