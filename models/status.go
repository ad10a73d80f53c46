package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"marketplace-server/types"
)

// Status is the canonical lifecycle state of a service request
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusInProgress Status = "in_progress"
	StatusOnTheWay   Status = "on_the_way"
	StatusCompleted  Status = "completed"
)

// AllStatuses lists every state in lifecycle order
var AllStatuses = []Status{
	StatusPending,
	StatusAccepted,
	StatusRejected,
	StatusInProgress,
	StatusOnTheWay,
	StatusCompleted,
}

var legalTransitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusAccepted: {},
		StatusRejected: {},
	},
	StatusAccepted: {
		StatusInProgress: {},
		StatusOnTheWay:   {},
	},
	StatusInProgress: {
		StatusOnTheWay:  {},
		StatusCompleted: {},
	},
	StatusOnTheWay: {
		StatusInProgress: {},
		StatusCompleted:  {},
	},
	StatusRejected:  {},
	StatusCompleted: {},
}

// IsLegalTransition reports whether the lifecycle allows moving from one state to another
func IsLegalTransition(from, to Status) bool {
	allowed, ok := legalTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// TerminalStates returns the states with no outgoing transitions
func TerminalStates() map[Status]struct{} {
	terminal := make(map[Status]struct{})
	for from, targets := range legalTransitions {
		if len(targets) == 0 {
			terminal[from] = struct{}{}
		}
	}
	return terminal
}

// LegalTargets returns the states reachable from `from` in one step, in lifecycle order
func LegalTargets(from Status) []Status {
	var targets []Status
	for _, to := range AllStatuses {
		if IsLegalTransition(from, to) {
			targets = append(targets, to)
		}
	}
	return targets
}

// Predecessors returns the states from which `to` is reachable in one step.
// Stores use it to build conditional updates.
func Predecessors(to Status) []Status {
	var from []Status
	for _, s := range AllStatuses {
		if IsLegalTransition(s, to) {
			from = append(from, s)
		}
	}
	return from
}

// Valid reports whether s is one of the canonical states
func (s Status) Valid() bool {
	_, ok := legalTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s
func (s Status) IsTerminal() bool {
	_, ok := TerminalStates()[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// Legacy numeric ids used by older API payloads
var statusByID = map[int]Status{
	1: StatusPending,
	2: StatusAccepted,
	3: StatusRejected,
	4: StatusInProgress,
	5: StatusOnTheWay,
	6: StatusCompleted,
}

var statusAliases = map[string]Status{
	"new":        StatusPending,
	"declined":   StatusRejected,
	"inprogress": StatusInProgress,
	"started":    StatusInProgress,
	"ontheway":   StatusOnTheWay,
	"en_route":   StatusOnTheWay,
	"done":       StatusCompleted,
}

// ID returns the legacy numeric id of s, or 0 if s is not canonical
func (s Status) ID() int {
	for id, status := range statusByID {
		if status == s {
			return id
		}
	}
	return 0
}

// ParseStatus normalizes any historical status encoding into the canonical enum.
// Accepted shapes: strings in snake, camel, kebab or title case; numeric ids
// (as numbers or numeric strings); objects carrying one of id, name, code or
// status.
func ParseStatus(v interface{}) (Status, error) {
	switch raw := v.(type) {
	case Status:
		if raw.Valid() {
			return raw, nil
		}
		return parseStatusString(string(raw))
	case string:
		return parseStatusString(raw)
	case float64:
		if raw == float64(int(raw)) {
			return parseStatusID(int(raw))
		}
	case int:
		return parseStatusID(raw)
	case int64:
		return parseStatusID(int(raw))
	case json.Number:
		if n, err := raw.Int64(); err == nil {
			return parseStatusID(int(n))
		}
	case map[string]interface{}:
		for _, key := range []string{"id", "name", "code", "status", "value"} {
			if inner, ok := raw[key]; ok && inner != nil {
				return ParseStatus(inner)
			}
		}
	}
	return "", types.Validationf("ParseStatus", "unrecognized status encoding %v", v)
}

func parseStatusID(id int) (Status, error) {
	if s, ok := statusByID[id]; ok {
		return s, nil
	}
	return "", types.Validationf("ParseStatus", "unknown status id %d", id)
}

func parseStatusString(raw string) (Status, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", types.Validationf("ParseStatus", "empty status")
	}
	if id, err := strconv.Atoi(trimmed); err == nil {
		return parseStatusID(id)
	}

	key := snakeCase(trimmed)
	if s := Status(key); s.Valid() {
		return s, nil
	}
	if s, ok := statusAliases[key]; ok {
		return s, nil
	}
	if s, ok := statusAliases[strings.ReplaceAll(key, "_", "")]; ok {
		return s, nil
	}
	return "", types.Validationf("ParseStatus", "unknown status %q", raw)
}

// snakeCase turns "OnTheWay", "on-the-way", "ON THE WAY" and "inProgress" into snake_case
func snakeCase(s string) string {
	hasLower := strings.IndexFunc(s, unicode.IsLower) >= 0

	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '-' || r == ' ':
			b.WriteRune('_')
		case hasLower && unicode.IsUpper(r):
			if i > 0 {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.ReplaceAll(b.String(), "__", "_")
}

// MarshalJSON always emits the canonical string
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts every legacy encoding understood by ParseStatus
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
