package cluster

import (
	"fmt"
	"strings"
)

// Status is a cluster health colour.
type Status string

// Health statuses accepted by wait_for_status.
const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// ParseStatus accepts "green", ":yellow", "RED" and so on. The empty string
// parses to the empty Status, meaning "do not wait".
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ":"))
	switch Status(norm) {
	case "":
		return "", nil
	case StatusGreen, StatusYellow, StatusRed:
		return Status(norm), nil
	default:
		return "", fmt.Errorf("invalid cluster status %q: want green, yellow or red", s)
	}
}

func (s Status) String() string {
	return string(s)
}
