package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mash-protocol/uasub-go/pkg/log"
)

// ParseDirectionFlag parses a direction string from a command-line flag
// (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	case "local":
		return log.DirectionLocal, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in, out, or local)", s)
	}
}

// ParseCategoryFlag parses a category string from a command-line flag
// (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "service":
		return log.CategoryService, nil
	case "notification":
		return log.CategoryNotification, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be service, notification, state, or error)", s)
	}
}

// ParseServiceFlag parses a service name such as "publish" or "Republish".
func ParseServiceFlag(s string) (log.Service, error) {
	for svc := log.ServicePublish; svc <= log.ServiceMonitoredItems; svc++ {
		if strings.EqualFold(svc.String(), s) {
			return svc, nil
		}
	}
	return 0, fmt.Errorf("invalid service: %s", s)
}

// ParseSubscriptionFlag parses a subscription id.
func ParseSubscriptionFlag(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid subscription id: %s", s)
	}
	return uint32(id), nil
}
