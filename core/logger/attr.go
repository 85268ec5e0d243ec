package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Attribute helpers use the empty Attr pattern for nil safety.
// This allows calls like log.Info("msg", logger.Error(err)) without explicit nil checks.

// ============================================================================
// Error Handling
// ============================================================================

// Errors groups multiple non-nil errors under the key "errors".
// Uses index-based keys to preserve error order. Returns empty Attr for all nil errors.
func Errors(errs ...error) slog.Attr {
	count := 0
	for _, err := range errs {
		if err != nil {
			count++
		}
	}
	if count == 0 {
		return slog.Attr{}
	}

	as := make([]slog.Attr, 0, count)
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// ============================================================================
// Timing
// ============================================================================

// Elapsed calculates and logs the duration since the start time.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// ============================================================================
// Identifiers
// ============================================================================

// LinkID creates an attribute for a subscription identifier.
func LinkID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("link_id", id)
}

// ============================================================================
// Messaging
// ============================================================================

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Service creates an attribute for the service (message contract) a channel carries.
func Service(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("service", name)
}

// ChannelKey creates an attribute for the partition key of a keyed channel.
// Returns empty Attr for nil keys.
func ChannelKey(key any) slog.Attr {
	if key == nil {
		return slog.Attr{}
	}
	return slog.Any("channel_key", key)
}

// Weak creates an attribute that marks weak subscriptions.
func Weak(weak bool) slog.Attr {
	return slog.Bool("weak", weak)
}

// Capacity creates an attribute for a slot capacity.
func Capacity(n int) slog.Attr {
	return slog.Int("capacity", n)
}

// Receivers creates an attribute for the number of subscribers a message reached.
func Receivers(n int) slog.Attr {
	return slog.Int("receivers", n)
}

// ============================================================================
// Generic Metadata
// ============================================================================

// Type creates an attribute for type classification.
func Type(t string) slog.Attr {
	return slog.String("type", t)
}

// Action creates an attribute for action names.
func Action(action string) slog.Attr {
	return slog.String("action", action)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}
