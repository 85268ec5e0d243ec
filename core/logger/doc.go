// Package logger provides slog attribute helpers shared by the relay packages.
//
// Every helper returns a slog.Attr and follows the empty Attr pattern: passing a nil
// error, an empty identifier or a nil key yields slog.Attr{}, which slog drops. Callers
// can therefore log optional values without branching:
//
//	log.Debug("stale links removed",
//		logger.Component("broadcast"),
//		logger.Service(name),
//		logger.Count("removed", n),
//		logger.Error(err), // dropped when err == nil
//	)
//
// # Messaging Attributes
//
// Service, ChannelKey, LinkID, Weak, Capacity and Receivers describe broadcast channels
// and their subscriptions so that log lines from different components can be joined on
// the same keys.
package logger
