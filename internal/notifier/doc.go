// Package notifier renders reminder messages and delivers them to recipients.
//
// Every delivery is attempted exactly once, bounded by a timeout and a shared
// rate limit. Outcomes are returned per recipient and aggregated into a Report;
// a failure for one recipient never affects the others. Outcomes are also
// published on the event bus for side consumers such as the audit trail.
package notifier
