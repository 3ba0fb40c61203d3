// Package serialize converts arbitrary runtime values into bounded,
// depth-limited, JSON-safe representations for logging.
//
// Every string leaf and every map key context passes through the sensitive
// detector, sequences and maps are capped at a fixed element count, and
// pending asynchronous values (tasks, channels, anything waitable) collapse
// to fixed sentinels without ever being resolved. Serialization never
// blocks, never schedules work, and never returns an error: anything it
// cannot represent becomes an opaque textual placeholder.
package serialize
