package ports

// EventLogPort is the leveled event log the engine reports to. Every entry
// carries a stable event name such as "ResolvedArtifact".
type EventLogPort interface {
	Verbose(event string, msg string)
	Informational(event string, msg string)
	Warning(event string, msg string)
	Error(event string, err error, msg string)
	Critical(event string, err error, msg string)
}
