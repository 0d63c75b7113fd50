package diskcache

// Option configures optional, non-default behavior of Open. WithDeleteDirtyFile and
// WithAppendMode are the two canonical knobs spec.md §6/§9 describes (Open Question #1,
// resolved in SPEC_FULL.md §4.1); WithExecutor injects the background cleanup executor.
type Option func(*DiskCache)

// WithExecutor runs the cache's background trim/compaction passes on exec instead of a
// goroutine owned by the cache. Close does not stop an executor supplied this way.
func WithExecutor(exec Executor) Option {
	return func(c *DiskCache) { c.executor = exec }
}

// WithDeleteDirtyFile controls whether dangling dirty files found at Open are deleted (the
// default, true) or preserved so that a later edit can pick up where a crashed one left off.
func WithDeleteDirtyFile(deleteDirtyFile bool) Option {
	return func(c *DiskCache) { c.deleteDirtyFile = deleteDirtyFile }
}

// WithAppendMode controls whether a new editor opened against an existing readable entry seeds
// its dirty files from the prior clean file's bytes (true) so that writes continue appending,
// or starts each dirty file empty (the default, false).
func WithAppendMode(appendMode bool) Option {
	return func(c *DiskCache) { c.appendMode = appendMode }
}
