package tagpoll

// TagWriter writes a batch of tag path/value pairs into runtime tag
// storage. Implementations should apply the whole batch or report an
// error; partial application is tolerated but must still error.
type TagWriter interface {
	WriteTags(paths []string, values []any) error
}

// TagIndex reports which tag paths exist; used by the discovery mapping
// strategy.
type TagIndex interface {
	HasTag(path string) bool
}
