package mclog

import "slices"

// FieldKind identifies a structured fact extracted from a log.
type FieldKind string

// Known field kinds.
const (
	// FieldLoader holds a LoaderVersion describing the mod loader in use.
	FieldLoader FieldKind = "loader"

	// FieldMinecraftVersion holds the Version of the game itself.
	FieldMinecraftVersion FieldKind = "minecraft_version"

	// FieldDetections holds the ordered []string of detection tags marked
	// by units that already ran in this pass.
	FieldDetections FieldKind = "detections"
)

// LoaderType is the identity of a mod loader.
type LoaderType string

// Known loaders.
const (
	LoaderQuilt  LoaderType = "quilt"
	LoaderFabric LoaderType = "fabric"
	LoaderForge  LoaderType = "forge"
)

// Version is a version string exactly as it appeared in the log.
type Version string

// LoaderVersion is the value stored under FieldLoader.
type LoaderVersion struct {
	Loader  LoaderType `json:"loader"`
	Version Version    `json:"version"`
}

// Log is the record threaded through a single pipeline run.
//
// A Log belongs to exactly one submission and is mutated sequentially by the
// units of one pass. It is not safe for concurrent use.
type Log struct {
	id          string
	content     string
	messages    []string
	hasProblems bool
	fields      map[FieldKind]any
}

// NewLog creates an empty record for content.
// Pipeline.Run creates records itself; NewLog is mainly useful for testing
// a single Processor in isolation.
func NewLog(content string) *Log {
	return &Log{
		content: content,
		fields:  make(map[FieldKind]any),
	}
}

// ID returns the identifier assigned by the pipeline run, or "" for records
// created with NewLog.
func (l *Log) ID() string {
	return l.id
}

// Content returns the raw log text. It never changes during a run.
func (l *Log) Content() string {
	return l.content
}

// AddMessage appends a diagnostic message.
func (l *Log) AddMessage(msg string) {
	l.messages = append(l.messages, msg)
}

// AddProblem appends the rendered diagnostic and flags the log as having
// problems.
func (l *Log) AddProblem(d Diagnostic) {
	l.AddMessage(d.String())
	l.SetProblem()
}

// Messages returns a copy of the accumulated messages in insertion order.
func (l *Log) Messages() []string {
	return slices.Clone(l.messages)
}

// SetProblem marks the log as having problems. The flag is never cleared.
func (l *Log) SetProblem() {
	l.hasProblems = true
}

// HasProblems reports whether any unit flagged a problem.
func (l *Log) HasProblems() bool {
	return l.hasProblems
}

// SetField stores value under kind, replacing any previous value.
func (l *Log) SetField(kind FieldKind, value any) {
	l.fields[kind] = value
}

// SetFieldOnce stores value under kind unless a value is already present.
// It reports whether the value was stored.
func (l *Log) SetFieldOnce(kind FieldKind, value any) bool {
	if _, ok := l.fields[kind]; ok {
		return false
	}
	l.fields[kind] = value
	return true
}

// Field returns the value stored under kind.
func (l *Log) Field(kind FieldKind) (any, bool) {
	v, ok := l.fields[kind]
	return v, ok
}

// Fields returns a shallow copy of all structured fields.
func (l *Log) Fields() map[FieldKind]any {
	out := make(map[FieldKind]any, len(l.fields))
	for k, v := range l.fields {
		if tags, ok := v.([]string); ok {
			v = slices.Clone(tags)
		}
		out[k] = v
	}
	return out
}

// SetLoader records the detected loader and its version.
func (l *Log) SetLoader(loader LoaderType, version Version) {
	l.SetField(FieldLoader, LoaderVersion{Loader: loader, Version: version})
}

// Loader returns the detected loader, if any.
func (l *Log) Loader() (LoaderVersion, bool) {
	v, ok := l.fields[FieldLoader].(LoaderVersion)
	return v, ok
}

// SetMinecraftVersion records the game version.
func (l *Log) SetMinecraftVersion(v Version) {
	l.SetField(FieldMinecraftVersion, v)
}

// MinecraftVersion returns the detected game version, if any.
func (l *Log) MinecraftVersion() (Version, bool) {
	v, ok := l.fields[FieldMinecraftVersion].(Version)
	return v, ok
}

// MarkDetected records that a signature identified by tag was found in this
// pass. Marking the same tag twice has no effect.
func (l *Log) MarkDetected(tag string) {
	tags, _ := l.fields[FieldDetections].([]string)
	if slices.Contains(tags, tag) {
		return
	}
	l.fields[FieldDetections] = append(tags, tag)
}

// Detected reports whether an earlier unit marked tag in this pass.
func (l *Log) Detected(tag string) bool {
	tags, _ := l.fields[FieldDetections].([]string)
	return slices.Contains(tags, tag)
}

// Detections returns the detection tags in the order they were marked.
func (l *Log) Detections() []string {
	tags, _ := l.fields[FieldDetections].([]string)
	return slices.Clone(tags)
}

// Result is an immutable snapshot of a Log suitable for rendering or
// serialisation.
type Result struct {
	ID          string            `json:"id"`
	Messages    []string          `json:"messages"`
	HasProblems bool              `json:"has_problems"`
	Fields      map[FieldKind]any `json:"fields,omitempty"`
}

// Result snapshots the record. Messages is never nil.
func (l *Log) Result() Result {
	msgs := l.Messages()
	if msgs == nil {
		msgs = []string{}
	}
	var fields map[FieldKind]any
	if len(l.fields) > 0 {
		fields = l.Fields()
	}
	return Result{
		ID:          l.id,
		Messages:    msgs,
		HasProblems: l.hasProblems,
		Fields:      fields,
	}
}
