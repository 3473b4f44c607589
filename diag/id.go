package diag

// IDKind distinguishes the two families of diagnostic identifier.
type IDKind uint8

const (
	// KindLint identifies a diagnostic produced by a named lint rule
	// (dispatched from the rules.Registry, see C6).
	KindLint IDKind = iota

	// KindOther identifies a diagnostic produced by the core itself rather
	// than a rule: I/O failures, internal invariant violations, limit
	// notifications.
	KindOther
)

// String returns a human-readable label for the kind.
func (k IDKind) String() string {
	switch k {
	case KindLint:
		return "lint"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// ID is a stable programmatic identifier for a Diagnostic: either
// Lint(name), for diagnostics produced by a lint rule, or Other(name), for
// diagnostics produced by the core (I/O errors, internal errors, limit
// notifications). Rule names are not known to this package at compile
// time — rules register themselves with rules.Registry at runtime — so
// ID accepts arbitrary names rather than enumerating a closed set the way
// a fixed error-code type would. Other(name) remains a closed-ish set by
// convention, populated below.
type ID struct {
	kind IDKind
	name string
}

// Lint constructs a diagnostic identifier for a named lint rule.
func Lint(name string) ID {
	return ID{kind: KindLint, name: name}
}

// Other constructs a diagnostic identifier for a core-emitted condition.
func Other(name string) ID {
	return ID{kind: KindOther, name: name}
}

// Kind returns which family the identifier belongs to.
func (id ID) Kind() IDKind {
	return id.kind
}

// Name returns the bare identifier name, without the Lint()/Other() wrapper.
func (id ID) Name() string {
	return id.name
}

// String returns the canonical textual form, e.g. "lint:unused-import" or
// "other:internal-error". This is the wire format used by json.go and the
// compact/grouped/full renderers.
func (id ID) String() string {
	switch id.kind {
	case KindLint:
		return "lint:" + id.name
	case KindOther:
		return "other:" + id.name
	default:
		return "unknown:" + id.name
	}
}

// IsZero reports whether id is the zero value (no name set).
func (id ID) IsZero() bool {
	return id.name == ""
}

// Sentinel core identifiers for diagnostics the core itself emits, outside
// any rule's namespace.
var (
	// IDLimitReached marks the synthetic diagnostic emitted when a
	// Collector's issue limit truncates output.
	IDLimitReached = Other("limit-reached")

	// IDInternal marks an unexpected invariant failure surfaced as a
	// diagnostic instead of a panic, so a single bad file cannot crash a
	// whole run.
	IDInternal = Other("internal-error")

	// IDIOError marks a diagnostic produced when a file could not be read
	// through the vfs.System (permission denied, vanished mid-walk, etc).
	IDIOError = Other("io-error")

	// IDParseError marks a diagnostic surfaced when the injected
	// rules.SyntaxProvider failed to parse a file.
	IDParseError = Other("parse-error")
)
