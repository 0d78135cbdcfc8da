// Package analysis keeps a parsed compilation unit synchronized with an
// in-memory, constantly changing source buffer and answers completion
// queries against it.
//
// # Architecture
//
// The package is built from four pieces, leaf first:
//
//  1. Snapshot: an immutable capture of the buffer, tagged with a virtual filename
//  2. Session: owns the backend index and the single live unit handle
//  3. Diagnostic reporter: turns backend diagnostic handles into plain Diagnostic records
//  4. Completer: runs position-addressed completion requests and extracts candidates
//
// Grammar and semantic work is delegated to a Backend. Backends register
// themselves by name in init() functions:
//
//	import _ "github.com/leapstack-labs/leapsense/pkg/minic"
//
//	backend, err := analysis.NewBackend("minic", logger)
//
// # Lifecycle
//
// A Session starts Empty. EnsureParsed performs a full parse when no unit
// exists and an incremental reparse otherwise:
//
//	session, err := analysis.NewSession(backend, analysis.Flags{CompileFlags: []string{"-c"}})
//	defer session.Close()
//
//	diags, err := session.EnsureParsed(analysis.SnapshotFromString("main.cpp", text))
//	result, err := session.Complete(snapshot, analysis.Position{Line: 1, Column: 24})
//
// A failed reparse releases the unit and returns the session to Empty; the
// next EnsureParsed performs a full parse again.
//
// # Ownership
//
// Every backend handle (index, unit, diagnostic, completion result set,
// result, chunk text) is released before the call that acquired it returns,
// on every path. Only Diagnostic and Candidate values cross the package
// boundary.
//
// Sessions are not safe for concurrent use. Callers serialize EnsureParsed,
// Reparse and Complete on a given session.
package analysis
