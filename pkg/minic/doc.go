// Package minic is a small C front end that implements analysis.Backend.
//
// It understands enough of C (and a sliver of C++) to resolve names,
// report the common syntax and semantic errors, and offer scope-aware
// completion: locals, parameters, globals, functions, struct members,
// typedefs, enum constants, macros and keywords. Includes are resolved
// against unsaved buffers, a handful of built-in standard headers, and the
// include paths on disk. Conditional directives are not evaluated.
//
// The leading run of directives in a main file is processed once and
// reused across reparses while it and the unsaved headers are unchanged.
//
// Importing the package registers the backend under the name "minic":
//
//	import _ "github.com/leapstack-labs/leapsense/pkg/minic"
package minic
