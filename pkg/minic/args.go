package minic

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedLanguage is returned when -x names a language other than C or C++.
var ErrUnsupportedLanguage = errors.New("minic: unsupported language")

// Options is the compile configuration derived from command-line style arguments.
type Options struct {
	IncludePaths []string
	Defines      map[string]string
	Language     string // empty means infer from the file extension
	Std          string

	WarnUnused     bool // -Wall, -Wunused-variable
	WarningsAsErrs bool // -Werror
	NoWarnings     bool // -w

	// Ignored lists arguments that were accepted but have no effect.
	Ignored []string
}

// ParseArgs interprets a compiler argument list. Unknown flags are recorded
// in Ignored rather than rejected.
func ParseArgs(args []string) (Options, error) {
	opts := Options{
		Defines: make(map[string]string),
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		next := func() (string, bool) {
			if i+1 < len(args) {
				i++
				return args[i], true
			}
			return "", false
		}

		switch {
		case arg == "-I":
			if dir, ok := next(); ok {
				opts.IncludePaths = append(opts.IncludePaths, dir)
			}
		case strings.HasPrefix(arg, "-I"):
			opts.IncludePaths = append(opts.IncludePaths, arg[2:])
		case arg == "-D":
			if def, ok := next(); ok {
				opts.define(def)
			}
		case strings.HasPrefix(arg, "-D"):
			opts.define(arg[2:])
		case arg == "-U":
			if name, ok := next(); ok {
				delete(opts.Defines, name)
			}
		case strings.HasPrefix(arg, "-U"):
			delete(opts.Defines, arg[2:])
		case arg == "-x":
			lang, ok := next()
			if !ok {
				return opts, fmt.Errorf("%w: missing argument to -x", ErrUnsupportedLanguage)
			}
			opts.Language = lang
		case strings.HasPrefix(arg, "-x"):
			opts.Language = arg[2:]
		case strings.HasPrefix(arg, "-std="):
			opts.Std = strings.TrimPrefix(arg, "-std=")
		case arg == "-Wall" || arg == "-Wextra" || arg == "-Wunused" || arg == "-Wunused-variable":
			opts.WarnUnused = true
		case arg == "-Wno-unused-variable" || arg == "-Wno-unused":
			opts.WarnUnused = false
		case arg == "-Werror":
			opts.WarningsAsErrs = true
		case arg == "-w":
			opts.NoWarnings = true
		default:
			opts.Ignored = append(opts.Ignored, arg)
		}
	}

	switch opts.Language {
	case "", "c", "c++", "c-header", "c++-header":
	default:
		return opts, fmt.Errorf("%w %q", ErrUnsupportedLanguage, opts.Language)
	}
	return opts, nil
}

func (o *Options) define(def string) {
	name, value, found := strings.Cut(def, "=")
	if !found {
		value = "1"
	}
	if name != "" {
		o.Defines[name] = value
	}
}
