package minic

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// maxIncludeDepth bounds nested #include processing.
const maxIncludeDepth = 32

// maxHeaderSize caps how much of an on-disk header is read.
const maxHeaderSize = 4 << 20

// unitContext is the symbol state shared by a main file and the headers it
// includes.
type unitContext struct {
	opts     Options
	cpp      bool
	mainFile string
	unsaved  map[string][]byte

	file     *Scope
	records  map[string]*RecordDef
	macros   []*Symbol
	macroIx  map[string]*Symbol
	included map[string]bool
	sink     *diagSink
	anon     int
}

func newUnitContext(mainFile string, opts Options, unsaved []analysis.UnsavedFile) *unitContext {
	c := &unitContext{
		opts:     opts,
		cpp:      isCPlusPlus(mainFile, opts.Language),
		mainFile: mainFile,
		unsaved:  make(map[string][]byte, len(unsaved)),
		file:     newScope(nil, -1),
		records:  make(map[string]*RecordDef),
		macroIx:  make(map[string]*Symbol),
		included: make(map[string]bool),
	}
	c.sink = &diagSink{opts: &c.opts}
	for _, f := range unsaved {
		c.unsaved[filepath.Clean(f.Filename)] = f.Contents
	}

	names := make([]string, 0, len(opts.Defines))
	for name := range opts.Defines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.defineMacro(&Symbol{
			Name:      name,
			Kind:      analysis.KindMacro,
			MacroBody: opts.Defines[name],
			File:      "<command line>",
		})
	}
	return c
}

func isCPlusPlus(filename, lang string) bool {
	switch lang {
	case "c++", "c++-header":
		return true
	case "":
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".cpp", ".cc", ".cxx", ".hpp", ".hh", ".c++":
			return true
		}
	}
	return false
}

// clone copies the context so a parse can extend it without changing a
// cached preamble.
func (c *unitContext) clone(unsaved []analysis.UnsavedFile) *unitContext {
	n := &unitContext{
		opts:     c.opts,
		cpp:      c.cpp,
		mainFile: c.mainFile,
		unsaved:  make(map[string][]byte, len(unsaved)),
		file:     c.file.cloneFile(),
		records:  make(map[string]*RecordDef, len(c.records)),
		macros:   append([]*Symbol(nil), c.macros...),
		macroIx:  make(map[string]*Symbol, len(c.macroIx)),
		included: make(map[string]bool, len(c.included)),
		anon:     c.anon,
	}
	for _, f := range unsaved {
		n.unsaved[filepath.Clean(f.Filename)] = f.Contents
	}
	for k, v := range c.records {
		n.records[k] = v
	}
	for k, v := range c.macroIx {
		n.macroIx[k] = v
	}
	for k, v := range c.included {
		n.included[k] = v
	}
	n.sink = &diagSink{
		opts:  &n.opts,
		diags: append([]Diag(nil), c.sink.diags...),
		fatal: c.sink.fatal,
	}
	return n
}

func (c *unitContext) defineMacro(sym *Symbol) {
	if _, ok := c.macroIx[sym.Name]; ok {
		c.undefMacro(sym.Name)
	}
	c.macros = append(c.macros, sym)
	c.macroIx[sym.Name] = sym
}

func (c *unitContext) undefMacro(name string) {
	if _, ok := c.macroIx[name]; !ok {
		return
	}
	delete(c.macroIx, name)
	out := c.macros[:0:0]
	for _, m := range c.macros {
		if m.Name != name {
			out = append(out, m)
		}
	}
	c.macros = out
}

// directive handles one preprocessor line.
func (p *Parser) directive(tok Token) {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tok.Literal), "#"))
	text = strings.ReplaceAll(text, "\\\n", " ")
	name, rest := splitWord(text)

	switch name {
	case "":
		// null directive
	case "include", "include_next", "import":
		p.includeDirective(tok, rest)
	case "define":
		p.defineDirective(tok, rest)
	case "undef":
		macro, _ := splitWord(rest)
		p.ctx.undefMacro(macro)
	case "error":
		p.report(analysis.SeverityError, tok.Pos, rest, "")
	case "warning":
		p.report(analysis.SeverityWarning, tok.Pos, rest, "-W#warnings")
	case "if", "ifdef", "ifndef", "elif", "else", "endif", "pragma", "line", "ident":
		// conditionals are not evaluated; every branch is active
	default:
		p.report(analysis.SeverityError, tok.Pos, "invalid preprocessing directive", "")
	}
}

func splitWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && (isLetter(s[i]) || isDigit(s[i])) {
		i++
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func (p *Parser) includeDirective(tok Token, rest string) {
	namePos := tok.Pos
	if idx := strings.IndexAny(tok.Literal, "\"<"); idx >= 0 {
		namePos = p.posAt(tok.Pos.Offset + idx)
	}

	var name string
	var angled bool
	switch {
	case strings.HasPrefix(rest, "\""):
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			p.report(analysis.SeverityError, namePos, "expected \"FILENAME\" or <FILENAME>", "")
			return
		}
		name = rest[1 : end+1]
	case strings.HasPrefix(rest, "<"):
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			p.report(analysis.SeverityError, namePos, "expected \"FILENAME\" or <FILENAME>", "")
			return
		}
		name, angled = rest[1:end], true
	default:
		if m, ok := p.ctx.macroIx[rest]; ok && m.MacroBody != "" {
			p.includeDirective(tok, m.MacroBody)
			return
		}
		p.report(analysis.SeverityError, namePos, "expected \"FILENAME\" or <FILENAME>", "")
		return
	}
	if name == "" {
		p.report(analysis.SeverityError, namePos, "empty filename", "")
		return
	}
	if p.depth >= maxIncludeDepth {
		p.report(analysis.SeverityError, namePos, "#include nested too deeply", "")
		return
	}

	h, ok := p.ctx.resolve(name, angled, filepath.Dir(p.file))
	if !ok {
		p.report(analysis.SeverityFatal, namePos, fmt.Sprintf("'%s' file not found", name), "")
		return
	}
	if p.ctx.included[h.path] {
		return
	}
	p.ctx.included[h.path] = true

	hp := newParser(h.contents, h.path, p.ctx, 0)
	hp.depth = p.depth + 1
	hp.system = h.system
	hp.parseHeader()
}

type header struct {
	path     string
	contents string
	system   bool
}

// resolve finds a header. Quoted names search the including file's directory
// first; both forms then search the include paths. Unsaved buffers take
// precedence over the file system, and a small set of standard headers is
// built in.
func (c *unitContext) resolve(name string, angled bool, fromDir string) (header, bool) {
	var dirs []string
	if !angled {
		if fromDir == "." {
			fromDir = ""
		}
		dirs = append(dirs, fromDir)
	}
	dirs = append(dirs, c.opts.IncludePaths...)

	for _, dir := range dirs {
		path := filepath.Clean(filepath.Join(dir, name))
		if data, ok := c.unsaved[path]; ok {
			return header{path: path, contents: string(data)}, true
		}
	}
	if src, ok := builtinHeaders[name]; ok {
		return header{path: "<builtin>/" + name, contents: src, system: true}, true
	}
	for _, dir := range dirs {
		path := filepath.Clean(filepath.Join(dir, name))
		if data, ok := readHeader(path); ok {
			return header{path: path, contents: data, system: angled}, true
		}
	}
	return header{}, false
}

func readHeader(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxHeaderSize))
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (p *Parser) defineDirective(tok Token, rest string) {
	name, body := splitWord(rest)
	if name == "" {
		p.report(analysis.SeverityError, tok.Pos, "macro name missing", "")
		return
	}
	sym := &Symbol{
		Name: name,
		Kind: analysis.KindMacro,
		Pos:  tok.Pos,
		File: p.file,
	}
	// function-like only when '(' follows the name with no space
	nameAt := strings.Index(rest, name) + len(name)
	if nameAt < len(rest) && rest[nameAt] == '(' {
		closeAt := strings.IndexByte(rest[nameAt:], ')')
		if closeAt < 0 {
			p.report(analysis.SeverityError, tok.Pos, "missing ')' in macro parameter list", "")
			return
		}
		sym.MacroFunc = true
		for _, param := range strings.Split(rest[nameAt+1:nameAt+closeAt], ",") {
			if param = strings.TrimSpace(param); param != "" {
				sym.MacroParams = append(sym.MacroParams, param)
			}
		}
		body = strings.TrimSpace(rest[nameAt+closeAt+1:])
	}
	sym.MacroBody = body

	if prev, ok := p.ctx.macroIx[name]; ok && prev.MacroBody != body && prev.File != "<command line>" {
		p.report(analysis.SeverityWarning, tok.Pos, fmt.Sprintf("'%s' macro redefined", name), "-Wmacro-redefined")
	}
	p.ctx.defineMacro(sym)
}

// preamble is the cached result of processing the leading directives of a
// main file.
type preamble struct {
	key string
	end int
	ctx *unitContext
}

// preambleEnd returns the offset just past the leading run of directives.
func preambleEnd(src string) int {
	l := NewLexer(src)
	end := 0
	for {
		tok := l.NextToken()
		if tok.Type != DIRECTIVE {
			return end
		}
		end = tok.End
	}
}

// preambleKey identifies a preamble by its text and the unsaved headers it
// could see.
func preambleKey(text, mainFile string, unsaved []analysis.UnsavedFile) string {
	h := fnv.New64a()
	files := make([]analysis.UnsavedFile, 0, len(unsaved))
	for _, f := range unsaved {
		if filepath.Clean(f.Filename) != filepath.Clean(mainFile) {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	for _, f := range files {
		_, _ = h.Write([]byte(f.Filename))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(f.Contents)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%x:%s", h.Sum64(), text)
}

// buildPreamble processes the leading directives of src into a fresh context.
func buildPreamble(mainFile, src string, opts Options, unsaved []analysis.UnsavedFile) *preamble {
	end := preambleEnd(src)
	ctx := newUnitContext(mainFile, opts, unsaved)
	p := newParser(src[:end], mainFile, ctx, 0)
	p.parseHeader()
	return &preamble{
		key: preambleKey(src[:end], mainFile, unsaved),
		end: end,
		ctx: ctx,
	}
}
