package transform

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"
	"strconv"
	"strings"
)

// importSpec is one import line of the emitted file. An empty name means
// no alias.
type importSpec struct {
	name string
	path string
}

// planImports resolves the local package names the emitted bodies will use
// and records which imports have to be added. The metrics runtime is always
// needed; fmt and log/slog only when at least one directive configures a
// log level. Existing imports are reused, aliases included; fresh names
// dodge every identifier visible to the emitted code.
func (tr *transformer) planImports(targets []funcTarget) {
	tr.quals = make(map[string]string)

	needsLog := false
	for _, t := range targets {
		if t.opts.OKLevel != nil || t.opts.ErrLevel != nil {
			needsLog = true
			break
		}
	}
	need := []string{metricsPath}
	if needsLog {
		need = append(need, "fmt", "log/slog")
	}

	existing := make(map[string]string)
	for _, imp := range tr.file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		if imp.Name != nil {
			existing[path] = imp.Name.Name
		} else {
			existing[path] = pathBase(path)
		}
	}

	taken := tr.takenNames(targets)
	for _, path := range need {
		if name, ok := existing[path]; ok {
			tr.quals[path] = name
			continue
		}
		base := pathBase(path)
		name := base
		for i := 2; taken[name]; i++ {
			name = fmt.Sprintf("%s%d", base, i)
		}
		taken[name] = true
		tr.quals[path] = name

		spec := importSpec{path: path}
		if name != base {
			spec.name = name
		}
		tr.added = append(tr.added, spec)
	}
}

// importEdits merges existing import declarations with the added ones into
// a single normalized block. Files whose imports already cover everything
// are left untouched.
func (tr *transformer) importEdits() []edit {
	if len(tr.added) == 0 {
		return nil
	}

	merged := make([]importSpec, 0, len(tr.file.Imports)+len(tr.added))
	for _, imp := range tr.file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		spec := importSpec{path: path}
		if imp.Name != nil {
			spec.name = imp.Name.Name
		}
		merged = append(merged, spec)
	}
	merged = append(merged, tr.added...)
	block := renderImports(merged)

	var edits []edit
	replaced := false
	for _, decl := range tr.file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.IMPORT {
			continue
		}
		if !replaced {
			edits = append(edits, edit{start: tr.offset(gd.Pos()), end: tr.offset(gd.End()), text: block})
			replaced = true
			continue
		}
		edits = append(edits, edit{start: tr.offset(gd.Pos()), end: tr.offset(gd.End())})
	}
	if !replaced {
		at := tr.offset(tr.file.Name.End())
		edits = append(edits, edit{start: at, end: at, text: "\n\n" + block})
	}
	return edits
}

// takenNames gathers every identifier a fresh import name could collide
// with: import names, package-level declarations, and the local names of
// each annotated function, since the emitted hooks live in those scopes.
func (tr *transformer) takenNames(targets []funcTarget) map[string]bool {
	taken := make(map[string]bool)
	for _, imp := range tr.file.Imports {
		if imp.Name != nil {
			taken[imp.Name.Name] = true
		} else if path, err := strconv.Unquote(imp.Path.Value); err == nil {
			taken[pathBase(path)] = true
		}
	}
	for _, decl := range tr.file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				taken[d.Name.Name] = true
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					taken[s.Name.Name] = true
				case *ast.ValueSpec:
					for _, n := range s.Names {
						taken[n.Name] = true
					}
				}
			}
		}
	}
	for _, t := range targets {
		for name := range localNames(t.decl) {
			taken[name] = true
		}
	}
	return taken
}

// renderImports prints one parenthesized import block, standard library
// first, each group sorted by path.
func renderImports(specs []importSpec) string {
	var std, other []importSpec
	for _, s := range specs {
		if isStdPath(s.path) {
			std = append(std, s)
		} else {
			other = append(other, s)
		}
	}
	byPath := func(ss []importSpec) {
		sort.Slice(ss, func(i, j int) bool { return ss[i].path < ss[j].path })
	}
	byPath(std)
	byPath(other)

	var b strings.Builder
	b.WriteString("import (\n")
	write := func(ss []importSpec) {
		for _, s := range ss {
			if s.name != "" {
				fmt.Fprintf(&b, "\t%s %q\n", s.name, s.path)
			} else {
				fmt.Fprintf(&b, "\t%q\n", s.path)
			}
		}
	}
	write(std)
	if len(std) > 0 && len(other) > 0 {
		b.WriteString("\n")
	}
	write(other)
	b.WriteString(")")
	return b.String()
}

// isStdPath mirrors the usual heuristic: standard library paths have no
// dot in their first segment.
func isStdPath(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}

func pathBase(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
