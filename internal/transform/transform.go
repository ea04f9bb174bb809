// Package transform rewrites functions annotated with //instrument:
// directives into instrumented equivalents.
//
// The rewrite moves the original function body into a zero-argument closure
// and surrounds the call with metric hooks: a call counter and an in-flight
// gauge before invocation, a latency timer observed on scope exit, and an
// error counter on the failure path of functions whose final result is an
// error. Signatures, visibility and the remaining doc comments are
// preserved, so callers never change.
//
// Input files are expected to carry a //go:build ignore constraint keeping
// them out of normal builds; the constraint is stripped from the output and
// replaced by a generated-code header.
package transform

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/build/constraint"
	"go/format"
	"go/parser"
	"go/token"
	"sort"
	"strings"

	"instrumented/internal/directive"
)

// metricsPath is the import path of the runtime package the emitted hooks
// call into.
const metricsPath = "instrumented/pkg/metrics"

// header marks emitted files following the convention Go tooling recognizes
// as generated code.
const header = "// Code generated by instrument; DO NOT EDIT.\n\n"

// edit replaces src[start:end) with text. Insertions use start == end.
type edit struct {
	start, end int
	text       string
}

// funcTarget is one annotated function scheduled for rewriting.
type funcTarget struct {
	decl *ast.FuncDecl
	dir  *ast.Comment
	opts directive.Options
	name string // metric name label; Receiver.Func for methods
}

type transformer struct {
	fset  *token.FileSet
	file  *ast.File
	src   []byte
	quals map[string]string // import path -> local package name
	added []importSpec
}

// Source transforms a single annotated file and returns the generated
// output. It is a pure transformation: no file system access, no state
// kept between calls. Directive errors are reported with the position of
// the offending comment and accumulated across the whole file.
func Source(filename string, src []byte) ([]byte, error) {
	if isGenerated(src) {
		return nil, fmt.Errorf("%s: refusing to transform: file already contains generated output", filename)
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	tr := &transformer{fset: fset, file: file, src: src}
	targets, err := tr.collect()
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%s: no %s directives found", filename, directive.Prefix)
	}

	tr.planImports(targets)

	var edits []edit
	edits = append(edits, tr.constraintEdits()...)
	edits = append(edits, tr.importEdits()...)
	for _, t := range targets {
		edits = append(edits, tr.directiveEdit(t))
		edits = append(edits, edit{
			start: tr.offset(t.decl.Body.Pos()),
			end:   tr.offset(t.decl.Body.End()),
			text:  tr.rewriteBody(t),
		})
	}

	out, err := format.Source(applyEdits(src, edits))
	if err != nil {
		return nil, fmt.Errorf("%s: emitted source does not format: %w", filename, err)
	}
	return out, nil
}

// collect finds every annotated function declaration and parses its
// directive. All directive failures in the file are reported together.
func (tr *transformer) collect() ([]funcTarget, error) {
	var (
		targets []funcTarget
		errs    []error
	)
	for _, decl := range tr.file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Doc == nil {
			continue
		}
		var dir *ast.Comment
		multiple := false
		for _, c := range fd.Doc.List {
			if !strings.HasPrefix(c.Text, directive.Prefix) {
				continue
			}
			if dir != nil {
				errs = append(errs, fmt.Errorf("%s: multiple instrument directives on %s", tr.pos(c.Slash), fd.Name.Name))
				multiple = true
				break
			}
			dir = c
		}
		if multiple || dir == nil {
			continue
		}
		if fd.Body == nil {
			errs = append(errs, fmt.Errorf("%s: cannot instrument %s: function has no body", tr.pos(dir.Slash), fd.Name.Name))
			continue
		}
		opts, err := directive.Parse(strings.TrimPrefix(dir.Text, directive.Prefix))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tr.pos(dir.Slash), err))
			continue
		}
		targets = append(targets, funcTarget{decl: fd, dir: dir, opts: opts, name: metricName(fd)})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return targets, nil
}

// constraintEdits strips a pure `ignore` build constraint, the convention
// keeping the annotated source out of normal builds.
func (tr *transformer) constraintEdits() []edit {
	var edits []edit
	for _, group := range tr.file.Comments {
		if group.End() >= tr.file.Package {
			break
		}
		for _, c := range group.List {
			if !constraint.IsGoBuild(c.Text) && !constraint.IsPlusBuild(c.Text) {
				continue
			}
			expr, err := constraint.Parse(c.Text)
			if err != nil || expr.String() != "ignore" {
				continue
			}
			start, end := tr.lineSpan(c)
			edits = append(edits, edit{start: start, end: end})
		}
	}
	return edits
}

// directiveEdit removes the consumed directive line from the doc comment.
func (tr *transformer) directiveEdit(t funcTarget) edit {
	start, end := tr.lineSpan(t.dir)
	return edit{start: start, end: end}
}

// lineSpan returns the byte range of the whole source line holding the
// comment, including the trailing newline.
func (tr *transformer) lineSpan(c *ast.Comment) (int, int) {
	p := tr.fset.Position(c.Slash)
	start := p.Offset - (p.Column - 1)
	end := tr.offset(c.End())
	for end < len(tr.src) && tr.src[end] != '\n' {
		end++
	}
	if end < len(tr.src) {
		end++
	}
	return start, end
}

func (tr *transformer) offset(p token.Pos) int {
	return tr.fset.Position(p).Offset
}

func (tr *transformer) pos(p token.Pos) string {
	return tr.fset.Position(p).String()
}

// nodeText returns the original source text between two positions.
func (tr *transformer) nodeText(from, to token.Pos) string {
	return string(tr.src[tr.offset(from):tr.offset(to)])
}

// applyEdits splices the edits into src, prefixed with the generated-code
// header. Edits never overlap: they cover the build constraint, the import
// declarations, directive lines and function bodies, all disjoint spans.
func applyEdits(src []byte, edits []edit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var buf bytes.Buffer
	buf.WriteString(header)
	last := 0
	for _, e := range edits {
		buf.Write(src[last:e.start])
		buf.WriteString(e.text)
		last = e.end
	}
	buf.Write(src[last:])
	return buf.Bytes()
}

// isGenerated reports whether src already carries a generated-code header,
// which would mean instrumenting an instrumented file.
func isGenerated(src []byte) bool {
	head := src
	if len(head) > 1024 {
		head = head[:1024]
	}
	for _, line := range strings.Split(string(head), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "// Code generated ") && strings.HasSuffix(line, "DO NOT EDIT.") {
			return true
		}
		if strings.HasPrefix(line, "package ") {
			break
		}
	}
	return false
}

// metricName is the label value identifying the function in every metric
// family. Methods are qualified with their receiver type.
func metricName(fd *ast.FuncDecl) string {
	if recv := receiverTypeName(fd.Recv); recv != "" {
		return recv + "." + fd.Name.Name
	}
	return fd.Name.Name
}

func receiverTypeName(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}
	t := recv.List[0].Type
	for {
		switch v := t.(type) {
		case *ast.StarExpr:
			t = v.X
		case *ast.IndexExpr:
			t = v.X
		case *ast.IndexListExpr:
			t = v.X
		case *ast.Ident:
			return v.Name
		default:
			return ""
		}
	}
}
