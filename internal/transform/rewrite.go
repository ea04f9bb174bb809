package transform

import (
	"fmt"
	"go/ast"
	"log/slog"
	"strconv"
	"strings"
)

// rewriteBody emits the replacement body for one annotated function. The
// original body becomes a zero-argument closure, so the wrapper owns
// nothing the body did not already capture, and naked returns against
// named results keep working inside the closure. The wrapper always
// returns explicitly through fresh variables, which sidesteps blank or
// shadowed result names.
func (tr *transformer) rewriteBody(t funcTarget) string {
	fd := t.decl
	used := localNames(fd)
	for _, q := range tr.quals {
		used[q] = true
	}

	callVar := fresh(used, "call")
	timerVar := fresh(used, "timer")

	fallible := isFallible(fd.Type.Results)
	valueCount := countResults(fd.Type.Results)
	if fallible {
		valueCount--
	}
	rets := make([]string, 0, valueCount)
	for i := 0; i < valueCount; i++ {
		rets = append(rets, fresh(used, fmt.Sprintf("ret%d", i)))
	}
	var errVar string
	if fallible {
		errVar = fresh(used, "err")
	}

	format := t.opts.Format
	if format == "" {
		format = t.name + "() => %v"
	}
	okValue := `"ok"`
	if valueCount > 0 {
		okValue = rets[0]
	}

	mq := tr.quals[metricsPath]
	name := strconv.Quote(t.name)
	ctx := strconv.Quote(t.opts.Context)

	sig := "func()"
	if fd.Type.Results != nil {
		sig += " " + tr.nodeText(fd.Type.Results.Pos(), fd.Type.Results.End())
	}

	var b strings.Builder
	b.WriteString("{\n")
	fmt.Fprintf(&b, "\t%s := %s %s\n", callVar, sig, tr.nodeText(fd.Body.Pos(), fd.Body.End()))
	fmt.Fprintf(&b, "\t%s.RecordCall(%s, %s)\n", mq, name, ctx)
	fmt.Fprintf(&b, "\t%s.EnterInflight(%s, %s)\n", mq, name, ctx)
	fmt.Fprintf(&b, "\tdefer %s.ExitInflight(%s, %s)\n", mq, name, ctx)
	fmt.Fprintf(&b, "\t%s := %s.StartTimer(%s, %s)\n", timerVar, mq, name, ctx)
	fmt.Fprintf(&b, "\tdefer %s.ObserveDuration()\n", timerVar)

	if fallible {
		all := strings.Join(append(append([]string{}, rets...), errVar), ", ")
		fmt.Fprintf(&b, "\t%s := %s()\n", all, callVar)
		fmt.Fprintf(&b, "\tif %s != nil {\n", errVar)
		if t.opts.ErrLevel != nil {
			fmt.Fprintf(&b, "\t\t%s\n", tr.logLine(*t.opts.ErrLevel, format, errVar))
		}
		fmt.Fprintf(&b, "\t\t%s.RecordError(%s, %s, %s.Error())\n", mq, name, ctx, errVar)
		fmt.Fprintf(&b, "\t\treturn %s\n", all)
		b.WriteString("\t}\n")
		if t.opts.OKLevel != nil {
			fmt.Fprintf(&b, "\t%s\n", tr.logLine(*t.opts.OKLevel, format, okValue))
		}
		fmt.Fprintf(&b, "\treturn %s\n", all)
	} else {
		if len(rets) > 0 {
			fmt.Fprintf(&b, "\t%s := %s()\n", strings.Join(rets, ", "), callVar)
		} else {
			fmt.Fprintf(&b, "\t%s()\n", callVar)
		}
		if t.opts.OKLevel != nil {
			fmt.Fprintf(&b, "\t%s\n", tr.logLine(*t.opts.OKLevel, format, okValue))
		}
		if len(rets) > 0 {
			fmt.Fprintf(&b, "\treturn %s\n", strings.Join(rets, ", "))
		}
	}
	b.WriteString("}")
	return b.String()
}

// logLine renders one slog emission for the given level.
func (tr *transformer) logLine(level slog.Level, format, value string) string {
	return fmt.Sprintf("%s.%s(%s.Sprintf(%s, %s))",
		tr.quals["log/slog"], levelFunc(level), tr.quals["fmt"], strconv.Quote(format), value)
}

func levelFunc(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "Error"
	case level >= slog.LevelWarn:
		return "Warn"
	case level >= slog.LevelInfo:
		return "Info"
	default:
		return "Debug"
	}
}

// isFallible reports whether the final declared result is the predeclared
// error type. Qualified error-like types deliberately do not count; the
// detection mirrors how callers branch on the last return value.
func isFallible(results *ast.FieldList) bool {
	if results == nil || len(results.List) == 0 {
		return false
	}
	id, ok := results.List[len(results.List)-1].Type.(*ast.Ident)
	return ok && id.Name == "error"
}

// countResults counts individual result slots, expanding grouped names.
func countResults(results *ast.FieldList) int {
	if results == nil {
		return 0
	}
	n := 0
	for _, f := range results.List {
		if len(f.Names) == 0 {
			n++
		} else {
			n += len(f.Names)
		}
	}
	return n
}

// localNames collects every identifier the wrapper scope must not collide
// with: receiver, type parameters, parameters and named results.
func localNames(fd *ast.FuncDecl) map[string]bool {
	used := make(map[string]bool)
	add := func(fl *ast.FieldList) {
		if fl == nil {
			return
		}
		for _, f := range fl.List {
			for _, n := range f.Names {
				used[n.Name] = true
			}
		}
	}
	add(fd.Recv)
	add(fd.Type.TypeParams)
	add(fd.Type.Params)
	add(fd.Type.Results)
	return used
}

// fresh returns base if free, otherwise base2, base3, ... and records the
// chosen name as taken.
func fresh(used map[string]bool, base string) string {
	name := base
	for i := 2; used[name]; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	used[name] = true
	return name
}
