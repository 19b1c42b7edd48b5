package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sambeau/fillin/pkg/fillin/output"
	"github.com/sambeau/fillin/pkg/fillin/props"
	"github.com/sambeau/fillin/pkg/fillin/source"
)

var errNoPattern = errors.New("no pattern: pass one as an argument or with --file")

// loadPattern returns the inline pattern or the contents of file. "-" reads
// stdin.
func (a *app) loadPattern(pattern, file string) (string, error) {
	switch {
	case pattern != "" && file != "":
		return "", fmt.Errorf("pass a pattern argument or --file, not both")
	case file == "-":
		b, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("reading pattern from stdin: %w", err)
		}
		return string(b), nil
	case file != "":
		b, err := output.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading pattern: %w", err)
		}
		return string(b), nil
	case pattern == "":
		return "", errNoPattern
	}
	return pattern, nil
}

// baseRecord layers the data sources, lowest precedence first: the process
// environment (when env is set), the config file's data section, each data
// file in order, then name=value pairs.
func (a *app) baseRecord(env bool, files, pairs []string) (*props.Context, error) {
	var layers []*props.Context
	if env {
		layers = append(layers, source.Env(a.environ))
	}
	if len(a.cfg.Data) > 0 {
		layers = append(layers, source.FromMap(a.cfg.Data))
	}
	for _, f := range files {
		ctx, err := source.Load(f)
		if err != nil {
			return nil, err
		}
		layers = append(layers, ctx)
	}
	set, err := source.Pairs(pairs)
	if err != nil {
		return nil, err
	}
	layers = append(layers, set)
	return source.Merge(layers...), nil
}

// perRecord merges base under every record, so record values win.
func perRecord(base *props.Context, records []*props.Context) []*props.Context {
	out := make([]*props.Context, len(records))
	for i, rec := range records {
		out[i] = source.Merge(base, rec)
	}
	return out
}

// renderAll renders pattern once per record.
func (a *app) renderAll(pattern string, records []*props.Context) ([]string, error) {
	results := make([]string, 0, len(records))
	for i, rec := range records {
		out, err := a.engine.RenderContext(pattern, rec)
		if err != nil {
			if len(records) > 1 {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			return nil, err
		}
		results = append(results, out)
	}
	return results, nil
}

// write joins results with sep and writes them to path. Output to stdout
// always ends with a newline.
func (a *app) write(path string, results []string, sep string, markdown bool) error {
	md := markdown || a.cfg.Output.Markdown
	text := strings.Join(results, unescape(sep))
	if (path == "" || path == "-") && !md && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return output.Write(path, text, output.Options{
		Markdown: md,
		Level:    a.cfg.Output.Level,
		Stdout:   a.stdout,
	})
}

var escapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\\`, `\`)

// unescape expands \n and \t in a separator given on the command line. An
// empty separator is a newline.
func unescape(sep string) string {
	if sep == "" {
		return "\n"
	}
	return escapes.Replace(sep)
}
