package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sambeau/fillin/pkg/fillin/notify"
	"github.com/sambeau/fillin/pkg/fillin/props"
	"github.com/sambeau/fillin/pkg/fillin/repl"
	"github.com/sambeau/fillin/pkg/fillin/source"
	"github.com/sambeau/fillin/pkg/fillin/watch"
	"github.com/sambeau/fillin/server"
)

// RenderCmd renders a pattern once, or once per record with --each.
type RenderCmd struct {
	Pattern   string   `arg:"" optional:"" help:"Pattern text."`
	File      string   `short:"f" help:"Read the pattern from a file (- for stdin; .gz and .zst are decompressed)."`
	Data      []string `short:"d" sep:"none" type:"path" help:"Data file (.json, .yaml, .env). Repeatable; later files win."`
	Set       []string `short:"s" sep:"none" help:"name=value pair. Repeatable; wins over data files." placeholder:"NAME=VALUE"`
	Env       bool     `help:"Include the process environment (lowest precedence)."`
	Each      string   `short:"e" type:"path" help:"Records file holding a list; the pattern is rendered once per record." placeholder:"PATH"`
	Separator string   `help:"Text between rendered records (default newline)."`
	Output    string   `short:"o" help:"Output file (- for stdout; .gz and .zst are compressed)."`
	Markdown  bool     `help:"Convert the rendered Markdown to HTML."`
}

func (c *RenderCmd) Run(a *app) error {
	pattern, err := a.loadPattern(c.Pattern, c.File)
	if err != nil {
		return err
	}
	base, err := a.baseRecord(c.Env, c.Data, c.Set)
	if err != nil {
		return err
	}

	records := []*props.Context{base}
	if c.Each != "" {
		each, err := source.LoadRecords(c.Each)
		if err != nil {
			return err
		}
		records = perRecord(base, each)
	}

	results, err := a.renderAll(pattern, records)
	if err != nil {
		return err
	}
	return a.write(c.Output, results, c.Separator, c.Markdown)
}

// QueryCmd renders a pattern for every row of a SQL query.
type QueryCmd struct {
	SQL       string   `arg:"" help:"SQL query; each row is one record."`
	Pattern   string   `short:"t" help:"Pattern text." placeholder:"PATTERN"`
	File      string   `short:"f" help:"Read the pattern from a file."`
	Driver    string   `help:"Database driver (sqlite, postgres, mysql). Overrides the config."`
	DSN       string   `help:"Data source name. Overrides the config."`
	Args      []string `name:"arg" short:"a" sep:"none" help:"Query argument. Repeatable."`
	Set       []string `short:"s" sep:"none" help:"name=value pair; row columns win." placeholder:"NAME=VALUE"`
	Separator string   `help:"Text between rendered rows (default newline)."`
	Output    string   `short:"o" help:"Output file (- for stdout; .gz and .zst are compressed)."`
	Markdown  bool     `help:"Convert the rendered Markdown to HTML."`
}

func (c *QueryCmd) Run(a *app) error {
	pattern, err := a.loadPattern(c.Pattern, c.File)
	if err != nil {
		return err
	}
	base, err := a.baseRecord(false, nil, c.Set)
	if err != nil {
		return err
	}

	rows, err := a.query(c.Driver, c.DSN, c.SQL, c.Args)
	if err != nil {
		return err
	}
	a.logger.Debug("query returned rows", "rows", len(rows))
	if len(rows) == 0 {
		return nil
	}

	results, err := a.renderAll(pattern, perRecord(base, rows))
	if err != nil {
		return err
	}
	return a.write(c.Output, results, c.Separator, c.Markdown)
}

// query runs sql against the configured database, with flag overrides.
func (a *app) query(driver, dsn, sql string, args []string) ([]*props.Context, error) {
	if driver == "" {
		driver = a.cfg.Database.Driver
	}
	if dsn == "" {
		dsn = a.cfg.Database.DSN
	}
	if dsn == "" {
		return nil, fmt.Errorf("no database configured: set database.dsn or pass --dsn")
	}

	db, err := source.Open(a.ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	queryArgs := make([]any, len(args))
	for i, arg := range args {
		queryArgs[i] = arg
	}
	return source.Query(a.ctx, db, sql, queryArgs...)
}

// CheckCmd lists the terms of a pattern.
type CheckCmd struct {
	Pattern string `arg:"" optional:"" help:"Pattern text."`
	File    string `short:"f" help:"Read the pattern from a file."`
	JSON    bool   `help:"Print the terms as JSON."`
}

func (c *CheckCmd) Run(a *app) error {
	pattern, err := a.loadPattern(c.Pattern, c.File)
	if err != nil {
		return err
	}
	terms, err := a.engine.Check(pattern)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(terms)
	}
	for _, t := range terms {
		fmt.Fprintf(a.stdout, "%d:%d\t%s\n", t.Line, t.Column, t.Raw)
	}
	fmt.Fprintf(a.stderr, "%d terms, ok\n", len(terms))
	return nil
}

// WatchCmd re-renders a pattern file when it or a data file changes.
type WatchCmd struct {
	File     string        `arg:"" type:"existingfile" help:"Pattern file."`
	Data     []string      `short:"d" sep:"none" type:"path" help:"Data file (.json, .yaml, .env). Repeatable; later files win."`
	Set      []string      `short:"s" sep:"none" help:"name=value pair. Repeatable; wins over data files." placeholder:"NAME=VALUE"`
	Output   string        `short:"o" help:"Output file (- for stdout)."`
	Markdown bool          `help:"Convert the rendered Markdown to HTML."`
	Debounce time.Duration `help:"Quiet period before re-rendering. Overrides the config."`
}

func (c *WatchCmd) Run(a *app) error {
	render := func() {
		if err := c.render(a); err != nil {
			a.logger.Error("render failed", "error", err)
			return
		}
		a.logger.Info("rendered", "pattern", c.File, "output", c.Output)
	}
	render()

	debounce := c.Debounce
	if debounce == 0 {
		debounce = a.cfg.Watch.Debounce
	}
	files := append([]string{c.File}, c.Data...)
	w, err := watch.New(files, debounce, func(changed []string) {
		a.logger.Debug("files changed", "files", changed)
		render()
	}, a.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Start(a.ctx); err != nil {
		return err
	}
	a.logger.Info("watching", "files", w.Files())
	<-a.ctx.Done()
	return nil
}

func (c *WatchCmd) render(a *app) error {
	pattern, err := a.loadPattern("", c.File)
	if err != nil {
		return err
	}
	base, err := a.baseRecord(false, c.Data, c.Set)
	if err != nil {
		return err
	}
	results, err := a.renderAll(pattern, []*props.Context{base})
	if err != nil {
		return err
	}
	return a.write(c.Output, results, "", c.Markdown)
}

// ReplCmd starts the interactive shell.
type ReplCmd struct {
	Data []string `short:"d" sep:"none" type:"path" help:"Data file to preload. Repeatable."`
	Set  []string `short:"s" sep:"none" help:"name=value pair to preload." placeholder:"NAME=VALUE"`
	Env  bool     `help:"Preload the process environment."`
}

func (c *ReplCmd) Run(a *app) error {
	base, err := a.baseRecord(c.Env, c.Data, c.Set)
	if err != nil {
		return err
	}
	repl.Start(repl.NewSession(a.engine, base), a.stdout, version())
	return nil
}

// ServeCmd starts the HTTP service.
type ServeCmd struct {
	Host string `help:"Host to listen on. Overrides the config."`
	Port int    `help:"Port to listen on. Overrides the config."`
}

func (c *ServeCmd) Run(a *app) error {
	if c.Host != "" {
		a.cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		a.cfg.Server.Port = c.Port
	}
	srv, err := server.New(a.cfg, a.engine, a.logger, version())
	if err != nil {
		return err
	}
	return srv.Run(a.ctx)
}

// NotifyCmd renders one email per record and sends it.
type NotifyCmd struct {
	Body     string   `arg:"" optional:"" help:"Body pattern."`
	File     string   `short:"f" help:"Read the body pattern from a file."`
	Records  string   `short:"r" type:"path" help:"Records file (.json or .yaml list); one message per record." xor:"records"`
	Query    string   `short:"q" help:"SQL query; one message per row (uses the database config)." xor:"records"`
	Set      []string `short:"s" sep:"none" help:"name=value pair; record values win." placeholder:"NAME=VALUE"`
	To       string   `required:"" help:"Recipient pattern, e.g. \"[Email]\". Commas separate addresses."`
	From     string   `help:"Sender pattern. Overrides the config."`
	Subject  string   `help:"Subject pattern. Overrides the config."`
	Markdown bool     `help:"Also send the body as HTML converted from Markdown."`
	Provider string   `help:"Email provider (mailgun, resend, dryrun). Overrides the config."`
	DryRun   bool     `name:"dry-run" help:"Print the messages instead of sending them."`
	Log      string   `type:"path" help:"SQLite database that records every send attempt." placeholder:"PATH"`
}

func (c *NotifyCmd) Run(a *app) error {
	body, err := a.loadPattern(c.Body, c.File)
	if err != nil {
		return err
	}
	base, err := a.baseRecord(false, nil, c.Set)
	if err != nil {
		return err
	}

	var records []*props.Context
	switch {
	case c.Records != "":
		records, err = source.LoadRecords(c.Records)
	case c.Query != "":
		records, err = a.query("", "", c.Query, nil)
	default:
		return fmt.Errorf("no records: pass --records or --query")
	}
	if err != nil {
		return err
	}

	cfg := a.cfg.Notify
	if c.Provider != "" {
		cfg.Provider = c.Provider
	}
	if c.DryRun {
		cfg.Provider = "dryrun"
	}
	tmpl := notify.Template{
		From:     cfg.From,
		To:       c.To,
		Subject:  cfg.Subject,
		Body:     body,
		Markdown: c.Markdown || cfg.Markdown,
	}
	if c.From != "" {
		tmpl.From = c.From
	}
	if c.Subject != "" {
		tmpl.Subject = c.Subject
	}

	provider, err := notify.NewProvider(cfg, a.stdout)
	if err != nil {
		return err
	}
	results, err := notify.New(provider, a.engine, tmpl, a.logger).Send(a.ctx, perRecord(base, records))
	if c.Log != "" {
		if logErr := recordSends(a, c.Log, provider.Name(), results); logErr != nil {
			a.logger.Error("send log failed", "path", c.Log, "error", logErr)
		}
	}

	sent := 0
	for _, r := range results {
		if r.Err == nil {
			sent++
		}
	}
	fmt.Fprintf(a.stderr, "%s: sent %d of %d messages\n", provider.Name(), sent, len(records))
	return err
}

func recordSends(a *app, path, provider string, results []notify.Result) error {
	db, err := source.Open(a.ctx, "sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	log, err := notify.NewSendLog(a.ctx, db)
	if err != nil {
		return err
	}
	return log.RecordAll(a.ctx, provider, results)
}
