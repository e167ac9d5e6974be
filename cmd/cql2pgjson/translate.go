package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/cql2pgjson"
	"github.com/pthm/cql2pgjson/internal/cli"
)

var (
	translateOpts  translatorFlags
	translateFile  string
	translateWhere bool
)

var translateCmd = &cobra.Command{
	Use:   "translate [query]",
	Short: "Translate CQL to SQL",
	Long: `Translate a CQL query into a select statement.

Prints one line: select * from <table> where <where>[ order by <order by>].
Missing-index advisories are logged to stderr at warn level.`,
	Example: `  # Translate with a schema and an index descriptor
  cql2pgjson translate -t users -f jsonb -s userdata.json -b dbschema.json 'lastName = smith'

  # Translate every line of a file
  cql2pgjson translate --file queries.txt

  # Print only the WHERE clause
  cql2pgjson translate --where 'username == jo*'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		translateOpts.apply(cfg)
		if translateFile == "" && len(args) == 0 {
			return cli.GeneralError("a query argument or --file is required", nil)
		}
		if !translateWhere && cfg.Table == "" {
			return cli.ConfigError("table is required (use --table or set in config)", nil)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		t, err := buildTranslator(ctx, cfg, &translateOpts, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if translateFile != "" {
			return translateBatch(ctx, t, translateFile, out)
		}
		return translateOne(t, args[0], out)
	},
}

func init() {
	translateOpts.register(translateCmd)
	translateCmd.Flags().StringVar(&translateFile, "file", "", "translate one query per line of this file (- for stdin)")
	translateCmd.Flags().BoolVar(&translateWhere, "where", false, "print only the WHERE clause")
}

func render(t *cql2pgjson.Translator, sel *cql2pgjson.SQLSelect) string {
	if translateWhere {
		return sel.Where
	}
	return sel.Statement(t.Table())
}

func translateOne(t *cql2pgjson.Translator, query string, out io.Writer) error {
	sel, err := t.TranslateString(query)
	if err != nil {
		return queryError(err)
	}
	_, _ = fmt.Fprintln(out, render(t, sel))
	return nil
}

// translateBatch compiles every non-blank, non-comment line concurrently
// and prints the results in input order.
func translateBatch(ctx context.Context, t *cql2pgjson.Translator, path string, out io.Writer) error {
	queries, err := readQueries(path)
	if err != nil {
		return cli.GeneralError("reading "+path, err)
	}

	results := make([]string, len(queries))
	errs := make([]error, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sel, err := t.TranslateString(q.text)
			if err != nil {
				errs[i] = fmt.Errorf("line %d: %w", q.line, err)
				return nil
			}
			results[i] = render(t, sel)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cli.GeneralError("translating "+path, err)
	}
	// Every line is compiled so the reported failure is the first in input
	// order.
	for _, err := range errs {
		if err != nil {
			return queryError(err)
		}
	}

	w := bufio.NewWriter(out)
	for _, r := range results {
		_, _ = fmt.Fprintln(w, r)
	}
	return w.Flush()
}

type queryLine struct {
	line int
	text string
}

func readQueries(path string) ([]queryLine, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var queries []queryLine
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		queries = append(queries, queryLine{line: n, text: text})
	}
	return queries, sc.Err()
}
