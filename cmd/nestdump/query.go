package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/pthm/nestdump/internal/cli"
)

var queryCompact bool

var queryCmd = &cobra.Command{
	Use:   "query <file> <jsonpath>",
	Short: "Query an exported document with JSONPath",
	Long:  `Evaluate a JSONPath expression against an exported document and print each match.`,
	Example: `  # Names of all customers
  nestdump query nested_database.json '$.customers[*].name'

  # Orders nested under customer 1
  nestdump query nested_database.json '$.customers[?(@.id == 1)].orders'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return cli.GeneralError("reading document", err)
		}
		return runQuery(os.Stdout, data, args[1], queryCompact)
	},
}

func init() {
	queryCmd.Flags().BoolVar(&queryCompact, "compact", false, "print each match on one line")
}

// runQuery prints every match of expr in the JSON document data.
func runQuery(w io.Writer, data []byte, expr string, compact bool) error {
	x, err := jp.ParseString(expr)
	if err != nil {
		return cli.GeneralError(fmt.Sprintf("invalid jsonpath %q", expr), err)
	}

	doc, err := oj.Parse(data)
	if err != nil {
		return cli.GeneralError("parsing document", err)
	}

	for _, match := range x.Get(doc) {
		var out []byte
		if compact {
			out, err = json.Marshal(match)
		} else {
			out, err = json.MarshalIndent(match, "", "    ")
		}
		if err != nil {
			return cli.SerializationError("encoding match", err)
		}
		if _, err := fmt.Fprintln(w, string(out)); err != nil {
			return err
		}
	}
	return nil
}
