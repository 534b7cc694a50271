package main

import (
	"fmt"
	"os"

	"github.com/docopt/docopt.go"
)

const version = "chunky 0.1.0"

const usage = `chunky: build, persist and inspect chunked columns.

Usage:
  chunky demo <file> [--rows=<n>] [--config=<path>]
  chunky inspect <file> [--limit=<n>] [--config=<path>]
  chunky concat <file> <column>... [--sep=<sep>] [--out=<file>] [--config=<path>]
  chunky argsort <file> <column>... [--desc] [--config=<path>]
  chunky corr <file> <a> <b> [--config=<path>]
  chunky search <file> <name> <value> [--strategy=<s>] [--config=<path>]
  chunky (-h | --help)
  chunky --version

Options:
  -h --help          Show this screen.
  --version          Show version.
  --config=<path>    YAML configuration file.
  --rows=<n>         Rows to generate per chunk [default: 5].
  --limit=<n>        Rows to print per column [default: 10].
  --sep=<sep>        Delimiter placed between concatenated values [default: _].
  --out=<file>       Write the concatenated column to an IPC file instead of stdout.
  --desc             Sort every key in descending order.
  --strategy=<s>     Index strategy: roaring, hash, bloom or sorted [default: roaring].
`

func main() {
	parser := &docopt.Parser{HelpHandler: docopt.PrintHelpAndExit}
	arguments, err := parser.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}
	if err := run(arguments, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "chunky: %v\n", err)
		os.Exit(1)
	}
}
