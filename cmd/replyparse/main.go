// replyparse runs the completion reply parser on a saved reply and prints what
// it extracted. Useful when a model starts drifting from the expected format.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ashureev/braindump/internal/parser"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var Version = "dev"

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var (
		format    string
		stageOnly bool
	)

	cmd := &cobra.Command{
		Use:   "replyparse [file]",
		Short: "Split a raw completion reply into conversation text and a task plan",
		Long: `Reads a raw completion reply from file, or stdin when no file is given,
and prints the parsed reply. Use --stage to print only which extraction
stage matched (fenced, brace or none).`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(stdin, args)
			if err != nil {
				return err
			}

			reply := parser.Parse(string(raw))
			if stageOnly {
				_, err := fmt.Fprintln(stdout, reply.Stage)
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(reply)
			case "yaml":
				enc := yaml.NewEncoder(stdout)
				enc.SetIndent(2)
				defer func() { _ = enc.Close() }()
				return enc.Encode(reply)
			default:
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, yaml)")
	cmd.Flags().BoolVar(&stageOnly, "stage", false, "Print only the matched extraction stage")
	cmd.SetOut(stdout)

	return cmd
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return data, nil
}
