/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jjudge-oj/contestjudge/config"
	"github.com/jjudge-oj/contestjudge/internal/executor"
	"github.com/jjudge-oj/contestjudge/internal/wrapper"
	"github.com/jjudge-oj/contestjudge/types"
)

var wrapOpts struct {
	language string
	codeFile string
	input    string
	params   string
	run      bool
	expect   string
}

// wrapCmd prints the program that would be sent to the executor.
var wrapCmd = &cobra.Command{
	Use:   "wrap",
	Short: "Print the wrapped program for a solution and sample input",
	Long: `Builds the runnable program for a solution file and one sample input,
exactly as the judge would, and prints it. With --run the program is executed
and its output compared with --expect.

	contestjudge wrap --language python --code solve.py --input "1 2" \
		--params '[{"name":"a","type":"int"},{"name":"b","type":"int"}]'
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		catalog, err := wrapper.LoadCatalog(cfg.LanguagesFile)
		if err != nil {
			return err
		}
		lang, ok := catalog.Lookup(wrapOpts.language)
		if !ok {
			return fmt.Errorf("unsupported language %q", wrapOpts.language)
		}

		code, err := readCode(cmd.InOrStdin(), wrapOpts.codeFile)
		if err != nil {
			return err
		}

		var specs []types.ParameterSpec
		if strings.TrimSpace(wrapOpts.params) != "" {
			if err := json.Unmarshal([]byte(wrapOpts.params), &specs); err != nil {
				return fmt.Errorf("invalid --params: %w", err)
			}
		}

		artifact := wrapper.Build(lang, code, wrapOpts.input, specs)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "---- source ----")
		fmt.Fprintln(out, artifact.Source)
		fmt.Fprintln(out, "---- stdin ----")
		fmt.Fprintln(out, artifact.Stdin)

		if !wrapOpts.run {
			return nil
		}

		client, err := executor.NewPistonClient(cfg.Executor, zap.NewNop())
		if err != nil {
			return err
		}
		result, err := client.Execute(cmd.Context(), executor.Request{
			Language: lang.Runtime,
			Version:  lang.Version,
			Source:   artifact.Source,
			Stdin:    artifact.Stdin,
		})
		if err != nil {
			return err
		}

		actual := strings.TrimSpace(result.Text())
		fmt.Fprintln(out, "---- output ----")
		fmt.Fprintln(out, actual)
		if cmd.Flags().Changed("expect") {
			if actual == strings.TrimSpace(wrapOpts.expect) {
				fmt.Fprintln(out, "PASS")
				return nil
			}
			fmt.Fprintln(out, "FAIL")
			return errors.New("output does not match expected")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(wrapCmd)

	wrapCmd.Flags().StringVarP(&wrapOpts.language, "language", "l", "", "catalogue language name or alias")
	wrapCmd.Flags().StringVarP(&wrapOpts.codeFile, "code", "c", "-", "solution file, - for stdin")
	wrapCmd.Flags().StringVarP(&wrapOpts.input, "input", "i", "", "sample input")
	wrapCmd.Flags().StringVar(&wrapOpts.params, "params", "", "parameter specs as a JSON array")
	wrapCmd.Flags().BoolVar(&wrapOpts.run, "run", false, "execute the program on the configured executor")
	wrapCmd.Flags().StringVar(&wrapOpts.expect, "expect", "", "expected output, compared after trimming")
	_ = wrapCmd.MarkFlagRequired("language")
}

func readCode(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read solution: %w", err)
	}
	return string(data), nil
}
