package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/Borislavv/count-min-sketch/pkg/sketch"
	"github.com/Borislavv/count-min-sketch/pkg/utils"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const maxLineSize = 1 << 20

func newCountCmd(a *app) *cobra.Command {
	var queries []string

	cmd := &cobra.Command{
		Use:   "count [file]",
		Short: "Count a stream of lines and print estimates",
		Long: "Reads newline separated elements from file (or stdin when omitted or \"-\").\n" +
			"A line may carry an increment after a tab: element<TAB>increment.\n" +
			"Prints an estimate per --query, or per distinct element when no query is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			cms, err := sketch.NewFromConfig(a.cfg.Cms.Sketch)
			if err != nil {
				return err
			}
			defer cms.Destroy()

			return count(cms, in, cmd.OutOrStdout(), queries)
		},
	}

	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "element to estimate, may be repeated")
	addSketchFlags(cmd.Flags())

	return cmd
}

// count feeds every line of in into cms and writes "element<TAB>estimate" lines to out.
func count(cms *sketch.Sketch, in io.Reader, out io.Writer, queries []string) error {
	var (
		seen     map[string]struct{}
		distinct []string
		lines    int
	)
	if len(queries) == 0 {
		seen = make(map[string]struct{})
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lines++
		element, increment, err := parseLine(scanner.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", lines, err)
		}
		if _, err = cms.UpdateString(element, increment); err != nil {
			return fmt.Errorf("line %d: %w", lines, err)
		}
		if seen != nil {
			if _, ok := seen[element]; !ok {
				seen[element] = struct{}{}
				distinct = append(distinct, element)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	p := cms.Params()
	log.Info().Msgf("[count] consumed %s lines into %dx%d sketch (%s)",
		humanize.Comma(int64(lines)), p.Depth(), p.Width(), utils.FmtMem(p.Mem()))

	if len(queries) == 0 {
		queries = distinct
	}

	w := bufio.NewWriter(out)
	for _, q := range queries {
		est, err := cms.EstimateString(q)
		if err != nil {
			return err
		}
		if _, err = fmt.Fprintf(w, "%s\t%d\n", q, est); err != nil {
			return err
		}
	}
	return w.Flush()
}
