package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/plan-cost-extractor/internal/costtable"
)

var patternsJSON bool

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the registered table patterns",
	Long: `List every table pattern in registration order with its confidence and
minimum row count. Registration order breaks ties during overlap resolution.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listPatterns(cmd.OutOrStdout(), costtable.DefaultRegistry(), patternsJSON)
	},
}

func init() {
	rootCmd.AddCommand(patternsCmd)
	patternsCmd.Flags().BoolVar(&patternsJSON, "json", false, "Print the list as JSON")
}

type patternInfo struct {
	ID          string  `json:"id"`
	Confidence  float64 `json:"confidence"`
	MinRows     int     `json:"minRows"`
	CatchAll    bool    `json:"catchAll,omitempty"`
	Description string  `json:"description"`
}

func listPatterns(out io.Writer, reg *costtable.Registry, asJSON bool) error {
	var infos []patternInfo
	for _, p := range reg.Patterns() {
		infos = append(infos, patternInfo{
			ID:          p.ID,
			Confidence:  p.Confidence,
			MinRows:     p.MinRows,
			CatchAll:    p.CatchAll,
			Description: p.Description,
		})
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPATTERN\tCONFIDENCE\tMIN ROWS\tDESCRIPTION")
	for i, p := range infos {
		desc := p.Description
		if p.CatchAll {
			desc += " (catch-all)"
		}
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%s\n", i+1, p.ID, p.Confidence, p.MinRows, desc)
	}
	return w.Flush()
}
