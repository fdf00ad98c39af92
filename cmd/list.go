package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pavanpakhare/javanotes/internal/config"
	"github.com/pavanpakhare/javanotes/internal/registry"
	"github.com/pavanpakhare/javanotes/internal/scanner"
	"github.com/pavanpakhare/javanotes/internal/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all documents in the corpus",
	Long: `List every document discovered under the content roots with its
metadata: path, title, heading count, code snippet count, and word count.

Examples:
  javanotes list                  # List all documents in table format
  javanotes list -f json          # Output as JSON (short flag)
  javanotes list --format csv     # Output as CSV
  javanotes list --with-links     # Include outbound link counts
  javanotes list --with-tags -f yaml`,
	RunE: runList,
}

var (
	listFormat    string
	listWithLinks bool
	listWithTags  bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "Output format (table, json, yaml, csv)")
	listCmd.Flags().BoolVar(&listWithLinks, "with-links", false, "Include outbound link counts")
	listCmd.Flags().BoolVar(&listWithTags, "with-tags", false, "Include front-matter tags")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	reg := registry.NewDocumentRegistry()
	sc, err := scanner.NewDocumentScanner(reg, cfg.Docs.Roots, cfg.Docs.Exclude)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}
	defer sc.Close()
	sc.SetExtensions(cfg.Docs.Extensions)

	if err := sc.ScanAll(); err != nil {
		return fmt.Errorf("failed to scan content roots: %w", err)
	}

	all := reg.GetAll()
	if len(all) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	// Registry paths are sorted, which keeps every format deterministic.
	docs := make([]*types.DocumentInfo, 0, len(all))
	for _, rel := range reg.Paths() {
		docs = append(docs, all[rel])
	}

	switch strings.ToLower(listFormat) {
	case "json":
		return outputListJSON(docs)
	case "yaml":
		return outputListYAML(docs)
	case "table":
		return outputListTable(docs)
	case "csv":
		return outputListCSV(docs)
	default:
		return fmt.Errorf("unsupported format: %s (expected table, json, yaml, or csv)", listFormat)
	}
}

// listRow flattens a document into the fields the list output shows.
func listRow(doc *types.DocumentInfo) map[string]interface{} {
	row := map[string]interface{}{
		"path":     doc.RelPath,
		"title":    doc.Title,
		"headings": len(doc.Headings),
		"snippets": len(doc.CodeBlocks),
		"words":    doc.WordCount,
	}
	if listWithLinks {
		row["links"] = len(doc.Links)
	}
	if listWithTags {
		row["tags"] = doc.Tags
	}
	return row
}

func outputListJSON(docs []*types.DocumentInfo) error {
	output := make([]map[string]interface{}, len(docs))
	for i, doc := range docs {
		output[i] = listRow(doc)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func outputListYAML(docs []*types.DocumentInfo) error {
	output := make([]map[string]interface{}, len(docs))
	for i, doc := range docs {
		output[i] = listRow(doc)
	}

	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	return encoder.Encode(output)
}

func outputListTable(docs []*types.DocumentInfo) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	header := "PATH\tTITLE\tHEADINGS\tSNIPPETS\tWORDS"
	if listWithLinks {
		header += "\tLINKS"
	}
	if listWithTags {
		header += "\tTAGS"
	}
	fmt.Fprintln(w, header)

	separator := strings.Repeat("-", 4) + "\t" +
		strings.Repeat("-", 5) + "\t" +
		strings.Repeat("-", 8) + "\t" +
		strings.Repeat("-", 8) + "\t" +
		strings.Repeat("-", 5)
	if listWithLinks {
		separator += "\t" + strings.Repeat("-", 5)
	}
	if listWithTags {
		separator += "\t" + strings.Repeat("-", 4)
	}
	fmt.Fprintln(w, separator)

	for _, doc := range docs {
		row := fmt.Sprintf("%s\t%s\t%d\t%d\t%d",
			doc.RelPath,
			doc.Title,
			len(doc.Headings),
			len(doc.CodeBlocks),
			doc.WordCount,
		)
		if listWithLinks {
			row += "\t" + strconv.Itoa(len(doc.Links))
		}
		if listWithTags {
			row += "\t" + strings.Join(doc.Tags, ", ")
		}
		fmt.Fprintln(w, row)
	}

	fmt.Fprintf(w, "\nTotal: %d documents\n", len(docs))
	return nil
}

func outputListCSV(docs []*types.DocumentInfo) error {
	w := csv.NewWriter(os.Stdout)

	header := []string{"path", "title", "headings", "snippets", "words"}
	if listWithLinks {
		header = append(header, "links")
	}
	if listWithTags {
		header = append(header, "tags")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, doc := range docs {
		record := []string{
			doc.RelPath,
			doc.Title,
			strconv.Itoa(len(doc.Headings)),
			strconv.Itoa(len(doc.CodeBlocks)),
			strconv.Itoa(doc.WordCount),
		}
		if listWithLinks {
			record = append(record, strconv.Itoa(len(doc.Links)))
		}
		if listWithTags {
			record = append(record, strings.Join(doc.Tags, " "))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
