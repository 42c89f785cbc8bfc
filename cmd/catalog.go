package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zjrosen/devdeck/internal/catalog"
	"github.com/zjrosen/devdeck/internal/config"
)

var (
	catalogJSON bool

	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	idStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	kindStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("135"))
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the data sources and widgets offered for new chats",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := config.Load(config.NewViper(), cfgFile)
		if err != nil {
			return err
		}
		cat, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		if catalogJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cat.Redacted())
		}
		return printCatalog(cmd.OutOrStdout(), cat)
	},
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "print the catalog as JSON")
}

func printCatalog(out io.Writer, cat *catalog.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	for _, c := range cat.Categories {
		_, _ = fmt.Fprintln(w, categoryStyle.Render(c.Name))
		for _, s := range c.Sources {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", s.Name, idStyle.Render(s.ID), kindStyle.Render(string(s.Kind)), s.DisplayLocation())
		}
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, categoryStyle.Render("Widgets"))
	for _, wd := range cat.Widgets {
		note := ""
		switch {
		case wd.Required:
			note = "required"
		case wd.Enabled:
			note = "default"
		}
		_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", wd.Name, idStyle.Render(wd.ID), note)
	}
	return w.Flush()
}
