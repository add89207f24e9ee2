// Package renderer formats portfolio reports as markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/stocktracker"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.md
var embedded embed.FS

var templates, _ = fs.Sub(embedded, "templates")

var funcs = template.FuncMap{
	"money": func(v decimal.Decimal, currency string) string { return stocktracker.M(v, currency).String() },
	"signed": func(v decimal.Decimal, currency string) string {
		return stocktracker.M(v, currency).SignedString()
	},
}

// Stats renders the valued portfolio.
func Stats(s stocktracker.Stats) string {
	partials := map[string]string{
		"stats_holdings": "stats_holdings.md",
		"stats_warnings": "stats_warnings.md",
	}
	view := struct {
		stocktracker.Stats
		Warnings []string
	}{Stats: s}
	for _, p := range s.Holdings {
		if p.PriceMissing {
			view.Warnings = append(view.Warnings, p.Symbol+": no price available, valued at cost")
		}
		for _, w := range p.Warnings {
			view.Warnings = append(view.Warnings, p.Symbol+": "+w)
		}
	}
	return renderTemplate("stats", "stats.md", partials, view)
}

// holdingsView carries the reporting currency next to the holdings.
type holdingsView struct {
	Title    string
	Currency string
	Holdings []stocktracker.Holding
}

// Holdings renders holdings at cost, without prices.
func Holdings(holdings []stocktracker.Holding, reporting string) string {
	partials := map[string]string{"holdings_table": "holdings_table.md"}
	return renderTemplate("holdings", "holdings.md", partials, holdingsView{Title: "Holdings", Currency: reporting, Holdings: holdings})
}

// Account renders the cost summary of one account.
func Account(s stocktracker.AccountSummary) string {
	partials := map[string]string{"holdings_table": "holdings_table.md"}
	return renderTemplate("account", "account.md", partials, struct {
		stocktracker.AccountSummary
		View holdingsView
	}{s, holdingsView{Currency: s.Reporting, Holdings: s.Holdings}})
}

// renderTemplate renders mainFile with the named partials available to it. An empty
// partial file name defines an empty template.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		if file != "" {
			content, err = fs.ReadFile(templates, file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
