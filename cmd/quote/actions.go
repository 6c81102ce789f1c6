package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/quotation-engine/internal/engine"
	"github.com/angelmondragon/quotation-engine/internal/pricing"
	"github.com/angelmondragon/quotation-engine/pkg/enums"
	"github.com/angelmondragon/quotation-engine/pkg/types"
)

type action string

const (
	actionShow    action = "show"
	actionTotals  action = "totals"
	actionRecalc  action = "recalc"
	actionSubmit  action = "submit"
	actionAccept  action = "accept"
	actionReject  action = "reject"
	actionDiscard action = "discard"
)

func parseAction(raw string) (action, error) {
	switch a := action(strings.ToLower(strings.TrimSpace(raw))); a {
	case actionShow, actionTotals, actionRecalc, actionSubmit, actionAccept, actionReject, actionDiscard:
		return a, nil
	}
	return "", fmt.Errorf("unknown -action %q", raw)
}

type runOptions struct {
	Action action
	// Params replaces the pricing inputs before recalc or submit. When no draft
	// exists it also seeds the fresh quote.
	Params *types.QuoteParameters
	Reason string
}

func loadParams(path string) (*types.QuoteParameters, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if raw, err = yamlToJSON(raw); err != nil {
			return nil, fmt.Errorf("decode params file: %w", err)
		}
	}
	params := types.DefaultQuoteParameters()
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decode params file: %w", err)
	}
	return &params, nil
}

// yamlToJSON lets YAML files share the JSON field names and the defaults
// merge of QuoteParameters.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return json.Marshal(doc)
}

func run(ctx context.Context, session *engine.Session, opts runOptions, out io.Writer) error {
	defaults := types.DefaultQuoteParameters()
	if opts.Params != nil {
		defaults = *opts.Params
	}
	if err := session.Refresh(ctx); err != nil {
		return fmt.Errorf("load quote: %w", err)
	}
	found := false
	if session.State() == enums.QuoteStatusBuilding {
		restored, err := session.Restore(ctx, defaults)
		if err != nil {
			return fmt.Errorf("restore draft: %w", err)
		}
		found = restored
	}

	switch opts.Action {
	case actionShow, actionTotals:
		if quote, ok := session.Quote(); ok {
			printQuote(out, quote)
			return nil
		}
		if opts.Action == actionTotals {
			printTotals(out, session.Totals())
			return nil
		}
		printSession(out, session)
		return nil
	case actionRecalc:
		if err := applyParams(session, opts.Params, found); err != nil {
			return err
		}
		if err := session.RecalculateStandardLines(); err != nil {
			return err
		}
		printSession(out, session)
		return nil
	case actionSubmit:
		if err := applyParams(session, opts.Params, found); err != nil {
			return err
		}
		quote, err := session.Submit(ctx)
		if err != nil {
			return err
		}
		printQuote(out, quote)
		return nil
	case actionAccept:
		quote, err := session.Accept(ctx)
		if err != nil {
			return err
		}
		printQuote(out, quote)
		return nil
	case actionReject:
		quote, err := session.Reject(ctx, opts.Reason)
		if err != nil {
			return err
		}
		printQuote(out, quote)
		return nil
	case actionDiscard:
		if err := session.Discard(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "draft for %s discarded\n", session.RequestID())
		return nil
	}
	return fmt.Errorf("unknown action %q", opts.Action)
}

// applyParams overrides a restored draft's inputs. A fresh quote already
// started from them.
func applyParams(session *engine.Session, params *types.QuoteParameters, draftFound bool) error {
	if params == nil || !draftFound {
		return nil
	}
	return session.SetParameters(*params)
}

func printSession(out io.Writer, session *engine.Session) {
	params := session.Parameters()
	fmt.Fprintf(out, "request %s  state %s\n", session.RequestID(), session.State())
	fmt.Fprintf(out, "risk %s (x%v)  service factor %v  survey area %v m²\n\n",
		params.RiskProfile, pricing.RiskMultiplier(params.RiskProfile), params.ServiceFactor, params.SurveyAreaSqm)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Description", "Qty", "UOM", "Unit Price", "Amount", "Category"})
	for _, item := range session.Items() {
		t.AppendRow(table.Row{
			item.Description,
			item.Quantity,
			item.UOM,
			pricing.FormatAmount(item.UnitPrice, enums.CurrencyJMD),
			pricing.FormatAmount(item.Amount(), enums.CurrencyJMD),
			item.Category,
		})
	}
	t.Render()
	fmt.Fprintln(out)
	printTotals(out, session.Totals())
}

func printTotals(out io.Writer, totals types.QuoteTotals) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendRows([]table.Row{
		{"Line subtotal", pricing.FormatAmount(totals.LineSubtotal, enums.CurrencyJMD)},
		{"Initiation", pricing.FormatAmount(totals.InitiationTotal, enums.CurrencyJMD)},
		{"Subtotal", pricing.FormatAmount(totals.Subtotal, enums.CurrencyJMD)},
		{"Total", fmt.Sprintf("%s (%s)",
			pricing.FormatAmount(totals.Total, enums.CurrencyJMD),
			pricing.FormatAmount(totals.USDTotal, enums.CurrencyUSD))},
		{"Prepayment", pricing.FormatAmount(totals.PrepayAmount, enums.CurrencyJMD)},
		{"Balance", pricing.FormatAmount(totals.BalanceAmount, enums.CurrencyJMD)},
	})
	t.Render()
}

func printQuote(out io.Writer, quote types.Quote) {
	fmt.Fprintf(out, "quote %s for request %s is %s\n", quote.ID, quote.RequestID, quote.Status)
	if quote.RejectionReason != nil {
		fmt.Fprintf(out, "reason: %s\n", *quote.RejectionReason)
	}
	printTotals(out, quote.Totals)
}
