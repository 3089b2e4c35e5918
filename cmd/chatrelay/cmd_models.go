package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/elee1766/chatrelay/src/aisdk"
	"github.com/elee1766/chatrelay/src/app"
	"github.com/elee1766/chatrelay/src/orclient"
	"github.com/spf13/afero"
)

// ModelsCmd manages model operations
type ModelsCmd struct {
	List   ModelsListCmd   `cmd:"" default:"1" help:"List available models"`
	Info   ModelsInfoCmd   `cmd:"" help:"Get information about a specific model"`
	Search ModelsSearchCmd `cmd:"" help:"Search for models by name"`
}

// ModelsListCmd lists available models
type ModelsListCmd struct {
	Format    string `help:"Output format (table, json)" default:"table" enum:"table,json"`
	WithCosts bool   `help:"Include pricing information (openrouter only)"`
}

func (c *ModelsListCmd) Run(ctx context.Context, cli *CLI) error {
	provider, err := providerFor(cli)
	if err != nil {
		return err
	}
	models, err := listModels(ctx, provider)
	if err != nil {
		return err
	}

	if c.Format == "json" {
		return printJSON(os.Stdout, models)
	}
	return printModelsTable(os.Stdout, models, c.WithCosts)
}

// ModelsInfoCmd gets information about a specific model
type ModelsInfoCmd struct {
	Model  string `arg:"" help:"Model ID or name"`
	Format string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

func (c *ModelsInfoCmd) Run(ctx context.Context, cli *CLI) error {
	provider, err := providerFor(cli)
	if err != nil {
		return err
	}

	var model *aisdk.ModelInfo
	if orc, ok := provider.(*orclient.Client); ok {
		model, err = orc.GetModel(ctx, c.Model)
		if err != nil {
			model, err = orc.FindModelByName(ctx, c.Model)
		}
		if err != nil {
			return fmt.Errorf("failed to get model info: %w", err)
		}
	} else {
		models, err := listModels(ctx, provider)
		if err != nil {
			return err
		}
		if model = findModel(models, c.Model); model == nil {
			return fmt.Errorf("model not found: %s", c.Model)
		}
	}

	if c.Format == "json" {
		return printJSON(os.Stdout, model)
	}
	return printModelTable(os.Stdout, model)
}

// ModelsSearchCmd searches for models by name
type ModelsSearchCmd struct {
	Query  string `arg:"" help:"Search query"`
	Format string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

func (c *ModelsSearchCmd) Run(ctx context.Context, cli *CLI) error {
	provider, err := providerFor(cli)
	if err != nil {
		return err
	}
	models, err := listModels(ctx, provider)
	if err != nil {
		return err
	}

	matches := searchModels(models, c.Query)
	if len(matches) == 0 {
		fmt.Printf("No models found matching '%s'\n", c.Query)
		return nil
	}

	if c.Format == "json" {
		return printJSON(os.Stdout, matches)
	}
	fmt.Printf("Found %d models matching '%s':\n\n", len(matches), c.Query)
	return printModelsTable(os.Stdout, matches, false)
}

func providerFor(cli *CLI) (aisdk.Provider, error) {
	cfg, err := loadConfig(afero.NewOsFs(), cli)
	if err != nil {
		return nil, err
	}
	return app.NewProvider(cfg.API, loggerFor(cfg, cli)), nil
}

func listModels(ctx context.Context, provider aisdk.Provider) ([]*aisdk.ModelInfo, error) {
	lister, ok := provider.(aisdk.ModelLister)
	if !ok {
		return nil, fmt.Errorf("%w: provider cannot list models", errUsage)
	}
	models, err := lister.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}

// findModel prefers an exact ID match, then the first partial match.
func findModel(models []*aisdk.ModelInfo, name string) *aisdk.ModelInfo {
	for _, model := range models {
		if strings.EqualFold(model.ID, name) {
			return model
		}
	}
	if matches := searchModels(models, name); len(matches) > 0 {
		return matches[0]
	}
	return nil
}

func searchModels(models []*aisdk.ModelInfo, query string) []*aisdk.ModelInfo {
	var matches []*aisdk.ModelInfo
	query = strings.ToLower(query)
	for _, model := range models {
		if strings.Contains(strings.ToLower(model.ID), query) ||
			strings.Contains(strings.ToLower(model.Name), query) {
			matches = append(matches, model)
		}
	}
	return matches
}

func printJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printModelsTable(out io.Writer, models []*aisdk.ModelInfo, withCosts bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if withCosts {
		fmt.Fprintln(w, "ID\tName\tContext\tPrompt Cost\tCompletion Cost")
		fmt.Fprintln(w, "---\t----\t-------\t-----------\t---------------")
		for _, model := range models {
			promptCost, completionCost := "N/A", "N/A"
			if model.Pricing != nil {
				if model.Pricing.Prompt != "" {
					promptCost = model.Pricing.Prompt
				}
				if model.Pricing.Completion != "" {
					completionCost = model.Pricing.Completion
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				model.ID, modelName(model), contextLength(model), promptCost, completionCost)
		}
		return nil
	}

	fmt.Fprintln(w, "ID\tName\tContext Length")
	fmt.Fprintln(w, "---\t----\t--------------")
	for _, model := range models {
		fmt.Fprintf(w, "%s\t%s\t%s\n", model.ID, modelName(model), contextLength(model))
	}
	return nil
}

func printModelTable(out io.Writer, model *aisdk.ModelInfo) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "ID:\t%s\n", model.ID)
	fmt.Fprintf(w, "Name:\t%s\n", modelName(model))
	if model.Description != "" {
		fmt.Fprintf(w, "Description:\t%s\n", model.Description)
	}
	fmt.Fprintf(w, "Context Length:\t%s\n", contextLength(model))

	if model.Pricing != nil {
		fmt.Fprintln(w, "\nPricing:")
		if model.Pricing.Prompt != "" {
			fmt.Fprintf(w, "  Prompt:\t%s per token\n", model.Pricing.Prompt)
		}
		if model.Pricing.Completion != "" {
			fmt.Fprintf(w, "  Completion:\t%s per token\n", model.Pricing.Completion)
		}
		if model.Pricing.Request != "" {
			fmt.Fprintf(w, "  Request:\t%s\n", model.Pricing.Request)
		}
	}
	return nil
}

// OpenAI's model list carries neither names nor context lengths.
func modelName(model *aisdk.ModelInfo) string {
	if model.Name == "" {
		return model.ID
	}
	return model.Name
}

func contextLength(model *aisdk.ModelInfo) string {
	if model.ContextLength == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", model.ContextLength)
}
