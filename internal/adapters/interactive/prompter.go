package interactive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/capybara-io/capydeploy/internal/domain/config"
	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
)

// PromptAdapter asks the user through terminal prompts
type PromptAdapter struct {
	config *config.RuntimeConfig
}

// NewPromptAdapter creates a new prompt adapter
func NewPromptAdapter(cfg *config.RuntimeConfig) *PromptAdapter {
	return &PromptAdapter{config: cfg}
}

// Confirm asks a yes/no question. Non-interactive mode always confirms.
func (p *PromptAdapter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if p.config.NonInteractive {
		return true, nil
	}

	confirm := promptui.Prompt{
		Label:     prompt,
		IsConfirm: true,
	}

	if _, err := confirm.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return true, nil
}

// SelectNetwork asks the user to pick one of networks
func (p *PromptAdapter) SelectNetwork(ctx context.Context, networks []string) (string, error) {
	if p.config.NonInteractive {
		return "", fmt.Errorf("a network is required in non-interactive mode")
	}

	switch len(networks) {
	case 0:
		return "", fmt.Errorf("no networks configured")
	case 1:
		return networks[0], nil
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, Enter to select"),
	}

	selector := promptui.Select{
		Label:             "Select network",
		Items:             networks,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: len(networks) > 10,
		Searcher:          createFuzzySearchFunc(networks),
	}

	index, _, err := selector.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return networks[index], nil
}

// createFuzzySearchFunc creates a fuzzy search function for promptui
func createFuzzySearchFunc(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])

		if strings.Contains(item, input) {
			return true
		}

		return len(fuzzy.Find(input, []string{item})) > 0
	}
}

var (
	_ usecase.Confirmer       = (*PromptAdapter)(nil)
	_ usecase.NetworkSelector = (*PromptAdapter)(nil)
)
