package main

import (
	"fmt"

	"github.com/dagbolade/blind-auditor/internal/rules"
	"github.com/spf13/cobra"
)

func rulesCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and edit the rules document offline",
	}

	cmd.AddCommand(
		rulesListCmd(configPath),
		rulesAddCmd(configPath),
		rulesRemoveCmd(configPath),
		rulesUpdateCmd(configPath),
	)

	return cmd
}

func openRuleStore(configPath string) (*rules.FileStore, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	store := rules.NewFileStore(cfg.Rules.Path)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

func rulesListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRuleStore(*configPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), store.ListRules())
			return nil
		},
	}
}

func rulesAddCmd(configPath *string) *cobra.Command {
	var (
		severity    string
		description string
		weight      int
	)

	cmd := &cobra.Command{
		Use:   "add <rule-id>",
		Short: "Add a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRuleStore(*configPath)
			if err != nil {
				return err
			}
			if err := store.AddRule(args[0], rules.Severity(severity), description, weight); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule '%s' added successfully.\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&severity, "severity", "s", "", "CRITICAL, WARNING or PREFERENCE")
	cmd.Flags().StringVarP(&description, "description", "d", "", "What the rule checks")
	cmd.Flags().IntVarP(&weight, "weight", "w", 0, "Score deduction from 0 to 100")
	_ = cmd.MarkFlagRequired("severity")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func rulesRemoveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <rule-id>",
		Short: "Remove a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRuleStore(*configPath)
			if err != nil {
				return err
			}
			if err := store.RemoveRule(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule '%s' removed successfully.\n", args[0])
			return nil
		},
	}
}

func rulesUpdateCmd(configPath *string) *cobra.Command {
	var (
		severity    string
		description string
		weight      int
	)

	cmd := &cobra.Command{
		Use:   "update <rule-id>",
		Short: "Update fields of a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update rules.RuleUpdate
			if cmd.Flags().Changed("severity") {
				sev := rules.Severity(severity)
				update.Severity = &sev
			}
			if cmd.Flags().Changed("description") {
				update.Description = &description
			}
			if cmd.Flags().Changed("weight") {
				update.Weight = &weight
			}
			if update.Empty() {
				return fmt.Errorf("at least one of --severity, --description or --weight is required")
			}

			store, err := openRuleStore(*configPath)
			if err != nil {
				return err
			}
			if err := store.UpdateRule(args[0], update); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule '%s' updated successfully.\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&severity, "severity", "s", "", "CRITICAL, WARNING or PREFERENCE")
	cmd.Flags().StringVarP(&description, "description", "d", "", "What the rule checks")
	cmd.Flags().IntVarP(&weight, "weight", "w", 0, "Score deduction from 0 to 100")

	return cmd
}
