package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"pixelforge/generation-engine/internal/config"
	"pixelforge/generation-engine/internal/topics"
	"pixelforge/generation-engine/pkg/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate [topics-dir]",
	Short: "Validate topic directories and report what would load",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	} else {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		dir = cfg.Paths.TopicsDir
	}
	logger.SetLevelFromString("error")

	repo := topics.NewRepository(dir)
	if err := repo.Reload(); err != nil {
		return err
	}

	loaded := repo.All()
	aliases := make([]string, 0, len(loaded))
	for alias := range loaded {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		t := loaded[alias]
		fmt.Printf("%-20s %-30s nodes=%d rules=%d defaults=%d\n",
			alias, t.Title, len(t.Graph), len(t.Rules), len(t.Defaults))
	}
	fmt.Printf("%d topic(s) valid\n", len(loaded))
	return nil
}
