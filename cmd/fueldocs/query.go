package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pumpside/fueldocs/internal/config"
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question against the indexed documentation",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger()
	engine, store, err := buildEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	answer, err := engine.Ask(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("model: %s\n\n", answer.ModelSlug)
	fmt.Println(answer.Text)
	fmt.Println()
	fmt.Println("=== SOURCES ===")
	for _, src := range answer.Sources {
		fmt.Println(src)
	}
	return nil
}
