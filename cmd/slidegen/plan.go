// cmd/slidegen/plan.go
package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	var opts deckOptions
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "只生成演示计划并以 JSON 输出",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			deck, err := s.prepareDeck(cmd, opts)
			if err != nil {
				return err
			}
			plan, err := s.app.Decks.GeneratePlan(cmd.Context(), deck.ID, s.credential)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(plan)
		},
	}
	addDeckFlags(cmd, &opts)
	return cmd
}
