// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/civicqa/internal/textutil"
	"github.com/pdiddy/civicqa/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question about a locality",
	Long: `Ask gathers knowledge items for the locality from every configured source,
ranks them, and prints a grounded answer, follow-up questions and the top
supporting items. The question can be given with --query or as arguments.`,
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	if query == "" {
		query = strings.Join(args, " ")
	}
	locality, _ := cmd.Flags().GetString("locality")
	role, _ := cmd.Flags().GetString("role")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := context.Background()
	pipeline, cleanup, err := buildPipeline(ctx, appConfig, loadedSecrets, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	res := pipeline.Search(ctx, types.QueryContext{
		Query:    query,
		Locality: locality,
		User: types.UserContext{
			Location:     locality,
			Role:         types.ParseRole(role),
			IdentityTags: tags,
		},
	})
	return formatAnswer(os.Stdout, res, jsonOutput)
}

func formatAnswer(w io.Writer, res types.AnswerResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintln(w, res.Summary)
	if res.Degraded {
		fmt.Fprintln(w, "\n(generative backend unavailable; showing a local answer)")
	}

	if len(res.RelatedQuestions) > 0 {
		fmt.Fprintln(w, "\nRelated questions:")
		for _, q := range res.RelatedQuestions {
			fmt.Fprintf(w, "  - %s\n", q)
		}
	}

	if len(res.Items) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\n%-4s  %-6s  %-5s  %-30s  %s\n", "Rank", "Source", "Score", "Title", "Link")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for i, it := range res.Items {
		fmt.Fprintf(w, "%-4d  %-6s  %-5d  %-30s  %s\n",
			i+1, it.SourceKind.Tag(), it.RelevanceScore, textutil.Truncate(it.Title, 30), it.ExternalURL)
	}
	fmt.Fprintf(w, "\n%d items\n", len(res.Items))
	return nil
}

func init() {
	askCmd.Flags().String("query", "", "question to answer")
	askCmd.Flags().String("locality", "", "community or district the question is about (e.g. 新竹縣竹北市)")
	askCmd.Flags().String("role", "guest", "requester role: guest, resident or admin")
	askCmd.Flags().StringSlice("tag", nil, "requester identity tag (repeatable)")
	askCmd.Flags().Bool("json", false, "output the answer as JSON")

	rootCmd.AddCommand(askCmd)
}
