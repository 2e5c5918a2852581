package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/progress"
	"github.com/spf13/cobra"
)

// newSummarizeCmd runs one summarization job in-process, printing every
// progress event as a JSON line followed by the bullet points.
func newSummarizeCmd(load runtimeLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <docId>",
		Short: "Summarize one document synchronously",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docID, err := domain.ParseDocID(args[0])
			if err != nil {
				return err
			}

			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := openDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}

			app, err := newApplication(ctx, cfg, log, db)
			if err != nil {
				_ = db.Close()
				return err
			}
			defer app.cleanup()

			channel := uuid.NewString()
			sub, err := app.hub.Subscribe(channel)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				printEvents(out, sub.Events())
			}()

			result, runErr := app.summaryService.RunSync(ctx, docID, channel)
			sub.Close()
			wg.Wait()
			if runErr != nil {
				return runErr
			}

			for _, bullet := range result.BulletPoints() {
				if _, err := fmt.Fprintf(out, "- %s\n", bullet); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// printEvents writes each event as one JSON line until events is closed.
func printEvents(w io.Writer, events <-chan progress.Event) {
	enc := json.NewEncoder(w)
	for event := range events {
		_ = enc.Encode(event.Message())
	}
}
