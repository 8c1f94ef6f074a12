package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/frahmantamala/approval-portal/internal/core/events"
	"github.com/frahmantamala/approval-portal/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish document events through the in-process bus to check notification delivery.`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a document event",
	Long: `Publish a document event to the event bus with the notifier attached,
so the configured webhook receives the rendered message.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

var (
	eventDocumentID int64
	eventTitle      string
	eventOwnerID    int64
	eventActorID    int64
	eventRecipients []int64
	eventComment    string
)

func publishTestEvent(eventType string) {
	known := map[string]bool{
		events.EventTypeDocumentSubmitted: true,
		events.EventTypeStepActivated:     true,
		events.EventTypeDocumentApproved:  true,
		events.EventTypeDocumentRejected:  true,
		events.EventTypeDocumentCancelled: true,
		events.EventTypeDocumentRetrieved: true,
		events.EventTypeStepDelegated:     true,
	}
	if !known[eventType] {
		fmt.Fprintf(os.Stderr, "unknown document event type %q\n", eventType)
		os.Exit(1)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.LoggerWrapper()

	ctx := context.Background()
	app, err := newApp(ctx, cfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	recipients := eventRecipients
	if len(recipients) == 0 {
		recipients = []int64{eventOwnerID}
	}
	e := events.NewDocumentEvent(eventType, eventDocumentID, "general", eventTitle,
		eventOwnerID, eventActorID, "pending", recipients, eventComment)

	lg.Info("publishing event", "event_type", eventType, "event_id", e.EventID(), "recipients", recipients)
	if err := app.Bus.PublishSync(ctx, e); err != nil {
		lg.Error("failed to publish event", "error", err)
		return
	}
	lg.Info("event published")
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventDocumentID, "document-id", 1, "document id carried by the event")
	publishEventCmd.Flags().StringVar(&eventTitle, "title", "Test document", "document title")
	publishEventCmd.Flags().Int64Var(&eventOwnerID, "owner-id", 1, "document owner")
	publishEventCmd.Flags().Int64Var(&eventActorID, "actor-id", 1, "employee who triggered the event")
	publishEventCmd.Flags().Int64SliceVar(&eventRecipients, "to", nil, "recipient employee ids (defaults to the owner)")
	publishEventCmd.Flags().StringVar(&eventComment, "comment", "", "comment or reason")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
