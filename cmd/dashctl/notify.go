package main

import (
	"fmt"

	"github.com/anandavicky123/syncertica/internal/domain"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Append a notification to a recipient's ledger",
	Long: `Append a notification to a recipient's ledger.

The recipient is a partition key: "manager:<id>" for a manager, the bare id for a worker.
Use --manager or --worker instead of --to to have the key built for you.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		event, err := notificationFromFlags(cmd)
		if err != nil {
			return err
		}

		notifications, err := backends.notificationService(cmd.Context())
		if err != nil {
			return err
		}
		stored, err := notifications.Publish(cmd.Context(), event)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, stored)
		}
		fmt.Fprintf(out, "Appended %s to %s\n", stored.ID, stored.Partition)
		return nil
	},
}

func notificationFromFlags(cmd *cobra.Command) (domain.NotificationEvent, error) {
	to, _ := cmd.Flags().GetString("to")
	managerID, _ := cmd.Flags().GetString("manager")
	workerID, _ := cmd.Flags().GetString("worker")
	notifType, _ := cmd.Flags().GetString("type")
	from, _ := cmd.Flags().GetString("from")
	message, _ := cmd.Flags().GetString("message")
	taskID, _ := cmd.Flags().GetString("task")

	partition := to
	switch {
	case managerID != "":
		partition = domain.NewManager(managerID).PartitionKey()
	case workerID != "":
		partition = domain.NewWorker(workerID).PartitionKey()
	}
	if partition == "" {
		return domain.NotificationEvent{}, fmt.Errorf("one of --to, --manager or --worker is required")
	}

	t := domain.NotificationType(notifType)
	if !t.Valid() {
		return domain.NotificationEvent{}, fmt.Errorf("unknown notification type %q", notifType)
	}

	return domain.NotificationEvent{
		Partition:     partition,
		Type:          t,
		CounterpartID: from,
		Message:       message,
		TaskID:        taskID,
	}, nil
}

func addNotifyFlags(cmd *cobra.Command) {
	cmd.Flags().String("to", "", "recipient partition key")
	cmd.Flags().String("manager", "", "recipient manager id")
	cmd.Flags().String("worker", "", "recipient worker id")
	cmd.Flags().String("type", string(domain.NotificationTaskUpdate), "task_update or worker_message")
	cmd.Flags().String("from", "", "counterpart id (the sender)")
	cmd.Flags().String("message", "", "message text, truncated to 100 characters")
	cmd.Flags().String("task", "", "related task id")
	cmd.MarkFlagsMutuallyExclusive("to", "manager", "worker")
}

func init() {
	addNotifyFlags(notifyCmd)
}
