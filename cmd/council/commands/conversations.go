package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/biodoia/goleapcouncil/internal/conversation"
	"github.com/spf13/cobra"
)

// ConversationsCmd ispeziona lo storage delle conversazioni
var ConversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv"},
	Short:   "Inspect stored conversations",
	Example: `  council conversations list
  council conversations show 7d3f1b0e-4c1a-4f61-9d7e-3b0c9a2f5e11
  council conversations delete 7d3f1b0e-4c1a-4f61-9d7e-3b0c9a2f5e11`,
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, most recent first",
	RunE:  runConversationsList,
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a conversation as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsShow,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsDelete,
}

func init() {
	ConversationsCmd.AddCommand(conversationsListCmd)
	ConversationsCmd.AddCommand(conversationsShowCmd)
	ConversationsCmd.AddCommand(conversationsDeleteCmd)
}

func openStore(cmd *cobra.Command) (*conversation.Store, func(), error) {
	db, err := initDB(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}
	return conversation.NewStore(db.DB), func() { db.Close() }, nil
}

func runConversationsList(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	list, err := store.List(context.Background())
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println("No conversations stored")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %5s  %s\n", "ID", "UPDATED", "MSGS", "TITLE")
	for _, c := range list {
		fmt.Printf("%-36s  %-20s  %5d  %s\n", c.ID, c.UpdatedAt.Format("2006-01-02 15:04:05"), c.MessageCount, c.Title)
	}
	return nil
}

func runConversationsShow(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	conv, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(conv)
}

func runConversationsDelete(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	deleted, err := store.Delete(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("✓ Conversation '%s' deleted\n", deleted.Title)
	return nil
}
