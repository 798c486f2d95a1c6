package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"querydesk/internal/constants"
	"querydesk/internal/di"
	"querydesk/internal/models"
)

var chatSourceID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a data source in natural language",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()
			if err := requireAuth(ctx, app); err != nil {
				return err
			}
			if err := app.DataSources.Fetch(ctx); err != nil {
				return fmt.Errorf("%s", app.DataSources.Err())
			}

			if chatSourceID != "" {
				if err := app.DataSources.Select(chatSourceID); err != nil {
					return err
				}
			} else if err := pickDataSource(app); err != nil {
				return err
			}

			source := app.DataSources.Selected()
			if source == nil {
				return fmt.Errorf("no data source selected")
			}
			fmt.Printf("Chatting with %s (%s). Type /help for commands.\n", source.Name, source.DatabaseType)

			if suggestions, err := app.Client.Suggestions(ctx, source.ID); err == nil && len(suggestions) > 0 {
				fmt.Println("Try asking:")
				for _, s := range suggestions {
					fmt.Printf("  - %s\n", s)
				}
			}

			return chatLoop(ctx, app, source.ID)
		})
	},
}

func pickDataSource(app di.App) error {
	owned := app.DataSources.Owned()
	shared := app.DataSources.Shared()
	all := append(append([]models.DataSource{}, owned...), shared...)
	if len(all) == 0 {
		return fmt.Errorf("no data sources available, create one with `querydesk sources create`")
	}
	if len(all) == 1 {
		return app.DataSources.Select(all[0].ID)
	}

	fmt.Println("Pick a data source:")
	for i, src := range all {
		fmt.Printf("  %d) %s (%s)\n", i+1, src.Name, src.DatabaseType)
	}
	line, err := promptLine("> ")
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(line)
	if err != nil || index < 1 || index > len(all) {
		return fmt.Errorf("invalid choice %q", line)
	}
	return app.DataSources.Select(all[index-1].ID)
}

func chatLoop(ctx context.Context, app di.App, sourceID string) error {
	userID := app.Auth.User().ID
	scanner := bufio.NewScanner(os.Stdin)

	conv := app.Conversation.NewConversation(sourceID)
	app.Conversation.Select(conv.ID)
	fmt.Printf("[%s]\n", conv.Title)

	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := chatCommand(app, sourceID, line)
			if err != nil {
				fmt.Println(err)
			}
			if done {
				return nil
			}
			continue
		}

		conversationID := app.Conversation.Selected()
		if conversationID == "" {
			conv := app.Conversation.NewConversation(sourceID)
			app.Conversation.Select(conv.ID)
			conversationID = conv.ID
		}

		app.Conversation.AddMessage(conversationID, models.NewChatMessage(userID, constants.MessageTypeUser, line))
		app.Conversation.UpdatePreview(sourceID, conversationID, line)

		res, err := app.Client.Query(ctx, sourceID, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}

		answer := models.NewChatMessage("assistant", constants.MessageTypeAssistant, fmt.Sprintf("%d rows", res.RowCount))
		answer.SQL = res.SQL
		app.Conversation.AddMessage(conversationID, answer)

		fmt.Printf("sql> %s\n", res.SQL)
		printRows(res.Rows)
	}
}

// chatCommand handles slash commands; it reports whether the loop
// should exit.
func chatCommand(app di.App, sourceID, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		fmt.Println("/new        start a new conversation")
		fmt.Println("/list       list conversations for this data source")
		fmt.Println("/switch n   switch to the n-th conversation")
		fmt.Println("/history    show the current conversation")
		fmt.Println("/clear      clear the current conversation's messages")
		fmt.Println("/delete     delete the current conversation")
		fmt.Println("/quit       leave the chat")
		return false, nil
	case "/new":
		conv := app.Conversation.NewConversation(sourceID)
		app.Conversation.Select(conv.ID)
		fmt.Printf("[%s]\n", conv.Title)
		return false, nil
	case "/list":
		for i, conv := range app.Conversation.Conversations(sourceID) {
			marker := " "
			if conv.ID == app.Conversation.Selected() {
				marker = "*"
			}
			fmt.Printf("%s %d) %s  %s\n", marker, i+1, conv.Title, conv.Preview)
		}
		return false, nil
	case "/switch":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /switch n")
		}
		convs := app.Conversation.Conversations(sourceID)
		index, err := strconv.Atoi(fields[1])
		if err != nil || index < 1 || index > len(convs) {
			return false, fmt.Errorf("invalid conversation %q", fields[1])
		}
		app.Conversation.Select(convs[index-1].ID)
		fmt.Printf("[%s]\n", convs[index-1].Title)
		return false, nil
	case "/history":
		for _, msg := range app.Conversation.Messages(app.Conversation.Selected()) {
			fmt.Printf("%s> %s\n", msg.Type, msg.Body)
			if msg.SQL != "" {
				fmt.Printf("sql> %s\n", msg.SQL)
			}
		}
		return false, nil
	case "/clear":
		app.Conversation.ClearMessages(app.Conversation.Selected())
		return false, nil
	case "/delete":
		app.Conversation.DeleteConversation(sourceID, app.Conversation.Selected())
		fmt.Println("Conversation deleted")
		return false, nil
	case "/quit", "/exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
}

func printRows(rows []map[string]interface{}) {
	const maxRows = 20
	for i, row := range rows {
		if i == maxRows {
			fmt.Printf("... %d more rows\n", len(rows)-maxRows)
			return
		}
		parts := make([]string, 0, len(row))
		for k, v := range row {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
		fmt.Println("  " + strings.Join(parts, "  "))
	}
}

func init() {
	chatCmd.Flags().StringVar(&chatSourceID, "source", "", "Data source id to chat with")
	rootCmd.AddCommand(chatCmd)
}
