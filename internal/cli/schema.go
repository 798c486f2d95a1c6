package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"querydesk/internal/apis/dtos"
	"querydesk/internal/di"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Discover a database schema and annotate its columns",
}

var (
	connectType     string
	connectHost     string
	connectPort     string
	connectUsername string
	connectPassword string
	connectDatabase string
)

var schemaConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a database and fetch its schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()
			err := app.SchemaEditor.Connect(ctx, dtos.ConnectRequest{
				Type:     connectType,
				Host:     connectHost,
				Port:     connectPort,
				Username: connectUsername,
				Password: connectPassword,
				Database: connectDatabase,
			})
			if err != nil {
				return fmt.Errorf("%s", app.SchemaEditor.Err())
			}

			schema := app.SchemaEditor.Schema()
			fmt.Printf("Connected, %d tables discovered\n", len(schema.Tables))
			return nil
		})
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored schema with annotations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			if err := app.SchemaEditor.Load(cmd.Context()); err != nil {
				return err
			}
			schema := app.SchemaEditor.Schema()
			if schema == nil {
				return fmt.Errorf("no schema stored, run `querydesk schema connect` first")
			}

			for _, table := range schema.Tables {
				fmt.Printf("table %s\n", table.Name)
				for _, column := range table.Columns {
					marker := " "
					if table.IsPrimaryKey(column.Name) {
						marker = "*"
					}
					fmt.Printf("  %s %-24s %s", marker, column.Name, column.Dtype)
					if fk := table.ForeignKeyFor(column.Name); fk != nil {
						fmt.Printf("  -> %s", fk.References)
					}
					if column.Description != "" {
						fmt.Printf("  -- %s", column.Description)
					}
					fmt.Println()
				}
			}
			return nil
		})
	},
}

var schemaDescribeCmd = &cobra.Command{
	Use:   "describe <table> <column> <description...>",
	Short: "Set a column description (persisted immediately)",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()
			if err := app.SchemaEditor.Load(ctx); err != nil {
				return err
			}
			text := strings.Join(args[2:], " ")
			if err := app.SchemaEditor.SetColumnDescription(ctx, args[0], args[1], text); err != nil {
				return err
			}
			fmt.Printf("%s.%s described\n", args[0], args[1])
			return nil
		})
	},
}

var schemaAnnotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Walk every column interactively, then save all at once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()
			if err := app.SchemaEditor.Load(ctx); err != nil {
				return err
			}
			schema := app.SchemaEditor.Schema()
			if schema == nil {
				return fmt.Errorf("no schema stored, run `querydesk schema connect` first")
			}

			if err := app.TableSchema.Init(ctx, schema); err != nil {
				return err
			}

			fmt.Println("Enter a description per column, empty keeps the current one, Ctrl-D stops.")
		walk:
			for _, table := range schema.Tables {
				for _, column := range table.Columns {
					current := app.TableSchema.Description(table.Name, column.Name)
					prompt := fmt.Sprintf("%s.%s (%s)", table.Name, column.Name, column.Dtype)
					if current != "" {
						prompt += fmt.Sprintf(" [%s]", current)
					}
					line, err := promptLine(prompt + ": ")
					if err != nil {
						// EOF ends the walk, edits so far still save.
						break walk
					}
					if line != "" {
						app.TableSchema.SetDescription(table.Name, column.Name, line)
					}
				}
			}

			if err := app.TableSchema.Save(ctx); err != nil {
				return err
			}
			fmt.Println("Annotations saved")
			return nil
		})
	},
}

func init() {
	schemaConnectCmd.Flags().StringVar(&connectType, "type", "", "Database type")
	schemaConnectCmd.Flags().StringVar(&connectHost, "host", "", "Database host")
	schemaConnectCmd.Flags().StringVar(&connectPort, "port", "", "Database port")
	schemaConnectCmd.Flags().StringVar(&connectUsername, "username", "", "Database username")
	schemaConnectCmd.Flags().StringVar(&connectPassword, "password", "", "Database password")
	schemaConnectCmd.Flags().StringVar(&connectDatabase, "database", "", "Database name")
	schemaConnectCmd.MarkFlagRequired("type")
	schemaConnectCmd.MarkFlagRequired("host")
	schemaConnectCmd.MarkFlagRequired("username")
	schemaConnectCmd.MarkFlagRequired("database")

	schemaCmd.AddCommand(schemaConnectCmd, schemaShowCmd, schemaDescribeCmd, schemaAnnotateCmd)
	rootCmd.AddCommand(schemaCmd)
}
