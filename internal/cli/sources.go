package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"querydesk/internal/constants"
	"querydesk/internal/di"
	"querydesk/internal/models"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage data sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List owned and shared data sources",
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

			owned := app.DataSources.Owned()
			shared := app.DataSources.Shared()
			if len(owned) == 0 && len(shared) == 0 {
				fmt.Println("No data sources yet, create one with `querydesk sources create`")
				return nil
			}

			if len(owned) > 0 {
				fmt.Println("Owned:")
				for _, src := range owned {
					fmt.Printf("  %-10s %-12s %s (%s@%s:%s/%s)\n", src.ID, src.DatabaseType, src.Name, src.Username, src.Host, src.Port, src.DatabaseName)
				}
			}
			if len(shared) > 0 {
				fmt.Println("Shared with you:")
				for _, src := range shared {
					fmt.Printf("  %-10s %-12s %s\n", src.ID, src.DatabaseType, src.Name)
				}
			}
			return nil
		})
	},
}

var sourcesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one data source including its table definitions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()
			if err := requireAuth(ctx, app); err != nil {
				return err
			}
			src, err := app.Client.DataSource(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%s  %s (%s)\n", src.ID, src.Name, src.DatabaseType)
			if src.Host != "" {
				fmt.Printf("  %s@%s:%s/%s\n", src.Username, src.Host, src.Port, src.DatabaseName)
			}
			for _, table := range src.TableDefinitions {
				fmt.Printf("  table %s\n", table.TableIdentifier)
				for _, col := range table.Columns {
					marker := " "
					if col.IsPrimaryKey {
						marker = "*"
					}
					fmt.Printf("    %s %-24s %s", marker, col.ColumnIdentifier, col.ColumnType)
					if col.ColumnDescription != "" {
						fmt.Printf("  -- %s", col.ColumnDescription)
					}
					fmt.Println()
					for _, rel := range col.Relations {
						fmt.Printf("        -> %s.%s (%s)\n", rel.TableIdentifier, rel.ToColumn, rel.Type)
					}
				}
			}
			return nil
		})
	},
}

var (
	sourceName     string
	sourceType     string
	sourceHost     string
	sourcePort     string
	sourceDatabase string
	sourceUsername string
	sourcePassword string
)

var sourcesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new data source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()
			if err := requireAuth(ctx, app); err != nil {
				return err
			}
			if !constants.IsSupportedDatabaseType(sourceType) {
				return fmt.Errorf("unsupported database type %q, expected one of %v", sourceType, constants.SupportedDatabaseTypes)
			}

			ok := app.DataSources.Create(ctx, models.DataSource{
				Name:         sourceName,
				DatabaseType: sourceType,
				Host:         sourceHost,
				Port:         sourcePort,
				DatabaseName: sourceDatabase,
				Username:     sourceUsername,
				Password:     sourcePassword,
			})
			if !ok {
				return fmt.Errorf("%s", app.DataSources.Err())
			}
			fmt.Printf("Created data source %q\n", sourceName)
			return nil
		})
	},
}

var sourcesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a data source's connection fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()
			if err := requireAuth(ctx, app); err != nil {
				return err
			}
			if err := app.DataSources.Fetch(ctx); err != nil {
				return fmt.Errorf("%s", app.DataSources.Err())
			}

			current, err := app.Client.DataSource(ctx, args[0])
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, &current)

			if err := app.DataSources.Update(ctx, current); err != nil {
				return fmt.Errorf("%s", app.DataSources.Err())
			}
			fmt.Printf("Updated data source %s\n", current.ID)
			return nil
		})
	},
}

var sourcesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a data source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()
			if err := requireAuth(ctx, app); err != nil {
				return err
			}
			if err := app.DataSources.Fetch(ctx); err != nil {
				return fmt.Errorf("%s", app.DataSources.Err())
			}
			if err := app.DataSources.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("%s", app.DataSources.Err())
			}
			fmt.Printf("Deleted data source %s\n", args[0])
			return nil
		})
	},
}

func applyFlagOverrides(cmd *cobra.Command, src *models.DataSource) {
	if cmd.Flags().Changed("name") {
		src.Name = sourceName
	}
	if cmd.Flags().Changed("host") {
		src.Host = sourceHost
	}
	if cmd.Flags().Changed("port") {
		src.Port = sourcePort
	}
	if cmd.Flags().Changed("database") {
		src.DatabaseName = sourceDatabase
	}
	if cmd.Flags().Changed("username") {
		src.Username = sourceUsername
	}
	if cmd.Flags().Changed("password") {
		src.Password = sourcePassword
	}
}

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sourceName, "name", "", "Display name")
	cmd.Flags().StringVar(&sourceHost, "host", "", "Database host")
	cmd.Flags().StringVar(&sourcePort, "port", "", "Database port")
	cmd.Flags().StringVar(&sourceDatabase, "database", "", "Database name")
	cmd.Flags().StringVar(&sourceUsername, "username", "", "Database username")
	cmd.Flags().StringVar(&sourcePassword, "password", "", "Database password")
}

func init() {
	addConnectionFlags(sourcesCreateCmd)
	sourcesCreateCmd.Flags().StringVar(&sourceType, "type", "", "Database type: POSTGRESQL, MYSQL or ORACLE")
	sourcesCreateCmd.MarkFlagRequired("name")
	sourcesCreateCmd.MarkFlagRequired("type")
	sourcesCreateCmd.MarkFlagRequired("host")
	sourcesCreateCmd.MarkFlagRequired("database")

	addConnectionFlags(sourcesUpdateCmd)

	sourcesCmd.AddCommand(sourcesListCmd, sourcesShowCmd, sourcesCreateCmd, sourcesUpdateCmd, sourcesDeleteCmd)
	rootCmd.AddCommand(sourcesCmd)
}
