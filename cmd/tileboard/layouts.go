package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeusync/tileboard/internal/core/storage/interfaces"
	"github.com/zeusync/tileboard/internal/injector"
)

var layoutsCmd = &cobra.Command{
	Use:   "layouts",
	Short: "Manage saved layouts",
	Long: `Inspect the layouts renderers saved with save_layout.

Available subcommands:
  list   - List saved layouts, newest first
  delete - Delete a layout by name`,
}

var layoutsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved layouts, newest first",
	Args:  cobra.NoArgs,
	RunE:  runLayoutsList,
}

var layoutsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a layout by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayoutsDelete,
}

func init() {
	layoutsCmd.AddCommand(layoutsListCmd, layoutsDeleteCmd)
}

func openLayouts() (interfaces.LayoutStore, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, cleanup, err := injector.InitializeLayoutStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		cleanup()
		return nil, nil, fmt.Errorf("layout storage is disabled (storage.path is empty)")
	}
	return store, cleanup, nil
}

func runLayoutsList(cmd *cobra.Command, _ []string) error {
	store, cleanup, err := openLayouts()
	if err != nil {
		return err
	}
	defer cleanup()

	list, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no saved layouts")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTILES\tACTIVE\tUPDATED\tID")
	for _, l := range list {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", l.Name, l.Tiles, l.Active, l.UpdatedAt.Format(time.RFC3339), l.ID)
	}
	return tw.Flush()
}

func runLayoutsDelete(cmd *cobra.Command, args []string) error {
	store, cleanup, err := openLayouts()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}
