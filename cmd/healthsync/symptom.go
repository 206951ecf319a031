package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dtgoitia/healthsync/internal/domain"
)

var symptomCmd = &cobra.Command{
	Use:   "symptom",
	Short: "Manage tracked symptoms",
}

var symptomAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new symptom",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		otherNames, _ := cmd.Flags().GetStringSlice("other-names")
		sym, err := app.symptoms.Add(domain.Symptom{
			Name:         args[0],
			OtherNames:   otherNames,
			LastModified: time.Now(),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", sym.Name, sym.ID)
		return nil
	},
}

var symptomLsCmd = &cobra.Command{
	Use:   "ls [query]",
	Short: "List symptoms, optionally filtered by prefix search",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		var symptoms []domain.Symptom
		if len(args) == 1 {
			symptoms = app.symptoms.Search(args[0])
		} else {
			symptoms = app.symptoms.GetAll()
		}
		for _, s := range symptoms {
			line := fmt.Sprintf("%s  %s", s.ID, s.Name)
			if len(s.OtherNames) > 0 {
				line += "  (" + strings.Join(s.OtherNames, ", ") + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var symptomRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a symptom",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		id := args[0]
		if _, ok := app.symptoms.Get(id); !ok {
			return fmt.Errorf("symptom %s not found", id)
		}
		// Deletion is blocked while any metric still references the
		// symptom; only deletions pulled from other devices can create
		// orphans.
		if app.metrics.IsSymptomUsedInHistory(id) {
			return fmt.Errorf("symptom %s still has recorded metrics; delete those first", id)
		}
		app.symptoms.Delete(id)
		fmt.Printf("Deleted %s\n", id)
		return nil
	},
}

var symptomRenameCmd = &cobra.Command{
	Use:   "rename <id> <new-name>",
	Short: "Rename a symptom",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		sym, ok := app.symptoms.Get(args[0])
		if !ok {
			return fmt.Errorf("symptom %s not found", args[0])
		}
		sym.Name = args[1]
		sym.LastModified = time.Now()
		if err := app.symptoms.Update(sym); err != nil {
			return err
		}
		fmt.Printf("Renamed %s to %s\n", sym.ID, sym.Name)
		return nil
	},
}

func init() {
	symptomAddCmd.Flags().StringSlice("other-names", nil, "Alternate names used for search")
	symptomCmd.AddCommand(symptomAddCmd, symptomLsCmd, symptomRmCmd, symptomRenameCmd)
	rootCmd.AddCommand(symptomCmd)
}
