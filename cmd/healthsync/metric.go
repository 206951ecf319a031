package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dtgoitia/healthsync/internal/domain"
	"github.com/dtgoitia/healthsync/internal/suggestions"
)

var metricCmd = &cobra.Command{
	Use:   "metric",
	Short: "Record and list symptom observations",
}

var metricAddCmd = &cobra.Command{
	Use:   "add <symptom-id>",
	Short: "Record a metric for a symptom",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		symptomID := args[0]
		if _, ok := app.symptoms.Get(symptomID); !ok {
			return fmt.Errorf("symptom %s not found", symptomID)
		}

		intensity, _ := cmd.Flags().GetString("intensity")
		numeric, _ := cmd.Flags().GetInt("numeric")
		notes, _ := cmd.Flags().GetString("notes")

		m := domain.Metric{
			SymptomID:    symptomID,
			Date:         time.Now(),
			Notes:        notes,
			LastModified: time.Now(),
		}
		switch {
		case numeric != 0:
			if numeric < 1 || numeric > 10 {
				return fmt.Errorf("--numeric must be in 1..10, got %d", numeric)
			}
			m = domain.SetNumericIntensity(m, numeric)
		case intensity != "":
			switch domain.Intensity(intensity) {
			case domain.IntensityLow, domain.IntensityMedium, domain.IntensityHigh:
				m.Intensity = domain.Intensity(intensity)
			default:
				return fmt.Errorf("--intensity must be low, medium or high, got %q", intensity)
			}
		default:
			return fmt.Errorf("one of --intensity or --numeric is required")
		}

		added, err := app.metrics.Add(m)
		if err != nil {
			return err
		}
		fmt.Printf("Recorded %s (%s, %s)\n", added.ID, symptomID, added.Intensity)
		return nil
	},
}

var metricLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recorded metrics, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		days, _ := cmd.Flags().GetInt("days")
		var metrics []domain.Metric
		if days > 0 {
			metrics = app.metrics.GetMetricsOfLastNDays(days)
		} else {
			metrics = app.metrics.GetAll()
		}

		for _, m := range metrics {
			name := suggestions.UnknownSymptomName
			if sym, ok := app.symptoms.Get(m.SymptomID); ok {
				name = sym.Name
			}
			line := fmt.Sprintf("%s  %s  %-6s  %s", m.Date.Local().Format("2006-01-02 15:04"), m.ID, m.Intensity, name)
			if m.Notes != "" {
				line += "  " + m.Notes
			}
			fmt.Println(line)
		}
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Show recently tracked symptoms, one entry each",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		days, _ := cmd.Flags().GetInt("days")
		recent := app.metrics.GetMetricsOfLastNDays(days)
		for _, s := range suggestions.EnrichAndSquash(recent, app.symptoms, time.Now()) {
			var when string
			switch {
			case s.RecordedToday && s.RecordedInPast:
				when = "today and earlier"
			case s.RecordedToday:
				when = "today"
			default:
				when = "earlier"
			}
			fmt.Printf("%s  %s  (recorded %s)\n", s.SymptomID, s.Name, when)
		}
		return nil
	},
}

func init() {
	metricAddCmd.Flags().String("intensity", "", "Categorical intensity: low, medium or high")
	metricAddCmd.Flags().Int("numeric", 0, "Numeric intensity 1..10, embedded in the notes")
	metricAddCmd.Flags().String("notes", "", "Free-form notes")
	metricLsCmd.Flags().Int("days", 0, "Only show metrics of the last N days")
	suggestCmd.Flags().Int("days", 30, "Look-back window in days")
	metricCmd.AddCommand(metricAddCmd, metricLsCmd)
	rootCmd.AddCommand(metricCmd, suggestCmd)
}
