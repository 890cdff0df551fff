package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4"))
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func newHistoryCmd(configPath *string) *cobra.Command {
	var days int
	var device string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded battery history",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer m.Store().Close()

			fmt.Println(styleTitle.Render(fmt.Sprintf("Desktop battery history (last %d days)", days)))
			desktop := m.DesktopHistory(days)
			if len(desktop) == 0 {
				fmt.Println(styleMuted.Render("  no records"))
			}
			for _, rec := range desktop {
				fmt.Printf("  %s  charge %s/%s mAh  health %s  cycles %s  %s\n",
					rec.Timestamp.Format("2006-01-02 15:04"),
					optInt64(rec.CurrentCapacity), optInt64(rec.MaxCapacity),
					optPct(rec.BatteryHealth), optInt64(rec.CycleCount),
					chargingLabel(rec.IsCharging),
				)
			}

			fmt.Println()
			fmt.Println(styleTitle.Render(fmt.Sprintf("Mobile battery history (last %d days)", days)))
			mobile := m.MobileHistory(device, days)
			if len(mobile) == 0 {
				fmt.Println(styleMuted.Render("  no records"))
			}
			for _, rec := range mobile {
				fmt.Printf("  %s  %s  charge %s%%  health %s  cycles %s\n",
					rec.Timestamp.Format("2006-01-02 15:04"),
					rec.DeviceID,
					optInt64(rec.BatteryCharge), optPct(rec.BatteryHealth),
					optInt64(rec.ChargeCycles),
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "history window in days")
	cmd.Flags().StringVar(&device, "device", "", "filter mobile history to one device id")
	return cmd
}

func newSummaryCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show monthly aggregates for the trailing year",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer m.Store().Close()

			summary := m.MonthlySummary()

			fmt.Println(styleTitle.Render("Desktop monthly summary"))
			fmt.Println(styleHeader.Render("  month    records  avg health  max cycles"))
			if len(summary.Desktop) == 0 {
				fmt.Println(styleMuted.Render("  no records"))
			}
			for _, st := range summary.Desktop {
				fmt.Printf("  %-8s %7d  %10s  %10s\n",
					st.Month, st.RecordCount, optPct(st.AvgHealth), optInt64(st.MaxCycles))
			}

			fmt.Println()
			fmt.Println(styleTitle.Render("Mobile monthly summary"))
			fmt.Println(styleHeader.Render("  device             month    records  avg health"))
			if len(summary.Mobile) == 0 {
				fmt.Println(styleMuted.Render("  no records"))
			}
			for _, st := range summary.Mobile {
				name := "unknown"
				if st.DeviceName != nil {
					name = *st.DeviceName
				} else if st.DeviceModel != nil {
					name = *st.DeviceModel
				}
				fmt.Printf("  %-18s %-8s %7d  %10s\n",
					name, st.Month, st.RecordCount, optPct(st.AvgHealth))
			}
			return nil
		},
	}
}

func newDevicesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices with recorded history",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer m.Store().Close()

			list := m.Devices()

			fmt.Println(styleTitle.Render("Desktop devices"))
			for _, d := range list.Desktop {
				fmt.Printf("  %s\n", deviceLabel(d.DeviceName, d.DeviceIdentifier))
				fmt.Println(styleMuted.Render(fmt.Sprintf("    %d records, %s to %s",
					d.RecordCount,
					d.FirstSeen.Format("2006-01-02"), d.LastSeen.Format("2006-01-02"))))
			}
			if len(list.Desktop) == 0 {
				fmt.Println(styleMuted.Render("  none"))
			}

			fmt.Println()
			fmt.Println(styleTitle.Render("Mobile devices"))
			for _, d := range list.Mobile {
				fmt.Printf("  %s\n", deviceLabel(d.DeviceName, &d.DeviceID))
				fmt.Println(styleMuted.Render(fmt.Sprintf("    %d records, %s to %s",
					d.RecordCount,
					d.FirstSeen.Format("2006-01-02"), d.LastSeen.Format("2006-01-02"))))
			}
			if len(list.Mobile) == 0 {
				fmt.Println(styleMuted.Render("  none"))
			}
			return nil
		},
	}
}

func deviceLabel(name, id *string) string {
	var parts []string
	if name != nil && *name != "" {
		parts = append(parts, *name)
	}
	if id != nil && *id != "" {
		parts = append(parts, "("+*id+")")
	}
	if len(parts) == 0 {
		return "unknown device"
	}
	return strings.Join(parts, " ")
}

func chargingLabel(charging *bool) string {
	switch {
	case charging == nil:
		return ""
	case *charging:
		return "charging"
	default:
		return "on battery"
	}
}

func optInt64(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func optPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}
