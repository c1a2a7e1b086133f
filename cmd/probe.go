package cmd

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/bnema/eitype/internal/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Establish an EIS session and report what the server offers",
	Long: `Connects to the EIS server exactly like a typing run would, waits for a
resumed keyboard device, prints the negotiated interface versions and
disconnects without sending any key.`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

var (
	probeTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	probeLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func runProbe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	s, handoff, err := openSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = handoff.Close() }()
	defer func() { _ = s.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, probeTitle.Render("keyboard ready"))
	fmt.Fprintf(out, "%s %s\n", probeLabel.Render("socket:"), handoff.Source)
	fmt.Fprintf(out, "%s %d\n", probeLabel.Render("serial:"), s.Serial())
	fmt.Fprintln(out, probeLabel.Render("interfaces:"))

	ifaces := s.Interfaces()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, name := range slices.Sorted(maps.Keys(ifaces)) {
		if _, err := fmt.Fprintf(w, "  %s\tv%d\n", name, ifaces[name]); err != nil {
			return err
		}
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
