package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"bear-monitor/internal/alert"
	"bear-monitor/internal/models"
	"bear-monitor/internal/report"
	"bear-monitor/internal/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	replayStartFlag    string
	replayIntervalFlag time.Duration
	replayXLSXFlag     string
	replaySendFlag     bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Feed recorded telemetry lines through the classifier",
	Long: `Replay a recorded serial log line by line. Each line is stamped with a
simulated receipt time starting at --start and advancing by --interval.

Examples:
  bear-monitor replay capture.log
  bear-monitor replay capture.log --start 2026-10-14T08:00:00Z --interval 500ms
  bear-monitor replay capture.log --xlsx report.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return replayCommand(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayStartFlag, "start", "", "Simulated time of the first line (RFC3339, default now)")
	replayCmd.Flags().DurationVar(&replayIntervalFlag, "interval", time.Second, "Simulated time between lines")
	replayCmd.Flags().StringVar(&replayXLSXFlag, "xlsx", "", "Write the daily report to this file")
	replayCmd.Flags().BoolVar(&replaySendFlag, "send-alerts", false, "Relay critical alerts (requires login)")
}

// replayOptions 回放参数
type replayOptions struct {
	Start           time.Time
	Interval        time.Duration
	Location        *time.Location
	HistoryCapacity int
	Alerts          session.AlertSubmitter
}

// replayResult 回放统计
type replayResult struct {
	Lines    int
	Samples  int
	Warnings []models.WarningEvent
	Session  *session.Session
}

func replayCommand(ctx context.Context, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	start := time.Now().In(loc)
	if replayStartFlag != "" {
		start, err = time.Parse(time.RFC3339, replayStartFlag)
		if err != nil {
			return fmt.Errorf("invalid --start %q: %w", replayStartFlag, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	opts := replayOptions{
		Start:           start,
		Interval:        replayIntervalFlag,
		Location:        loc,
		HistoryCapacity: a.cfg.Session.HistoryCapacity,
	}
	if replaySendFlag {
		relay := alert.NewHTTPRelay(a.cfg.Alert.RelayURL, a.cfg.Alert.Timeout, a.logger)
		d := alert.NewDispatcher(relay, a.auth, nil, alert.Options{
			QueueSize: a.cfg.Alert.QueueSize,
			Timeout:   a.cfg.Alert.Timeout,
			Enabled:   a.settings.HealthAlertsEnabled,
		}, a.logger)
		d.Start(ctx)
		defer d.Stop()
		opts.Alerts = d
	}

	res, err := replay(f, opts, a.logger)
	if err != nil {
		return err
	}
	printReplay(out, res, loc)

	if replayXLSXFlag != "" {
		data, err := report.GenerateDailyReport(res.Session.DayStart(), res.Session.History(), res.Session.Warnings())
		if err != nil {
			return err
		}
		if err := os.WriteFile(replayXLSXFlag, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(out, "Report written to %s\n", replayXLSXFlag)
	}
	return nil
}

// replay 逐行送入会话，时钟按 Interval 递增
func replay(r io.Reader, opts replayOptions, logger *zap.Logger) (*replayResult, error) {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	now := opts.Start
	clock := func() time.Time { return now }

	sess := session.New(nil, opts.Alerts, session.Options{
		HistoryCapacity: opts.HistoryCapacity,
		Location:        opts.Location,
		Now:             clock,
	}, logger)

	res := &replayResult{Session: sess}
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		if !first {
			now = now.Add(opts.Interval)
		}
		first = false
		res.Lines++

		if event := sess.Ingest(scanner.Text()); event != nil {
			res.Warnings = append(res.Warnings, *event)
		}
		if latest := sess.Latest(); latest != nil && latest.Timestamp.Equal(now) {
			res.Samples++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read telemetry: %w", err)
	}
	return res, nil
}

var (
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func severityLabel(sev models.Severity) string {
	if sev == models.SeverityCritical {
		return criticalStyle.Render(sev.String())
	}
	return warningStyle.Render(sev.String())
}

func printReplay(out io.Writer, res *replayResult, loc *time.Location) {
	fmt.Fprintf(out, "Lines: %d  Samples: %d  Warnings: %d\n", res.Lines, res.Samples, len(res.Warnings))
	if len(res.Warnings) == 0 {
		return
	}
	// 着色列放在最后，避免 ANSI 转义影响 tabwriter 对齐
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTRIGGERS\tHR\tSPO2\tSEVERITY")
	for _, w := range res.Warnings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			w.Time.In(loc).Format("2006-01-02 15:04:05"),
			w.Triggers(),
			formatOptional(w.HeartRateAbnormal),
			formatOptional(w.SpO2Abnormal),
			severityLabel(w.Severity),
		)
	}
	_ = tw.Flush()
}

func formatOptional(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *p)
}
