package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/janekbaraniewski/tokenledger/internal/aggregate"
	"github.com/janekbaraniewski/tokenledger/internal/config"
	"github.com/janekbaraniewski/tokenledger/internal/core"
	"github.com/janekbaraniewski/tokenledger/internal/loader"
	"github.com/janekbaraniewski/tokenledger/internal/pricing"
	"github.com/janekbaraniewski/tokenledger/internal/providers"
	"github.com/janekbaraniewski/tokenledger/internal/providers/shared"
)

type reportFlags struct {
	configPath   string
	since        string
	until        string
	timezone     string
	order        string
	offline      bool
	breakdown    bool
	jsonOutput   bool
	noCache      bool
	debug        bool
	pricingCache string
}

func (f *reportFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/tokenledger/config.toml)")
	pf.StringVar(&f.since, "since", "", "first day to include (YYYYMMDD or YYYY-MM-DD)")
	pf.StringVar(&f.until, "until", "", "last day to include (YYYYMMDD or YYYY-MM-DD)")
	pf.StringVarP(&f.timezone, "timezone", "z", "", "timezone for dates: local, utc or an IANA name")
	pf.StringVarP(&f.order, "order", "o", "", "sort order: asc or desc")
	pf.BoolVar(&f.offline, "offline", false, "use cached or built-in pricing only")
	pf.BoolVarP(&f.breakdown, "breakdown", "b", false, "show per-model breakdown")
	pf.BoolVarP(&f.jsonOutput, "json", "j", false, "print JSON")
	pf.BoolVar(&f.noCache, "no-cache", false, "parse every file, skipping the file cache")
	pf.BoolVarP(&f.debug, "debug", "d", false, "log diagnostics to stderr")
	pf.StringVar(&f.pricingCache, "pricing-cache", "", "pricing cache file")
	_ = pf.MarkHidden("pricing-cache")
}

type reportKind struct {
	use      string
	short    string
	grouping aggregate.Grouping
}

var reportKinds = []reportKind{
	{"daily", "Usage grouped by day", aggregate.ByDay},
	{"weekly", "Usage grouped by ISO week", aggregate.ByWeek},
	{"monthly", "Usage grouped by month", aggregate.ByMonth},
	{"session", "Usage grouped by session", aggregate.BySession},
	{"project", "Usage grouped by project", aggregate.ByProject},
	{"blocks", "Usage grouped by 5-hour billing window", aggregate.ByBlock},
}

func newReportCommands(flags *reportFlags, source string) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(reportKinds))
	for _, kind := range reportKinds {
		kind := kind
		cmds = append(cmds, &cobra.Command{
			Use:   kind.use,
			Short: kind.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runReport(cmd.Context(), cmd, flags, source, kind.grouping)
			},
		})
	}
	return cmds
}

func newSourceCommands(flags *reportFlags) []*cobra.Command {
	var cmds []*cobra.Command
	for _, src := range providers.AllSources() {
		cmd := &cobra.Command{
			Use:     src.Name(),
			Aliases: src.Aliases(),
			Short:   "Reports for " + src.DisplayName() + " logs",
		}
		cmd.AddCommand(newReportCommands(flags, src.Name())...)
		cmds = append(cmds, cmd)
	}
	return cmds
}

// resolveSettings layers explicitly set flags over the config file.
func resolveSettings(cmd *cobra.Command, flags *reportFlags) (config.Settings, error) {
	path := flags.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return config.Settings{}, err
	}

	changed := cmd.Flags().Changed
	if changed("timezone") {
		cfg.Timezone = flags.timezone
	}
	if changed("order") {
		cfg.Order = flags.order
	}
	if changed("offline") {
		cfg.Offline = flags.offline
	}
	if changed("breakdown") {
		cfg.Breakdown = flags.breakdown
	}
	if changed("no-cache") {
		cfg.NoCache = flags.noCache
	}
	if changed("debug") {
		cfg.Debug = flags.debug
	}
	return cfg.Resolve()
}

func checkCapabilities(src shared.Source, grouping aggregate.Grouping) error {
	caps := src.Capabilities()
	switch {
	case grouping == aggregate.ByProject && !caps.HasProjects:
		return fmt.Errorf("%s logs carry no project information", src.DisplayName())
	case grouping == aggregate.ByBlock && !caps.HasBillingBlocks:
		return fmt.Errorf("%s has no billing windows", src.DisplayName())
	}
	return nil
}

func runReport(ctx context.Context, cmd *cobra.Command, flags *reportFlags, sourceName string, grouping aggregate.Grouping) error {
	if ctx == nil {
		ctx = context.Background()
	}
	settings, err := resolveSettings(cmd, flags)
	if err != nil {
		return err
	}
	filter, err := core.NewDateFilter(flags.since, flags.until)
	if err != nil {
		return err
	}
	src, err := providers.SourceByName(sourceName)
	if err != nil {
		return err
	}
	if err := checkCapabilities(src, grouping); err != nil {
		return err
	}

	logger := newLogger(settings.Debug)
	defer func() { _ = logger.Sync() }()

	res, err := loader.New(loader.Options{
		Filter:   filter,
		Location: settings.Location,
		Workers:  settings.Workers,
		NoCache:  settings.NoCache,
		Logger:   logger,
	}).Load(ctx, src)
	if err != nil {
		return fmt.Errorf("loading %s logs: %w", src.Name(), err)
	}

	resolver := pricing.Load(ctx, pricing.Options{
		Offline:   settings.Offline,
		CachePath: flags.pricingCache,
		Logger:    logger,
	})
	logger.Debug("pricing ready", zap.String("origin", string(resolver.Origin())), zap.Int("models", resolver.TableSize()))

	buckets := aggregate.Aggregate(res.Entries, resolver, aggregate.Options{
		By:            grouping,
		Location:      settings.Location,
		BlockDuration: settings.BlockDuration,
		Breakdown:     settings.Breakdown,
		Order:         settings.Order,
	})

	rep := report{
		Source:     src,
		Grouping:   grouping,
		Buckets:    buckets,
		Totals:     aggregate.Totals(buckets),
		Load:       res,
		Pricing:    resolver.Origin(),
		Breakdown:  settings.Breakdown,
		Timezone:   settings.Location.String(),
		DateFilter: filter,
		Locale:     settings.Locale,
	}
	out := cmd.OutOrStdout()
	if flags.jsonOutput {
		return renderJSON(out, rep)
	}
	return renderTable(out, rep)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
