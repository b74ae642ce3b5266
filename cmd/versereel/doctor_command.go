package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"versereel/internal/daemonrun"
	"versereel/internal/deps"
	"versereel/internal/preflight"
	"versereel/internal/scratch"
	"versereel/internal/storage"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, ledger health and disk usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *daemonrun.Runtime) error {
				r := newStatusReport(cmd.OutOrStdout())
				report := r.line

				r.section("Dependencies")
				for _, s := range deps.CheckBinaries(deps.Requirements(rt.Config)) {
					switch {
					case s.Available:
						report(s.Name, statusOK, s.Path)
					case s.Optional:
						report(s.Name, statusWarn, s.Detail)
					default:
						report(s.Name, statusError, s.Detail)
					}
				}

				r.section("Configuration")
				reportResult(report, preflight.CheckCatalog(rt.Config.Passages))
				reportResult(report, preflight.CheckUploadCredentials(rt.Config.Upload))
				if ctx.configSeen {
					report("Config file", statusOK, ctx.configPath)
				} else {
					report("Config file", statusInfo, "not found; defaults in use ("+ctx.configPath+")")
				}

				r.section("Ledger")
				reportResult(report, preflight.CheckLedger(cmd.Context(), rt.Store))
				report("Path", statusInfo, rt.Store.Path())

				r.section("Stages")
				for _, h := range rt.Manager.HealthChecks(cmd.Context()) {
					if h.Ready {
						detail := h.Detail
						if detail == "" {
							detail = "ready"
						}
						report(h.Name, statusOK, detail)
						continue
					}
					report(h.Name, statusWarn, h.Detail)
				}

				r.section("Storage")
				reportStorage(report, rt)

				if r.problems > 0 {
					return fmt.Errorf("doctor found %d problem(s)", r.problems)
				}
				return nil
			})
		},
	}
}

func reportResult(report func(string, statusKind, string), r preflight.Result) {
	switch {
	case r.Passed:
		report(r.Name, statusOK, r.Detail)
	case r.Optional:
		report(r.Name, statusWarn, r.Detail)
	default:
		report(r.Name, statusError, r.Detail)
	}
}

func reportStorage(report func(string, statusKind, string), rt *daemonrun.Runtime) {
	cfg := rt.Config
	if usage, err := storage.Usage(cfg.Paths.OutputDir); err != nil {
		report("Disk", statusWarn, err.Error())
	} else {
		kind := statusOK
		if usage.FreeBytes < preflight.MinFreeBytes {
			kind = statusError
		}
		report("Disk", kind, fmt.Sprintf("%s free of %s (%.1f%% used)",
			humanize.IBytes(usage.FreeBytes), humanize.IBytes(usage.TotalBytes), usage.UsedPercent()))
	}

	reportScratch(report, cfg.ScratchDir())

	size, err := rt.Housekeeper.OutputSize()
	if err != nil {
		report("Output", statusWarn, err.Error())
		return
	}
	detail := humanize.IBytes(uint64(size))
	kind := statusOK
	if cfg.Storage.MaxStorageGB > 0 {
		limit := uint64(cfg.Storage.MaxStorageGB * (1 << 30))
		detail = fmt.Sprintf("%s of %s cap", detail, humanize.IBytes(limit))
		if uint64(size) > limit {
			kind = statusWarn
		}
	}
	report("Output", kind, detail)
}

func reportScratch(report func(string, statusKind, string), dir string) {
	dirs, err := scratch.ListDirectories(dir)
	switch {
	case err != nil:
		report("Scratch", statusWarn, err.Error())
		return
	case len(dirs) == 0:
		report("Scratch", statusOK, "empty")
		return
	}
	var total int64
	for _, d := range dirs {
		total += d.Size
	}
	oldest := dirs[0]
	kind := statusOK
	if time.Since(oldest.ModTime) > scratch.StaleAfter {
		kind = statusWarn
	}
	report("Scratch", kind, fmt.Sprintf("%d dir(s), %s, oldest %s",
		len(dirs), humanize.IBytes(uint64(total)), humanize.Time(oldest.ModTime)))
}
