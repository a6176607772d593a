// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/admissions-portal/portal/internal/observability"
)

// probeTimeout bounds each health probe.
const probeTimeout = 2 * time.Second

// ServeStatus describes a running serve process as seen through its health
// endpoints.
type ServeStatus struct {
	Addr   string `json:"addr"`
	Live   bool   `json:"live"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

type statusOptions struct {
	jsonOutput bool
}

func newStatusCmd(a *app) *cobra.Command {
	opts := &statusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the health of a running serve process",
		Long: `Queries the liveness and readiness probes of the serve process listening
on --metrics-addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.MetricsAddr == "" {
				return oops.Code("CONFIG_INVALID").With("field", "metrics_addr").Errorf("metrics address is disabled")
			}
			client := &http.Client{Timeout: probeTimeout}
			st := queryServeStatus(cmd.Context(), client, a.cfg.MetricsAddr)

			if opts.jsonOutput {
				out, err := formatStatusJSON(st)
				if err != nil {
					return err
				}
				cmd.Println(out)
			} else {
				cmd.Print(formatStatusTable(st))
			}
			if !st.Ready {
				return oops.Code("SERVE_NOT_READY").With("addr", st.Addr).Errorf("portal is not ready")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "output status as JSON")
	return cmd
}

// queryServeStatus probes the liveness and readiness endpoints at addr.
func queryServeStatus(ctx context.Context, client *http.Client, addr string) ServeStatus {
	st := ServeStatus{Addr: addr}
	base := "http://" + addr

	live, detail := probe(ctx, client, base+observability.LivenessPath)
	st.Live = live
	if !live {
		st.Detail = detail
		return st
	}
	st.Ready, st.Detail = probe(ctx, client, base+observability.ReadinessPath)
	return st
}

func probe(ctx context.Context, client *http.Client, url string) (bool, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err.Error()
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Sprintf("failed to connect: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256)) //nolint:errcheck // body is informational
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Sprintf("%d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return true, ""
}

func formatStatusTable(st ServeStatus) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ADDR\tLIVE\tREADY\tDETAIL")
	detail := st.Detail
	if detail == "" {
		detail = "-"
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Addr, yesNo(st.Live), yesNo(st.Ready), detail)

	_ = w.Flush()
	return b.String()
}

func formatStatusJSON(st ServeStatus) (string, error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", oops.Code("STATUS_ENCODE_FAILED").Wrap(err)
	}
	return string(data), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
