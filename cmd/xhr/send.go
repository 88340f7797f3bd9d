package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/frankli0324/go-xhr/internal/conf"
	"github.com/frankli0324/go-xhr/internal/dispatcher"
	"github.com/frankli0324/go-xhr/internal/log"
	"github.com/frankli0324/go-xhr/internal/model"
	"github.com/frankli0324/go-xhr/internal/wire"
)

func newSendCmd() *cobra.Command {
	var (
		rawURL, method, data, file string
		headers                    []string
		metrics                    bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Dispatch one or more requests and print the responses",
		Example: `  xhr send --url http://localhost:8080/items -X post -H 'Content-Type: application/json' -d '{"a":1}'
  xhr send -f requests.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfgs []*model.Config
			var err error
			if file != "" {
				cfgs, err = readRequestFile(file)
			} else {
				var cfg *model.Config
				cfg, err = configFromFlags(rawURL, method, data, headers)
				cfgs = []*model.Config{cfg}
			}
			if err != nil {
				return err
			}
			return runSend(cmd.Context(), cmd.OutOrStdout(), cfgs, metrics || conf.Server.Metrics)
		},
	}
	cmd.Flags().StringVar(&rawURL, "url", "", "Request URL")
	cmd.Flags().StringVarP(&method, "method", "X", "", "Request method (default GET)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Request header 'Name: value', repeatable")
	cmd.Flags().StringVarP(&data, "data", "d", "", "Request body, @path reads it from a file")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file holding one request or a list of requests")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Print dispatch metrics after the responses")
	cmd.MarkFlagsMutuallyExclusive("file", "url")
	return cmd
}

func configFromFlags(rawURL, method, data string, headers []string) (*model.Config, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("--url or --file is required")
	}
	cfg := &model.Config{URL: rawURL, Method: method}
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Name: value'", h)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		cfg.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	switch {
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, err
		}
		cfg.Data = b
	case data != "":
		cfg.Data = data
	}
	return cfg, nil
}

func readRequestFile(path string) ([]*model.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseRequests(b)
}

// parseRequests accepts a single request mapping or a sequence of them.
func parseRequests(b []byte) ([]*model.Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parsing requests: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("no requests found")
	}
	var cfgs []*model.Config
	switch node := doc.Content[0]; node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&cfgs); err != nil {
			return nil, fmt.Errorf("parsing requests: %w", err)
		}
	case yaml.MappingNode:
		cfg := &model.Config{}
		if err := node.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parsing request: %w", err)
		}
		cfgs = append(cfgs, cfg)
	default:
		return nil, fmt.Errorf("line %d: expected a request or a list of requests", node.Line)
	}
	for i, cfg := range cfgs {
		if cfg == nil || cfg.URL == "" {
			return nil, fmt.Errorf("request %d: url is required", i)
		}
	}
	return cfgs, nil
}

// runSend dispatches every request before waiting on any of them.
func runSend(ctx context.Context, out io.Writer, cfgs []*model.Config, withMetrics bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var created *wire.Handle
	dl := conf.Server.Dialer()
	defer dl.CloseIdle()
	factory := conf.Server.HandleFactory(dl)
	factory.OnCreate = func(h *wire.Handle) { created = h }

	d := &dispatcher.Dispatcher{Factory: factory.NewHandle}
	d.Use(dispatcher.Logging())
	if lim := conf.Server.Limiter(); lim != nil {
		d.Use(dispatcher.RateLimit(lim))
	}
	reg := prometheus.NewRegistry()
	if withMetrics {
		mw, err := dispatcher.Metrics(reg)
		if err != nil {
			return err
		}
		d.Use(mw)
	}

	var result *multierror.Error
	handles := make([]*wire.Handle, len(cfgs))
	for i, cfg := range cfgs {
		created = nil
		if err := d.Dispatch(ctx, cfg); err != nil {
			result = multierror.Append(result, fmt.Errorf("request %d (%s): %w", i, cfg.URL, err))
			continue
		}
		handles[i] = created
	}
	for i, h := range handles {
		if h == nil {
			continue
		}
		resp, err := h.Future().Wait(ctx)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("request %d (%s): %w", i, cfgs[i].URL, err))
			continue
		}
		log.Debug(ctx, "Response received", "url", cfgs[i].URL, "status", resp.StatusCode, "size", len(resp.Body))
		fmt.Fprintf(out, "%s %s\n%s\n", resp.Proto, resp.Status, resp.Body)
	}

	if withMetrics {
		if err := writeMetrics(out, reg); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func writeMetrics(out io.Writer, reg prometheus.Gatherer) error {
	mfs, err := reg.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(out, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
