// Command presenced runs the presence daemon and provides a small client
// CLI against its admin API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/presenced/internal/config"
	"git.home.luguber.info/inful/presenced/internal/daemon"
	"git.home.luguber.info/inful/presenced/internal/metrics"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"presenced.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`
	Addr    string `short:"a" help:"Admin API address for client commands" default:"http://127.0.0.1:8751"`

	Run struct{} `cmd:"" help:"Run the presence daemon"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Status struct {
		History bool `help:"Show recent status transitions instead of the current status"`
		Limit   int  `help:"Number of transitions to show" default:"20"`
	} `cmd:"" help:"Show the current status"`

	Submit struct {
		Label    string `arg:"" help:"Status label"`
		Source   string `short:"s" help:"Entry source" default:"manual_override" enum:"scheduled,manual_override,tool_pushed"`
		Priority int    `short:"p" help:"Priority (0 uses the source default)"`
		TTL      int    `short:"t" help:"Lifetime in seconds (0 means permanent)"`
		Silent   bool   `help:"Suppress wake while this status is active"`
	} `cmd:"" help:"Submit a status candidate"`

	Revoke struct {
		ID string `arg:"" help:"Entry id to revoke"`
	} `cmd:"" help:"Revoke a status candidate by id"`

	Wake struct{} `cmd:"" help:"Trigger the interaction wake status"`

	Regenerate struct{} `cmd:"" help:"Force regeneration of today's schedule"`
}

func main() {
	kctx := kong.Parse(&CLI)

	var err error
	switch kctx.Command() {
	case "run":
		err = runDaemon()
	case "init":
		err = config.Init(CLI.Config, CLI.Init.Force)
	case "status":
		err = runStatus()
	case "submit <label>":
		err = runSubmit()
	case "revoke <id>":
		err = runRevoke()
	case "wake":
		err = runWake()
	case "regenerate":
		err = runRegenerate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runDaemon() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if CLI.Verbose {
		cfg.Logging.Level = "debug"
	}
	slog.SetDefault(cfg.Logging.NewLogger())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	recorder := metrics.NewPrometheusRecorder(prometheus.NewRegistry())

	d, err := daemon.New(cfg, daemon.Options{Recorder: recorder})
	if err != nil {
		return err
	}
	d.SetMetricsHandler(recorder.Handler())

	if err := d.WatchConfig(ctx, CLI.Config); err != nil {
		slog.Warn("Config watching disabled", "error", err)
	}

	return d.Run(ctx)
}

func runStatus() error {
	if CLI.Status.History {
		var transitions []json.RawMessage
		if err := apiGet(fmt.Sprintf("/api/history?limit=%d", CLI.Status.Limit), &transitions); err != nil {
			return err
		}
		for _, raw := range transitions {
			fmt.Println(string(raw))
		}
		return nil
	}

	var resp struct {
		Label  string          `json:"label"`
		Active json.RawMessage `json:"active"`
	}
	if err := apiGet("/api/status", &resp); err != nil {
		return err
	}
	if resp.Label == "" {
		fmt.Println("no active status")
		return nil
	}
	fmt.Println(resp.Label)
	return nil
}

func runSubmit() error {
	payload := map[string]any{
		"source":   CLI.Submit.Source,
		"label":    CLI.Submit.Label,
		"priority": CLI.Submit.Priority,
		"silent":   CLI.Submit.Silent,
	}
	if CLI.Submit.TTL > 0 {
		payload["ttl_seconds"] = CLI.Submit.TTL
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := apiPost("/api/status", payload, &resp); err != nil {
		return err
	}
	fmt.Println(resp.ID)
	return nil
}

func runRevoke() error {
	req, err := http.NewRequest(http.MethodDelete, CLI.Addr+"/api/status/"+CLI.Revoke.ID, nil)
	if err != nil {
		return err
	}
	resp, err := apiClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

func runWake() error {
	var resp struct {
		ID         string `json:"id"`
		Suppressed bool   `json:"suppressed"`
	}
	if err := apiPost("/api/wake", nil, &resp); err != nil {
		return err
	}
	if resp.Suppressed {
		fmt.Println("wake suppressed (current status is silent)")
		return nil
	}
	fmt.Println(resp.ID)
	return nil
}

func runRegenerate() error {
	var resp struct {
		Day string `json:"day"`
	}
	if err := apiPost("/api/schedule/regenerate", nil, &resp); err != nil {
		return err
	}
	fmt.Println("regenerated schedule for", resp.Day)
	return nil
}

func apiClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func apiGet(path string, out any) error {
	resp, err := apiClient().Get(CLI.Addr + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiPost(path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	resp, err := apiClient().Post(CLI.Addr+path, "application/json", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status, body.Error)
	}
	return fmt.Errorf("unexpected response: %s", resp.Status)
}
