package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"modstream/internal/api"
	"modstream/internal/errors"
	"modstream/internal/frame"
	"modstream/internal/loader"
	"modstream/internal/modtable"
)

var (
	loadMode     string
	loadFormat   string
	loadCompress string
)

var loadCmd = &cobra.Command{
	Use:   "load <file|url|->",
	Short: "Load a frame stream into an in-process module table",
	Long: `Decode a frame stream and load it progressively into an in-process module
table that links private-scheme imports against registered modules.

In streaming mode each module runs as soon as it arrives; in batch mode every
module is registered first and only the entrypoint is run.

Examples:
  modstream load app.bundle
  modstream load http://localhost:8420/bundles/app --mode batch
  modstream bundle src/main.js | modstream load -`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadMode, "mode", "", "Load mode: streaming or batch (default from config)")
	loadCmd.Flags().StringVar(&loadFormat, "format", "human", "Output format (human, json, yaml)")
	loadCmd.Flags().StringVar(&loadCompress, "compress", "none", "Transport compression of a local input: none, gzip or zstd")
	rootCmd.AddCommand(loadCmd)
}

// LoadReport summarizes a progressive load.
type LoadReport struct {
	Mode       loader.Mode `json:"mode" yaml:"mode"`
	Entry      string      `json:"entry" yaml:"entry"`
	Registered []string    `json:"registered" yaml:"registered"`
	Order      []string    `json:"order" yaml:"order"`
	External   []string    `json:"external,omitempty" yaml:"external,omitempty"`
	Elapsed    string      `json:"elapsed" yaml:"elapsed"`
}

func runLoad(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}

	modeName := loadMode
	if modeName == "" {
		modeName = s.cfg.Load.Mode
	}
	mode, err := loader.ParseMode(modeName)
	if err != nil {
		return errors.NewBundleError(errors.ConfigInvalid, "invalid load mode", err)
	}
	extractor, err := s.newExtractor("")
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	body, err := openBundle(ctx, args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	table := modtable.New(extractor,
		modtable.WithScheme(s.cfg.Scheme),
		modtable.WithLogger(s.logger))
	l := loader.New(table, mode, loader.WithLogger(s.logger))

	dec := frame.NewDecoder(body, frame.WithMaxPayload(s.cfg.MaxPayloadBytes))
	outcome, err := l.Load(ctx, dec.All())
	if err != nil {
		s.logger.Warn("Load failed", "registered", len(outcome.Registered), "error", err)
		return err
	}

	report := &LoadReport{
		Mode:       outcome.Mode,
		Entry:      outcome.Entry,
		Registered: outcome.Registered,
		Order:      table.Evaluated(),
		External:   outcome.Result.External,
		Elapsed:    outcome.Elapsed.Round(time.Microsecond).String(),
	}
	return writeResponse(cmd.OutOrStdout(), report, OutputFormat(loadFormat))
}

// openBundle opens a bundle from a URL, a file, or stdin for "-". Remote
// bundles negotiate transport compression; local ones use --compress.
func openBundle(ctx context.Context, src string, stdin io.Reader) (io.ReadCloser, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return fetchBundle(ctx, src)
	}

	compression, err := frame.ParseCompression(loadCompress)
	if err != nil {
		return nil, errors.NewBundleError(errors.ConfigInvalid, "invalid compression", err)
	}

	var r io.ReadCloser = io.NopCloser(stdin)
	if src != "-" {
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("failed to open bundle: %w", err)
		}
		r = f
	}
	body, err := frame.NewDecompressedReader(r, compression)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return &stackedCloser{ReadCloser: body, under: r}, nil
}

// fetchBundle requests a bundle over HTTP. Error responses from a modstream
// server are turned back into coded errors.
func fetchBundle(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	// Setting Accept-Encoding disables the transport's transparent gzip.
	req.Header.Set("Accept-Encoding", "zstd, gzip")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bundle: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Code == "" {
			return nil, fmt.Errorf("fetching %s: %s", url, resp.Status)
		}
		return nil, errors.NewBundleError(errors.ErrorCode(apiErr.Code), apiErr.Error, nil).WithDetails(apiErr.Details)
	}

	compression, err := frame.ParseCompression(resp.Header.Get("Content-Encoding"))
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	body, err := frame.NewDecompressedReader(resp.Body, compression)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return &stackedCloser{ReadCloser: body, under: resp.Body}, nil
}

// stackedCloser closes a decompressing reader and the stream beneath it.
type stackedCloser struct {
	io.ReadCloser
	under io.Closer
}

func (c *stackedCloser) Close() error {
	err := c.ReadCloser.Close()
	if uerr := c.under.Close(); err == nil {
		err = uerr
	}
	return err
}
