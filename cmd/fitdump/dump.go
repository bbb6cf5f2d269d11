// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	fit "github.com/go-fit/fit"
)

const maxConcurrentFiles = 8

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	fileStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type dumpConfig struct {
	wantHeader    bool
	wantDefs      bool
	wantData      bool
	wantDevFields bool
	wantAll       bool
	profilePath   string
}

func newDumpCmd() *cobra.Command {
	cfg := &dumpConfig{}

	cmd := &cobra.Command{
		Use:   "dump <path> [paths...]",
		Short: "Dump the records of one or more FIT files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cfg, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&cfg.wantHeader, "header", false, "Print the file header")
	flags.BoolVar(&cfg.wantDefs, "defs", false, "Print definition messages")
	flags.BoolVar(&cfg.wantData, "data", false, "Print data messages")
	flags.BoolVar(&cfg.wantDevFields, "dev-fields", false, "Print, at end of file, the tally of messages and fields the profile does not describe (counted from printed data messages)")
	flags.BoolVar(&cfg.wantAll, "all", false, "Print everything")
	flags.StringVar(&cfg.profilePath, "profile", "", "Path to a TOML profile document (default: the embedded minimal profile)")

	return cmd
}

func runDump(cfg *dumpConfig, paths []string) error {
	profile, err := loadProfile(cfg.profilePath)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	files, err := expandPaths(paths)
	if err != nil {
		return err
	}

	// Each file is decoded by its own Decoder/Context; concurrency lives
	// strictly between independent streams, never inside one (the codec
	// itself remains single-threaded per stream).
	var g errgroup.Group
	g.SetLimit(maxConcurrentFiles)
	var mu sync.Mutex

	for _, path := range files {
		path := path
		g.Go(func() error {
			out, err := dumpFile(path, cfg, profile)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("%s: %v", path, err)))
				return nil
			}
			fmt.Println(out)
			return nil
		})
	}
	return g.Wait()
}

func loadProfile(path string) (fit.Profile, error) {
	if path == "" {
		return fit.DefaultProfile()
	}
	return fit.LoadTOMLProfile(path)
}

func expandPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func dumpFile(path string, cfg *dumpConfig, profile fit.Profile) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	d := fit.OpenBytes(data, &fit.Options{MaxRecords: fit.MaxDefaultRecords})
	h, err := d.ReadHeader()
	if err != nil {
		return "", fmt.Errorf("read header: %w", err)
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(path))
	b.WriteString("\n")
	b.WriteString(fileStyle.Render(fmt.Sprintf("  protocol=%d profile=%d data_size=%d", h.ProtocolVer, h.ProfileVer, h.DataSize)))
	b.WriteString("\n")

	if cfg.wantHeader || cfg.wantAll {
		printJSON(&b, "header", h)
	}

	stats := &fit.Stats{}
	for {
		rec, err := d.Next()
		if err != nil {
			return b.String(), fmt.Errorf("decode: %w", err)
		}
		switch rec.Kind {
		case fit.RecordDefinition:
			if cfg.wantDefs || cfg.wantAll {
				printJSON(&b, "definition", rec.Definition)
			}
		case fit.RecordData:
			if cfg.wantData || cfg.wantAll {
				name, tree, perr := fit.Project(rec, profile, stats)
				if perr != nil {
					return b.String(), perr
				}
				printJSON(&b, name, tree)
			}
		case fit.RecordEndOfFile:
			if cfg.wantDevFields || cfg.wantAll {
				printJSON(&b, "unknown", stats)
			}
			return b.String(), nil
		}
	}
}

// printJSON is the equivalent of pedumper.go's prettyPrint helper:
// marshal-then-indent, falling back to the raw form on error.
func printJSON(b *strings.Builder, label string, v any) {
	buf, err := json.Marshal(v)
	if err != nil {
		b.WriteString(fmt.Sprintf("  %s: <error: %v>\n", label, err))
		return
	}
	var pretty []byte
	pretty, err = prettyPrint(buf)
	if err != nil {
		pretty = buf
	}
	b.WriteString(fmt.Sprintf("  %s:\n", label))
	b.WriteString(string(pretty))
	b.WriteString("\n")
}

func prettyPrint(buf []byte) ([]byte, error) {
	return json.MarshalIndent(json.RawMessage(buf), "  ", "  ")
}
