package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"vaultai/internal/backend"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and print the streamed answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := newREPL(client, nil, cmd.OutOrStdout())
		return r.ask(cmd.Context(), strings.Join(args, " "))
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Upload files to the backend",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, closeAll, err := openUploads(args)
		if err != nil {
			return err
		}
		defer closeAll()

		accepted, err := client.Session.Upload(cmd.Context(), files)
		if err != nil {
			return err
		}
		client.Renderer.Info("uploaded %d of %d file(s)", len(accepted), len(files))
		return nil
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the files the backend holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.Session.SyncFiles(cmd.Context()); err != nil {
			return err
		}
		client.Renderer.Files(client.Session.Snapshot().Uploads)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "rm [file]",
	Short: "Remove an uploaded file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.Session.RemoveFile(cmd.Context(), args[0]); err != nil {
			return err
		}
		client.Renderer.Info("removed %s", args[0])
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the backend session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.Session.Clear(cmd.Context()); err != nil {
			return err
		}
		client.Renderer.Info("session cleared")
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the backend's session details",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := client.Backend.SessionInfo(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "backend:   %s\n", client.Config.Backend.BaseURL)
		fmt.Fprintf(out, "documents: %d chunks in %d file(s)\n", info.TotalDocuments, len(info.UploadedFiles))
		fmt.Fprintf(out, "cached:    %d file(s)\n", info.CacheStats.CachedFiles)

		names := make([]string, 0, len(info.FileIndices))
		for name := range info.FileIndices {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			idx := info.FileIndices[name]
			fmt.Fprintf(out, "  %-30s chunks %d-%d (%d)\n", name, idx.Start, idx.End, idx.Count)
		}
		return nil
	},
}

// openUploads opens every path for a multipart upload. The returned func
// closes whatever was opened.
func openUploads(paths []string) ([]backend.UploadFile, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	files := make([]backend.UploadFile, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open %s failed: %w", p, err)
		}
		opened = append(opened, f)
		files = append(files, backend.UploadFile{Name: filepath.Base(p), Content: f})
	}
	return files, closeAll, nil
}
