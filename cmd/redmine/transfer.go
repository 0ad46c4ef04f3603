package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/redmine/redmine"
)

func (a *app) uploadCmd() *cobra.Command {
	var (
		f           issueFlags
		contentType string
		name        string
	)

	cmd := &cobra.Command{
		Use:   "upload ID FILE",
		Short: "Attach a file to an issue",
		Long: `Attach a file to an issue.

The file is staged first; the issue is only updated once Redmine has
accepted it. The content type is guessed from the extension unless
--content-type is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIssueID(args[0])
			if err != nil {
				return err
			}
			path := args[1]

			opts := redmine.UploadOptions{ContentType: contentType}
			if opts.ContentType == "" {
				opts.ContentType = guessContentType(path)
			}
			if name != "" {
				opts.FileName = redmine.String(name)
			}
			opts.Notes, opts.StatusID = f.notesAndStatus(cmd.Flags())

			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.UploadFile(cmd.Context(), id, path, opts); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Attached %s to issue #%d\n", filepath.Base(path), id)
			return nil
		},
	}

	f.bind(cmd.Flags(), false)
	cmd.Flags().StringVarP(&contentType, "content-type", "t", "", "MIME type of the file")
	cmd.Flags().StringVar(&name, "name", "", "file name shown in Redmine (default: base name of FILE)")
	return cmd
}

func (a *app) downloadCmd() *cobra.Command {
	var (
		output string
		text   bool
	)

	cmd := &cobra.Command{
		Use:   "download URL",
		Short: "Download an attachment's content_url",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}

			var data []byte
			if text {
				s, err := client.DownloadText(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				data = []byte(s)
			} else {
				data, err = client.DownloadFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			}

			if output == "" || output == "-" {
				_, err = a.out.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.errOut, "Saved %d bytes to %s\n", len(data), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().BoolVar(&text, "text", false, "decode as UTF-8 text, dropping a byte order mark")
	return cmd
}

func guessContentType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
