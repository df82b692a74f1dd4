package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cvbuilder/internal/client"
)

const (
	defaultServer = "http://localhost:8080"
	tokenFileName = ".cvctl_token"
)

var (
	serverURL string
	tokenFlag string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cvctl",
		Short:         "Command line client for the CV builder API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("CVCTL_SERVER", defaultServer), "API base URL")
	root.PersistentFlags().StringVar(&tokenFlag, "token", os.Getenv("CVCTL_TOKEN"), "access token (defaults to the one saved by login)")

	root.AddCommand(
		newLoginCmd(),
		newListCmd(),
		newCreateCmd(),
		newGetCmd(),
		newDeleteCmd(),
		newExportCmd(),
		newEditCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func tokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, tokenFileName), nil
}

// apiClient 构造带令牌的客户端：--token 优先，其次是 login 保存的文件。
func apiClient() (*client.Client, error) {
	token := strings.TrimSpace(tokenFlag)
	if token == "" {
		path, err := tokenPath()
		if err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, errors.New("not logged in: run `cvctl login` or pass --token")
			}
			return nil, fmt.Errorf("read token: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	return client.New(serverURL, token), nil
}

func newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("CVCTL_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("--email and --password (or CVCTL_PASSWORD) are required")
			}
			tokens, err := client.New(serverURL, "").Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			path, err := tokenPath()
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(tokens.AccessToken), 0o600); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in, token valid for %s\n", time.Duration(tokens.ExpiresIn)*time.Second)
			if tokens.MustChangePassword {
				fmt.Fprintln(cmd.OutOrStdout(), "password change required before editing")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your resumes, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}
			docs, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tTEMPLATE\tVERSION\tUPDATED")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.Title, d.TemplateID, d.Version, d.UpdatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

func newCreateCmd() *cobra.Command {
	var template string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create an empty resume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}
			doc, err := c.Create(cmd.Context(), client.CreateRequest{Title: args[0], TemplateID: template})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "template id (see GET /v1/templates)")
	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print a resume as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}
			doc, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), doc)
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a resume permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}
			return c.Delete(cmd.Context(), args[0])
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		mode string
		wait time.Duration
	)
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Request a PDF export and optionally wait for the download link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			resp, err := c.Export(ctx, args[0], mode)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "export %s queued (task %s)\n", resp.ExportID, resp.TaskID)
			if wait <= 0 {
				return nil
			}

			deadline := time.Now().Add(wait)
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				status, err := c.ExportStatus(ctx, resp.ExportID)
				if err != nil {
					return err
				}
				switch status.Status {
				case "completed":
					link, err := c.ExportLink(ctx, resp.ExportID)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, link)
					return nil
				case "failed":
					return fmt.Errorf("export failed: %s", status.Error)
				}
				if time.Now().After(deadline) {
					return fmt.Errorf("export still %s after %s", status.Status, wait)
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "ats", "layout: ats, visual or both")
	cmd.Flags().DurationVar(&wait, "wait", 0, "poll until the PDF is ready, up to this long")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
