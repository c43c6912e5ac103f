// Command puntini runs the graph agent from the terminal: one-shot goal
// processing, an interactive chat session, or a backend health check.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/puntini/puntini"
	"github.com/puntini/puntini/config"
	"github.com/puntini/puntini/internal/util"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:   "puntini",
		Short: "Natural language graph agent for project management",
		Long: `puntini turns natural language goals into validated graph operations:
plan, select extraction tools, extract patches, validate them and apply
them to the configured graph backend.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(runCmd(), chatCmd(), healthCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRuntime(ctx context.Context) (*puntini.Runtime, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return puntini.New(ctx, cfg)
}

func runCmd() *cobra.Command {
	var threadID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Process a single goal and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if threadID == "" {
				threadID = util.NewID()
			}
			result, err := rt.Process(ctx, strings.Join(args, " "), threadID)
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			fmt.Println(result.Response)
			if !result.Success {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "", "thread id to resume a checkpointed run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func chatCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			sess, err := rt.Sessions.CreateSession(user, "", nil)
			if err != nil {
				return err
			}
			fmt.Printf("session %s (ctrl-d to quit)\n", sess.ID)

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if _, err := sess.SendMessage(line, "user", nil); err != nil {
					fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
					continue
				}
				reply := sess.ReceiveMessage(2 * time.Minute)
				if reply == nil {
					fmt.Fprintln(os.Stderr, "no response (timed out)")
					continue
				}
				fmt.Println(reply.Content)
				if ctx.Err() != nil {
					break
				}
			}
			return rt.Sessions.DestroySession(sess.ID)
		},
	}
	cmd.Flags().StringVar(&user, "user", "cli", "user id for the session")
	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the configured graph backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			status, err := rt.Health(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("status: %s\nnodes: %d\nedges: %d\n", status.Status, status.Nodes, status.Edges)
			if status.Detail != "" {
				fmt.Printf("detail: %s\n", status.Detail)
			}
			if status.Status != "healthy" {
				return fmt.Errorf("backend unhealthy")
			}
			return nil
		},
	}
}
