package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/PabloGalante/deltawind/internal/adapters/http"
	"github.com/PabloGalante/deltawind/internal/adapters/tui"
	"github.com/PabloGalante/deltawind/internal/app/conversation"
	"github.com/PabloGalante/deltawind/internal/app/export"
	"github.com/PabloGalante/deltawind/internal/domain"
	"github.com/PabloGalante/deltawind/internal/observability"
)

const shutdownTimeout = 10 * time.Second

var (
	tuiLogFile string
	askOut     string
	briefFresh bool
)

func init() {
	tuiCmd.Flags().StringVar(&tuiLogFile, "log-file", "", "write logs to this file instead of discarding them")
	askCmd.Flags().StringVarP(&askOut, "out", "o", "", "also write the transcript to this file (.txt or .pdf)")
	briefCmd.Flags().BoolVar(&briefFresh, "refresh", false, "regenerate instead of using a cached briefing")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			log := observability.Logger()
			srv := &http.Server{
				Addr:              a.cfg.Addr(),
				Handler:           httpadapter.NewServer(a.svc),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("deltawind API listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down gracefully")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		})
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interview the stakeholders in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if tuiLogFile == "" {
			observability.SetOutput(io.Discard)
		} else {
			f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()
			observability.SetOutput(f)
		}

		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			return tui.Run(ctx, a.svc)
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <persona> <question...>",
	Short: "Ask one stakeholder a single question",
	Example: `  deltawind ask sam "What's the status of A3?"
  deltawind ask carlos What does crashing A6 cost? -o carlos.pdf`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		observability.SetOutput(os.Stderr)
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			state, err := a.svc.StartSession(ctx)
			if err != nil {
				return err
			}
			if _, err := a.svc.SelectPersona(ctx, conversation.SelectPersonaInput{
				SessionID: state.ID,
				Persona:   domain.PersonaID(args[0]),
			}); err != nil {
				return err
			}

			out, err := a.svc.SendMessage(ctx, conversation.SendMessageInput{
				SessionID: state.ID,
				Text:      strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			if out.Notice != nil {
				return noticeError(out.Notice)
			}

			persona, _ := a.svc.Persona(domain.PersonaID(args[0]))
			fmt.Println(color.New(color.FgGreen, color.OpBold).Render(persona.Label()))
			printMarkdown(out.AgentMessage.Text)

			if askOut != "" {
				return writeTranscript(ctx, a.svc, state.ID, askOut)
			}
			return nil
		})
	},
}

var briefCmd = &cobra.Command{
	Use:       "brief <insights|problems|role>",
	Short:     "Generate a briefing from the case facts",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"insights", "problems", "role"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := domain.ParseBriefingKind(args[0])
		if !ok {
			return fmt.Errorf("%w: %q", domain.ErrUnknownBriefing, args[0])
		}

		observability.SetOutput(os.Stderr)
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			state, err := a.svc.StartSession(ctx)
			if err != nil {
				return err
			}
			out, err := a.svc.GenerateBriefing(ctx, conversation.GenerateBriefingInput{
				SessionID: state.ID,
				Kind:      kind,
				Refresh:   briefFresh,
			})
			if err != nil {
				return err
			}
			if out.Notice != nil {
				return noticeError(out.Notice)
			}
			printMarkdown("# " + out.Title + "\n\n" + out.Text)
			return nil
		})
	},
}

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the personas of the case",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		observability.SetOutput(os.Stderr)
		return withApp(cmd.Context(), func(a *app) error {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Title", "Role"})
			table.SetAutoWrapText(false)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetBorder(false)
			table.SetTablePadding("\t")

			for _, p := range a.svc.Personas() {
				role := "stakeholder"
				if p.Advisor {
					role = "advisor"
				}
				table.Append([]string{string(p.ID), p.Label(), p.Title, role})
			}
			table.Render()
			return nil
		})
	},
}

func writeTranscript(ctx context.Context, svc *conversation.Service, id domain.SessionID, path string) error {
	format := export.FormatText
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		format = export.FormatPDF
	}
	out, err := svc.Export(ctx, id, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out.Data, 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	fmt.Println(color.New(color.FgCyan).Render("Transcript saved to " + path))
	return nil
}

func noticeError(n *domain.Notice) error {
	fmt.Fprintln(os.Stderr, color.New(color.FgRed).Render(n.Detail))
	return errors.New(n.Title)
}

func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Println(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}
