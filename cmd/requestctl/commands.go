package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"marketplace-server/config"
	"marketplace-server/models"
	"marketplace-server/services"
	"marketplace-server/types"
	"marketplace-server/utils"
)

type app struct {
	root    *cobra.Command
	out     io.Writer
	opts    options
	session *session
}

func newApp(out io.Writer) *app {
	a := &app{out: out}

	a.root = &cobra.Command{
		Use:   "requestctl",
		Short: "Manage marketplace service requests",
		Long: `requestctl lists, creates and moves service requests through their
lifecycle, and submits reviews once a request is completed.

It talks to the REST backend (--mode http) or works on a local data file
(--mode local) for offline demos.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "token" {
				return nil
			}
			return a.open(cmd.Context())
		},
	}

	flags := a.root.PersistentFlags()
	flags.StringVar(&a.opts.mode, "mode", "", "repository mode: http or local (CLIENT_MODE)")
	flags.StringVar(&a.opts.baseURL, "base-url", "", "REST API base URL (CLIENT_BASE_URL)")
	flags.StringVar(&a.opts.token, "token", "", "bearer token (CLIENT_TOKEN)")
	flags.StringVar(&a.opts.locale, "lang", "", "display language: en or ar (CLIENT_LOCALE)")
	flags.StringVar(&a.opts.dataFile, "data-file", "", "local mode data file (CLIENT_DATA_FILE)")
	flags.StringVar(&a.opts.role, "role", "", "acting role: customer, provider or admin (CLIENT_ROLE)")
	flags.UintVar(&a.opts.userID, "user", 0, "acting user id (CLIENT_USER_ID)")
	flags.DurationVar(&a.opts.timeout, "timeout", 0, "HTTP timeout (CLIENT_TIMEOUT)")
	flags.BoolVar(&a.opts.showList, "show-list", false, "print the request list after a change")

	a.root.AddCommand(
		a.listCmd(),
		a.showCmd(),
		a.createCmd(),
		a.acceptCmd(),
		a.rejectCmd(),
		a.advanceCmd(),
		a.completeCmd(),
		a.reviewCmd(),
		a.tokenCmd(),
	)
	return a
}

// run executes one command line and always releases the session, saving
// local changes even when the command itself failed
func (a *app) run(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	a.root.SetOut(a.out)
	err := a.root.ExecuteContext(ctx)
	if a.session != nil {
		if closeErr := a.session.Close(); err == nil {
			err = closeErr
		}
		a.session = nil
	}
	return err
}

func (a *app) open(ctx context.Context) error {
	config.Load()
	utils.InitializeLogger(false, "warn")
	s, err := openSession(ctx, &a.opts, config.AppConfig)
	if err != nil {
		return err
	}
	a.session = s
	a.opts.locale = s.locale
	return nil
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, types.Validationf("parseID", "invalid request id %q", arg)
	}
	return uint(id), nil
}

func (a *app) listCmd() *cobra.Command {
	var page, pageSize int
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the requests of the acting role",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.session
			result, err := s.repo.FetchMine(cmd.Context(), s.role, page, pageSize)
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(result)
			}

			list := services.NewRequestList()
			list.Replace(result)
			return a.printTable(cmd.Context(), list.Items(), list.Total())
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", models.DefaultPageSize, "items per page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req, err := a.session.fetch(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(req)
			}
			a.printRequest(req)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func (a *app) createCmd() *cobra.Command {
	var input models.ServiceRequestCreate
	var scheduled string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a service request as a customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if scheduled != "" {
				t, err := time.Parse(time.RFC3339, scheduled)
				if err != nil {
					return types.Validationf("Create", "scheduled must be RFC3339, got %q", scheduled)
				}
				input.ScheduledDate = &t
			}
			req, err := a.session.repo.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			return a.showChange(cmd.Context(), req)
		},
	}
	f := cmd.Flags()
	f.UintVar(&input.ServiceID, "service", 0, "service id")
	f.UintVar(&input.ProviderID, "provider", 0, "provider id")
	f.StringVar(&input.ProblemDescription, "problem", "", "problem description")
	f.StringVar(&input.Address, "address", "", "service address")
	f.StringVar(&input.Details, "details", "", "extra details")
	f.StringVar(&scheduled, "scheduled", "", "scheduled date (RFC3339)")
	return cmd
}

// transitionCmd builds the provider commands that act on a fetched request
func (a *app) transitionCmd(use, short string, act func(ctx context.Context, req *models.ServiceRequest) (*models.ServiceRequest, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req, err := a.session.fetch(cmd.Context(), id)
			if err != nil {
				return err
			}
			updated, err := act(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.showChange(cmd.Context(), updated)
		},
	}
}

func (a *app) acceptCmd() *cobra.Command {
	return a.transitionCmd("accept", "Accept a pending request", func(ctx context.Context, req *models.ServiceRequest) (*models.ServiceRequest, error) {
		return a.session.lifecycle.Accept(ctx, req)
	})
}

func (a *app) rejectCmd() *cobra.Command {
	return a.transitionCmd("reject", "Reject a pending request", func(ctx context.Context, req *models.ServiceRequest) (*models.ServiceRequest, error) {
		return a.session.lifecycle.Reject(ctx, req)
	})
}

func (a *app) advanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advance <id> <status>",
		Short: "Move an accepted request to in_progress or on_the_way",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := models.ParseStatus(args[1])
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req, err := a.session.fetch(cmd.Context(), id)
			if err != nil {
				return err
			}
			updated, err := a.session.lifecycle.Advance(cmd.Context(), req, to)
			if err != nil {
				return err
			}
			return a.showChange(cmd.Context(), updated)
		},
	}
	return cmd
}

func (a *app) completeCmd() *cobra.Command {
	var price float64
	cmd := &cobra.Command{
		Use:   "complete <id> --price <amount>",
		Short: "Complete a request with its final price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := models.ValidateFinalPrice(price); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req, err := a.session.fetch(cmd.Context(), id)
			if err != nil {
				return err
			}
			updated, err := a.session.lifecycle.Complete(cmd.Context(), req, price)
			if err != nil {
				return err
			}
			return a.showChange(cmd.Context(), updated)
		},
	}
	cmd.Flags().Float64Var(&price, "price", 0, "final price")
	return cmd
}

func (a *app) reviewCmd() *cobra.Command {
	var rating int
	var comment string
	cmd := &cobra.Command{
		Use:   "review <id> --rating <1-5>",
		Short: "Review a completed request as its customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			review, err := a.session.reviews.Submit(cmd.Context(), id, rating, comment)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Review #%d saved for request #%d (%d/5)\n", review.ID, review.RequestID, review.Rating)
			return nil
		},
	}
	cmd.Flags().IntVar(&rating, "rating", 0, "rating from 1 to 5")
	cmd.Flags().StringVar(&comment, "comment", "", "optional comment")
	return cmd
}

// tokenCmd mints a development token with the server's JWT secret
func (a *app) tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a development access token for --user and --role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Load()
			cfg := config.AppConfig
			userID := a.opts.userID
			if userID == 0 {
				userID = cfg.Client.UserID
			}
			role, err := models.ParseRole(pick(a.opts.role, cfg.Client.Role))
			if err != nil {
				return err
			}
			jwtService := services.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
			token, _, err := jwtService.GenerateAccessToken(userID, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, token)
			return nil
		},
	}
}

// showChange prints a request the backend just returned. With --show-list it
// also prints the first page with that request applied to it.
func (a *app) showChange(ctx context.Context, req *models.ServiceRequest) error {
	a.printRequest(req)
	if !a.opts.showList {
		return nil
	}
	s := a.session
	page, err := s.repo.FetchMine(ctx, s.role, 1, models.DefaultPageSize)
	if err != nil {
		return err
	}
	list := services.NewRequestList()
	list.Replace(page)
	list.Apply(req)
	fmt.Fprintln(a.out)
	return a.printTable(ctx, list.Items(), list.Total())
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printTable(ctx context.Context, items []models.ServiceRequest, total int64) error {
	s := a.session
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSERVICE\tADDRESS\tPRICE\tACTIONS")
	for i := range items {
		req := &items[i]
		fmt.Fprintf(w, "%d\t%s [%s]\t%d\t%s\t%s\t%s\n",
			req.ID,
			services.StatusLabel(req.Status, s.locale),
			services.StatusBadge(req.Status),
			req.ServiceID,
			req.Address,
			formatPrice(req.FinalPrice),
			a.actions(ctx, req))
	}
	fmt.Fprintf(w, "\n%d of %d request(s)\n", len(items), total)
	return w.Flush()
}

// actions lists what the acting role can do next with a request
func (a *app) actions(ctx context.Context, req *models.ServiceRequest) string {
	s := a.session
	switch s.role {
	case models.RoleProvider:
		var out string
		for _, to := range models.LegalTargets(req.Status) {
			if out != "" {
				out += ","
			}
			out += string(to)
		}
		if out == "" {
			return "-"
		}
		return out
	case models.RoleCustomer:
		if !s.reviews.CanReview(ctx, req) {
			return "-"
		}
		// the reviewed set can miss reviews sent by earlier invocations
		reviewed, err := s.reviews.Reviewed(ctx, req.ID)
		if err == nil && !reviewed {
			return "review"
		}
	}
	return "-"
}

func (a *app) printRequest(req *models.ServiceRequest) {
	s := a.session
	fmt.Fprintf(a.out, "Request #%d\n", req.ID)
	fmt.Fprintf(a.out, "  Status:   %s [%s]\n", services.StatusLabel(req.Status, s.locale), services.StatusBadge(req.Status))
	fmt.Fprintf(a.out, "  Service:  %d\n", req.ServiceID)
	fmt.Fprintf(a.out, "  Customer: %d\n", req.CustomerID)
	fmt.Fprintf(a.out, "  Provider: %d\n", req.ProviderID)
	fmt.Fprintf(a.out, "  Address:  %s\n", req.Address)
	fmt.Fprintf(a.out, "  Problem:  %s\n", req.ProblemDescription)
	if req.ScheduledDate != nil {
		fmt.Fprintf(a.out, "  Date:     %s\n", req.ScheduledDate.Format(time.RFC1123))
	}
	if req.FinalPrice != nil {
		fmt.Fprintf(a.out, "  Price:    %s\n", formatPrice(req.FinalPrice))
	}
}

func formatPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}
