package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"expensetracker/internal/amqp"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/remote"
	"expensetracker/internal/remote/rest"
)

// ErrInvalidExpense is returned when add or update flags fail validation.
var ErrInvalidExpense = errors.New("invalid expense")

type options struct {
	apiURL  string
	timeout time.Duration

	amqpURL    string
	exchange   string
	routingKey string

	// newAPI builds the client used by every command.
	newAPI func(o *options) remote.ExpenseAPI
}

func defaultOptions() *options {
	cfg := config.Load()
	return &options{
		apiURL:     cfg.APIBaseURL,
		timeout:    cfg.APITimeout,
		amqpURL:    cfg.AMQPURL,
		exchange:   cfg.AMQPExchange,
		routingKey: cfg.AMQPRoutingKey,
		newAPI: func(o *options) remote.ExpenseAPI {
			return rest.NewClient(o.apiURL, rest.WithTimeout(o.timeout))
		},
	}
}

func newRootCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "expensectl",
		Short:         "Manage expenses on the expense API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&o.apiURL, "api-url", o.apiURL, "Expense API base URL")
	cmd.PersistentFlags().DurationVar(&o.timeout, "timeout", o.timeout, "Per-request timeout")

	cmd.AddCommand(
		newListCmd(o),
		newGetCmd(o),
		newAddCmd(o),
		newUpdateCmd(o),
		newDeleteCmd(o),
		newCategoriesCmd(),
		newEventsCmd(o),
	)
	return cmd
}

func newListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first, with the running total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := o.newAPI(o).ListExpenses(cmd.Context())
			if err != nil {
				return fmt.Errorf("list expenses: %w", err)
			}
			printExpenses(cmd.OutOrStdout(), items)
			return nil
		},
	}
}

func newGetCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.newAPI(o).GetExpense(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get expense %s: %w", args[0], err)
			}
			printExpense(cmd.OutOrStdout(), e)
			return nil
		},
	}
}

// draftFlags binds the expense fields shared by add and update.
type draftFlags struct {
	draft core.Draft
}

func (f *draftFlags) bind(cmd *cobra.Command, defaultDate string) {
	cmd.Flags().StringVar(&f.draft.Title, "title", "", "Expense title")
	cmd.Flags().StringVar(&f.draft.Amount, "amount", "", "Amount, e.g. 12.50")
	cmd.Flags().StringVar(&f.draft.Category, "category", "", "One of "+categoryList())
	cmd.Flags().StringVar(&f.draft.Date, "date", defaultDate, "Date as YYYY-MM-DD")
	cmd.Flags().StringVar(&f.draft.Notes, "notes", "", "Optional notes")
}

// input validates the draft and prints every field error before failing.
func (f *draftFlags) input(w io.Writer) (core.ExpenseInput, error) {
	errs := core.Validate(f.draft)
	if len(errs) == 0 {
		return f.draft.Input(), nil
	}
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	for _, field := range fields {
		fmt.Fprintf(w, "%s: %s\n", field, errs[field])
	}
	return core.ExpenseInput{}, ErrInvalidExpense
}

func newAddCmd(o *options) *cobra.Command {
	var flags draftFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := flags.input(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			created, err := o.newAPI(o).CreateExpense(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create expense: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", created.ID)
			return nil
		},
	}
	flags.bind(cmd, core.Today())
	return cmd
}

// newUpdateCmd starts from the stored expense so only the flags given change.
func newUpdateCmd(o *options) *cobra.Command {
	var flags draftFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := o.newAPI(o)
			current, err := client.GetExpense(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get expense %s: %w", args[0], err)
			}

			merged := core.DraftFrom(current)
			set := cmd.Flags().Changed
			if set("title") {
				merged.Title = flags.draft.Title
			}
			if set("amount") {
				merged.Amount = flags.draft.Amount
			}
			if set("category") {
				merged.Category = flags.draft.Category
			}
			if set("date") {
				merged.Date = flags.draft.Date
			}
			if set("notes") {
				merged.Notes = flags.draft.Notes
			}
			flags.draft = merged

			in, err := flags.input(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			updated, err := client.UpdateExpense(cmd.Context(), args[0], in)
			if err != nil {
				return fmt.Errorf("update expense %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", updated.ID)
			return nil
		},
	}
	flags.bind(cmd, "")
	return cmd
}

func newDeleteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.newAPI(o).DeleteExpense(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete expense %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the accepted categories",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, c := range core.Categories() {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
		},
	}
}

// newEventsCmd tails the activity events published by the web front-end.
func newEventsCmd(o *options) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream expense activity events from AMQP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.amqpURL == "" {
				return errors.New("AMQP URL is required")
			}
			lc := log.DefaultConfig()
			lc.Level = log.ParseLevel(logLevel)
			lc.Output = cmd.ErrOrStderr()
			logger := log.New(lc)

			ctx := cmd.Context()
			client, err := amqp.NewClient(ctx, o.amqpURL, o.exchange, o.routingKey, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			err = client.Consume(ctx, func(msg *amqp.ActivityMessage) error {
				_, err := fmt.Fprintln(out, formatEvent(msg))
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&o.amqpURL, "amqp-url", o.amqpURL, "AMQP broker URL")
	cmd.Flags().StringVar(&o.exchange, "exchange", o.exchange, "Activity exchange")
	cmd.Flags().StringVar(&o.routingKey, "routing-key", o.routingKey, "Activity routing key")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	return cmd
}

func printExpenses(w io.Writer, items []core.Expense) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No expenses yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tTITLE")
	for _, e := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, core.DateOnly(e.Date), e.Category, core.FormatAmount(e.Amount), e.Title)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\nCount: %d  Total: %s\n", len(items), core.FormatCurrency(core.Total(items)))
}

func printExpense(w io.Writer, e core.Expense) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", e.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", e.Title)
	fmt.Fprintf(tw, "Amount:\t%s\n", core.FormatAmount(e.Amount))
	fmt.Fprintf(tw, "Category:\t%s\n", e.Category)
	fmt.Fprintf(tw, "Date:\t%s\n", core.DateOnly(e.Date))
	if e.Notes != "" {
		fmt.Fprintf(tw, "Notes:\t%s\n", e.Notes)
	}
	_ = tw.Flush()
}

func formatEvent(msg *amqp.ActivityMessage) string {
	return fmt.Sprintf("%s %-16s %s %q %s",
		msg.Timestamp.Format(time.RFC3339), msg.Type, msg.ID, msg.Title, core.FormatAmount(msg.Amount))
}

func categoryList() string {
	names := make([]string, 0, len(core.Categories()))
	for _, c := range core.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
