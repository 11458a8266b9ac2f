package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/benvon/homehero/internal/catalog"
)

func newHomeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show featured services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				services, err := a.pages.Home(ctx)
				if err != nil {
					return err
				}
				a.out.Services(services)
				return nil
			})
		},
	}
}

func newServicesCmd(g *globalFlags) *cobra.Command {
	var search, category, minPrice, maxPrice string

	cmd := &cobra.Command{
		Use:   "services",
		Short: "Browse and filter all services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria := catalog.ParseCriteria(search, category, minPrice, maxPrice)
			return run(cmd, g, func(ctx context.Context, a *app) error {
				view, err := a.pages.Services(ctx, criteria)
				if err != nil {
					return err
				}
				a.out.Browse(view)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Match service name or description")
	cmd.Flags().StringVar(&category, "category", catalog.AllCategories, "Exact category, or 'all'")
	cmd.Flags().StringVar(&minPrice, "min", "", "Minimum price (inclusive)")
	cmd.Flags().StringVar(&maxPrice, "max", "", "Maximum price (inclusive)")
	return cmd
}

func newServiceCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "service <id>",
		Short: "Show one service and its reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				svc, err := a.pages.ServiceDetails(ctx, args[0])
				if err != nil {
					return err
				}
				a.out.Service(svc)
				return nil
			})
		},
	}
}

func newBookCmd(g *globalFlags) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "book <service-id>",
		Short: "Book a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				svc, err := a.pages.ServiceDetails(ctx, args[0])
				if err != nil {
					return err
				}
				if _, err := a.pages.Book(ctx, svc, date); err != nil {
					return err
				}
				a.out.Success("Service booked successfully!")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Booking date, YYYY-MM-DD (required)")
	return cmd
}
