package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/benvon/homehero/internal/pages"
)

func newBookingsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "bookings",
		Short: "List your bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				view, err := a.pages.MyBookings(ctx)
				if err != nil {
					return err
				}
				a.out.Bookings(view)
				return nil
			})
		},
	}
}

func newCancelCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <booking-id>",
		Short: "Cancel a pending booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				view, err := a.pages.MyBookings(ctx)
				if err != nil {
					return err
				}
				if err := a.pages.CancelBooking(ctx, view, args[0]); err != nil {
					return err
				}
				a.out.Success("Your booking has been cancelled.")
				return nil
			})
		},
	}
}

func newReviewCmd(g *globalFlags) *cobra.Command {
	var rating int
	var comment string

	cmd := &cobra.Command{
		Use:   "review <booking-id>",
		Short: "Review the service of one of your bookings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				view, err := a.pages.MyBookings(ctx)
				if err != nil {
					return err
				}
				if err := a.pages.Review(ctx, view, args[0], rating, comment); err != nil {
					return err
				}
				a.out.Success("Review added successfully!")
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&rating, "rating", pages.DefaultRating, "Stars, 1 to 5")
	cmd.Flags().StringVar(&comment, "comment", "", "Review text (required)")
	return cmd
}
