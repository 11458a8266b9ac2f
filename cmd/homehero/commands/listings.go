package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benvon/homehero/internal/validation"
)

func newMyServicesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "my-services",
		Short: "List the services you provide",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				view, err := a.pages.MyServices(ctx)
				if err != nil {
					return err
				}
				a.out.MyServices(view)
				return nil
			})
		},
	}
}

func serviceFlags(cmd *cobra.Command, f *validation.ServiceForm) {
	cmd.Flags().StringVar(&f.ServiceName, "name", "", "Service name")
	cmd.Flags().StringVar(&f.Category, "category", "", "Category")
	cmd.Flags().StringVar(&f.Price, "price", "", "Price")
	cmd.Flags().StringVar(&f.Description, "description", "", "Description")
	cmd.Flags().StringVar(&f.ImageURL, "image", "", "Image URL")
}

func newAddServiceCmd(g *globalFlags) *cobra.Command {
	var form validation.ServiceForm

	cmd := &cobra.Command{
		Use:   "add-service",
		Short: "Offer a new service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				id, err := a.pages.AddService(ctx, form)
				if err != nil {
					return err
				}
				a.out.Success(fmt.Sprintf("Service added successfully! (%s)", id))
				return nil
			})
		},
	}
	serviceFlags(cmd, &form)
	return cmd
}

func newUpdateServiceCmd(g *globalFlags) *cobra.Command {
	var changes validation.ServiceForm

	cmd := &cobra.Command{
		Use:   "update-service <id>",
		Short: "Edit one of your services; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				form, err := a.pages.EditService(ctx, args[0])
				if err != nil {
					return err
				}
				flags := cmd.Flags()
				if flags.Changed("name") {
					form.ServiceName = changes.ServiceName
				}
				if flags.Changed("category") {
					form.Category = changes.Category
				}
				if flags.Changed("price") {
					form.Price = changes.Price
				}
				if flags.Changed("description") {
					form.Description = changes.Description
				}
				if flags.Changed("image") {
					form.ImageURL = changes.ImageURL
				}
				if err := a.pages.UpdateService(ctx, args[0], form); err != nil {
					return err
				}
				a.out.Success("Service updated successfully!")
				return nil
			})
		},
	}
	serviceFlags(cmd, &changes)
	return cmd
}

func newDeleteServiceCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-service <id>",
		Short: "Delete one of your services",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				view, err := a.pages.MyServices(ctx)
				if err != nil {
					return err
				}
				if err := a.pages.DeleteService(ctx, view, args[0]); err != nil {
					return err
				}
				a.out.Success("Service deleted")
				a.out.MyServices(view)
				return nil
			})
		},
	}
}
