package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"puerto-real/internal/adapters/repl"
	"puerto-real/internal/core"
)

func (r *runner) suppliersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "suppliers",
		Aliases: []string{"proveedores"},
		Short:   "Manage the supplier directory",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List suppliers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.ListSuppliers(cmd.Context())
			if err != nil {
				return err
			}
			return r.emit(cmd.OutOrStdout(), res, func() { repl.PrintSuppliers(cmd.OutOrStdout(), res) })
		},
	}

	var (
		input core.SupplierInput
		id    string
	)
	save := &cobra.Command{
		Use:   "save",
		Short: "Create a supplier, or update one with --id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			var sup *core.Supplier
			if id == "" {
				sup, err = svc.CreateSupplier(cmd.Context(), input)
			} else {
				sup, err = svc.UpdateSupplier(cmd.Context(), id, input)
			}
			if err != nil {
				return err
			}
			return r.emit(cmd.OutOrStdout(), sup, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Supplier %s saved (id %s).\n", sup.Code, sup.ID)
			})
		},
	}
	save.Flags().StringVar(&id, "id", "", "supplier id to update")
	save.Flags().StringVar(&input.Code, "code", "", "supplier code")
	save.Flags().StringVar(&input.Name, "name", "", "supplier name")
	save.Flags().StringVar(&input.ContactPerson, "contact", "", "contact person")
	save.Flags().StringVar(&input.Email, "email", "", "contact email")
	save.Flags().StringVar(&input.Phone, "phone", "", "phone number")
	save.Flags().StringVar(&input.Address, "address", "", "postal address")

	del := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a supplier",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DeleteSupplier(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Supplier %s deleted.\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, save, del)
	return cmd
}

func (r *runner) stockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stock",
		Aliases: []string{"products"},
		Short:   "Manage the stock list",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List products",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.ListProducts(cmd.Context())
			if err != nil {
				return err
			}
			return r.emit(cmd.OutOrStdout(), res, func() { repl.PrintProducts(cmd.OutOrStdout(), res) })
		},
	}

	var (
		input core.ProductInput
		id    string
	)
	save := &cobra.Command{
		Use:   "save",
		Short: "Create a product, or update one with --id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.SaveProduct(cmd.Context(), id, input)
			if err != nil {
				return err
			}
			return r.emit(cmd.OutOrStdout(), p, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Product %s saved (id %s).\n", p.Name, p.ID)
			})
		},
	}
	save.Flags().StringVar(&id, "id", "", "product id to update")
	save.Flags().StringVar(&input.Name, "name", "", "product name")
	save.Flags().StringVar(&input.Category, "category", "", "category")
	save.Flags().StringVar(&input.Stock, "stock", "", "units on hand")
	save.Flags().StringVar(&input.Price, "price", "", "unit price")

	del := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a product",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DeleteProduct(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Product %s deleted.\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, save, del)
	return cmd
}

func (r *runner) reportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Inventory analytics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.GetInventoryReport(cmd.Context())
			if err != nil {
				return err
			}
			return r.emit(cmd.OutOrStdout(), res, func() { repl.PrintInventoryReport(cmd.OutOrStdout(), res) })
		},
	}
}
