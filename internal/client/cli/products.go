package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/iudanet/inventory/internal/client/api"
	pkgapi "github.com/iudanet/inventory/pkg/api"
)

func (c *Cli) runProducts(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing subcommand. Usage: inventory products <list|add|update|delete>")
	}
	if err := c.requireLogin(); err != nil {
		return err
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "list", "ls":
		return c.runListProducts(ctx, rest)
	case "add":
		return c.runAddProduct(ctx, rest)
	case "update":
		return c.runUpdateProduct(ctx, rest)
	case "delete", "rm":
		return c.runDeleteProduct(ctx, rest)
	default:
		return fmt.Errorf("unknown products subcommand: %s. Use: list, add, update or delete", sub)
	}
}

func (c *Cli) runListProducts(ctx context.Context, args []string) error {
	fs := newFlagSet("products list")
	search := fs.String("search", "", "case-insensitive name filter")
	page := fs.Int("page", 0, "page number")
	limit := fs.Int("limit", 0, "page size (1..100)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp, err := c.user.ListProducts(ctx, api.ProductQuery{Search: *search, Page: *page, Limit: *limit})
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	if len(resp.Data) == 0 {
		c.io.Println("No products found.")
		c.io.Println()
		c.io.Println("Use 'inventory products add' to add your first product.")
		return nil
	}

	for i, p := range resp.Data {
		c.io.Printf("%d. %s\n", i+1, p.Name)
		c.io.Printf("   ID:       %s\n", p.ID)
		c.io.Printf("   Price:    %.2f\n", p.Price)
		c.io.Printf("   Quantity: %d\n", p.Quantity)
		if p.Description != "" {
			c.io.Printf("   Notes:    %s\n", p.Description)
		}
	}
	if pg := resp.Pagination; pg != nil {
		c.io.Println()
		c.io.Printf("Page %d of %d (%d total)\n", pg.Page, pg.TotalPages, pg.Total)
	}
	return nil
}

// productFlags общие флаги add и update
type productFlags struct {
	name        string
	description string
	price       string
	quantity    string
	set         map[string]bool
}

func parseProductFlags(name string, args []string) (*productFlags, error) {
	pf := &productFlags{set: map[string]bool{}}
	fs := newFlagSet(name)
	fs.StringVar(&pf.name, "name", "", "product name")
	fs.StringVar(&pf.description, "description", "", "product description")
	fs.StringVar(&pf.price, "price", "", "price, greater than 0")
	fs.StringVar(&pf.quantity, "quantity", "", "quantity, 0 or more")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { pf.set[f.Name] = true })
	return pf, nil
}

func (c *Cli) runAddProduct(ctx context.Context, args []string) error {
	pf, err := parseProductFlags("products add", args)
	if err != nil {
		return err
	}

	// Недостающие поля запрашиваются интерактивно
	if !pf.set["name"] {
		if pf.name, err = c.io.ReadInput("Name: "); err != nil {
			return fmt.Errorf("failed to read name: %w", err)
		}
	}
	if !pf.set["description"] {
		if pf.description, err = c.io.ReadInput("Description (optional): "); err != nil {
			return fmt.Errorf("failed to read description: %w", err)
		}
	}
	if !pf.set["price"] {
		if pf.price, err = c.io.ReadInput("Price: "); err != nil {
			return fmt.Errorf("failed to read price: %w", err)
		}
	}
	if !pf.set["quantity"] {
		if pf.quantity, err = c.io.ReadInput("Quantity: "); err != nil {
			return fmt.Errorf("failed to read quantity: %w", err)
		}
	}

	price, err := parsePrice(pf.price)
	if err != nil {
		return err
	}
	quantity, err := parseQuantity(pf.quantity)
	if err != nil {
		return err
	}

	p, err := c.user.CreateProduct(ctx, pkgapi.CreateProductRequest{
		Name:        pf.name,
		Description: pf.description,
		Price:       &price,
		Quantity:    &quantity,
	})
	if err != nil {
		c.printFieldErrors(err)
		return fmt.Errorf("failed to create product: %w", err)
	}

	c.io.Println("✓ Product created!")
	c.io.Printf("ID: %s\n", p.ID)
	return nil
}

func (c *Cli) runUpdateProduct(ctx context.Context, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("usage: inventory products update ID [-name N] [-description D] [-price P] [-quantity Q]")
	}
	id := args[0]

	pf, err := parseProductFlags("products update", args[1:])
	if err != nil {
		return err
	}
	if len(pf.set) == 0 {
		return fmt.Errorf("nothing to update: pass at least one of -name, -description, -price, -quantity")
	}

	var req pkgapi.UpdateProductRequest
	if pf.set["name"] {
		req.Name = &pf.name
	}
	if pf.set["description"] {
		req.Description = &pf.description
	}
	if pf.set["price"] {
		price, err := parsePrice(pf.price)
		if err != nil {
			return err
		}
		req.Price = &price
	}
	if pf.set["quantity"] {
		quantity, err := parseQuantity(pf.quantity)
		if err != nil {
			return err
		}
		req.Quantity = &quantity
	}

	p, err := c.user.UpdateProduct(ctx, id, req)
	if err != nil {
		c.printFieldErrors(err)
		return fmt.Errorf("failed to update product: %w", err)
	}

	c.io.Println("✓ Product updated!")
	c.io.Printf("%s: %.2f x %d\n", p.Name, p.Price, p.Quantity)
	return nil
}

func (c *Cli) runDeleteProduct(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: inventory products delete ID")
	}

	if err := c.user.DeleteProduct(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	c.io.Println("✓ Product deleted successfully")
	return nil
}

func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: must be a number", s)
	}
	return v, nil
}

func parseQuantity(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: must be a whole number", s)
	}
	return v, nil
}
