package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"somnicart/internal/cartstore"
	"somnicart/internal/domain"
	"somnicart/internal/service/checkout"
)

const usage = `usage: cartctl <command> [args]

commands:
  show                          print the local cart
  add <handle> [variant] [qty]  add a product variant (first variant, qty 1 by default)
  set <variant> <qty>           set a line quantity (0 removes)
  remove <variant>              remove a line
  clear                         empty the cart
  checkout                      start a hosted checkout
  complete <cartId>             confirm a finished checkout and clear the cart
  login <user>                  sign this device in
  logout                        sign this device out
  watch                         keep the cart in sync and read commands from stdin`

var errUsage = errors.New("invalid arguments")

type catalog interface {
	ProductByHandle(ctx context.Context, handle string) (*domain.Product, error)
}

type authControl interface {
	SignIn(ctx context.Context, userID string) error
	SignOut(ctx context.Context) error
}

// app runs one command against the local cart.
type app struct {
	store   *cartstore.Store
	catalog catalog
	auth    authControl
	user    func() string
	out     io.Writer
}

// mutates reports whether cmd changes the local cart.
func mutates(cmd string) bool {
	switch cmd {
	case "add", "set", "remove", "clear", "checkout", "complete":
		return true
	}
	return false
}

func (a *app) exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "show":
		a.show()
		return nil
	case "add":
		return a.add(ctx, rest)
	case "set":
		if len(rest) != 2 {
			return errUsage
		}
		qty, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("quantity %q: %w", rest[1], errUsage)
		}
		a.store.SetQuantity(rest[0], qty)
		a.show()
		return nil
	case "remove":
		if len(rest) != 1 {
			return errUsage
		}
		a.store.RemoveLine(rest[0])
		a.show()
		return nil
	case "clear":
		a.store.Clear()
		fmt.Fprintln(a.out, "cart cleared")
		return nil
	case "checkout":
		return a.checkout(ctx)
	case "complete":
		if len(rest) != 1 {
			return errUsage
		}
		if a.store.CompleteCheckout(rest[0]) {
			fmt.Fprintln(a.out, "checkout confirmed, cart cleared")
		} else {
			fmt.Fprintln(a.out, "checkout does not match this cart, nothing cleared")
		}
		return nil
	case "login":
		if len(rest) != 1 || a.auth == nil {
			return errUsage
		}
		return a.auth.SignIn(ctx, rest[0])
	case "logout":
		if a.auth == nil {
			return errUsage
		}
		return a.auth.SignOut(ctx)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func (a *app) add(ctx context.Context, rest []string) error {
	if len(rest) < 1 || len(rest) > 3 {
		return errUsage
	}
	variantID, qty := "", 1
	if len(rest) >= 2 {
		variantID = rest[1]
	}
	if len(rest) == 3 {
		n, err := strconv.Atoi(rest[2])
		if err != nil {
			return fmt.Errorf("quantity %q: %w", rest[2], errUsage)
		}
		qty = n
	}

	product, err := a.catalog.ProductByHandle(ctx, rest[0])
	if err != nil {
		return fmt.Errorf("look up %s: %w", rest[0], err)
	}
	variant, ok := product.Variant(variantID)
	if !ok {
		return fmt.Errorf("%s has no variant %q", product.Handle, variantID)
	}
	if !variant.AvailableForSale {
		return fmt.Errorf("%s (%s) is not available for sale", product.Title, variant.Title)
	}
	if err := a.store.AddLine(product.LineFor(variant, qty)); err != nil {
		return err
	}
	a.show()
	return nil
}

func (a *app) checkout(ctx context.Context) error {
	session, err := a.store.StartCheckout(ctx)
	if err != nil {
		path, msg := checkout.Presentation(err)
		fmt.Fprintf(a.out, "checkout failed (%s): %s\n", path, msg)
		return err
	}
	if session.CartID != "" {
		fmt.Fprintf(a.out, "after paying, run: cartctl complete %s\n", session.CartID)
	}
	return nil
}

func (a *app) show() {
	cart := a.store.Snapshot()
	if a.user != nil {
		if u := a.user(); u != "" {
			fmt.Fprintf(a.out, "signed in as %s\n", u)
		}
	}
	if len(cart.Lines) == 0 {
		fmt.Fprintln(a.out, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tPRODUCT\tQTY\tUNIT\tSUBTOTAL")
	for _, l := range cart.Lines {
		name := strings.TrimSpace(l.Product.Title + " " + l.Product.VariantTitle)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", l.VariantID, name, l.Quantity,
			l.UnitPrice.Amount.StringFixed(2), l.Subtotal().StringFixed(2))
	}
	tw.Flush()
	total := cart.TotalPrice()
	fmt.Fprintf(a.out, "%d items, total %s %s\n", cart.TotalItemCount(), total.Amount.StringFixed(2), total.CurrencyCode)
	if cart.RemoteCartHandle != nil {
		fmt.Fprintf(a.out, "checkout cart %s\n", *cart.RemoteCartHandle)
	}
}
