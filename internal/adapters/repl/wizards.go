package repl

import (
	"fmt"
	"strconv"
	"strings"

	"puerto-real/internal/apperr"
)

// runForm drives the purchase form until it is saved or cancelled. An empty
// ref opens a new purchase.
func (s *session) runForm(ref string) error {
	form, err := s.svc.OpenPurchaseForm(s.ctx, ref)
	if err != nil {
		return err
	}
	printForm(s.out, form)
	printFormHelp(s.out)

	for {
		raw, err := s.readLine("form> ")
		if err != nil {
			return err
		}
		if raw == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(raw, " ")
		rest = strings.TrimSpace(rest)

		switch strings.ToLower(cmd) {
		case "supplier", "s":
			if rest == "" {
				fmt.Fprintln(s.out, "  Usage: supplier <name|code>")
				continue
			}
			form.SetSupplier(rest)
			fmt.Fprintf(s.out, "  Supplier: %s\n", form.Supplier())

		case "add", "a":
			name, price, ok := splitItem(rest)
			if !ok {
				fmt.Fprintln(s.out, "  Usage: add <item name> <price>")
				continue
			}
			if err := form.AddItem(name, price); err != nil {
				fmt.Fprintf(s.out, "  %s\n", apperr.UserMessage(err))
				continue
			}
			fmt.Fprintf(s.out, "  Line %d added. Total: %s\n", len(form.Items()), form.Total().StringFixed(2))

		case "remove", "rm", "r":
			line, err := strconv.Atoi(rest)
			if err != nil {
				fmt.Fprintln(s.out, "  Usage: remove <line>")
				continue
			}
			if err := form.RemoveItem(line - 1); err != nil {
				fmt.Fprintf(s.out, "  No line %d.\n", line)
				continue
			}
			fmt.Fprintf(s.out, "  Line %d removed. Total: %s\n", line, form.Total().StringFixed(2))

		case "show", "ls":
			printForm(s.out, form)

		case "total", "t":
			fmt.Fprintf(s.out, "  Total: %s\n", form.Total().StringFixed(2))

		case "save", "commit":
			res, err := s.svc.SubmitPurchaseForm(s.ctx, form)
			if err != nil {
				fmt.Fprintf(s.out, "  %s\n", apperr.UserMessage(err))
				continue
			}
			fmt.Fprintf(s.out, "Purchase %s saved.\n", res.Purchase.Code)
			PrintPurchase(s.out, res.Purchase)
			return nil

		case "cancel", "q":
			fmt.Fprintln(s.out, "Draft discarded.")
			return nil

		case "help", "?":
			printFormHelp(s.out)

		default:
			fmt.Fprintf(s.out, "  Unknown form command: %s\n", cmd)
		}
	}
}

// splitItem takes the last word as the price and the rest as the item name.
func splitItem(s string) (name, price string, ok bool) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return "", "", false
	}
	name, price = strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	return name, price, name != "" && price != ""
}
