package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"puerto-real/internal/app"
	"puerto-real/internal/apperr"
)

var errExit = errors.New("exit")

// session is one interactive run over a reader and writer.
type session struct {
	ctx context.Context
	svc app.ApplicationService
	in  *bufio.Reader
	out io.Writer
}

// readLine prompts and returns the next trimmed line. io.EOF is returned only
// when the input ends without a final line.
func (s *session) readLine(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	line, err := s.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Run starts the interactive back office loop. Slash commands are dispatched
// to the ApplicationService; /new and /edit open the purchase form wizard.
// It returns nil on /exit or end of input.
func Run(ctx context.Context, svc app.ApplicationService, in io.Reader, out io.Writer) error {
	s := &session{ctx: ctx, svc: svc, in: bufio.NewReader(in), out: out}

	fmt.Fprintln(out, "Puerto Real back office")
	fmt.Fprintln(out, "Use /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		input, err := s.readLine("\n> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "\nGoodbye!")
				return nil
			}
			return err
		}
		if input == "" {
			continue
		}
		if !strings.HasPrefix(input, "/") {
			fmt.Fprintln(out, "Commands start with /. Type /help for the list.")
			continue
		}

		if err := s.dispatch(input); err != nil {
			if errors.Is(err, errExit) {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "\nGoodbye!")
				return nil
			}
			fmt.Fprintf(out, "Error: %s\n", apperr.UserMessage(err))
		}
	}
}

func (s *session) dispatch(input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch cmd {
	case "list", "ls":
		return s.list(app.SearchPurchasesRequest{Query: strings.Join(args, " ")})

	case "find", "search":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: /find <fields> <query>   e.g. /find supplier,code malbec")
			return nil
		}
		return s.list(app.SearchPurchasesRequest{
			Fields: strings.Split(args[0], ","),
			Query:  strings.Join(args[1:], " "),
		})

	case "show":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /show <code|id>")
			return nil
		}
		res, err := s.svc.GetPurchase(s.ctx, args[0])
		if err != nil {
			return err
		}
		PrintPurchase(s.out, res.Purchase)

	case "new", "add":
		return s.runForm("")

	case "edit":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /edit <code|id>")
			return nil
		}
		return s.runForm(args[0])

	case "delete", "rm":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /delete <code|id>")
			return nil
		}
		return s.deletePurchase(args[0])

	case "suppliers":
		res, err := s.svc.ListSuppliers(s.ctx)
		if err != nil {
			return err
		}
		PrintSuppliers(s.out, res)

	case "stock", "products":
		res, err := s.svc.ListProducts(s.ctx)
		if err != nil {
			return err
		}
		PrintProducts(s.out, res)

	case "report":
		res, err := s.svc.GetInventoryReport(s.ctx)
		if err != nil {
			return err
		}
		PrintInventoryReport(s.out, res)

	case "summary":
		res, err := s.svc.GetPurchaseSummary(s.ctx)
		if err != nil {
			return err
		}
		PrintPurchaseSummary(s.out, res)

	case "help", "h":
		printHelp(s.out)

	case "exit", "quit", "e", "q":
		return errExit

	default:
		fmt.Fprintf(s.out, "Unknown command: /%s  (type /help for all commands)\n", cmd)
	}
	return nil
}

func (s *session) list(req app.SearchPurchasesRequest) error {
	res, err := s.svc.ListPurchases(s.ctx, req)
	if err != nil {
		return err
	}
	PrintPurchases(s.out, res)
	return nil
}

func (s *session) deletePurchase(ref string) error {
	res, err := s.svc.GetPurchase(s.ctx, ref)
	if err != nil {
		return err
	}
	PrintPurchase(s.out, res.Purchase)

	choice, err := s.readLine(fmt.Sprintf("\nDelete %s? (y/n): ", res.Purchase.Code))
	if err != nil {
		return err
	}
	if c := strings.ToLower(choice); c != "y" && c != "yes" {
		fmt.Fprintln(s.out, "Kept.")
		return nil
	}
	if err := s.svc.DeletePurchase(s.ctx, res.Purchase.ID); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Purchase %s deleted.\n", res.Purchase.Code)
	return nil
}
