package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"water-delivery/internal/app"
	"water-delivery/internal/core"
)

// Usage lists the one-shot commands.
const Usage = `Commands:
  deliver <order-id> --payment-type N [--amount X] [--returned N]
  preview <order-id> --payment-type N [--amount X] [--returned N]
  cancel  <order-id>
  order   <order-id>
  orders  [--status PENDING|IN_PROGRESS|DELIVERED|CANCELLED]
  client  <client-id>
  adjust  <client-id> --reason TEXT [--balance X] [--returnables N]
  payment-types`

// Exit codes by error kind.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitUsage       = 2
	ExitNotFound    = 3
	ExitConflict    = 4
	ExitPersistence = 5
)

// UsageError reports a malformed command line.
type UsageError struct{ Msg string }

func (e *UsageError) Error() string { return e.Msg }

// Run executes a one-shot command for companyID and writes its JSON result to out.
// args[0] is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, companyID, actorID int, args []string, out io.Writer) error {
	if len(args) == 0 {
		return &UsageError{Msg: "no command given\n" + Usage}
	}

	p := printer{out: out}
	switch args[0] {
	case "deliver", "preview":
		req, err := parseDeliver(args[0], args[1:])
		if err != nil {
			return err
		}
		req.CompanyID = companyID
		if args[0] == "preview" {
			return p.print(svc.PreviewDelivery(ctx, req))
		}
		return p.print(svc.DeliverOrder(ctx, req))

	case "cancel":
		id, err := onePositionalID(args, "order-id")
		if err != nil {
			return err
		}
		return p.print(svc.CancelOrder(ctx, companyID, id))

	case "order":
		id, err := onePositionalID(args, "order-id")
		if err != nil {
			return err
		}
		return p.print(svc.GetOrder(ctx, companyID, id))

	case "orders":
		fs := pflag.NewFlagSet("orders", pflag.ContinueOnError)
		fs.SetOutput(io.Discard)
		status := fs.String("status", "", "filter by order status")
		if err := fs.Parse(args[1:]); err != nil {
			return &UsageError{Msg: err.Error()}
		}
		var filter *string
		if *status != "" {
			filter = status
		}
		return p.print(svc.ListOrders(ctx, companyID, filter))

	case "client":
		id, err := onePositionalID(args, "client-id")
		if err != nil {
			return err
		}
		return p.print(svc.GetClient(ctx, companyID, id))

	case "adjust":
		req, err := parseAdjust(args[1:])
		if err != nil {
			return err
		}
		req.CompanyID = companyID
		req.ActorID = actorID
		return p.print(svc.AdjustClient(ctx, req))

	case "payment-types":
		return p.print(svc.ListPaymentTypes(ctx, companyID))

	default:
		return &UsageError{Msg: fmt.Sprintf("unknown command %q\n%s", args[0], Usage)}
	}
}

func parseDeliver(name string, args []string) (app.DeliverOrderRequest, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	paymentType := fs.Int("payment-type", 0, "payment type id")
	amount := fs.String("amount", "0", "cash collected at the door")
	returned := fs.Int("returned", 0, "returnable containers handed back")
	if err := fs.Parse(args); err != nil {
		return app.DeliverOrderRequest{}, &UsageError{Msg: err.Error()}
	}

	orderID, err := positionalID(fs.Args(), "order-id")
	if err != nil {
		return app.DeliverOrderRequest{}, err
	}
	collected, err := decimal.NewFromString(*amount)
	if err != nil {
		return app.DeliverOrderRequest{}, &UsageError{Msg: fmt.Sprintf("--amount %q is not a number", *amount)}
	}
	return app.DeliverOrderRequest{
		OrderID:             orderID,
		PaymentTypeID:       *paymentType,
		AmountCollected:     collected,
		ReturnablesReturned: *returned,
	}, nil
}

func parseAdjust(args []string) (app.AdjustClientRequest, error) {
	fs := pflag.NewFlagSet("adjust", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	balance := fs.String("balance", "0", "balance correction, positive when the client owes more")
	returnables := fs.Int("returnables", 0, "returnable count correction")
	reason := fs.String("reason", "", "why the correction is needed")
	if err := fs.Parse(args); err != nil {
		return app.AdjustClientRequest{}, &UsageError{Msg: err.Error()}
	}

	clientID, err := positionalID(fs.Args(), "client-id")
	if err != nil {
		return app.AdjustClientRequest{}, err
	}
	delta, err := decimal.NewFromString(*balance)
	if err != nil {
		return app.AdjustClientRequest{}, &UsageError{Msg: fmt.Sprintf("--balance %q is not a number", *balance)}
	}
	return app.AdjustClientRequest{
		ClientID:         clientID,
		BalanceDelta:     delta,
		ReturnablesDelta: *returnables,
		Reason:           *reason,
	}, nil
}

func onePositionalID(args []string, name string) (int, error) {
	return positionalID(args[1:], name)
}

func positionalID(args []string, name string) (int, error) {
	if len(args) != 1 {
		return 0, &UsageError{Msg: fmt.Sprintf("expected exactly one <%s>", name)}
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, &UsageError{Msg: fmt.Sprintf("<%s> %q is not an integer", name, args[0])}
	}
	return id, nil
}

type printer struct {
	out io.Writer
}

// print writes v as indented JSON unless err is set. It takes a service call's
// results directly.
func (p printer) print(v any, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ExitCode maps an error from Run onto the process exit status.
func ExitCode(err error) int {
	var ue *UsageError
	var ve *core.ValidationError
	var nf *core.NotFoundError
	var ce *core.ConflictError
	var pe *core.PersistenceError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ue), errors.As(err, &ve):
		return ExitUsage
	case errors.As(err, &nf):
		return ExitNotFound
	case errors.As(err, &ce):
		return ExitConflict
	case errors.As(err, &pe):
		return ExitPersistence
	default:
		return ExitError
	}
}
