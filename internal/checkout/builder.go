// Package checkout turns the cart plus the customer's shipping fields into
// a submitted order, tracking the submission through an explicit state
// machine.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/petalworks/storefront-core/pkg/errors"
	"github.com/petalworks/storefront-core/pkg/events"
	"github.com/petalworks/storefront-core/pkg/logger"
	"github.com/petalworks/storefront-core/pkg/metrics"
	"github.com/petalworks/storefront-core/pkg/money"
	"github.com/petalworks/storefront-core/pkg/types"
)

// State is the checkout submission phase.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const guestName = "Guest User"

type remoteOrders interface {
	SubmitOrder(ctx context.Context, order types.Order, accessToken string) (types.OrderConfirmation, error)
}

type tokenSource interface {
	AccessToken() string
	Current() types.Session
}

// Builder validates checkout input, freezes the cart into an order, and
// submits it. It reads the cart and session but never mutates either.
type Builder struct {
	remote   remoteOrders
	session  tokenSource
	log      *logger.Logger
	met      *metrics.StoreMetrics
	hub      *events.Hub[State]
	validate *validator.Validate

	mu    sync.Mutex
	state State
}

// Params bundles the dependencies required to build a checkout builder.
type Params struct {
	Remote  remoteOrders
	Session tokenSource
	Logger  *logger.Logger
	Metrics *metrics.StoreMetrics
}

// NewBuilder constructs a builder in the idle state.
func NewBuilder(params Params) (*Builder, error) {
	if params.Remote == nil {
		return nil, fmt.Errorf("remote order client is required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session source is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Builder{
		remote:   params.Remote,
		session:  params.Session,
		log:      params.Logger,
		met:      params.Metrics,
		hub:      events.NewHub[State](),
		validate: v,
	}, nil
}

// Validate checks the cart and fields without any network activity. An empty
// cart fails before field checks; a blank or malformed field fails with the
// field name in the error details.
func (b *Builder) Validate(fields types.CheckoutFields, lines []types.CartLine) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	if err := b.validate.Struct(fields); err != nil {
		var invalid validator.ValidationErrors
		if !errors.As(err, &invalid) || len(invalid) == 0 {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validating checkout fields")
		}
		field := invalid[0].Field()
		return pkgerrors.New(pkgerrors.CodeValidation, "missing or invalid "+field).
			WithDetails(map[string]any{"field": field})
	}
	return nil
}

// Build freezes the cart and fields into an order. It is pure: the total is
// recomputed from the lines rather than trusted from the caller, and the
// customer name falls back to a guest label when no profile is held.
func (b *Builder) Build(fields types.CheckoutFields, lines []types.CartLine) types.Order {
	orderLines := make([]types.OrderLine, 0, len(lines))
	lineTotals := make([]decimal.Decimal, 0, len(lines))
	for _, line := range lines {
		orderLines = append(orderLines, types.OrderLine{
			ItemID:    line.ItemID,
			Name:      line.Name,
			Image:     line.Image,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
		lineTotals = append(lineTotals, money.LineTotal(line.UnitPrice, line.Quantity))
	}

	name := guestName
	if session := b.session.Current(); session.Profile != nil {
		if full := session.Profile.FullName(); full != "" {
			name = full
		}
	}

	return types.Order{
		CustomerName: name,
		Address:      fields.Address,
		Phone:        fields.Phone,
		Email:        fields.Email,
		Lines:        orderLines,
		Total:        money.Sum(lineTotals...),
	}
}

// Submit posts the order with the current access token and tracks the state
// machine through Submitting into Succeeded or Failed.
func (b *Builder) Submit(ctx context.Context, order types.Order) (types.OrderConfirmation, error) {
	b.setState(StateSubmitting)

	confirmation, err := b.remote.SubmitOrder(ctx, order, b.session.AccessToken())
	if err != nil {
		b.met.IncOrderSubmit(metrics.ResultFailure)
		b.setState(StateFailed)
		return types.OrderConfirmation{}, err
	}

	b.met.IncOrderSubmit(metrics.ResultSuccess)
	b.setState(StateSucceeded)
	b.log.Info(b.log.WithField(ctx, "order_id", confirmation.OrderID), "order accepted")
	return confirmation, nil
}

// Checkout runs the full machine: validate, build, submit. Validation
// failures surface before any network call and leave the builder Failed.
func (b *Builder) Checkout(ctx context.Context, fields types.CheckoutFields, lines []types.CartLine) (types.OrderConfirmation, error) {
	b.setState(StateValidating)
	if err := b.Validate(fields, lines); err != nil {
		b.setState(StateFailed)
		return types.OrderConfirmation{}, err
	}
	return b.Submit(ctx, b.Build(fields, lines))
}

// Reset returns the builder to Idle so a new checkout can start.
func (b *Builder) Reset() {
	b.setState(StateIdle)
}

// CurrentState returns the submission phase.
func (b *Builder) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Subscribe registers an observer for state transitions.
func (b *Builder) Subscribe(fn func(State)) (cancel func()) {
	return b.hub.Subscribe(fn)
}

func (b *Builder) setState(next State) {
	b.mu.Lock()
	changed := b.state != next
	b.state = next
	b.mu.Unlock()
	if changed {
		b.hub.Publish(next)
	}
}
