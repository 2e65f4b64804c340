// Package store persists restaurant data in Postgres. It backs both the
// customer store and the menu catalog contracts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
)

const priorOrderLimit = 5

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"8"`
	QueryTimeout time.Duration `envconfig:"QUERY_TIMEOUT" split_words:"true" default:"5s"`
}

// Store implements contract.CustomerStore and contract.Catalog over a bun
// Postgres connection.
type Store struct {
	db           *bun.DB
	queryTimeout time.Duration
}

var (
	_ contractx.CustomerStore = (*Store)(nil)
	_ contractx.Catalog       = (*Store)(nil)
)

func New(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", contractx.ErrValidation)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)

	return &Store{
		db:           bun.NewDB(sqldb, pgdialect.New()),
		queryTimeout: cfg.QueryTimeout,
	}, nil
}

// NewWithDB wraps an existing connection; used by tests.
func NewWithDB(db *bun.DB) *Store {
	return &Store{db: db, queryTimeout: 5 * time.Second}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListAvailableItems returns the orderable menu grouped for directive
// rendering, cheapest first within each category.
func (s *Store) ListAvailableItems(ctx context.Context) ([]contractx.MenuItem, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []MenuItemRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("available = TRUE").
		Order("category ASC", "price ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}

	items := make([]contractx.MenuItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, contractx.MenuItem{
			ID:          r.ID,
			Name:        r.Name,
			Price:       r.Price,
			Description: r.Description,
			Category:    r.Category,
		})
	}
	return items, nil
}

// LookupCustomer returns the history snapshot for a normalized phone number.
// An unknown customer yields an empty snapshot and no error.
func (s *Store) LookupCustomer(ctx context.Context, phone string) (contractx.CustomerHistory, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var customer CustomerRow
	err := s.db.NewSelect().
		Model(&customer).
		Where("phone = ?", phone).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.CustomerHistory{}, nil
	}
	if err != nil {
		return contractx.CustomerHistory{}, fmt.Errorf("lookup customer %s: %w", phone, err)
	}

	var orders []OrderRow
	err = s.db.NewSelect().
		Model(&orders).
		Column("id", "total_amount", "order_time").
		Where("customer_phone = ?", phone).
		Order("order_time DESC").
		Limit(priorOrderLimit).
		Scan(ctx)
	if err != nil {
		return contractx.CustomerHistory{}, fmt.Errorf("lookup prior orders %s: %w", phone, err)
	}

	history := contractx.CustomerHistory{
		Name:          customer.Name,
		LoyaltyPoints: customer.LoyaltyPoints,
		Preferences:   customer.Preferences,
	}
	for _, o := range orders {
		history.PriorOrders = append(history.PriorOrders, contractx.PriorOrder{
			OrderID:   o.ID,
			Total:     o.TotalAmount,
			OrderTime: o.OrderTime,
		})
	}
	return history, nil
}

// CommitOrder writes the order as one row. Replays of the same order id are
// absorbed by the conflict clause, so a retried commit never duplicates.
func (s *Store) CommitOrder(ctx context.Context, order contractx.Order) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	items := make([]OrderItemDoc, 0, len(order.Items))
	for _, li := range order.Items {
		items = append(items, OrderItemDoc{
			MenuItemID:    li.MenuItemID,
			MenuItemName:  li.MenuItemName,
			Quantity:      li.Quantity,
			UnitPrice:     li.UnitPrice,
			Modifications: li.Modifications,
		})
	}

	row := &OrderRow{
		ID:                  order.ID,
		CustomerName:        order.CustomerName,
		CustomerPhone:       order.CustomerPhone,
		Items:               items,
		TotalAmount:         order.TotalAmount,
		PaymentMethod:       order.PaymentMethod,
		SpecialInstructions: order.SpecialInstructions,
		CallID:              order.CallID,
		SessionID:           order.SessionID,
		OrderTime:           order.OrderTime,
	}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: order %s: %v", contractx.ErrCommitFailed, order.ID, err)
	}
	return nil
}

func (s *Store) CommitReservation(ctx context.Context, res contractx.Reservation) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := &ReservationRow{
		ID:            res.ID,
		CustomerName:  res.CustomerName,
		CustomerPhone: res.CustomerPhone,
		Date:          res.Date,
		Time:          res.Time,
		PartySize:     res.PartySize,
		CallID:        res.CallID,
		CreatedAt:     res.CreatedAt,
	}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: reservation %s: %v", contractx.ErrCommitFailed, res.ID, err)
	}
	return nil
}

// LogError records a diagnostic row. It is best-effort; a failed write is
// logged and swallowed.
func (s *Store) LogError(ctx context.Context, rec contractx.ErrorRecord) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := &CallErrorRow{
		CorrelationID: rec.CorrelationID,
		Role:          rec.Role,
		SessionID:     rec.SessionID,
		CustomerPhone: rec.CustomerPhone,
		Message:       rec.Message,
		At:            rec.At,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		log.Warn().Err(err).Str("correlation_id", rec.CorrelationID).Msg("failed to record call error")
	}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}
