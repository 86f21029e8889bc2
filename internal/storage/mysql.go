package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"

	"topup-gateway/internal/config"
	"topup-gateway/internal/logger"
	"topup-gateway/internal/migration"
	"topup-gateway/internal/models"
)

type MySQLStore struct {
	db  *bun.DB
	log *logger.Logger
}

func NewMySQLStore(cfg config.DatabaseConfig, log *logger.Logger) (*MySQLStore, error) {
	log.LogDatabase("CONNECT", "mysql", fmt.Sprintf("Connecting to MySQL at %s:%s", cfg.Host, cfg.Port))

	sqldb, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		log.Error("DATABASE", "Failed to open MySQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := newMySQLStoreWithDB(ctx, sqldb, log)
	if err != nil {
		sqldb.Close()
		return nil, err
	}
	return store, nil
}

func newMySQLStoreWithDB(ctx context.Context, sqldb *sql.DB, log *logger.Logger) (*MySQLStore, error) {
	if err := sqldb.PingContext(ctx); err != nil {
		log.Error("DATABASE", "Failed to ping MySQL: "+err.Error())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &MySQLStore{
		db:  bun.NewDB(sqldb, mysqldialect.New()),
		log: log,
	}

	if err := store.initTables(ctx); err != nil {
		log.Error("DATABASE", "Failed to initialize tables: "+err.Error())
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	log.LogDatabase("SUCCESS", "mysql", "MySQL connection established and tables initialized")
	return store, nil
}

func (s *MySQLStore) initTables(ctx context.Context) error {
	s.log.LogDatabase("MIGRATE", "mysql", "Creating topup_orders and payment_gateways tables if not exists")
	return migration.Apply(ctx, s.db.DB)
}

func (s *MySQLStore) SaveOrder(ctx context.Context, order *models.Order) error {
	s.log.LogDatabase("INSERT", "mysql", fmt.Sprintf("Saving order %s", order.ID))

	if _, err := s.db.NewInsert().Model(order).Exec(ctx); err != nil {
		if isDuplicateKey(err) {
			return ErrOrderExists
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save order %s: %s", order.ID, err.Error()))
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

func (s *MySQLStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	s.log.LogDatabase("SELECT", "mysql", fmt.Sprintf("Fetching order %s", orderID))

	order := new(models.Order)
	err := s.db.NewSelect().Model(order).Where("id = ?", orderID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.log.LogDatabase("NOT_FOUND", "mysql", fmt.Sprintf("Order not found: %s", orderID))
			return nil, ErrOrderNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get order %s: %s", orderID, err.Error()))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (s *MySQLStore) ListOrders(ctx context.Context, status models.OrderStatus, limit, offset int) ([]*models.Order, error) {
	s.log.LogDatabase("SELECT", "mysql", fmt.Sprintf("Listing orders (status: %q, limit: %d, offset: %d)", status, limit, offset))

	orders := make([]*models.Order, 0)
	q := s.db.NewSelect().Model(&orders).Order("created_at DESC").Offset(offset)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to list orders: %s", err.Error()))
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *MySQLStore) TransitionOrder(ctx context.Context, orderID string, from []models.OrderStatus, update models.StatusUpdate) (bool, error) {
	s.log.LogDatabase("UPDATE", "mysql", fmt.Sprintf("Transitioning order %s %v -> %s", orderID, from, update.Status))

	q := s.db.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", update.Status).
		Set("status_message = ?", update.StatusMessage).
		Set("updated_at = ?", time.Now().UTC())
	if update.PaymentMethod != "" {
		q = q.Set("payment_method = ?", update.PaymentMethod)
	}

	res, err := q.Where("id = ?", orderID).Where("status IN (?)", bun.In(from)).Exec(ctx)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to transition order %s: %s", orderID, err.Error()))
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (s *MySQLStore) FindStaleOrders(ctx context.Context, status models.OrderStatus, olderThan time.Duration) ([]*models.Order, error) {
	orders := make([]*models.Order, 0)
	err := s.db.NewSelect().
		Model(&orders).
		Where("status = ?", status).
		Where("updated_at < ?", time.Now().UTC().Add(-olderThan)).
		Order("updated_at ASC").
		Limit(500).
		Scan(ctx)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to find stale %s orders: %s", status, err.Error()))
		return nil, fmt.Errorf("failed to find stale orders: %w", err)
	}
	return orders, nil
}

func (s *MySQLStore) GetGateway(ctx context.Context, slug string) (*models.PaymentGateway, error) {
	gw := new(models.PaymentGateway)
	err := s.db.NewSelect().Model(gw).Where("slug = ?", slug).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGatewayNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get gateway %s: %s", slug, err.Error()))
		return nil, fmt.Errorf("failed to get gateway: %w", err)
	}
	return gw, nil
}

func (s *MySQLStore) SaveGateway(ctx context.Context, gateway *models.PaymentGateway) error {
	s.log.LogDatabase("UPSERT", "mysql", fmt.Sprintf("Saving gateway %s", gateway.Slug))

	_, err := s.db.NewInsert().
		Model(gateway).
		On("DUPLICATE KEY UPDATE").
		Set("name = VALUES(name)").
		Set("config = VALUES(config)").
		Set("is_active = VALUES(is_active)").
		Set("updated_at = VALUES(updated_at)").
		Exec(ctx)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save gateway %s: %s", gateway.Slug, err.Error()))
		return fmt.Errorf("failed to save gateway: %w", err)
	}
	return nil
}

func (s *MySQLStore) Close() error {
	s.log.LogDatabase("CLOSE", "mysql", "Closing MySQL connection")
	return s.db.Close()
}

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

func (s *MySQLStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
