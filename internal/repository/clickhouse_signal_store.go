package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"CryptoSatX/internal/domain/models"
	domrepo "CryptoSatX/internal/domain/repository"
	pkgch "CryptoSatX/pkg/clickhouse"
	applogger "CryptoSatX/pkg/logger"
)

// DefaultSignalTable holds one row per generated signal.
const DefaultSignalTable = "signals"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SignalSchema returns the DDL for the signal table.
func SignalSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ts           DateTime64(3, 'UTC'),
            symbol       LowCardinality(String),
            signal       LowCardinality(String),
            score        Float64,
            confidence   LowCardinality(String),
            price        Float64,
            dispersion   Float64,
            success_rate Float64,
            reasons      Array(String),
            payload      String
        )
        ENGINE = MergeTree
        PARTITION BY toYYYYMM(ts)
        ORDER BY (symbol, ts)
        TTL toDateTime(ts) + INTERVAL 90 DAY
    `, table)}
}

// CHSignalStore implements SignalStore backed by ClickHouse.
type CHSignalStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHSignalStore creates the store and makes sure its table exists.
func NewCHSignalStore(ctx context.Context, ch *pkgch.Client, table string, l *applogger.Logger) (*CHSignalStore, error) {
	if table == "" {
		table = DefaultSignalTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid signal table name %q", table)
	}
	if l == nil {
		l = applogger.Nop()
	}
	if err := ch.InitSchema(ctx, SignalSchema(table)); err != nil {
		return nil, err
	}
	return &CHSignalStore{db: ch.DB(), table: table, l: l}, nil
}

var _ domrepo.SignalStore = (*CHSignalStore)(nil)

func (s *CHSignalStore) Save(ctx context.Context, sig *models.SignalResult) error {
	if sig == nil {
		return nil
	}
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("encode signal: %w", err)
	}
	reasons := sig.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	start := time.Now()
	q := fmt.Sprintf(`INSERT INTO %s (ts, symbol, signal, score, confidence, price, dispersion, success_rate, reasons, payload)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err = s.db.ExecContext(ctx, q,
		sig.Timestamp.UTC(),
		sig.Symbol,
		string(sig.Signal),
		sig.Score,
		string(sig.Confidence),
		sig.Price,
		sig.Dispersion,
		sig.DataQuality.SuccessRate,
		reasons,
		string(payload),
	)
	if err != nil {
		s.l.Error("clickhouse save_signal error",
			applogger.String("table", s.table),
			applogger.String("symbol", sig.Symbol),
			applogger.Error(err),
		)
		return fmt.Errorf("save signal: %w", err)
	}
	s.l.Debug("clickhouse save_signal ok",
		applogger.String("symbol", sig.Symbol),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Recent returns the newest signals for symbol, newest first.
func (s *CHSignalStore) Recent(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error) {
	q := fmt.Sprintf(`SELECT payload FROM %s WHERE symbol = ? ORDER BY ts DESC LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		s.l.Error("clickhouse recent_signals query error",
			applogger.String("symbol", symbol),
			applogger.Int("limit", limit),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("recent signals: %w", err)
	}
	defer rows.Close()

	out := make([]*models.SignalResult, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig, err := decodeSignal(payload)
		if err != nil {
			s.l.Warn("skipping undecodable signal row",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
			continue
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func decodeSignal(payload string) (*models.SignalResult, error) {
	var sig models.SignalResult
	if err := json.Unmarshal([]byte(payload), &sig); err != nil {
		return nil, err
	}
	if sig.Symbol == "" {
		return nil, fmt.Errorf("signal payload without symbol")
	}
	return &sig, nil
}
