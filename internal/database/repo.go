package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrFundExists = errors.New("fund already exists")
	ErrNotFound   = errors.New("not found")
)

const fundColumns = `id, fund_code, fund_name, cost, shares, note, created_at, updated_at`

const dailyColumns = `id, fund_code, nav, daily_change, to_char(date, 'YYYY-MM-DD') AS date`

type Repo struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func New(db *sqlx.DB, log *logrus.Logger) *Repo {
	return &Repo{db: db, log: log}
}

func (r *Repo) ListFunds(ctx context.Context) ([]Fund, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT `+fundColumns+` FROM funds ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Fund{}
	for rows.Next() {
		var f Fund
		if err := rows.StructScan(&f); err != nil {
			r.log.Warnf("scan fund failed: %v", err)
			continue
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

func (r *Repo) GetFund(ctx context.Context, id int64) (Fund, error) {
	var f Fund
	err := r.db.GetContext(ctx, &f, `SELECT `+fundColumns+` FROM funds WHERE id = $1`, id)
	return f, notFound(err)
}

func (r *Repo) GetFundByCode(ctx context.Context, code string) (Fund, error) {
	var f Fund
	err := r.db.GetContext(ctx, &f, `SELECT `+fundColumns+` FROM funds WHERE fund_code = $1`, code)
	return f, notFound(err)
}

// CreateFund inserts f and fills in its generated columns.
func (r *Repo) CreateFund(ctx context.Context, f *Fund) error {
	q := `INSERT INTO funds (fund_code, fund_name, cost, shares, note, created_at, updated_at) VALUES ($1, $2, $3::numeric, $4::numeric, $5, now(), now()) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q, f.FundCode, f.FundName, f.Cost.String(), f.Shares.String(), f.Note).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrFundExists
	}
	return err
}

func (r *Repo) UpdateFund(ctx context.Context, f *Fund) error {
	q := `UPDATE funds SET fund_code = $1, fund_name = $2, cost = $3::numeric, shares = $4::numeric, note = $5, updated_at = now() WHERE id = $6 RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, q, f.FundCode, f.FundName, f.Cost.String(), f.Shares.String(), f.Note, f.ID).Scan(&f.UpdatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrFundExists
	}
	return notFound(err)
}

func (r *Repo) DeleteFund(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM funds WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertDailyData stores the quote of code for date, replacing any quote
// already stored for that day.
func (r *Repo) UpsertDailyData(ctx context.Context, code string, nav, dailyChange decimal.Decimal, date string) error {
	q := `INSERT INTO daily_data (fund_code, nav, daily_change, date, created_at) VALUES ($1, $2::numeric, $3::numeric, $4::date, now()) ON CONFLICT (fund_code, date) DO UPDATE SET nav = EXCLUDED.nav, daily_change = EXCLUDED.daily_change`
	_, err := r.db.ExecContext(ctx, q, code, nav.StringFixed(4), dailyChange.StringFixed(4), date)
	return err
}

func (r *Repo) GetLatestDailyData(ctx context.Context, code string) (DailyData, error) {
	var d DailyData
	err := r.db.GetContext(ctx, &d, `SELECT `+dailyColumns+` FROM daily_data WHERE fund_code = $1 ORDER BY daily_data.date DESC LIMIT 1`, code)
	return d, notFound(err)
}

// GetDailyData returns every stored quote of the given funds, oldest first.
func (r *Repo) GetDailyData(ctx context.Context, codes []string) ([]DailyData, error) {
	if len(codes) == 0 {
		return []DailyData{}, nil
	}
	return r.selectDaily(ctx, `SELECT `+dailyColumns+` FROM daily_data WHERE fund_code = ANY($1) ORDER BY daily_data.date ASC, id ASC`, pq.Array(codes))
}

func (r *Repo) ListDailyData(ctx context.Context) ([]DailyData, error) {
	return r.selectDaily(ctx, `SELECT `+dailyColumns+` FROM daily_data ORDER BY fund_code ASC, daily_data.date ASC`)
}

func (r *Repo) selectDaily(ctx context.Context, q string, args ...interface{}) ([]DailyData, error) {
	rows, err := r.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []DailyData{}
	for rows.Next() {
		var d DailyData
		if err := rows.StructScan(&d); err != nil {
			r.log.Warnf("scan daily data failed: %v", err)
			continue
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// Import adds the funds and quotes that are not stored yet in a single
// transaction. Funds are matched by code, quotes by code and date.
func (r *Repo) Import(ctx context.Context, funds []Fund, daily []DailyData) (int, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	importedFunds := 0
	for _, f := range funds {
		res, err := tx.ExecContext(ctx, `INSERT INTO funds (fund_code, fund_name, cost, shares, note, created_at, updated_at) VALUES ($1, $2, $3::numeric, $4::numeric, $5, now(), now()) ON CONFLICT (fund_code) DO NOTHING`,
			f.FundCode, f.FundName, f.Cost.String(), f.Shares.String(), f.Note)
		if err != nil {
			return 0, 0, fmt.Errorf("import fund %s: %w", f.FundCode, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("import fund %s: %w", f.FundCode, err)
		}
		importedFunds += int(n)
	}

	importedDaily := 0
	for _, d := range daily {
		res, err := tx.ExecContext(ctx, `INSERT INTO daily_data (fund_code, nav, daily_change, date, created_at) VALUES ($1, $2::numeric, $3::numeric, $4::date, now()) ON CONFLICT (fund_code, date) DO NOTHING`,
			d.FundCode, d.NAV.StringFixed(4), d.DailyChange.StringFixed(4), d.Date)
		if err != nil {
			return 0, 0, fmt.Errorf("import daily data %s %s: %w", d.FundCode, d.Date, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("import daily data %s %s: %w", d.FundCode, d.Date, err)
		}
		importedDaily += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return importedFunds, importedDaily, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
