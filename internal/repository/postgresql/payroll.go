package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const (
	pgUniqueViolation = "23505"
	payrollPeriodKey  = "uk_payroll_employee_period"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

const payrollColumns = `
	id, employee_id, period_type, period_start_date, period_end_date, status,
	gross_pay, total_deductions, total_taxes, net_pay, currency,
	approved_by, approved_at, processed_at, paid_at, payment_reference, notes,
	version, created_at, updated_at`

// Save writes the payroll row and replaces its lines in one transaction.
// New aggregates (version 0) are inserted; existing ones are updated only if
// the stored version still matches.
func (r *payrollRepository) Save(ctx context.Context, p *payroll.Payroll) (*payroll.Payroll, error) {
	s := p.Snapshot()
	newVersion := s.Version + 1

	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		if s.Version == 0 {
			if err := r.insert(ctx, q, s); err != nil {
				return err
			}
		} else {
			if err := r.update(ctx, q, s); err != nil {
				return err
			}
		}

		return r.replaceLines(ctx, q, s.ID, s.Lines)
	})
	if err != nil {
		return nil, err
	}

	p.MarkPersisted(newVersion)
	return p, nil
}

func (r *payrollRepository) insert(ctx context.Context, q database.Querier, s payroll.PayrollSnapshot) error {
	sum := summaryColumns(s.Summary)
	query := `
		INSERT INTO payrolls (` + payrollColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1, $18, $19)
	`
	_, err := q.Exec(ctx, query,
		s.ID, s.EmployeeID, string(s.Period.Type), s.Period.StartDate, s.Period.EndDate, string(s.Status),
		sum.gross, sum.deductions, sum.taxes, sum.net, sum.currency,
		s.ApprovedBy, s.ApprovedAt, s.ProcessedAt, s.PaidAt, s.PaymentReference, s.Notes,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			if pgErr.ConstraintName == payrollPeriodKey {
				return fmt.Errorf("%w: employee %s, %s", payroll.ErrPayrollAlreadyExists, s.EmployeeID, s.Period)
			}
			return fmt.Errorf("%w: payroll %s", payroll.ErrConcurrentModification, s.ID)
		}
		return fmt.Errorf("failed to insert payroll: %w", err)
	}
	return nil
}

func (r *payrollRepository) update(ctx context.Context, q database.Querier, s payroll.PayrollSnapshot) error {
	sum := summaryColumns(s.Summary)
	query := `
		UPDATE payrolls SET
			status = $3,
			gross_pay = $4, total_deductions = $5, total_taxes = $6, net_pay = $7, currency = $8,
			approved_by = $9, approved_at = $10, processed_at = $11, paid_at = $12,
			payment_reference = $13, notes = $14,
			version = version + 1,
			updated_at = $15
		WHERE id = $1 AND version = $2
	`
	tag, err := q.Exec(ctx, query,
		s.ID, s.Version, string(s.Status),
		sum.gross, sum.deductions, sum.taxes, sum.net, sum.currency,
		s.ApprovedBy, s.ApprovedAt, s.ProcessedAt, s.PaidAt,
		s.PaymentReference, s.Notes,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update payroll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payroll %s at version %d", payroll.ErrConcurrentModification, s.ID, s.Version)
	}
	return nil
}

func (r *payrollRepository) replaceLines(ctx context.Context, q database.Querier, payrollID string, lines []payroll.PayrollLine) error {
	if _, err := q.Exec(ctx, `DELETE FROM payroll_lines WHERE payroll_id = $1`, payrollID); err != nil {
		return fmt.Errorf("failed to delete payroll lines: %w", err)
	}
	if len(lines) == 0 {
		return nil
	}

	query := `
		INSERT INTO payroll_lines (id, payroll_id, position, line_type, description, quantity, rate, amount, currency, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	batch := &pgx.Batch{}
	for i, l := range lines {
		batch.Queue(query,
			uuid.Must(uuid.NewV7()).String(), payrollID, i, string(l.Type), l.Description,
			l.Quantity, l.Rate.Amount(), l.Amount.Amount(), l.Amount.Currency(), l.ReferenceID,
		)
	}

	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for range lines {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert payroll line: %w", err)
		}
	}
	return nil
}

func (r *payrollRepository) GetByID(ctx context.Context, id string) (*payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollColumns + ` FROM payrolls WHERE id = $1`
	row, err := scanPayrollRow(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", payroll.ErrPayrollNotFound, id)
		}
		return nil, fmt.Errorf("failed to get payroll: %w", err)
	}

	lines, err := r.loadLines(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}
	return row.toAggregate(lines[id])
}

func (r *payrollRepository) FindByEmployee(ctx context.Context, employeeID string, skip, limit int) ([]*payroll.Payroll, error) {
	query := `
		SELECT ` + payrollColumns + `
		FROM payrolls
		WHERE employee_id = $1
		ORDER BY period_start_date DESC, created_at DESC
		OFFSET $2 LIMIT $3
	`
	return r.list(ctx, query, employeeID, skip, limit)
}

func (r *payrollRepository) FindAll(ctx context.Context, skip, limit int) ([]*payroll.Payroll, error) {
	query := `
		SELECT ` + payrollColumns + `
		FROM payrolls
		ORDER BY period_start_date DESC, created_at DESC
		OFFSET $1 LIMIT $2
	`
	return r.list(ctx, query, skip, limit)
}

func (r *payrollRepository) list(ctx context.Context, query string, args ...interface{}) ([]*payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payrolls: %w", err)
	}
	defer rows.Close()

	var payrollRows []payrollRow
	var ids []string
	for rows.Next() {
		row, err := scanPayrollRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll: %w", err)
		}
		payrollRows = append(payrollRows, row)
		ids = append(ids, row.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payrolls: %w", err)
	}
	// Free the connection before the second query when running inside a tx.
	rows.Close()

	lines, err := r.loadLines(ctx, q, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*payroll.Payroll, 0, len(payrollRows))
	for _, row := range payrollRows {
		p, err := row.toAggregate(lines[row.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *payrollRepository) loadLines(ctx context.Context, q database.Querier, payrollIDs []string) (map[string][]payroll.PayrollLine, error) {
	out := make(map[string][]payroll.PayrollLine, len(payrollIDs))
	if len(payrollIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT payroll_id, line_type, description, quantity, rate, amount, currency, reference_id
		FROM payroll_lines
		WHERE payroll_id = ANY($1)
		ORDER BY payroll_id, position
	`
	rows, err := q.Query(ctx, query, payrollIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load payroll lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			payrollID, lineType, description, currency string
			quantity, rate, amount                     decimal.Decimal
			referenceID                                *string
		)
		if err := rows.Scan(&payrollID, &lineType, &description, &quantity, &rate, &amount, &currency, &referenceID); err != nil {
			return nil, fmt.Errorf("failed to scan payroll line: %w", err)
		}

		rateMoney, err := shared.NewMoney(rate, currency)
		if err != nil {
			return nil, fmt.Errorf("payroll %s line rate: %w", payrollID, err)
		}
		amountMoney, err := shared.NewMoney(amount, currency)
		if err != nil {
			return nil, fmt.Errorf("payroll %s line amount: %w", payrollID, err)
		}
		line, err := payroll.NewPayrollLine(payroll.LineType(lineType), description, quantity, rateMoney, amountMoney, referenceID)
		if err != nil {
			return nil, fmt.Errorf("payroll %s line: %w", payrollID, err)
		}
		out[payrollID] = append(out[payrollID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load payroll lines: %w", err)
	}
	return out, nil
}

func (r *payrollRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payrolls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payroll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", payroll.ErrPayrollNotFound, id)
	}
	return nil
}

// ExistsForPeriod ignores cancelled payrolls.
func (r *payrollRepository) ExistsForPeriod(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM payrolls
			WHERE employee_id = $1
			  AND period_start_date = $2
			  AND period_end_date = $3
			  AND status <> 'CANCELLED'
		)
	`
	var exists bool
	if err := q.QueryRow(ctx, query, employeeID, start, end).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check payroll period: %w", err)
	}
	return exists, nil
}

func (r *payrollRepository) FindForPeriod(ctx context.Context, employeeID string, start, end time.Time) (*payroll.Payroll, error) {
	query := `
		SELECT ` + payrollColumns + `
		FROM payrolls
		WHERE employee_id = $1
		  AND period_start_date = $2
		  AND period_end_date = $3
		  AND status <> 'CANCELLED'
		LIMIT 1
	`
	found, err := r.list(ctx, query, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: employee %s, %s to %s", payroll.ErrPayrollNotFound, employeeID,
			start.Format(shared.DateLayout), end.Format(shared.DateLayout))
	}
	return found[0], nil
}

// ========== ROW MAPPING ==========

type summaryRow struct {
	gross, deductions, taxes, net decimal.NullDecimal
	currency                      *string
}

func summaryColumns(s *payroll.PayrollSummary) summaryRow {
	if s == nil {
		return summaryRow{}
	}
	currency := s.Currency()
	return summaryRow{
		gross:      decimal.NewNullDecimal(s.GrossPay.Amount()),
		deductions: decimal.NewNullDecimal(s.TotalDeductions.Amount()),
		taxes:      decimal.NewNullDecimal(s.TotalTaxes.Amount()),
		net:        decimal.NewNullDecimal(s.NetPay.Amount()),
		currency:   &currency,
	}
}

type payrollRow struct {
	ID               string
	EmployeeID       string
	PeriodType       string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	Status           string
	Summary          summaryRow
	ApprovedBy       *string
	ApprovedAt       *time.Time
	ProcessedAt      *time.Time
	PaidAt           *time.Time
	PaymentReference *string
	Notes            *string
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func scanPayrollRow(row pgx.Row) (payrollRow, error) {
	var r payrollRow
	err := row.Scan(
		&r.ID, &r.EmployeeID, &r.PeriodType, &r.PeriodStart, &r.PeriodEnd, &r.Status,
		&r.Summary.gross, &r.Summary.deductions, &r.Summary.taxes, &r.Summary.net, &r.Summary.currency,
		&r.ApprovedBy, &r.ApprovedAt, &r.ProcessedAt, &r.PaidAt, &r.PaymentReference, &r.Notes,
		&r.Version, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func (r payrollRow) toAggregate(lines []payroll.PayrollLine) (*payroll.Payroll, error) {
	status, err := payroll.ParsePayrollStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("payroll %s: %w", r.ID, err)
	}
	period, err := payroll.NewPayrollPeriod(payroll.PeriodType(r.PeriodType), r.PeriodStart, r.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("payroll %s: %w", r.ID, err)
	}

	var summary *payroll.PayrollSummary
	if r.Summary.gross.Valid && r.Summary.currency != nil {
		s, err := restoreSummary(r.Summary)
		if err != nil {
			return nil, fmt.Errorf("payroll %s summary: %w", r.ID, err)
		}
		summary = &s
	}

	return payroll.Restore(payroll.PayrollSnapshot{
		ID:               r.ID,
		EmployeeID:       r.EmployeeID,
		Period:           period,
		Status:           status,
		Lines:            lines,
		Summary:          summary,
		ApprovedBy:       r.ApprovedBy,
		ApprovedAt:       r.ApprovedAt,
		ProcessedAt:      r.ProcessedAt,
		PaidAt:           r.PaidAt,
		PaymentReference: r.PaymentReference,
		Notes:            r.Notes,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}), nil
}

// restoreSummary trusts the stored net pay instead of recomputing it.
func restoreSummary(s summaryRow) (payroll.PayrollSummary, error) {
	currency := *s.currency
	var out payroll.PayrollSummary
	var err error
	if out.GrossPay, err = shared.NewMoney(s.gross.Decimal, currency); err != nil {
		return out, err
	}
	if out.TotalDeductions, err = shared.NewMoney(s.deductions.Decimal, currency); err != nil {
		return out, err
	}
	if out.TotalTaxes, err = shared.NewMoney(s.taxes.Decimal, currency); err != nil {
		return out, err
	}
	if out.NetPay, err = shared.NewMoney(s.net.Decimal, currency); err != nil {
		return out, err
	}
	return out, nil
}
