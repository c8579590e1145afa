package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"FeedbackBot/internal/config"
	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/ports"
)

// Dialect selects placeholder style and DDL flavour.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const (
	staffTable   = "staff"
	reportsTable = "staff_reports"
)

var staffColumns = []string{"telegram_id", "first_name", "last_name", "username", "role", "deleted", "created_at"}

var reportColumns = []string{
	"id", "staff_id", "submitted_at", "author_name", "role", "text", "caption",
	"voice_file_id", "transcription", "source_chat_id", "source_message_id",
}

// Repository persists the staff registry and staff reports in SQLite or Postgres.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

var (
	_ ports.StaffStore       = (*Repository)(nil)
	_ ports.StaffReportStore = (*Repository)(nil)
)

// NewRepository wires an already opened sql.DB.
func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	var placeholder sq.PlaceholderFormat = sq.Question
	if dialect == DialectPostgres {
		placeholder = sq.Dollar
	}
	return &Repository{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
}

// Open connects using cfg and applies the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Repository, error) {
	dialect := Dialect(strings.ToLower(cfg.Driver))
	switch dialect {
	case DialectSQLite:
		if dir := filepath.Dir(cfg.DSN); cfg.DSN != ":memory:" && dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	case DialectPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(string(dialect), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	repo := NewRepository(db, dialect)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Migrate creates tables when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	for i, stmt := range schema(r.dialect) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

func schema(dialect Dialect) []string {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if dialect == DialectPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS staff (
			telegram_id BIGINT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS staff_reports (
			` + idColumn + `,
			staff_id BIGINT NOT NULL,
			submitted_at BIGINT NOT NULL,
			author_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			caption TEXT NOT NULL DEFAULT '',
			voice_file_id TEXT NOT NULL DEFAULT '',
			transcription TEXT,
			source_chat_id BIGINT NOT NULL DEFAULT 0,
			source_message_id BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS staff_reports_submitted_at_idx ON staff_reports (submitted_at)`,
	}
}

// UpsertStaff registers a staff member or refreshes their profile and restores them if removed.
// An empty role keeps the stored one.
func (r *Repository) UpsertStaff(ctx context.Context, staff domain.Staff) error {
	createdAt := staff.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	query, args, err := r.sb.Insert(staffTable).
		Columns(staffColumns...).
		Values(staff.TelegramID, staff.FirstName, staff.LastName, staff.Username, staff.Role, false, createdAt.Unix()).
		Suffix(`ON CONFLICT (telegram_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			username = excluded.username,
			role = CASE WHEN excluded.role <> '' THEN excluded.role ELSE staff.role END,
			deleted = FALSE`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert staff: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert staff: %w", err)
	}
	return nil
}

// GetStaff returns nil when the telegram user is not registered or was removed.
func (r *Repository) GetStaff(ctx context.Context, telegramID int64) (*domain.Staff, error) {
	query, args, err := r.sb.Select(staffColumns...).
		From(staffTable).
		Where(sq.Eq{"telegram_id": telegramID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get staff: %w", err)
	}

	staff, err := scanStaff(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get staff: %w", err)
	}
	if staff.Deleted {
		return nil, nil
	}
	return &staff, nil
}

// ListStaff returns active staff ordered by registration.
func (r *Repository) ListStaff(ctx context.Context) ([]domain.Staff, error) {
	query, args, err := r.sb.Select(staffColumns...).
		From(staffTable).
		Where(sq.Eq{"deleted": false}).
		OrderBy("created_at", "telegram_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list staff: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}

	var result []domain.Staff
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		result = append(result, staff)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// RemoveStaff soft-deletes a staff member; their past reports stay.
func (r *Repository) RemoveStaff(ctx context.Context, telegramID int64) error {
	return r.updateStaff(ctx, telegramID, "remove staff", map[string]any{"deleted": true})
}

// SetRole assigns one of domain.Roles.
func (r *Repository) SetRole(ctx context.Context, telegramID int64, role string) error {
	return r.updateStaff(ctx, telegramID, "set role", map[string]any{"role": role})
}

func (r *Repository) updateStaff(ctx context.Context, telegramID int64, op string, values map[string]any) error {
	query, args, err := r.sb.Update(staffTable).
		SetMap(values).
		Where(sq.Eq{"telegram_id": telegramID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AddReport stores a report and returns its id.
func (r *Repository) AddReport(ctx context.Context, report domain.StaffReport) (int64, error) {
	submittedAt := report.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = r.now()
	}

	query, args, err := r.sb.Insert(reportsTable).
		Columns(reportColumns[1:]...).
		Values(
			report.StaffID,
			submittedAt.Unix(),
			report.AuthorName,
			report.Role,
			report.Text,
			report.Caption,
			report.VoiceFileID,
			nullString(report.Transcription),
			report.SourceChatID,
			report.SourceMessageID,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build add report: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("add report: %w", err)
	}
	return id, nil
}

// MarkTranscribed stores the transcript of a voice report.
func (r *Repository) MarkTranscribed(ctx context.Context, reportID int64, transcription string) error {
	query, args, err := r.sb.Update(reportsTable).
		Set("transcription", transcription).
		Where(sq.Eq{"id": reportID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark transcribed: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark transcribed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark transcribed: report %d not found", reportID)
	}
	return nil
}

// ListReports returns reports submitted at or after since, oldest first.
func (r *Repository) ListReports(ctx context.Context, since time.Time) ([]domain.StaffReport, error) {
	return r.queryReports(ctx, "list reports", sq.GtOrEq{"submitted_at": since.Unix()})
}

// PendingTranscriptions returns voice reports still lacking a transcript.
func (r *Repository) PendingTranscriptions(ctx context.Context) ([]domain.StaffReport, error) {
	return r.queryReports(ctx, "pending transcriptions", sq.And{
		sq.NotEq{"voice_file_id": ""},
		sq.Eq{"transcription": nil},
	})
}

func (r *Repository) queryReports(ctx context.Context, op string, where sq.Sqlizer) ([]domain.StaffReport, error) {
	query, args, err := r.sb.Select(reportColumns...).
		From(reportsTable).
		Where(where).
		OrderBy("submitted_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result []domain.StaffReport
	for rows.Next() {
		var (
			report        domain.StaffReport
			submittedAt   int64
			transcription sql.NullString
		)
		if err := rows.Scan(
			&report.ID,
			&report.StaffID,
			&submittedAt,
			&report.AuthorName,
			&report.Role,
			&report.Text,
			&report.Caption,
			&report.VoiceFileID,
			&transcription,
			&report.SourceChatID,
			&report.SourceMessageID,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan report: %w", err)
		}
		report.SubmittedAt = time.Unix(submittedAt, 0).UTC()
		report.Transcription = transcription.String
		result = append(result, report)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStaff(row rowScanner) (domain.Staff, error) {
	var (
		staff     domain.Staff
		createdAt int64
	)
	if err := row.Scan(
		&staff.TelegramID,
		&staff.FirstName,
		&staff.LastName,
		&staff.Username,
		&staff.Role,
		&staff.Deleted,
		&createdAt,
	); err != nil {
		return domain.Staff{}, err
	}
	staff.CreatedAt = time.Unix(createdAt, 0).UTC()
	return staff, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
