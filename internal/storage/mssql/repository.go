package mssql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"ceneo-opinions/internal/observability"
	"ceneo-opinions/internal/scraper"
	"ceneo-opinions/internal/stats"
	"ceneo-opinions/internal/storage"
)

// Schema creates the single table the repository uses.
const Schema = `
IF OBJECT_ID(N'dbo.TblProductOpinions', N'U') IS NULL
CREATE TABLE dbo.TblProductOpinions (
	[ProductID]     NVARCHAR(64)  NOT NULL PRIMARY KEY,
	[ProductName]   NVARCHAR(512) NOT NULL,
	[OpinionsCount] INT           NOT NULL,
	[AverageStars]  FLOAT         NULL,
	[StatsJSON]     NVARCHAR(MAX) NOT NULL,
	[OpinionsJSON]  NVARCHAR(MAX) NOT NULL,
	[UpdatedAt]     DATETIME2     NOT NULL
);`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}, nil
}

// EnsureSchema creates the table on first use.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save upserts the records and statistics of a product in one statement.
func (r *Repository) Save(ctx context.Context, productID string, records []scraper.Record, st *stats.ProductStats) error {
	if err := storage.ValidateProductID(productID); err != nil {
		return err
	}
	if records == nil {
		records = []scraper.Record{}
	}

	opinionsJSON, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode opinions: %w", err)
	}
	statsJSON, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	var average sql.NullFloat64
	if !st.AverageStars.IsNaN() {
		average = sql.NullFloat64{Float64: float64(st.AverageStars), Valid: true}
	}

	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		MERGE INTO dbo.TblProductOpinions AS target
		USING (SELECT @ProductID AS ProductID) AS source
		ON target.[ProductID] = source.ProductID
		WHEN MATCHED THEN
			UPDATE SET
				[ProductName] = @ProductName,
				[OpinionsCount] = @OpinionsCount,
				[AverageStars] = @AverageStars,
				[StatsJSON] = @StatsJSON,
				[OpinionsJSON] = @OpinionsJSON,
				[UpdatedAt] = @UpdatedAt
		WHEN NOT MATCHED THEN
			INSERT ([ProductID], [ProductName], [OpinionsCount], [AverageStars], [StatsJSON], [OpinionsJSON], [UpdatedAt])
			VALUES (@ProductID, @ProductName, @OpinionsCount, @AverageStars, @StatsJSON, @OpinionsJSON, @UpdatedAt);
	`

	_, err = r.db.ExecContext(ctx, query,
		sql.Named("ProductID", productID),
		sql.Named("ProductName", st.ProductName),
		sql.Named("OpinionsCount", st.OpinionsCount),
		sql.Named("AverageStars", average),
		sql.Named("StatsJSON", string(statsJSON)),
		sql.Named("OpinionsJSON", string(opinionsJSON)),
		sql.Named("UpdatedAt", time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("failed to execute upsert: %w", err)
	}

	r.logger.Debug("Product saved", "product_id", productID, "opinions", len(records))
	return nil
}

func (r *Repository) Opinions(ctx context.Context, productID string) ([]scraper.Record, error) {
	if err := storage.ValidateProductID(productID); err != nil {
		return nil, err
	}

	raw, err := r.column(ctx, "OpinionsJSON", productID)
	if err != nil {
		return nil, err
	}

	records := []scraper.Record{}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("failed to decode opinions: %w", err)
	}
	return records, nil
}

func (r *Repository) Stats(ctx context.Context, productID string) (*stats.ProductStats, error) {
	if err := storage.ValidateProductID(productID); err != nil {
		return nil, err
	}

	raw, err := r.column(ctx, "StatsJSON", productID)
	if err != nil {
		return nil, err
	}

	var st stats.ProductStats
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}
	return &st, nil
}

func (r *Repository) ListStats(ctx context.Context) ([]*stats.ProductStats, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT [StatsJSON] FROM dbo.TblProductOpinions ORDER BY [ProductID]`)
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err.Error())
		}
	}()

	out := []*stats.ProductStats{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var st stats.ProductStats
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			r.logger.Warn("Skipping undecodable product", "error", err.Error())
			continue
		}
		out = append(out, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}

// column reads one JSON column; only the two fixed column names are ever
// passed in.
func (r *Repository) column(ctx context.Context, column, productID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT [%s] FROM dbo.TblProductOpinions WHERE [ProductID] = @ProductID`, column)

	var raw string
	err := r.db.QueryRowContext(ctx, query, sql.Named("ProductID", productID)).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("failed to query database: %w", err)
	}
	return raw, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
