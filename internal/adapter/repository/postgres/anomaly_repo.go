package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/infrastructure/postgres/generated"
)

// AnomalyRepository persists scan anomalies.
type AnomalyRepository struct {
	queries *generated.Queries
}

// NewAnomalyRepository creates a new anomaly repository
func NewAnomalyRepository(db generated.DBTX) *AnomalyRepository {
	return &AnomalyRepository{queries: generated.New(db)}
}

// Create inserts a new anomaly row
func (r *AnomalyRepository) Create(ctx context.Context, anomaly *domain.ScanAnomaly) error {
	if anomaly.ID == "" {
		anomaly.ID = uuid.New().String()
	}
	if anomaly.CreatedAt.IsZero() {
		anomaly.CreatedAt = time.Now().UTC()
	}

	return r.queries.CreateScanAnomaly(ctx, generated.CreateScanAnomalyParams{
		ID:        anomaly.ID,
		TxID:      anomaly.TxID,
		Address:   anomaly.Address,
		Slot:      slotToInt8(anomaly.Slot),
		Reason:    anomaly.Reason,
		Detail:    anomaly.Detail,
		CreatedAt: timeToPgTimestamptz(anomaly.CreatedAt),
	})
}

// ListByAddress retrieves the newest anomalies of an address
func (r *AnomalyRepository) ListByAddress(ctx context.Context, address string, limit int) ([]*domain.ScanAnomaly, error) {
	rows, err := r.queries.ListScanAnomaliesByAddress(ctx, generated.ListScanAnomaliesByAddressParams{
		Address: address,
		Limit:   int32(limit),
	})
	if err != nil {
		return nil, err
	}

	anomalies := make([]*domain.ScanAnomaly, 0, len(rows))
	for _, row := range rows {
		anomalies = append(anomalies, &domain.ScanAnomaly{
			ID:        row.ID,
			TxID:      row.TxID,
			Address:   row.Address,
			Slot:      int8ToSlot(row.Slot),
			Reason:    row.Reason,
			Detail:    row.Detail,
			CreatedAt: row.CreatedAt.Time,
		})
	}

	return anomalies, nil
}
