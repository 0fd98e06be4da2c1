package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
	"github.com/zatekoja/druglabels/backend/internal/domain/repositories"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/druglabels/backend/pkg/errors"
)

const drugLabelsTable = "drug_labels"

// DrugLabelAdapter loads drug labels from a relational store
type DrugLabelAdapter struct {
	client *sqldb.Client
	db     *goqu.Database
}

// NewDrugLabelAdapter creates a new drug label adapter using the client's SQL dialect
func NewDrugLabelAdapter(client *sqldb.Client) repositories.DrugLabelStore {
	return &DrugLabelAdapter{
		client: client,
		db:     goqu.New(client.Driver(), client.DB()),
	}
}

func drugLabelColumns() []interface{} {
	cols := []interface{}{"id", "brand_name", "generic_name", "labeler"}
	for _, f := range entities.LabelFields() {
		cols = append(cols, f.Column)
	}
	return cols
}

// LoadAll retrieves every drug label ordered by id
func (a *DrugLabelAdapter) LoadAll(ctx context.Context) ([]*entities.DrugRecord, error) {
	query, args, err := a.db.Select(drugLabelColumns()...).
		From(drugLabelsTable).
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build drug label query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load drug labels", err)
	}
	defer rows.Close()

	fields := entities.LabelFields()
	var records []*entities.DrugRecord
	for rows.Next() {
		var id string
		var brand, generic, labeler sql.NullString
		prose := make([]sql.NullString, len(fields))

		dest := []interface{}{&id, &brand, &generic, &labeler}
		for i := range prose {
			dest = append(dest, &prose[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.NewInternalError("failed to scan drug label", err)
		}

		record := &entities.DrugRecord{
			ID:          id,
			DrugName:    brand.String,
			GenericName: generic.String,
			Labeler:     labeler.String,
			Fields:      make(map[entities.FieldKey]string),
		}
		for i, f := range fields {
			if prose[i].Valid && prose[i].String != "" {
				record.Fields[f.Key] = prose[i].String
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate drug labels", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Int("count", len(records)).
		Str("driver", a.client.Driver()).
		Msg("loaded drug labels")
	return records, nil
}
