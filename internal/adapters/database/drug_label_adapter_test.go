package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/clients/sqldb"
	apperrors "github.com/zatekoja/druglabels/backend/pkg/errors"
)

func drugLabelColumnNames() []string {
	names := []string{"id", "brand_name", "generic_name", "labeler"}
	for _, f := range entities.LabelFields() {
		names = append(names, f.Column)
	}
	return names
}

func setupDrugLabelAdapter(t *testing.T, driver string) (*DrugLabelAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	adapter := NewDrugLabelAdapter(sqldb.NewFromDB(db, driver)).(*DrugLabelAdapter)
	return adapter, mock
}

func TestDrugLabelAdapter_LoadAll(t *testing.T) {
	adapter, mock := setupDrugLabelAdapter(t, sqldb.DriverPostgres)

	first := []driver.Value{"123", "Aspirin", "acetylsalicylic-acid", "Test Pharma", "Pain relief", "325mg daily"}
	second := []driver.Value{"456", "Zyrtec", nil, "Kenvue", "Allergy relief", ""}
	for i := 0; i < 10; i++ {
		first = append(first, nil)
		second = append(second, nil)
	}
	rows := sqlmock.NewRows(drugLabelColumnNames()).AddRow(first...).AddRow(second...)

	mock.ExpectQuery(`SELECT "id", "brand_name", "generic_name", "labeler", "indications_and_usage", .* FROM "drug_labels" ORDER BY "id" ASC`).
		WillReturnRows(rows)

	records, err := adapter.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Aspirin", records[0].DrugName)
	assert.Equal(t, "Pain relief", records[0].Field(entities.FieldIndicationsAndUsage))
	assert.Equal(t, "325mg daily", records[0].Field(entities.FieldDosageAndAdministration))
	assert.Len(t, records[0].Fields, 2)

	assert.Equal(t, "", records[1].GenericName)
	assert.Len(t, records[1].Fields, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugLabelAdapter_SQLiteDialect(t *testing.T) {
	adapter, mock := setupDrugLabelAdapter(t, sqldb.DriverSQLite)

	mock.ExpectQuery("SELECT `id`, `brand_name`.* FROM `drug_labels` ORDER BY `id` ASC").
		WillReturnRows(sqlmock.NewRows(drugLabelColumnNames()))

	records, err := adapter.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugLabelAdapter_QueryFailure(t *testing.T) {
	adapter, mock := setupDrugLabelAdapter(t, sqldb.DriverPostgres)

	mock.ExpectQuery(`FROM "drug_labels"`).WillReturnError(errors.New("connection reset"))

	_, err := adapter.LoadAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))
}
