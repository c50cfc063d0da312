package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/example/shipmesh/pkg/apperr"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "40P01"}), ErrorClassDeadlock},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassConstraint},
		{"other", errors.New("boom"), ErrorClassPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, NotFound(sql.ErrNoRows, "shipment", 5), apperr.ErrNotFound)
	assert.ErrorIs(t, NotFound(gorm.ErrRecordNotFound, "order", "7"), apperr.ErrNotFound)
	assert.EqualError(t, NotFound(sql.ErrNoRows, "shipment", 5), "shipment 5: not found")

	other := errors.New("connection reset")
	assert.Same(t, other, NotFound(other, "shipment", 5))
}
