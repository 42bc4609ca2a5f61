package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"check violation", &pq.Error{Code: checkViolation}, domain.ErrArithmeticOverflow},
		{"serialization failure", &pq.Error{Code: serializationError}, domain.ErrConflict},
		{"deadlock", &pq.Error{Code: deadlockDetected}, domain.ErrConflict},
		{"wrapped deadlock", fmt.Errorf("failed to update run: %w", &pq.Error{Code: deadlockDetected}), domain.ErrConflict},
		{"other driver error", &pq.Error{Code: "23505"}, nil},
		{"non driver error", plain, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err)

			if tt.want == nil {
				assert.Equal(t, tt.err, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)

			var pqErr *pq.Error
			assert.ErrorAs(t, got, &pqErr)
		})
	}

	assert.NoError(t, translate(nil))
}

func TestTranslate_AlreadyTranslated(t *testing.T) {
	once := translate(&pq.Error{Code: deadlockDetected})

	assert.Equal(t, once, translate(once))
}
