package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPool_RejectsBadURL(t *testing.T) {
	_, err := NewPool(context.Background(), "", 0)
	assert.Error(t, err)

	_, err = NewPool(context.Background(), "postgres://%zz", 0)
	assert.ErrorContains(t, err, "unable to parse database url")
}
