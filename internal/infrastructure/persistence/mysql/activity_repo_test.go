package mysql_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/audit"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql/mysqltest"
)

func TestActivityRepository(t *testing.T) {
	db := mysqltest.NewDB(t)
	repo := mysql.NewActivityRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	entries := []audit.Entry{
		{BorrowerID: 1, Action: audit.ActionBookBorrowed, EntityType: audit.EntityBook, EntityID: 10, Details: "借阅《Dune》"},
		{BorrowerID: 1, Action: audit.ActionBookReturned, EntityType: audit.EntityBook, EntityID: 10, Details: "归还《Dune》"},
		{BorrowerID: 1, Action: audit.ActionPenaltyApplied, EntityType: audit.EntityLoan, EntityID: 1, Details: "罚金 3.00"},
		{BorrowerID: 2, Action: audit.ActionBookBorrowed, EntityType: audit.EntityBook, EntityID: 11, Details: "借阅《Emma》"},
	}
	for i := range entries {
		entries[i].ID = uuid.NewString()
		entries[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Write(ctx, entries[i]))
	}

	t.Run("重复写入同一条目视为成功", func(t *testing.T) {
		assert.NoError(t, repo.Append(ctx, entries[0]))
	})

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, entries[3].ID, recent[0].ID, "最新的在前")

	byBorrower, err := repo.ListByBorrower(ctx, 1, 50)
	require.NoError(t, err)
	assert.Len(t, byBorrower, 3)

	byAction, err := repo.ListByAction(ctx, audit.ActionBookBorrowed, 50)
	require.NoError(t, err)
	assert.Len(t, byAction, 2)
	for _, e := range byAction {
		assert.Equal(t, audit.ActionBookBorrowed, e.Action)
	}

	assert.Equal(t, "database", repo.Name())
}
