package seed

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	identitydomain "github.com/smallbiznis/vendora/internal/identity/domain"
	subscriptiondomain "github.com/smallbiznis/vendora/internal/subscription/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSeedDB(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&identitydomain.User{}, &subscriptiondomain.Plan{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return conn, node
}

func TestEnsureDefaultPlan(t *testing.T) {
	conn, node := setupSeedDB(t)

	require.NoError(t, EnsureDefaultPlan(conn, node))
	require.NoError(t, EnsureDefaultPlan(conn, node))

	var plans []subscriptiondomain.Plan
	require.NoError(t, conn.Find(&plans).Error)
	require.Len(t, plans, 1)
	require.Equal(t, "Starter", plans[0].Name)
	require.Equal(t, subscriptiondomain.IntervalMonthly, plans[0].Interval)
	require.True(t, plans[0].Price.Equal(decimal.RequireFromString("29.00")))
	require.Nil(t, plans[0].FeePercentage)
}

func TestEnsureDefaultPlanSkipsManagedCatalog(t *testing.T) {
	conn, node := setupSeedDB(t)

	custom := subscriptiondomain.Plan{
		ID:       node.Generate(),
		Name:     "Growth",
		Price:    decimal.RequireFromString("99.00"),
		Interval: subscriptiondomain.IntervalMonthly,
	}
	require.NoError(t, conn.Create(&custom).Error)

	require.NoError(t, EnsureDefaultPlan(conn, node))

	var count int64
	require.NoError(t, conn.Model(&subscriptiondomain.Plan{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestEnsureAdminUser(t *testing.T) {
	conn, node := setupSeedDB(t)

	require.NoError(t, EnsureAdminUser(conn, node, "Admin@Vendora.dev", "swordfish1"))
	require.NoError(t, EnsureAdminUser(conn, node, "admin@vendora.dev", "swordfish1"))

	var users []identitydomain.User
	require.NoError(t, conn.Find(&users).Error)
	require.Len(t, users, 1)
	require.Equal(t, "admin@vendora.dev", users[0].Email)
	require.Equal(t, identitydomain.RoleAdmin, users[0].Role)

	// Empty bootstrap config is a no-op, not an error.
	require.NoError(t, EnsureAdminUser(conn, node, "", ""))
}
