package main

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/tably/tably/internal/clock"
	"github.com/tably/tably/internal/config"
	"github.com/tably/tably/internal/coupon"
	"github.com/tably/tably/internal/couponprogram"
	"github.com/tably/tably/internal/coupontemplate"
	"github.com/tably/tably/internal/issuance"
	"github.com/tably/tably/internal/migration"
	"github.com/tably/tably/internal/observability"
	"github.com/tably/tably/internal/order"
	"github.com/tably/tably/internal/ratelimit"
	"github.com/tably/tably/internal/seed"
	"github.com/tably/tably/internal/server"
	"github.com/tably/tably/internal/userdirectory"
	"github.com/tably/tably/pkg/db"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		migration.Module,
		seed.Module,
		ratelimit.Module,

		coupontemplate.Module,
		couponprogram.Module,
		coupon.Module,
		userdirectory.Module,
		issuance.Module,
		order.Module,

		server.Module,
	).Run()
}

// newSnowflakeNode derives the node id from the hostname so replicas in
// the same deployment do not mint colliding ids.
func newSnowflakeNode() (*snowflake.Node, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "tably"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(hostname))
	return snowflake.NewNode(int64(h.Sum32() % 1024))
}
