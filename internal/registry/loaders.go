// internal/registry/loaders.go
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	cfg "github.com/tamzrod/beacon-guard/internal/config"
)

// ConfigLoader serves assets declared inline in the YAML config.
type ConfigLoader struct {
	Assets []cfg.AssetConfig
}

func (l ConfigLoader) Load(context.Context) ([]Asset, error) {
	out := make([]Asset, 0, len(l.Assets))
	for _, a := range l.Assets {
		ch := NoChannel
		if a.Channel != nil {
			ch = *a.Channel
		}
		out = append(out, Asset{Serial: a.Serial, MAC: a.MAC, Channel: ch})
	}
	return out, nil
}

// assetQuery reads the laptop table maintained by the web backend.
const assetQuery = `
	SELECT ibeacon_mac_address, serial_number, ultrasonic_sensor_index
	FROM laptop
`

// PostgresLoader reads assets from the backend database.
// Rows missing a MAC or serial are skipped; a NULL index means no channel.
type PostgresLoader struct {
	URL    string
	Logger *slog.Logger
}

func (l PostgresLoader) Load(ctx context.Context) ([]Asset, error) {
	pool, err := pgxpool.New(ctx, l.URL)
	if err != nil {
		return nil, fmt.Errorf("registry: postgres config: %w", err)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, assetQuery)
	if err != nil {
		return nil, fmt.Errorf("registry: query laptops: %w", err)
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var (
			mac, serial *string
			index       *int32
		)
		if err := rows.Scan(&mac, &serial, &index); err != nil {
			return nil, fmt.Errorf("registry: scan laptop row: %w", err)
		}
		a, ok := assetFromRow(mac, serial, index)
		if !ok {
			l.logger().Warn("skipping laptop without beacon mac or serial")
			continue
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry: read laptops: %w", err)
	}

	l.logger().Info("assets loaded from database", "count", len(out))
	return out, nil
}

func (l PostgresLoader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func assetFromRow(mac, serial *string, index *int32) (Asset, bool) {
	if mac == nil || serial == nil {
		return Asset{}, false
	}
	a := Asset{
		MAC:     strings.TrimSpace(*mac),
		Serial:  strings.TrimSpace(*serial),
		Channel: NoChannel,
	}
	if a.MAC == "" || a.Serial == "" {
		return Asset{}, false
	}
	if index != nil {
		a.Channel = int(*index)
	}
	return a, true
}

// NewLoader picks the loader for the configured registry source.
func NewLoader(g cfg.GuardConfig, logger *slog.Logger) Loader {
	if g.Registry.Source == cfg.SourcePostgres {
		return PostgresLoader{URL: g.Registry.PostgresURL, Logger: logger}
	}
	return ConfigLoader{Assets: g.Assets}
}
